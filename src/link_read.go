package husky

/*------------------------------------------------------------------
 *
 * Purpose:   	Information-frame receive path.
 *
 * Description:	One ten-state decoder handles everything the peer may
 *		legitimately send mid-stream: the expected I-frame, a
 *		duplicate of the previous I-frame, an in-band DISC (the
 *		peer is done) and an in-band SET (the peer restarted and
 *		wants a fresh session).
 *
 *			START -> FLAG_RCV -> A_RCV -+-> C_RCV -> DATA <-> ESCAPED
 *			                            +-> DISC -> DISC_BCC_OK
 *			                            +-> SET  -> SET_BCC_OK
 *
 *		DATA collects unescaped bytes into the session buffer.
 *		On the closing flag the last collected byte is BCC2 and
 *		the rest is the payload; a match on the expected parity
 *		is answered with RR of the opposite parity, a duplicate
 *		or a corrupt frame with REJ of the expected parity.
 *
 *		A BCC1 mismatch resyncs the decoder instead of gambling
 *		on the frame being data anyway.
 *
 *---------------------------------------------------------------*/

import "errors"

type readState int

const (
	rStart readState = iota
	rFlagRcv
	rARcv
	rCRcv
	rData
	rEscaped
	rDISC
	rDISCBCCOK
	rSET
	rSETBCCOK
)

var errOverflow = errors.New("husky: frame exceeds MaxPayload, closing flag never seen")

/*-------------------------------------------------------------------
 *
 * Name:        Read
 *
 * Purpose:     Receive one information frame.
 *
 * Inputs:	buf	- Caller buffer of at least MaxPayload bytes.
 *
 * Returns:	Payload length and nil on delivery.
 *
 *		ErrSessionReset after an in-band SET: the sequence bit
 *		is back at 0 and a fresh UA has been sent; the caller
 *		should rewind its output.
 *
 *		ErrPeerDisconnected / ErrPeerDisconnectedWithError after
 *		an in-band DISC: the teardown ran and the port is
 *		closed.
 *
 *		ErrProtocolExhausted, ErrIO, or an overflow error on
 *		hard failure.
 *
 *--------------------------------------------------------------------*/

func (s *Session) Read(buf []byte) (int, error) {
	if len(buf) < MaxPayload {
		return 0, errors.New("husky: read buffer smaller than MaxPayload")
	}

	var (
		expected   = iCtrl(s.seq)
		outOfOrder = iCtrl(1 - s.seq)
	)

	logger.Debug("llread", "seq", s.seq)

	var (
		st       = rStart
		code     byte
		n        = 0 // bytes collected, BCC2 included
		attempts = 0 // damaged or out-of-order frames tolerated
	)

	s.alarm.reset()
	for {
		s.alarm.tick()
		if !s.alarm.enabled {
			if s.alarm.exhausted(s.cfg.Retries) {
				logger.Debug("llread: timer budget exhausted")
				return 0, ErrProtocolExhausted
			}
			s.alarm.arm()
		}

		var b, r = s.port.ReadOne()
		if r < 0 {
			return 0, ErrIO
		}
		if r == 0 {
			continue
		}
		s.alarm.progress()

		switch st {
		case rStart:
			if b == flagByte {
				st = rFlagRcv
			}

		case rFlagRcv:
			if b == flagByte {
				break
			}
			if b == addrFrame {
				st = rARcv
				break
			}
			st = rStart

		case rARcv:
			if b == flagByte {
				st = rFlagRcv
				break
			}
			code = b
			switch b {
			case ctrlSET:
				st = rSET
			case ctrlDISC:
				st = rDISC
			case expected, outOfOrder:
				st = rCRcv
				n = 0
			default:
				// Unknown control.  BCC1 still has to match
				// before anything is collected.
				st = rCRcv
				n = 0
			}

		case rSET:
			if b == flagByte {
				st = rFlagRcv
				break
			}
			if b == addrFrame^ctrlSET {
				st = rSETBCCOK
				break
			}
			st = rStart

		case rSETBCCOK:
			if b != flagByte {
				st = rStart
				break
			}
			// The peer restarted.  Acknowledge and let the
			// application rewind.
			logger.Warn("llread: in-band SET, session reset")
			s.seq = 0
			s.alarm.reset()
			if s.port.WriteAll(frameUA) < 0 {
				return 0, ErrIO
			}
			return 0, ErrSessionReset

		case rDISC:
			if b == flagByte {
				st = rFlagRcv
				break
			}
			if b == addrFrame^ctrlDISC {
				st = rDISCBCCOK
				break
			}
			st = rStart

		case rDISCBCCOK:
			if b != flagByte {
				st = rStart
				break
			}
			logger.Debug("llread: in-band DISC, echoing teardown")
			s.alarm.reset()
			if err := s.echoDisconnect(); err != nil {
				return 0, ErrPeerDisconnectedWithError
			}
			return 0, ErrPeerDisconnected

		case rCRcv:
			if b == flagByte {
				st = rFlagRcv
				break
			}
			if b == addrFrame^code {
				st = rData
				break
			}
			// Damaged header.  Resync rather than collect
			// garbage as data.
			logger.Debug("llread: BCC1 mismatch, resync")
			st = rFlagRcv

		case rData:
			if b == escByte {
				st = rEscaped
				break
			}
			if b != flagByte {
				if n > MaxPayload {
					logger.Error("llread: closing flag not seen within MaxPayload")
					return 0, errOverflow
				}
				s.collect[n] = b
				n++
				break
			}

			// Closing flag: the frame is complete.
			var length, done, err = s.finishFrame(code, expected, outOfOrder, n, &attempts, buf)
			if done {
				return length, err
			}
			n = 0
			st = rStart

		case rEscaped:
			if n > MaxPayload {
				logger.Error("llread: closing flag not seen within MaxPayload")
				return 0, errOverflow
			}
			s.collect[n] = b ^ escMask
			n++
			st = rData
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        finishFrame
 *
 * Purpose:     Judge a completed I-frame and emit the matching RR or
 *		REJ.
 *
 * Inputs:	code		- Control byte the frame carried.
 *		expected	- I-control for the awaited parity.
 *		outOfOrder	- I-control for the duplicate parity.
 *		n		- Collected bytes, BCC2 included.
 *		attempts	- Damaged-frame budget, shared across one
 *				  Read call.
 *		buf		- Caller's payload buffer.
 *
 * Returns:	(length, true, nil) when the payload was delivered;
 *		(0, true, err) on a hard failure; (0, false, nil) when
 *		reception should continue.
 *
 *--------------------------------------------------------------------*/

func (s *Session) finishFrame(code, expected, outOfOrder byte, n int, attempts *int, buf []byte) (int, bool, error) {
	if code == outOfOrder {
		// Duplicate of the frame we already delivered.  Its RR
		// evidently got lost; reject with the parity we want so
		// the sender resynchronises (or concludes the RR was
		// lost, which its cross-parity rule handles).
		logger.Debug("llread: duplicate frame, rejecting", "want", s.seq)
		if s.port.WriteAll(rejFrame(s.seq)) < 0 {
			return 0, true, ErrIO
		}
		if *attempts >= replyTriesMax {
			s.alarm.reset()
			return 0, true, ErrProtocolExhausted
		}
		*attempts++
		return 0, false, nil
	}

	if code != expected {
		// SET/DISC never get here, so this was an unknown
		// control whose BCC1 happened to match.  Drop it.
		logger.Debug("llread: frame with unknown control dropped")
		if *attempts >= replyTriesMax {
			s.alarm.reset()
			return 0, true, ErrProtocolExhausted
		}
		*attempts++
		return 0, false, nil
	}

	if n == 0 {
		// Closing flag straight after BCC1: nothing to check
		// against.  Treat like damage.
		logger.Debug("llread: empty frame, rejecting")
		if s.port.WriteAll(rejFrame(s.seq)) < 0 {
			return 0, true, ErrIO
		}
		if *attempts >= replyTriesMax {
			s.alarm.reset()
			return 0, true, ErrProtocolExhausted
		}
		*attempts++
		return 0, false, nil
	}

	var payload = s.collect[: n-1 : n-1]
	var check = s.collect[n-1]

	if bcc2(payload) != check {
		logger.Debug("llread: BCC2 mismatch, rejecting", "want", s.seq)
		if s.port.WriteAll(rejFrame(s.seq)) < 0 {
			return 0, true, ErrIO
		}
		if *attempts >= replyTriesMax {
			s.alarm.reset()
			return 0, true, ErrProtocolExhausted
		}
		*attempts++
		return 0, false, nil
	}

	// Clean frame of the expected parity: deliver.
	if s.port.WriteAll(rrFrame(1-s.seq)) < 0 {
		return 0, true, ErrIO
	}
	s.alarm.reset()
	s.seq = 1 - s.seq
	copy(buf, payload)
	logger.Debug("llread: delivered", "bytes", len(payload))
	return len(payload), true, nil
}

/*-------------------------------------------------------------------
 *
 * Name:        echoDisconnect
 *
 * Purpose:     Reader side of the teardown: answer the peer's DISC
 *		with our own, wait for the final UA, close the port.
 *
 * Returns:	nil when the UA arrived and the port closed cleanly.
 *		The DISC is retransmitted on every timer expiry, so a
 *		single lost frame in either direction is survivable.
 *
 *--------------------------------------------------------------------*/

func (s *Session) echoDisconnect() error {
	s.seq = 0

	var err = s.awaitSuper(ctrlUA, frameDISC, false)
	var closeErr = s.port.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return ErrIO
	}
	return nil
}
