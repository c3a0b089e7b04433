package husky

/*------------------------------------------------------------------
 *
 * Purpose:   	Information-frame transmit path.
 *
 * Description:	Stop and wait.  The frame for the current sequence bit
 *		is built once, then a single loop alternates between
 *		(re)transmitting it whenever the timer is disarmed and
 *		feeding inbound bytes to a six-state decoder of the
 *		supervisory reply:
 *
 *		START -> FLAG_RCV -> A_RCV -> C_RCV -> BCC_CORRECT -> flag
 *
 *		Classification at A_RCV is parity aware.  With sequence
 *		bit 0 outstanding, REJ0 (resend) and RR1 (advance) are
 *		the aligned replies; REJ1/RR0 mean the peer is a step
 *		ahead - our previous RR got lost, or a stale ack is
 *		drifting in.  A spurious UA is decoded like any other
 *		reply and dropped at the closing flag.
 *
 *---------------------------------------------------------------*/

import "fmt"

type writeState int

const (
	wStart writeState = iota
	wFlagRcv
	wARcv
	wCRcv
	wUARcv
	wBCCCorrect
)

/*-------------------------------------------------------------------
 *
 * Name:        Write
 *
 * Purpose:     Transmit one payload as an information frame and wait
 *		for it to be acknowledged.
 *
 * Inputs:	payload	- 1 to MaxPayload bytes, opaque to the link
 *			  layer.
 *
 * Returns:	Number of bytes placed on the wire for one copy of the
 *		frame, and nil on a clean acknowledgement.
 *
 *		ErrAssumedDelivered when cross-parity replies past the
 *		tolerance threshold imply the peer already has the
 *		frame; the sequence bit has been advanced and the
 *		caller may continue.
 *
 *		ErrProtocolExhausted or ErrIO on hard failure.
 *
 *--------------------------------------------------------------------*/

func (s *Session) Write(payload []byte) (int, error) {
	if len(payload) == 0 || len(payload) > MaxPayload {
		return 0, fmt.Errorf("husky: payload length %d outside 1..%d", len(payload), MaxPayload)
	}

	var frame = encodeInfo(s.seq, payload)
	s.Stats.UniqueBytes += len(frame)

	logger.Debug("llwrite", "seq", s.seq, "payload", len(payload), "frame", len(frame))

	var (
		st         = wStart
		code       byte
		replyTries = 0 // garbled or out-of-phase replies chewed through
		rrLost     = 0 // cross-parity sightings during this call
	)

	s.alarm.reset()
	for {
		s.alarm.tick()
		if !s.alarm.enabled {
			if s.alarm.exhausted(s.cfg.Retries) {
				logger.Debug("llwrite: timer budget exhausted")
				return 0, ErrProtocolExhausted
			}
			s.Stats.WriteCalls++
			if s.port.WriteAll(frame) < 0 {
				return 0, ErrIO
			}
			s.Stats.WireBytes += len(frame)
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
		case wStart:
			if b == flagByte {
				st = wFlagRcv
			}

		case wFlagRcv:
			if b == flagByte {
				break
			}
			if b == addrFrame {
				st = wARcv
				break
			}
			st = wStart

		case wARcv:
			if b == flagByte {
				st = wFlagRcv
				break
			}
			code = b

			switch {
			case code == ctrlUA:
				// Peer re-acknowledged something.  Absorb it.
				logger.Debug("llwrite: spurious UA")
				st = wUARcv

			case code == rejCtrl(s.seq) || code == rrCtrl(1-s.seq):
				// Aligned reply for the outstanding frame.
				st = wCRcv

			case code == rejCtrl(1-s.seq) || code == rrCtrl(s.seq):
				// Cross parity: the peer is out of phase.
				logger.Debug("llwrite: cross-parity reply", "code", fmt.Sprintf("%#02x", code))
				if rrLost > rrLostTriesMax && code == rejCtrl(1-s.seq) {
					// It keeps rejecting the frame it already
					// has: our RR never made it.
					logger.Warn("llwrite: acknowledgement assumed lost, advancing")
					s.seq = 1 - s.seq
					s.alarm.reset()
					return len(frame), ErrAssumedDelivered
				}
				if replyTries >= replyTriesMax {
					logger.Warn("llwrite: reply retries spent on cross-parity acks, advancing")
					s.seq = 1 - s.seq
					s.alarm.reset()
					return len(frame), ErrAssumedDelivered
				}
				replyTries++
				rrLost++
				st = wStart

			default:
				logger.Debug("llwrite: unclassifiable reply", "code", fmt.Sprintf("%#02x", code))
				if replyTries >= replyTriesMax {
					s.alarm.reset()
					return 0, ErrProtocolExhausted
				}
				replyTries++
				st = wStart
			}

		case wUARcv:
			if b == flagByte {
				st = wFlagRcv
				break
			}
			if b == addrFrame^ctrlUA {
				st = wBCCCorrect
				break
			}
			st = wStart

		case wCRcv:
			if b == flagByte {
				st = wFlagRcv
				break
			}
			if b == addrFrame^code {
				st = wBCCCorrect
				break
			}
			st = wStart

		case wBCCCorrect:
			if b != flagByte {
				st = wStart
				break
			}

			switch code {
			case rejCtrl(s.seq):
				// Frame arrived damaged.  Same sequence bit,
				// fresh timer budget, retransmit right away.
				logger.Debug("llwrite: REJ, retransmitting", "seq", s.seq)
				s.Stats.Rejects++
				s.alarm.reset()
				st = wStart

			case rrCtrl(1 - s.seq):
				logger.Debug("llwrite: RR, delivered", "seq", s.seq)
				s.seq = 1 - s.seq
				s.alarm.reset()
				return len(frame), nil

			default:
				// The absorbed UA, or a reply that lost its
				// meaning along the way.  Keep waiting.
				st = wStart
			}
		}
	}
}
