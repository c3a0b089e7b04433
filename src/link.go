package husky

/*------------------------------------------------------------------
 *
 * Purpose:   	Link-layer session: configuration, lifetime, errors.
 *
 * Description:	A Session owns the open serial device and the
 *		alternating sequence bit.  It is created by Open only
 *		after a successful SET/UA exchange, mutated by Write and
 *		Read from its owning side, and destroyed by Close (or by
 *		the teardown triggered when the peer's DISC shows up
 *		during a Read).
 *
 *		Single threaded by design: exactly one goroutine drives
 *		a session, and the only blocking points are sub-second
 *		single-byte serial reads.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"time"
)

type Role int

const (
	Transmitter Role = iota
	Receiver
)

func (r Role) String() string {
	if r == Transmitter {
		return "tx"
	}
	return "rx"
}

// Config carries the immutable per-session parameters.
type Config struct {
	Device  string        // serial device path
	Baud    int           // 0 leaves the device speed alone
	Role    Role          // Transmitter or Receiver
	Timeout time.Duration // wait bound for any expected response
	Retries int           // consecutive timeouts before giving up
}

// Stats counts traffic over the life of a session.
type Stats struct {
	UniqueBytes int // encoded frame bytes, counted once per frame
	WireBytes   int // frame bytes actually written, retransmissions included
	WriteCalls  int // physical writes of information frames
	Rejects     int // REJs for the outstanding frame's parity seen by the sender
}

/*
 * Error kinds surfaced by the link layer.  The first two abort the
 * session; the rest are conditions the application layer reacts to.
 */
var (
	// ErrIO: the device failed underneath us.
	ErrIO = errors.New("husky: serial i/o failure")

	// ErrProtocolExhausted: the retry budget was spent without
	// progress.
	ErrProtocolExhausted = errors.New("husky: retry budget exhausted")

	// ErrAssumedDelivered: the sender kept seeing acknowledgements
	// for the wrong parity and concluded its own RR was lost.  The
	// frame is treated as delivered and the sequence bit advanced.
	ErrAssumedDelivered = errors.New("husky: acknowledgement lost, frame assumed delivered")

	// ErrSessionReset: the receiver saw an in-band SET.  The peer
	// restarted; output should be rewound.
	ErrSessionReset = errors.New("husky: peer restarted the session")

	// ErrPeerDisconnected: the receiver saw DISC and the teardown
	// handshake completed.  Normal end of stream.
	ErrPeerDisconnected = errors.New("husky: peer disconnected")

	// ErrPeerDisconnectedWithError: DISC seen but the final UA never
	// arrived.
	ErrPeerDisconnectedWithError = errors.New("husky: peer disconnected, teardown incomplete")
)

// Session is a connected link endpoint.
type Session struct {
	port    wire
	cfg     Config
	seq     int // sequence bit: next to send (tx) / next expected (rx)
	alarm   alarm
	collect [MaxPayload + 1]byte // incoming payload plus BCC2
	Stats   Stats
}

/*-------------------------------------------------------------------
 *
 * Name:        Open
 *
 * Purpose:     Open the serial device and establish the connection.
 *
 * Inputs:	cfg	- Device, speed, role, timer budget.
 *
 * Returns:	A connected session, or an error.  The transmitter
 *		sends SET until a matching UA arrives; the receiver
 *		waits for SET and answers UA.
 *
 *--------------------------------------------------------------------*/

func Open(cfg Config) (*Session, error) {
	if cfg.Timeout <= 0 || cfg.Retries <= 0 {
		return nil, fmt.Errorf("husky: timeout and retries must be positive")
	}

	var port, err = openSerialPort(cfg.Device, cfg.Baud)
	if err != nil {
		return nil, fmt.Errorf("husky: %w", err)
	}

	var s = attach(port, cfg)
	if err := s.handshake(); err != nil {
		port.Close()
		return nil, err
	}
	return s, nil
}

// attach binds a session to an already-open port.  Split from Open so
// the state machines can be driven over in-memory wires.
func attach(port wire, cfg Config) *Session {
	var s = &Session{port: port, cfg: cfg}
	s.alarm.timeout = cfg.Timeout
	return s
}

/*
 * The five-state supervisory decoder shared by the handshake and both
 * teardown paths.  A spurious out-of-state byte returns the decoder to
 * the start; a stray FLAG resyncs to flagRcv instead, since it may be
 * the opening of the very frame we want.
 */

type superState int

const (
	supStart superState = iota
	supFlagRcv
	supARcv
	supCRcv
	supBCCOK
)

// superStep advances the decoder by one byte.  Returns the new state
// and whether a full frame with control byte `expect` was accepted.
func superStep(st superState, b byte, expect byte) (superState, bool) {
	switch st {
	case supStart:
		if b == flagByte {
			return supFlagRcv, false
		}
		return supStart, false

	case supFlagRcv:
		if b == flagByte {
			return supFlagRcv, false
		}
		if b == addrFrame {
			return supARcv, false
		}
		return supStart, false

	case supARcv:
		if b == flagByte {
			return supFlagRcv, false
		}
		if b == expect {
			return supCRcv, false
		}
		return supStart, false

	case supCRcv:
		if b == flagByte {
			return supFlagRcv, false
		}
		if b == addrFrame^expect {
			return supBCCOK, false
		}
		return supStart, false

	case supBCCOK:
		if b == flagByte {
			return supStart, true
		}
		return supStart, false
	}
	return supStart, false
}

/*-------------------------------------------------------------------
 *
 * Name:        awaitSuper
 *
 * Purpose:     Drive the supervisory decoder until a frame with the
 *		expected control byte arrives, retransmitting on each
 *		timer expiry.
 *
 * Inputs:	expect	- Control byte that ends the wait.
 *
 *		resend	- Frame written on every (re)arm, or nil to
 *			  listen silently.
 *
 *		quietOnTraffic - Stop retransmitting once any byte has
 *			  been received.  Used by the opening SET so a
 *			  peer mid-reply isn't talked over.
 *
 * Returns:	nil on acceptance, ErrIO on a device failure,
 *		ErrProtocolExhausted when the retry budget runs out.
 *
 *--------------------------------------------------------------------*/

func (s *Session) awaitSuper(expect byte, resend []byte, quietOnTraffic bool) error {
	var st = supStart
	var heardAnything = false

	s.alarm.reset()
	for {
		s.alarm.tick()
		if !s.alarm.enabled {
			if s.alarm.exhausted(s.cfg.Retries) {
				return ErrProtocolExhausted
			}
			if resend != nil && !(quietOnTraffic && heardAnything) {
				if s.port.WriteAll(resend) < 0 {
					return ErrIO
				}
			}
			s.alarm.arm()
		}

		var b, r = s.port.ReadOne()
		if r < 0 {
			return ErrIO
		}
		if r == 0 {
			continue
		}
		heardAnything = true
		s.alarm.progress()

		var accepted bool
		st, accepted = superStep(st, b, expect)
		if accepted {
			s.alarm.reset()
			return nil
		}
	}
}
