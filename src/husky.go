// Package husky implements a reliable, connection-oriented data-link
// protocol over a raw asynchronous serial line, plus a thin application
// layer that uses it to move a single file from a transmitter to a
// receiver.
//
// The link layer is a simplified HDLC-style stop-and-wait service:
// byte-stuffed framing, 1-bit alternating sequence numbers, positive
// (RR) and negative (REJ) acknowledgements, a SET/UA connection
// handshake and a symmetric DISC/DISC/UA teardown.  At most one
// information frame is outstanding at any time.
package husky

import (
	"os"

	"github.com/charmbracelet/log"
)

// MaxPayload is the largest payload, in bytes, that a single
// information frame may carry.  Callers of Session.Read must supply a
// buffer of at least this size.
const MaxPayload = 1000

/*
 * Bounds on reply decoding, independent of the session's timer budget.
 *
 * replyTriesMax bounds how many garbled or out-of-phase supervisory
 * replies a sender, or damaged, duplicate or unknown I-frames a
 * receiver, will chew through for a single frame.
 * rrLostTriesMax is the point after which a cross-parity REJ is taken
 * to mean "my last frame arrived but its RR was lost".
 */
const replyTriesMax = 10
const rrLostTriesMax = 2

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "husky",
})

// SetDebug turns on debug logging of link-layer events: frames
// delivered, rejected or dropped, retransmissions and timer expiries.
// Individual wire bytes and decoder state transitions are not logged.
func SetDebug(on bool) {
	if on {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
}
