package husky

/*------------------------------------------------------------------
 *
 * Purpose:   	Interface to the serial port.
 *
 * Description:	The link layer consumes the device one byte at a time.
 *		Reads are bounded by a short per-byte timeout configured
 *		on the tty itself, so the protocol loops can interleave
 *		"did anything arrive?" with their own retransmission
 *		deadlines without threads or signals.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pkg/term"
)

// How long a single byte read may block before reporting "nothing
// yet".  Deliberately much shorter than any sane protocol timeout.
const serialReadTimeout = 200 * time.Millisecond

// wire is what the protocol state machines actually drive.  The
// serial port implements it for real sessions; tests substitute
// in-memory pairs.
//
// ReadOne returns (byte, 1) when a byte arrived, (0, 0) on a read
// timeout, and (0, -1) on a device error.  WriteAll returns the number
// of bytes written, or -1.
type wire interface {
	ReadOne() (byte, int)
	WriteAll(data []byte) int
	Close() error
}

type serialPort struct {
	t      *term.Term
	device string
}

/*-------------------------------------------------------------------
 *
 * Name:	openSerialPort
 *
 * Purpose:	Open the serial device in raw 8N1 mode.
 *
 * Inputs:	device	- Usually /dev/tty...  Could be /dev/rfcomm0
 *			  for Bluetooth, or a pseudo terminal.
 *
 *		baud	- Speed.  1200, 4800, 9600 bps, etc.
 *			  If 0, leave it alone.
 *
 * Returns 	Port handle, or an error if the device could not be
 *		opened or the speed is not supported.
 *
 *---------------------------------------------------------------*/

func openSerialPort(device string, baud int) (*serialPort, error) {
	switch baud {
	case 0: /* Leave it alone. */
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
	default:
		return nil, fmt.Errorf("unsupported serial speed %d", baud)
	}

	var options = []func(*term.Term) error{
		term.RawMode,
		term.ReadTimeout(serialReadTimeout),
	}
	if baud != 0 {
		options = append(options, term.Speed(baud))
	}

	var t, err = term.Open(device, options...)
	if err != nil {
		return nil, fmt.Errorf("could not open serial port %s: %w", device, err)
	}

	return &serialPort{t: t, device: device}, nil
}

func (p *serialPort) ReadOne() (byte, int) {
	var one = make([]byte, 1)
	var n, err = p.t.Read(one)

	if n == 1 {
		return one[0], 1
	}
	if err == nil || errors.Is(err, io.EOF) {
		// VMIN=0/VTIME expired with nothing to deliver.
		return 0, 0
	}
	return 0, -1
}

func (p *serialPort) WriteAll(data []byte) int {
	var written, err = p.t.Write(data)
	if err != nil || written != len(data) {
		return -1
	}
	return written
}

func (p *serialPort) Close() error {
	return p.t.Close()
}
