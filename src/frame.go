package husky

/*------------------------------------------------------------------
 *
 * Purpose:   	Frame codec: byte stuffing and BCC error detection.
 *
 * Description:	Every frame on the wire looks like
 *
 *			* FLAG (0x7E)
 *			* Address - always 0x03 in both directions here.
 *			* Control - frame kind, and sequence number for
 *				I-frames.
 *			* BCC1 - address XOR control.
 *			* Payload and BCC2, I-frames only, with escape
 *				sequences so a 0x7E byte in the data is not
 *				taken as end of frame.
 *			* FLAG
 *
 *		Stuffing replaces each 0x7E or 0x7D in the payload (or
 *		in BCC2 itself) with 0x7D followed by the byte XOR 0x20.
 *		The address, control and BCC1 bytes never collide with
 *		FLAG or ESCAPE so they are not stuffed.
 *
 *		BCC2 is the XOR reduction of the unescaped payload.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
)

const flagByte = 0x7E
const escByte = 0x7D
const escMask = 0x20

const addrFrame = 0x03

/*
 * Control field values.
 */

const (
	ctrlSET  = 0x03 // connect request
	ctrlUA   = 0x07 // unnumbered acknowledgement
	ctrlDISC = 0x0B // disconnect request
	ctrlI0   = 0x00 // information, sequence 0
	ctrlI1   = 0x80 // information, sequence 1
	ctrlRR0  = 0xAA // receive ready, expecting sequence 0
	ctrlRR1  = 0xAB // receive ready, expecting sequence 1
	ctrlREJ0 = 0x54 // reject, resend sequence 0
	ctrlREJ1 = 0x55 // reject, resend sequence 1
)

// Prebuilt supervisory frames, the way the wire sees them.
var (
	frameSET  = encodeSuper(ctrlSET)
	frameUA   = encodeSuper(ctrlUA)
	frameDISC = encodeSuper(ctrlDISC)
	frameRR0  = encodeSuper(ctrlRR0)
	frameRR1  = encodeSuper(ctrlRR1)
	frameREJ0 = encodeSuper(ctrlREJ0)
	frameREJ1 = encodeSuper(ctrlREJ1)
)

func iCtrl(seq int) byte {
	if seq == 0 {
		return ctrlI0
	}
	return ctrlI1
}

// rrCtrl returns the RR control byte announcing that sequence seq is
// expected next.
func rrCtrl(seq int) byte {
	if seq == 0 {
		return ctrlRR0
	}
	return ctrlRR1
}

// rejCtrl returns the REJ control byte asking for sequence seq to be
// resent.
func rejCtrl(seq int) byte {
	if seq == 0 {
		return ctrlREJ0
	}
	return ctrlREJ1
}

func rrFrame(seq int) []byte {
	if seq == 0 {
		return frameRR0
	}
	return frameRR1
}

func rejFrame(seq int) []byte {
	if seq == 0 {
		return frameREJ0
	}
	return frameREJ1
}

/*-------------------------------------------------------------------
 *
 * Name:        encodeSuper
 *
 * Purpose:     Encode a supervisory (payloadless) frame.
 *
 * Inputs:	ctrl	- Control byte: SET, UA, DISC, RRn, REJn.
 *
 * Returns:	The fixed five wire bytes.
 *
 *--------------------------------------------------------------------*/

func encodeSuper(ctrl byte) []byte {
	return []byte{flagByte, addrFrame, ctrl, addrFrame ^ ctrl, flagByte}
}

/*-------------------------------------------------------------------
 *
 * Name:        encodeInfo
 *
 * Purpose:     Encode an information frame carrying a payload.
 *
 * Inputs:	seq	- Sequence bit, 0 or 1.
 *
 *		payload	- 1 to MaxPayload bytes.  Binary data; can
 *			  contain FLAG and ESCAPE values, which get
 *			  stuffed.
 *
 * Returns:	The wire bytes.  Worst case length is twice the payload
 *		plus seven: five bytes of framing and a stuffed BCC2.
 *
 *--------------------------------------------------------------------*/

func encodeInfo(seq int, payload []byte) []byte {
	var buf bytes.Buffer

	buf.WriteByte(flagByte)
	buf.WriteByte(addrFrame)
	buf.WriteByte(iCtrl(seq))
	buf.WriteByte(addrFrame ^ iCtrl(seq))

	var check byte = 0
	for _, b := range payload {
		check ^= b
		writeStuffed(&buf, b)
	}
	writeStuffed(&buf, check)

	buf.WriteByte(flagByte)

	return buf.Bytes()
}

func writeStuffed(buf *bytes.Buffer, b byte) {
	if b == flagByte || b == escByte {
		buf.WriteByte(escByte)
		buf.WriteByte(b ^ escMask)
	} else {
		buf.WriteByte(b)
	}
}

// bcc2 is the XOR reduction of an unescaped payload.
func bcc2(payload []byte) byte {
	var check byte = 0
	for _, b := range payload {
		check ^= b
	}
	return check
}
