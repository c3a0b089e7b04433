package husky

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeSuper(t *testing.T) {
	assert.Equal(t, []byte{0x7E, 0x03, 0x03, 0x00, 0x7E}, encodeSuper(ctrlSET))
	assert.Equal(t, []byte{0x7E, 0x03, 0x07, 0x04, 0x7E}, encodeSuper(ctrlUA))
	assert.Equal(t, []byte{0x7E, 0x03, 0x0B, 0x08, 0x7E}, encodeSuper(ctrlDISC))
	assert.Equal(t, []byte{0x7E, 0x03, 0xAA, 0xA9, 0x7E}, encodeSuper(ctrlRR0))
	assert.Equal(t, []byte{0x7E, 0x03, 0xAB, 0xA8, 0x7E}, encodeSuper(ctrlRR1))
	assert.Equal(t, []byte{0x7E, 0x03, 0x54, 0x57, 0x7E}, encodeSuper(ctrlREJ0))
	assert.Equal(t, []byte{0x7E, 0x03, 0x55, 0x56, 0x7E}, encodeSuper(ctrlREJ1))
}

func TestEncodeInfoHeader(t *testing.T) {
	var f = encodeInfo(0, []byte{0x42})
	assert.Equal(t, []byte{0x7E, 0x03, 0x00, 0x03, 0x42, 0x42, 0x7E}, f)

	f = encodeInfo(1, []byte{0x42})
	assert.Equal(t, []byte{0x7E, 0x03, 0x80, 0x83, 0x42, 0x42, 0x7E}, f)
}

func TestEncodeInfoStuffsFlagAndEscape(t *testing.T) {
	// Payload 0x7E 0x7D: both stuffed, and their XOR (0x03) is BCC2.
	var f = encodeInfo(0, []byte{0x7E, 0x7D})
	assert.Equal(t, []byte{
		0x7E, 0x03, 0x00, 0x03,
		0x7D, 0x5E, // 0x7E stuffed
		0x7D, 0x5D, // 0x7D stuffed
		0x03, // BCC2
		0x7E,
	}, f)
}

func TestEncodeInfoStuffsBCC2(t *testing.T) {
	// A single 0x7E payload byte makes BCC2 itself 0x7E.
	var f = encodeInfo(0, []byte{0x7E})
	assert.Equal(t, []byte{
		0x7E, 0x03, 0x00, 0x03,
		0x7D, 0x5E,
		0x7D, 0x5E, // BCC2 stuffed too
		0x7E,
	}, f)
}

// readFrame decodes one encoded frame by driving the receive state
// machine over a scripted port.
func readFrame(seq int, encoded []byte, retries int) (int, []byte, error, *scriptPort) {
	var port = &scriptPort{data: encoded}
	var s = attach(port, testConfig(Receiver, 20*time.Millisecond, retries))
	s.seq = seq

	var buf = make([]byte, MaxPayload)
	var n, err = s.Read(buf)
	return n, buf[:max(n, 0)], err, port
}

func TestFramingRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var seq = rapid.IntRange(0, 1).Draw(t, "seq")
		var payload = rapid.SliceOfN(rapid.Byte(), 1, 256).Draw(t, "payload")

		var n, got, err, port = readFrame(seq, encodeInfo(seq, payload), 1)

		assert.NoError(t, err)
		assert.Equal(t, len(payload), n)
		assert.Equal(t, payload, got)

		// The delivery must have been acknowledged with RR of the
		// opposite parity.
		assert.Equal(t, rrFrame(1-seq), port.out)
	})
}

func TestStuffingNeutrality(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var seq = rapid.IntRange(0, 1).Draw(t, "seq")
		var payload = rapid.SliceOfN(rapid.Byte(), 1, 256).Draw(t, "payload")

		var f = encodeInfo(seq, payload)

		assert.Equal(t, byte(flagByte), f[0])
		assert.Equal(t, byte(flagByte), f[len(f)-1])
		assert.NotContains(t, f[1:len(f)-1], byte(flagByte),
			"FLAG between the frame delimiters")
	})
}

func TestBitFlipNeverAcceptedIntact(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var payload = rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "payload")
		var f = encodeInfo(0, payload)

		// Flip one bit somewhere in the stuffed payload or BCC2.
		var idx = rapid.IntRange(4, len(f)-2).Draw(t, "idx")
		var bit = rapid.IntRange(0, 7).Draw(t, "bit")
		var damaged = append([]byte(nil), f...)
		damaged[idx] ^= 1 << bit

		var n, got, err, _ = readFrame(0, damaged, 1)

		if err == nil {
			// Whatever came out, it must not be the original
			// payload masquerading as a clean delivery.
			assert.False(t, n == len(payload) && bytes.Equal(got, payload),
				"damaged frame delivered as the original payload")
		}
	})
}

func TestBitFlipDrawsREJ(t *testing.T) {
	var f = encodeInfo(0, []byte{0x10, 0x20, 0x30})
	f[4] ^= 0x01 // first payload byte

	var _, _, err, port = readFrame(0, f, 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolExhausted)
	assert.True(t, bytes.Contains(port.out, frameREJ0),
		"receiver should have asked for a resend, wrote % X", port.out)
}

func TestBCC2(t *testing.T) {
	assert.Equal(t, byte(0), bcc2(nil))
	assert.Equal(t, byte(0x42), bcc2([]byte{0x42}))
	assert.Equal(t, byte(0x42^0x13^0x7E), bcc2([]byte{0x42, 0x13, 0x7E}))
}
