package husky

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlPacketLayout(t *testing.T) {
	var p = controlPacket(packetStart, fileInfo{size: 33, name: "in.bin"})

	assert.Equal(t, []byte{
		1,          // start
		0x00, 0x08, // file size field, 8 bytes
		0, 0, 0, 0, 0, 0, 0, 33, // big endian size
		0x01, 6, // file name field, length
	}, p[:13])
	assert.Equal(t, []byte("in.bin"), p[13:])
}

func TestControlPacketRoundTrip(t *testing.T) {
	var info = fileInfo{size: 1 << 40, name: "archive.tar.gz"}

	var got, err = parseControlPacket(controlPacket(packetEnd, info))

	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestControlPacketRejectsGarbage(t *testing.T) {
	var _, err = parseControlPacket([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = parseControlPacket(bytes.Repeat([]byte{9}, 20))
	assert.Error(t, err)

	// Name length running past the packet.
	var p = controlPacket(packetStart, fileInfo{size: 1, name: "x"})
	p[12] = 200
	_, err = parseControlPacket(p)
	assert.Error(t, err)
}

func TestDataPacketLayout(t *testing.T) {
	var p = dataPacket(7, []byte("0123456789abcdef"))

	assert.Equal(t, []byte{2, 7, 0, 16}, p[:4])
	assert.Equal(t, []byte("0123456789abcdef"), p[4:])
}

func TestDataPacketRoundTrip(t *testing.T) {
	var seq, data, err = parseDataPacket(dataPacket(200, []byte{9, 8, 7}))

	require.NoError(t, err)
	assert.Equal(t, byte(200), seq)
	assert.Equal(t, []byte{9, 8, 7}, data)
}

func TestDataPacketClampsToDeclaredLength(t *testing.T) {
	var p = dataPacket(1, []byte{1, 2, 3, 4})
	p[3] = 2 // lie: only two bytes are real

	var _, data, err = parseDataPacket(p)

	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)
}

func TestDataPacketRejectsWrongKind(t *testing.T) {
	var _, _, err = parseDataPacket([]byte{1, 0, 0, 0})
	assert.Error(t, err)

	_, _, err = parseDataPacket([]byte{2, 0})
	assert.Error(t, err)
}
