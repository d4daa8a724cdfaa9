package wav

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeHeader(t *testing.T) {
	samples := []int16{0, 100, -100, 32767}
	data := Encode(samples, 16000, 1)

	require.Len(t, data, 44+len(samples)*2)
	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:22]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]))
	require.Equal(t, uint32(16000), binary.LittleEndian.Uint32(data[24:28]))
	require.Equal(t, uint32(32000), binary.LittleEndian.Uint32(data[28:32]))
	require.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]))
	require.Equal(t, uint32(len(samples)*2), binary.LittleEndian.Uint32(data[40:44]))
}

func TestEncodePayloadIsLittleEndian(t *testing.T) {
	data := Encode([]int16{1, -1, -32768}, 16000, 1)

	payload := data[44:]
	require.Equal(t, []byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x80}, payload)
}
