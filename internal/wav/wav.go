// Package wav wraps canonical 16kHz mono s16 PCM in a RIFF/WAVE container.
package wav

import "encoding/binary"

const (
	headerSize    = 44
	bitsPerSample = 16
)

// Encode wraps little-endian s16 samples in a minimal RIFF/WAVE container.
func Encode(samples []int16, sampleRate int, channels int) []byte {
	if channels <= 0 {
		channels = 1
	}

	dataSize := len(samples) * 2
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	out := make([]byte, headerSize+dataSize)
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[headerSize+i*2:], uint16(sample))
	}
	return out
}
