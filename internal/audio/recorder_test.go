package audio

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func encodeFloat32LE(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}

func TestDecodeFloat32LERoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 1, -1}
	require.Equal(t, in, decodeFloat32LE(encodeFloat32LE(in)))
}

func TestDecodeFloat32LEDropsPartialTail(t *testing.T) {
	buf := append(encodeFloat32LE([]float32{0.25}), 0x01, 0x02)
	require.Equal(t, []float32{0.25}, decodeFloat32LE(buf))
}

func TestRecorderStopReducesCapturedAudio(t *testing.T) {
	rec := &Recorder{}
	rec.recording.Store(true)

	// 48 stereo frames of a constant 0.5 signal.
	frames := make([]float32, 48*captureChannels)
	for i := range frames {
		frames[i] = 0.5
	}
	n, err := rec.onPCM(encodeFloat32LE(frames))
	require.NoError(t, err)
	require.Equal(t, len(frames)*4, n)

	pcm, err := rec.Stop()
	require.NoError(t, err)
	require.Len(t, pcm, 16) // 48 frames at 48kHz reduce to 16 samples at 16kHz
	for _, s := range pcm {
		require.Equal(t, int16(16383), s)
	}
	require.False(t, rec.Recording())
}

func TestRecorderStopIsIdempotent(t *testing.T) {
	rec := &Recorder{}
	_, err := rec.onPCM(encodeFloat32LE(make([]float32, 6*captureChannels)))
	require.NoError(t, err)

	first, err := rec.Stop()
	require.NoError(t, err)

	second, err := rec.Stop()
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRecorderStopWithoutFramesReturnsErrNoAudio(t *testing.T) {
	rec := &Recorder{}
	_, err := rec.Stop()
	require.ErrorIs(t, err, ErrNoAudio)
}

func TestRecorderOnPCMAfterStopReturnsEOF(t *testing.T) {
	rec := &Recorder{}
	_, err := rec.Stop()
	require.ErrorIs(t, err, ErrNoAudio)

	n, err := rec.onPCM(encodeFloat32LE([]float32{0.1, 0.2}))
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
}

func TestRecorderStreamsReducedChunksMatchingStopOutput(t *testing.T) {
	rec := &Recorder{chunks: make(chan []int16, 8)}
	rec.recording.Store(true)

	frames := make([]float32, streamBlockFrames*captureChannels)
	for i := range frames {
		frames[i] = 0.25
	}
	_, err := rec.onPCM(encodeFloat32LE(frames))
	require.NoError(t, err)

	chunk := <-rec.Chunks()
	require.Len(t, chunk, streamBlockFrames*TargetRate/captureRate)

	pcm, err := rec.Stop()
	require.NoError(t, err)
	require.Equal(t, pcm[:len(chunk)], chunk)

	_, ok := <-rec.Chunks()
	require.False(t, ok)
}

func TestRecorderStopUnblocksStalledChunkSend(t *testing.T) {
	rec := &Recorder{
		chunks: make(chan []int16),
		done:   make(chan struct{}),
	}
	rec.recording.Store(true)

	frames := make([]float32, streamBlockFrames*captureChannels)
	for i := range frames {
		frames[i] = 0.25
	}

	// Nobody reads from Chunks: the send must park, not drop the block.
	fed := make(chan error, 1)
	go func() {
		_, err := rec.onPCM(encodeFloat32LE(frames))
		fed <- err
	}()

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.raw) > 0
	}, time.Second, 5*time.Millisecond)

	select {
	case <-fed:
		t.Fatal("chunk send completed with no consumer")
	default:
	}

	pcm, err := rec.Stop()
	require.NoError(t, err)
	require.NotEmpty(t, pcm)
	require.NoError(t, <-fed)

	_, ok := <-rec.Chunks()
	require.False(t, ok)
}

func TestRecorderStreamingHoldsPartialBlocks(t *testing.T) {
	rec := &Recorder{chunks: make(chan []int16, 8)}

	// Fewer frames than one stream block: nothing is emitted until Stop.
	frames := make([]float32, 10*captureChannels)
	_, err := rec.onPCM(encodeFloat32LE(frames))
	require.NoError(t, err)

	select {
	case chunk := <-rec.Chunks():
		t.Fatalf("unexpected chunk of %d samples before block filled", len(chunk))
	default:
	}

	pcm, err := rec.Stop()
	require.NoError(t, err)
	require.NotEmpty(t, pcm)
}
