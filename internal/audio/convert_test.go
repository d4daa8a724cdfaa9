package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDownmixMonoAveragesChannels(t *testing.T) {
	stereo := []float32{1, 0, 0.5, -0.5, -1, -1}
	mono := downmixMono(stereo, 2)
	require.Equal(t, []float32{0.5, 0, -1}, mono)
}

func TestDownmixMonoPassThroughForSingleChannel(t *testing.T) {
	samples := []float32{0.1, 0.2}
	require.Equal(t, samples, downmixMono(samples, 1))
}

func TestResampleLinearDownsamplesByExactRatio(t *testing.T) {
	in := make([]float32, 48)
	for i := range in {
		in[i] = float32(i)
	}

	out := resampleLinear(in, 48000, 16000)
	require.Len(t, out, 16)
	for i, s := range out {
		require.InDelta(t, float32(i*3), s, 1e-6)
	}
}

func TestResampleLinearInterpolatesBetweenSamples(t *testing.T) {
	out := resampleLinear([]float32{0, 1}, 16000, 32000)
	require.Len(t, out, 4)
	require.InDelta(t, 0, out[0], 1e-6)
	require.InDelta(t, 0.5, out[1], 1e-6)
	// Positions past the last sample clamp to it.
	require.InDelta(t, 1, out[2], 1e-6)
	require.InDelta(t, 1, out[3], 1e-6)
}

func TestResampleLinearSameRateIsIdentity(t *testing.T) {
	in := []float32{0.25, -0.25}
	require.Equal(t, in, resampleLinear(in, 16000, 16000))
}

func TestToS16ScalesAndClamps(t *testing.T) {
	out := toS16([]float32{0, 1, -1, 2, -2, 0.5})
	require.Equal(t, []int16{0, 32767, -32767, 32767, -32767, 16383}, out)
}
