package fingerprint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpectrogramFrameCount(t *testing.T) {
	cases := []struct {
		name       string
		numSamples int
		windowSize int
		hopSize    int
		wantFrames int
	}{
		{"exact one window", 2048, 2048, 1024, 1},
		{"one hop past one window", 2048 + 1024, 2048, 1024, 2},
		{"shorter than window", 100, 2048, 1024, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			samples := make([]float32, tc.numSamples)
			frames := Spectrogram(samples, tc.windowSize, tc.hopSize)
			require.Len(t, frames, tc.wantFrames)
			if tc.wantFrames > 0 {
				require.Len(t, frames[0], tc.windowSize/2+1)
			}
		})
	}
}

func TestSpectrogramDeterministic(t *testing.T) {
	samples := sineWave(22050, 440, 2048*3)
	a := Spectrogram(samples, 2048, 1024)
	b := Spectrogram(samples, 2048, 1024)
	require.Equal(t, a, b)
}

func TestSpectrogramSinePeakBin(t *testing.T) {
	const sampleRate = 22050
	const windowSize = 2048
	samples := sineWave(sampleRate, 1000, windowSize*2)

	frames := Spectrogram(samples, windowSize, windowSize/2)
	require.NotEmpty(t, frames)

	var peakBin int
	var peakMag float32
	for b, m := range frames[1] {
		if m > peakMag {
			peakMag = m
			peakBin = b
		}
	}

	binHz := float64(sampleRate) / float64(windowSize)
	wantBin := int(math.Round(1000 / binHz))
	require.InDelta(t, wantBin, peakBin, 1)
}

func sineWave(sampleRate, freqHz, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * float64(freqHz) * float64(i) / float64(sampleRate)))
	}
	return out
}
