// Package fingerprint implements the engine's pure pipeline: spectrogram
// generation, peak picking, and landmark hashing. Nothing in this package
// touches storage or I/O — samples in, fingerprints out.
package fingerprint

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// Frame is one column of the spectrogram: magnitude values for bins
// 0..B-1, B = W/2+1.
type Frame []float32

// Spectrogram computes F = floor((len(samples)-windowSize)/hopSize)+1
// overlapping Hann-windowed FFT magnitude frames (0 frames if the input is
// shorter than windowSize). hopSize and windowSize must be positive; the
// caller is responsible for that invariant (config.Load does not check it),
// and this function simply returns no frames rather than panicking on a
// pathological config.
func Spectrogram(samples []float32, windowSize, hopSize int) []Frame {
	if windowSize <= 0 || hopSize <= 0 || len(samples) < windowSize {
		return nil
	}

	window := hannWindow(windowSize)
	numBins := windowSize/2 + 1
	numFrames := (len(samples)-windowSize)/hopSize + 1

	frames := make([]Frame, numFrames)
	windowed := make([]float64, windowSize)

	for i := 0; i < numFrames; i++ {
		start := i * hopSize
		for j := 0; j < windowSize; j++ {
			windowed[j] = float64(samples[start+j]) * window[j]
		}

		spectrum := fft.FFTReal(windowed)
		frame := make(Frame, numBins)
		for b := 0; b < numBins; b++ {
			frame[b] = float32(cmplxAbs(spectrum[b]))
		}
		frames[i] = frame
	}

	return frames
}

// hannWindow returns the Hann window of length n: 0.5*(1-cos(2*pi*i/(n-1))).
// n==1 is the degenerate single-sample case, where the window is just [1].
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
