package fingerprint

import "sort"

// Params bundles every tunable of the spectrogram, peak-picking, and
// hashing stages in one place.
type Params struct {
	SampleRate   int
	WindowSize   int
	HopSize      int
	TimeRadius   int
	FreqRadius   int
	MinMagnitude float32
	Hash         HashParams
}

// Generate runs the full pure pipeline (spectrogram -> peaks -> hashes) over
// one sample vector and returns fingerprints ordered by (AnchorTimeIdx,
// Hash), so output is deterministic regardless of how PickPeaks/
// GenerateHashes happened to interleave them.
func Generate(samples []float32, p Params) []Fingerprint {
	spectrogram := Spectrogram(samples, p.WindowSize, p.HopSize)
	if len(spectrogram) == 0 {
		return nil
	}

	peaks := PickPeaks(spectrogram, p.TimeRadius, p.FreqRadius, p.MinMagnitude)
	if len(peaks) == 0 {
		return nil
	}

	fingerprints := GenerateHashes(peaks, p.Hash)

	sort.Slice(fingerprints, func(i, j int) bool {
		if fingerprints[i].AnchorTimeIdx != fingerprints[j].AnchorTimeIdx {
			return fingerprints[i].AnchorTimeIdx < fingerprints[j].AnchorTimeIdx
		}
		return fingerprints[i].Hash < fingerprints[j].Hash
	})

	return fingerprints
}

// ChunkProgress is called once per processed chunk by GenerateChunked, for
// CLI progress reporting.
type ChunkProgress func(chunksDone, chunksTotal int)

// GenerateChunked runs Generate over a long sample vector one bounded-memory
// window at a time instead of allocating the full spectrogram up front,
// the way tefkah-seek-tune's FingerprintAudioChunked processes long
// captures. Consecutive chunks overlap by windowSize-hopSize samples, which
// is exactly enough for each chunk to yield chunkFrames full frames, so the
// chunks' frames tile the file with no frame computed twice; any duplicate
// (Hash, AnchorTimeIdx) pair is still dropped. This is a CLI-level
// convenience, not a drop-in replacement for Generate on the whole file: a
// landmark pair whose two peaks fall in different chunks is not generated,
// however close together they are; and a peak within
// timeRadius frames of a chunk edge may be classified differently than it
// would be with the whole file's true neighborhood, since PickPeaks only
// ever sees the samples of the chunk it is given. Both are accepted,
// bounded edge effects of processing in windows rather than a departure
// from Generate's own contract on a single in-memory vector.
func GenerateChunked(samples []float32, p Params, chunkFrames int, progress ChunkProgress) []Fingerprint {
	if chunkFrames <= 0 || len(samples) == 0 {
		return Generate(samples, p)
	}

	stride := chunkFrames * p.HopSize
	overlap := p.WindowSize - p.HopSize
	if overlap < 0 {
		overlap = 0
	}

	total := (len(samples) + stride - 1) / stride
	seen := make(map[[2]uint64]bool)
	var out []Fingerprint

	done := 0
	for start := 0; start < len(samples); start += stride {
		end := start + stride + overlap
		if end > len(samples) {
			end = len(samples)
		}

		chunk := samples[start:end]
		frameOffset := uint32(start / p.HopSize)

		for _, fp := range Generate(chunk, p) {
			fp.AnchorTimeIdx += frameOffset
			key := [2]uint64{uint64(fp.AnchorTimeIdx), fp.Hash}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, fp)
		}

		done++
		if progress != nil {
			progress(done, total)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AnchorTimeIdx != out[j].AnchorTimeIdx {
			return out[i].AnchorTimeIdx < out[j].AnchorTimeIdx
		}
		return out[i].Hash < out[j].Hash
	})
	return out
}
