// Package matcher scores a query's fingerprints against an index by
// accumulating a per-recording offset histogram and returning whichever
// recording's tallest bin clears the score threshold.
package matcher

import (
	"context"
	"sort"

	"github.com/media-luna/landmarkid/internal/fingerprint"
	"github.com/media-luna/landmarkid/internal/index"
	"github.com/media-luna/landmarkid/internal/logger"
)

// Result is the best-scoring recording found for a query, or the zero value
// with Found=false when nothing clears the score threshold.
type Result struct {
	Found        bool
	RecordingID  uint64
	Score        int
	OffsetFrames int64 // db_anchor_time_idx - query_anchor_time_idx, at the winning offset
}

// Match looks up every query fingerprint's hash, accumulates a per-recording
// histogram of (db_anchor_time_idx - query_anchor_time_idx), and returns the
// recording whose histogram's tallest bin scores highest, provided that
// score is at least minScore. Ties on score are broken by the lowest
// RecordingID, since map iteration order is otherwise unspecified. A lookup
// error for one hash is logged and skipped rather than aborting the query,
// since the remaining hashes can still produce a usable histogram.
func Match(ctx context.Context, idx index.Index, queryFps []fingerprint.Fingerprint, minScore int) (Result, error) {
	if len(queryFps) == 0 {
		return Result{}, nil
	}

	histograms := make(map[uint64]map[int64]int)

	for _, qfp := range queryFps {
		refs, err := idx.Lookup(ctx, qfp.Hash)
		if err != nil {
			logger.Error("matcher.Match", err, "hash", qfp.Hash)
			continue
		}
		for _, ref := range refs {
			delta := int64(ref.AnchorTimeIdx) - int64(qfp.AnchorTimeIdx)
			h := histograms[ref.RecordingID]
			if h == nil {
				h = make(map[int64]int)
				histograms[ref.RecordingID] = h
			}
			h[delta]++
		}
	}

	if len(histograms) == 0 {
		return Result{}, nil
	}

	var best Result
	// Deterministic scan: lowest RecordingID first, so a later equal-score
	// recording never displaces an earlier one.
	var ids []uint64
	for id := range histograms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		offset, score := bestBin(histograms[id])
		if !best.Found || score > best.Score {
			best = Result{Found: true, RecordingID: id, Score: score, OffsetFrames: offset}
		}
	}

	if best.Score < minScore {
		return Result{}, nil
	}
	return best, nil
}

// bestBin returns the histogram's tallest bin, breaking ties on the lowest
// offset so the result is deterministic regardless of map iteration order.
func bestBin(h map[int64]int) (offset int64, score int) {
	first := true
	for delta, count := range h {
		if first || count > score || (count == score && delta < offset) {
			offset, score = delta, count
			first = false
		}
	}
	return offset, score
}
