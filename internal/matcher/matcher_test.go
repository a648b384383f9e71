package matcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/media-luna/landmarkid/internal/fingerprint"
	"github.com/media-luna/landmarkid/internal/index"
)

// fakeIndex is an in-memory index.Index stand-in so the matcher can be
// tested without a real store.
type fakeIndex struct {
	byHash map[uint64][]index.AnchorRef
	recs   map[uint64]index.Recording
	failOn map[uint64]bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{byHash: map[uint64][]index.AnchorRef{}, recs: map[uint64]index.Recording{}, failOn: map[uint64]bool{}}
}

func (f *fakeIndex) add(recordingID uint64, hash uint64, anchor uint32) {
	f.byHash[hash] = append(f.byHash[hash], index.AnchorRef{RecordingID: recordingID, AnchorTimeIdx: anchor})
}

// failLookup makes Lookup return an error for hash, to exercise Match's
// per-hash error tolerance.
func (f *fakeIndex) failLookup(hash uint64) {
	f.failOn[hash] = true
}

func (f *fakeIndex) Init(context.Context) error { return nil }
func (f *fakeIndex) Enroll(context.Context, string, string, []fingerprint.Fingerprint) (uint64, bool, error) {
	return 0, false, nil
}
func (f *fakeIndex) Lookup(_ context.Context, hash uint64) ([]index.AnchorRef, error) {
	if f.failOn[hash] {
		return nil, fmt.Errorf("simulated lookup failure")
	}
	return f.byHash[hash], nil
}
func (f *fakeIndex) GetRecording(_ context.Context, id uint64) (index.Recording, error) {
	return f.recs[id], nil
}
func (f *fakeIndex) ListRecordings(context.Context) ([]index.RecordingSummary, error) { return nil, nil }
func (f *fakeIndex) Close() error                                                     { return nil }

func TestMatchPicksConsistentOffset(t *testing.T) {
	idx := newFakeIndex()
	// Recording 1 was enrolled so that db_anchor - query_anchor == 100 for
	// every one of 5 shared hashes: a query built by slicing 100 frames in
	// should land on exactly that offset with score 5.
	for i, h := range []uint64{11, 22, 33, 44, 55} {
		idx.add(1, h, uint32(100+i*10))
	}
	// Noise: one coincidental hash collision with an inconsistent offset.
	idx.add(1, 11, 9999)

	query := []fingerprint.Fingerprint{
		{Hash: 11, AnchorTimeIdx: 0},
		{Hash: 22, AnchorTimeIdx: 10},
		{Hash: 33, AnchorTimeIdx: 20},
		{Hash: 44, AnchorTimeIdx: 30},
		{Hash: 55, AnchorTimeIdx: 40},
	}

	result, err := Match(context.Background(), idx, query, 3)
	require.NoError(t, err)
	require.True(t, result.Found)
	require.Equal(t, uint64(1), result.RecordingID)
	require.Equal(t, int64(100), result.OffsetFrames)
	require.Equal(t, 5, result.Score)
}

func TestMatchBelowThresholdIsNoMatch(t *testing.T) {
	idx := newFakeIndex()
	idx.add(1, 1, 100)
	idx.add(1, 2, 100)

	query := []fingerprint.Fingerprint{
		{Hash: 1, AnchorTimeIdx: 0},
		{Hash: 2, AnchorTimeIdx: 0},
	}

	result, err := Match(context.Background(), idx, query, 3)
	require.NoError(t, err)
	require.False(t, result.Found)
}

func TestMatchNoHashesInIndex(t *testing.T) {
	idx := newFakeIndex()
	query := []fingerprint.Fingerprint{{Hash: 1, AnchorTimeIdx: 0}}
	result, err := Match(context.Background(), idx, query, 1)
	require.NoError(t, err)
	require.False(t, result.Found)
}

func TestMatchEmptyQuery(t *testing.T) {
	idx := newFakeIndex()
	result, err := Match(context.Background(), idx, nil, 1)
	require.NoError(t, err)
	require.False(t, result.Found)
}

func TestMatchTieBreaksOnLowestRecordingID(t *testing.T) {
	idx := newFakeIndex()
	idx.add(2, 1, 50)
	idx.add(2, 2, 50)
	idx.add(1, 1, 50)
	idx.add(1, 2, 50)

	query := []fingerprint.Fingerprint{
		{Hash: 1, AnchorTimeIdx: 0},
		{Hash: 2, AnchorTimeIdx: 0},
	}

	result, err := Match(context.Background(), idx, query, 1)
	require.NoError(t, err)
	require.True(t, result.Found)
	require.Equal(t, uint64(1), result.RecordingID)
}

// TestMatchSkipsFailedLookups asserts one hash's lookup error doesn't abort
// the query: the remaining hashes still accumulate into a winning histogram.
func TestMatchSkipsFailedLookups(t *testing.T) {
	idx := newFakeIndex()
	for i, h := range []uint64{1, 2, 3, 4, 5} {
		idx.add(7, h, uint32(100+i*10))
	}
	idx.failLookup(3)

	query := []fingerprint.Fingerprint{
		{Hash: 1, AnchorTimeIdx: 0},
		{Hash: 2, AnchorTimeIdx: 10},
		{Hash: 3, AnchorTimeIdx: 20},
		{Hash: 4, AnchorTimeIdx: 30},
		{Hash: 5, AnchorTimeIdx: 40},
	}

	result, err := Match(context.Background(), idx, query, 3)
	require.NoError(t, err)
	require.True(t, result.Found)
	require.Equal(t, uint64(7), result.RecordingID)
	require.Equal(t, 4, result.Score)
	require.Equal(t, int64(100), result.OffsetFrames)
}
