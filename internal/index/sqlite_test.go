package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/media-luna/landmarkid/internal/fingerprint"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	idx, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, idx.Init(context.Background()))
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestEnrollAndLookup(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	fps := []fingerprint.Fingerprint{
		{Hash: 42, AnchorTimeIdx: 5},
		{Hash: 42, AnchorTimeIdx: 9},
		{Hash: 7, AnchorTimeIdx: 1},
	}
	id, replaced, err := idx.Enroll(ctx, "song one", "", fps)
	require.NoError(t, err)
	require.False(t, replaced)
	require.NotZero(t, id)

	refs, err := idx.Lookup(ctx, 42)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	for _, r := range refs {
		require.Equal(t, id, r.RecordingID)
	}

	refs, err = idx.Lookup(ctx, 999)
	require.NoError(t, err)
	require.Empty(t, refs)
}

func TestEnrollBySourcePathIsIdempotent(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	fps1 := []fingerprint.Fingerprint{{Hash: 1, AnchorTimeIdx: 0}}
	id1, replaced1, err := idx.Enroll(ctx, "track", "song.wav", fps1)
	require.NoError(t, err)
	require.False(t, replaced1)

	fps2 := []fingerprint.Fingerprint{{Hash: 2, AnchorTimeIdx: 0}, {Hash: 3, AnchorTimeIdx: 1}}
	id2, replaced2, err := idx.Enroll(ctx, "track", "song.wav", fps2)
	require.NoError(t, err)
	require.True(t, replaced2)
	require.Equal(t, id1, id2, "re-enrolling the same source_path must reuse the recording id")

	// Old hash must be gone, new hashes present.
	refs, err := idx.Lookup(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, refs)

	refs, err = idx.Lookup(ctx, 2)
	require.NoError(t, err)
	require.Len(t, refs, 1)

	recs, err := idx.ListRecordings(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, 2, recs[0].FingerprintCount)
}

func TestGetRecordingUnknownID(t *testing.T) {
	idx := openTestIndex(t)
	_, err := idx.GetRecording(context.Background(), 12345)
	require.Error(t, err)
}

func TestListRecordingsOrderedByName(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	_, _, err := idx.Enroll(ctx, "zeta", "", []fingerprint.Fingerprint{{Hash: 1, AnchorTimeIdx: 0}})
	require.NoError(t, err)
	_, _, err = idx.Enroll(ctx, "alpha", "", []fingerprint.Fingerprint{{Hash: 2, AnchorTimeIdx: 0}})
	require.NoError(t, err)

	recs, err := idx.ListRecordings(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "alpha", recs[0].Name)
	require.Equal(t, "zeta", recs[1].Name)
}
