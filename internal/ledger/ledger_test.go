// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thibo73800/flow-watcher/pkg/types"
)

// openTest opens a ledger in a temp dir with a clock that advances one
// second per call.
func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestGet_NotFound(t *testing.T) {
	s := openTest(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsert_InsertThenUpdate(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	rec := &types.FileRecord{FileID: "f1", Name: "memo.mp3", LocalPath: "downloads/memo.mp3", Status: types.StatusDownloaded}
	require.NoError(t, s.Upsert(ctx, rec))

	got, err := s.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusDownloaded, got.Status)
	assert.Equal(t, "downloads/memo.mp3", got.LocalPath)
	assert.Empty(t, got.NotionPageID)
	assert.True(t, rec.UpdatedAt.Equal(got.UpdatedAt))

	rec.Status = types.StatusPublished
	rec.TranscriptPath = "transcripts/memo.txt"
	rec.NotionPageID = "page-1"
	require.NoError(t, s.Upsert(ctx, rec))

	got, err = s.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPublished, got.Status)
	assert.Equal(t, "transcripts/memo.txt", got.TranscriptPath)
	assert.Equal(t, "page-1", got.NotionPageID)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestList_NewestFirst(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Upsert(ctx, &types.FileRecord{FileID: id, Name: id, Status: types.StatusDownloaded}))
	}
	require.NoError(t, s.Upsert(ctx, &types.FileRecord{FileID: "a", Name: "a", Status: types.StatusFailed, Error: "boom"}))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].FileID)
	assert.Equal(t, "boom", all[0].Error)
	assert.Equal(t, "c", all[1].FileID)
	assert.Equal(t, "b", all[2].FileID)
}

func TestRuns(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	first, err := s.BeginRun(ctx)
	require.NoError(t, err)
	assert.Len(t, first.ID, 36)

	first.Downloaded, first.Published, first.Failed = 2, 1, 1
	require.NoError(t, s.FinishRun(ctx, first))

	second, err := s.BeginRun(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.True(t, runs[0].FinishedAt.IsZero(), "unfinished run has no finish time")
	assert.Equal(t, 2, runs[1].Downloaded)
	assert.Equal(t, 1, runs[1].Failed)
	assert.False(t, runs[1].FinishedAt.IsZero())

	limited, err := s.Runs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFinishRun_Unknown(t *testing.T) {
	s := openTest(t)
	err := s.FinishRun(context.Background(), &types.RunRecord{ID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, &types.FileRecord{FileID: "f1", Name: "x", Status: types.StatusPublished}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPublished, got.Status)
}
