package runstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/emotion/emotion"
	"yashubustudio/emotion/internal/runstore"
)

func TestFileStoreSaveAndList(t *testing.T) {
	ctx := context.Background()
	store := runstore.NewFileStore(filepath.Join(t.TempDir(), "runs.jsonl"))

	empty, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	first := runstore.NewRun("train")
	first.StartedAt = time.Now().Add(-time.Hour).UTC()
	require.NoError(t, store.Save(ctx, first))
	first.Metrics = map[string]float64{"test_accuracy": 0.5}
	first.Finish(nil)
	require.NoError(t, store.Save(ctx, first))

	second := runstore.NewRun("evaluate")
	second.Finish(errors.New("boom"))
	require.NoError(t, store.Save(ctx, second))

	runs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, "failed", runs[0].State)
	assert.Equal(t, "boom", runs[0].Error)
	assert.Equal(t, "completed", runs[1].State)
	assert.Equal(t, 0.5, runs[1].Metrics["test_accuracy"])

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := runstore.Open(ctx, emotion.RunStoreConfig{Kind: "file"}, dir)
	require.NoError(t, err)
	fs, ok := store.(*runstore.FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "runs.jsonl"), fs.Path())

	_, err = runstore.Open(ctx, emotion.RunStoreConfig{Kind: "s3"}, dir)
	assert.Error(t, err)

	discard, err := runstore.Open(ctx, emotion.RunStoreConfig{Kind: "none"}, dir)
	require.NoError(t, err)
	assert.NoError(t, discard.Save(ctx, runstore.NewRun("x")))
}

func TestNewRunIDsAreUnique(t *testing.T) {
	a, b := runstore.NewRun("train"), runstore.NewRun("train")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.ID, 36)
}
