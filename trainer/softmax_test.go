package trainer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/emotion/emotion"
	"yashubustudio/emotion/internal/tokenize"
	"yashubustudio/emotion/trainer"
)

func TestSoftmaxSaveRestore(t *testing.T) {
	enc := tokenize.NewHash(8, 512)
	a, _ := enc.Encode("좋다 좋다")
	b, _ := enc.Encode("슬프다")
	batch := trainer.Dataset{Inputs: []tokenize.Encoding{a, b}, Labels: []int{0, 1}}

	backend, err := trainer.NewSoftmax(trainer.BackendSpec{
		NumLabels: 2,
		Training:  emotion.TrainingConfig{FeatureDim: 512, WeightDecay: 0.01},
		Tokenizer: tokenize.Config{Kind: tokenize.KindHash, MaxSeqLen: 8, VocabSize: 512},
	})
	require.NoError(t, err)
	ctx := context.Background()
	first, err := backend.Step(ctx, batch, 1.0)
	require.NoError(t, err)
	second, err := backend.Step(ctx, batch, 1.0)
	require.NoError(t, err)
	assert.Less(t, second, first)

	dir := filepath.Join(t.TempDir(), "m")
	require.NoError(t, backend.Save(dir))
	want, err := backend.Predict(ctx, batch.Inputs)
	require.NoError(t, err)

	loaded, meta, err := trainer.LoadSoftmax(dir)
	require.NoError(t, err)
	assert.Equal(t, 512, meta.FeatureDim)
	got, err := loaded.Predict(ctx, batch.Inputs)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want[0], got[0], 1e-6)
	assert.InDelta(t, 1.0, got[0][0]+got[0][1], 1e-9)
}

func TestSoftmaxRejectsBadInput(t *testing.T) {
	_, err := trainer.NewSoftmax(trainer.BackendSpec{NumLabels: 1})
	assert.Error(t, err)

	backend, err := trainer.NewSoftmax(trainer.BackendSpec{NumLabels: 2, Training: emotion.TrainingConfig{FeatureDim: 16}})
	require.NoError(t, err)
	enc, _ := tokenize.NewHash(4, 16).Encode("x")
	_, err = backend.Step(context.Background(), trainer.Dataset{Inputs: []tokenize.Encoding{enc}, Labels: []int{5}}, 0.1)
	assert.ErrorIs(t, err, emotion.ErrUnknownID)
}

func TestLoadSoftmaxDetectsCorruptWeights(t *testing.T) {
	backend, err := trainer.NewSoftmax(trainer.BackendSpec{NumLabels: 2, Training: emotion.TrainingConfig{FeatureDim: 16}})
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, backend.Save(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, trainer.WeightsFile), []byte{1, 2, 3}, 0o644))
	_, _, err = trainer.LoadSoftmax(dir)
	assert.Error(t, err)
}
