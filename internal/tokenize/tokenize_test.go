package tokenize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/emotion/internal/tokenize"
)

func TestHashEncodePadsToMaxLen(t *testing.T) {
	enc := tokenize.NewHash(16, 1024)
	got, err := enc.Encode("오늘 너무 슬펐어")
	require.NoError(t, err)

	assert.Len(t, got.IDs, 16)
	assert.Len(t, got.Mask, 16)
	// 3 words + 1 + 1 + 2 bigrams
	assert.Equal(t, 7, got.Len())
	for i, m := range got.Mask {
		if m == 0 {
			assert.Equal(t, 0, got.IDs[i])
		} else {
			assert.Greater(t, got.IDs[i], 0)
			assert.Less(t, got.IDs[i], 1024)
		}
	}
}

func TestHashEncodeTruncates(t *testing.T) {
	enc := tokenize.NewHash(4, 1024)
	got, err := enc.Encode("a b c d e f g h")
	require.NoError(t, err)
	assert.Len(t, got.IDs, 4)
	assert.Equal(t, 4, got.Len())
}

func TestHashEncodeDeterministic(t *testing.T) {
	enc := tokenize.NewHash(32, 4096)
	a, _ := enc.Encode("Hi 123 안녕")
	b, _ := enc.Encode("Hi 123 안녕")
	assert.Equal(t, a, b)
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := tokenize.New(tokenize.Config{Kind: "bpe"})
	assert.Error(t, err)

	_, err = tokenize.New(tokenize.Config{Kind: tokenize.KindPretrained})
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	cfg := tokenize.Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, tokenize.KindHash, cfg.Kind)
	assert.Equal(t, 128, cfg.MaxSeqLen)

	cfg = tokenize.Config{Path: "models/klue/tokenizer.json"}
	cfg.ApplyDefaults()
	assert.Equal(t, tokenize.KindPretrained, cfg.Kind)
}
