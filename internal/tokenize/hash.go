package tokenize

import (
	"fmt"
	"strings"
)

// Hash is a vocabulary-free encoder. Each whitespace token and each character bigram
// inside it is hashed into [1, vocab). Id 0 is padding.
type Hash struct {
	maxLen int
	vocab  uint32
}

// NewHash constructs a hashing encoder.
func NewHash(maxLen, vocab int) *Hash {
	if vocab < 2 {
		vocab = 2
	}
	return &Hash{maxLen: maxLen, vocab: uint32(vocab)}
}

// MaxLen returns the fixed sequence length.
func (h *Hash) MaxLen() int { return h.maxLen }

// Name identifies the encoder in model metadata.
func (h *Hash) Name() string { return fmt.Sprintf("hash-%d", h.vocab) }

// Encode hashes words and their bigrams, then pads or truncates to MaxLen.
func (h *Hash) Encode(text string) (Encoding, error) {
	var ids []int
	for _, word := range strings.Fields(text) {
		ids = append(ids, h.bucket("w:"+word))
		runes := []rune(word)
		for i := 0; i+1 < len(runes); i++ {
			ids = append(ids, h.bucket("b:"+string(runes[i:i+2])))
		}
	}
	return fit(ids, h.maxLen, 0), nil
}

func (h *Hash) bucket(token string) int {
	return int(fnv32(token)%(h.vocab-1)) + 1
}

func fnv32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	var h uint32 = offset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
