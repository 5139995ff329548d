// Package tokenize turns cleaned text into fixed-length id sequences.
package tokenize

import (
	"errors"
	"fmt"
	"strings"
)

// Kinds of encoders.
const (
	KindHash       = "hash"
	KindPretrained = "pretrained"
)

// Config selects an encoder. Path points at a Hugging Face tokenizer.json for KindPretrained.
type Config struct {
	Kind      string `json:"kind" yaml:"kind"`
	Path      string `json:"path" yaml:"path"`
	MaxSeqLen int    `json:"maxSeqLen" yaml:"maxSeqLen"`
	VocabSize int    `json:"vocabSize" yaml:"vocabSize"`
	PadToken  string `json:"padToken" yaml:"padToken"`
}

// ApplyDefaults populates zero values.
func (c *Config) ApplyDefaults() {
	if c.Kind == "" {
		if strings.TrimSpace(c.Path) != "" {
			c.Kind = KindPretrained
		} else {
			c.Kind = KindHash
		}
	}
	if c.MaxSeqLen <= 0 {
		c.MaxSeqLen = 128
	}
	if c.VocabSize <= 0 {
		c.VocabSize = 1 << 18
	}
}

// Encoding is a padded, truncated id sequence. Mask is 1 for real tokens and 0 for padding.
type Encoding struct {
	IDs  []int
	Mask []int
}

// Len returns the number of non-padding tokens.
func (e Encoding) Len() int {
	n := 0
	for _, m := range e.Mask {
		if m != 0 {
			n++
		}
	}
	return n
}

// Encoder produces encodings of exactly MaxLen ids.
type Encoder interface {
	Encode(text string) (Encoding, error)
	MaxLen() int
	Name() string
}

// New builds the encoder described by cfg.
func New(cfg Config) (Encoder, error) {
	cfg.ApplyDefaults()
	switch cfg.Kind {
	case KindHash:
		return NewHash(cfg.MaxSeqLen, cfg.VocabSize), nil
	case KindPretrained:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, errors.New("pretrained tokenizer requires a tokenizer.json path")
		}
		return NewPretrained(cfg.Path, cfg.MaxSeqLen, cfg.PadToken)
	default:
		return nil, fmt.Errorf("unknown tokenizer kind %q", cfg.Kind)
	}
}

// EncodeAll encodes texts in order.
func EncodeAll(enc Encoder, texts []string) ([]Encoding, error) {
	out := make([]Encoding, len(texts))
	for i, t := range texts {
		e, err := enc.Encode(t)
		if err != nil {
			return nil, fmt.Errorf("encode text %d: %w", i, err)
		}
		out[i] = e
	}
	return out, nil
}

func fit(ids []int, maxLen, padID int) Encoding {
	if len(ids) > maxLen {
		ids = ids[:maxLen]
	}
	out := Encoding{IDs: make([]int, maxLen), Mask: make([]int, maxLen)}
	copy(out.IDs, ids)
	for i := range out.Mask {
		if i < len(ids) {
			out.Mask[i] = 1
		} else {
			out.IDs[i] = padID
		}
	}
	return out
}
