package tokenize

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Pretrained wraps a Hugging Face tokenizer.json with fixed-length padding and truncation.
type Pretrained struct {
	mu     sync.Mutex
	tk     *tokenizer.Tokenizer
	path   string
	maxLen int
	padID  int
}

// NewPretrained loads tokenizer.json from path.
func NewPretrained(path string, maxLen int, padToken string) (*Pretrained, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", filepath.Base(path), err)
	}
	tk.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: maxLen,
		Strategy:  tokenizer.LongestFirst,
		Stride:    0,
	})
	padID := 0
	candidates := []string{"[PAD]", "<pad>"}
	if padToken != "" {
		candidates = append([]string{padToken}, candidates...)
	}
	for _, tok := range candidates {
		if id, ok := tk.TokenToId(tok); ok {
			padID = id
			break
		}
	}
	return &Pretrained{tk: tk, path: path, maxLen: maxLen, padID: padID}, nil
}

// MaxLen returns the fixed sequence length.
func (p *Pretrained) MaxLen() int { return p.maxLen }

// Name identifies the encoder in model metadata.
func (p *Pretrained) Name() string { return "pretrained:" + filepath.Base(filepath.Dir(p.path)) }

// PadID returns the id used for padding positions.
func (p *Pretrained) PadID() int { return p.padID }

// Encode tokenizes with special tokens and pads to MaxLen.
func (p *Pretrained) Encode(text string) (Encoding, error) {
	p.mu.Lock()
	en, err := p.tk.EncodeSingle(text, true)
	p.mu.Unlock()
	if err != nil {
		return Encoding{}, fmt.Errorf("tokenize: %w", err)
	}
	return fit(en.Ids, p.maxLen, p.padID), nil
}
