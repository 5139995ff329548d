// Package predict serves label predictions from a trained model artifact.
package predict

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"yashubustudio/emotion/emotion"
)

// ErrEmptyText is returned for input with no usable characters after cleaning.
var ErrEmptyText = errors.New("text is empty after normalization")

// Suggestion is one ranked label.
type Suggestion struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Prediction is the top label plus the ranked top-k list.
type Prediction struct {
	Label  string       `json:"label"`
	Score  float64      `json:"score"`
	Ranked []Suggestion `json:"ranked"`
}

// Predictor maps diary text to an emotion label. Implementations are immutable after
// construction and safe for concurrent use.
type Predictor interface {
	Predict(ctx context.Context, text string) (Prediction, error)
	Labels() []string
	ModelID() string
	Close() error
}

// Options selects and locates a model.
type Options struct {
	Backend       string
	ModelDir      string
	OrtDLL        string
	ModelPath     string
	TokenizerPath string
	LabelMapPath  string
	MaxSeqLen     int
	TopK          int
}

// FromConfig copies predict settings out of the pipeline configuration.
func FromConfig(cfg emotion.PredictConfig) Options {
	return Options{
		Backend:       cfg.Backend,
		ModelDir:      cfg.ModelDir,
		OrtDLL:        cfg.OrtDLL,
		ModelPath:     cfg.ModelPath,
		TokenizerPath: cfg.TokenizerPath,
		LabelMapPath:  cfg.LabelMapPath,
		MaxSeqLen:     cfg.MaxSeqLen,
		TopK:          cfg.TopK,
	}
}

// Open builds the predictor named by opts.Backend ("native" or "onnx").
func Open(opts Options) (Predictor, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "native":
		return LoadNative(opts.ModelDir, opts.TopK)
	case "onnx", "ort":
		return NewOrtPredictor(opts)
	default:
		return nil, fmt.Errorf("unknown predict backend %q", opts.Backend)
	}
}

func cleanInput(text string) (string, error) {
	cleaned := emotion.Normalize(text)
	if strings.TrimSpace(cleaned) == "" {
		return "", ErrEmptyText
	}
	return cleaned, nil
}

// rank orders probabilities high to low and keeps topK entries. Ties keep id order.
func rank(probs []float64, labels []string, topK int) Prediction {
	ids := make([]int, len(probs))
	for i := range ids {
		ids[i] = i
	}
	sort.SliceStable(ids, func(a, b int) bool { return probs[ids[a]] > probs[ids[b]] })
	if topK <= 0 || topK > len(ids) {
		topK = len(ids)
	}
	out := Prediction{Ranked: make([]Suggestion, 0, topK)}
	for _, id := range ids[:topK] {
		label := ""
		if id < len(labels) {
			label = labels[id]
		}
		out.Ranked = append(out.Ranked, Suggestion{Label: label, Score: probs[id]})
	}
	if len(out.Ranked) > 0 {
		out.Label = out.Ranked[0].Label
		out.Score = out.Ranked[0].Score
	}
	return out
}

func modelIDFor(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(filepath.Clean(path))
}
