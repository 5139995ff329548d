package predict

import (
	"context"
	"fmt"
	"path/filepath"

	"yashubustudio/emotion/emotion"
	"yashubustudio/emotion/internal/tokenize"
	"yashubustudio/emotion/trainer"
)

// NativePredictor serves a softmax model directory produced by the training driver.
type NativePredictor struct {
	model   *trainer.Softmax
	enc     tokenize.Encoder
	mapping *emotion.LabelMapping
	topK    int
	id      string
}

// LoadNative reads model.json, weights.bin and label_map.json from dir.
func LoadNative(dir string, topK int) (*NativePredictor, error) {
	if dir == "" {
		return nil, fmt.Errorf("load model: no model directory configured")
	}
	model, meta, err := trainer.LoadSoftmax(dir)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	mapping, err := emotion.ReadLabelMapping(filepath.Join(dir, trainer.LabelMapFile))
	if err != nil {
		return nil, err
	}
	if mapping.Len() != meta.NumLabels {
		return nil, fmt.Errorf("label map has %d labels but model has %d", mapping.Len(), meta.NumLabels)
	}
	enc, err := tokenize.New(meta.Tokenizer)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return &NativePredictor{
		model:   model,
		enc:     enc,
		mapping: mapping,
		topK:    topK,
		id:      modelIDFor(filepath.Dir(dir)) + "/" + modelIDFor(dir),
	}, nil
}

// Predict cleans text and returns the ranked labels.
func (p *NativePredictor) Predict(ctx context.Context, text string) (Prediction, error) {
	cleaned, err := cleanInput(text)
	if err != nil {
		return Prediction{}, err
	}
	encoding, err := p.enc.Encode(cleaned)
	if err != nil {
		return Prediction{}, err
	}
	probs, err := p.model.Predict(ctx, []tokenize.Encoding{encoding})
	if err != nil {
		return Prediction{}, err
	}
	return rank(probs[0], p.mapping.Labels(), p.topK), nil
}

// Labels returns the label names in id order.
func (p *NativePredictor) Labels() []string { return p.mapping.Labels() }

// ModelID identifies the model in cache keys.
func (p *NativePredictor) ModelID() string { return p.id }

// Close is a no-op; the model lives in memory only.
func (p *NativePredictor) Close() error { return nil }
