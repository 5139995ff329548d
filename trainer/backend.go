package trainer

import (
	"context"

	"yashubustudio/emotion/emotion"
	"yashubustudio/emotion/internal/tokenize"
)

// Dataset pairs encoded inputs with label ids.
type Dataset struct {
	Inputs []tokenize.Encoding
	Labels []int
}

// Len returns the number of examples.
func (d Dataset) Len() int { return len(d.Inputs) }

// Slice returns the examples at idx.
func (d Dataset) Slice(idx []int) Dataset {
	out := Dataset{Inputs: make([]tokenize.Encoding, len(idx)), Labels: make([]int, len(idx))}
	for i, j := range idx {
		out.Inputs[i] = d.Inputs[j]
		out.Labels[i] = d.Labels[j]
	}
	return out
}

// Backend is the trainable model behind the driver. The driver owns the epoch loop,
// learning-rate schedule, checkpoints and best-model selection; a backend only steps,
// predicts and persists.
type Backend interface {
	Name() string
	// Step applies one optimizer update and returns the weighted mean batch loss.
	Step(ctx context.Context, batch Dataset, lr float64) (float64, error)
	// Predict returns class probabilities per input.
	Predict(ctx context.Context, inputs []tokenize.Encoding) ([][]float64, error)
	Save(dir string) error
	Restore(dir string) error
}

// BackendSpec carries what a backend needs to initialize.
type BackendSpec struct {
	NumLabels int
	Training  emotion.TrainingConfig
	Tokenizer tokenize.Config
	Weights   emotion.WeightVector
}

// BackendFactory builds a fresh backend for one run.
type BackendFactory func(spec BackendSpec) (Backend, error)
