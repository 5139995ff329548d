package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"yashubustudio/emotion/emotion"
	"yashubustudio/emotion/internal/tokenize"
)

// Model artifact file names.
const (
	ModelFile    = "model.json"
	WeightsFile  = "weights.bin"
	LabelMapFile = "label_map.json"

	softmaxName = "softmax"
)

// ModelMeta is stored as model.json beside the weights.
type ModelMeta struct {
	Backend    string          `json:"backend"`
	NumLabels  int             `json:"numLabels"`
	FeatureDim int             `json:"featureDim"`
	Tokenizer  tokenize.Config `json:"tokenizer"`
	SavedAt    time.Time       `json:"savedAt"`
}

// Softmax is a multinomial logistic regression over hashed token-id features.
// Each active token id contributes 1/sqrt(n) to feature id mod FeatureDim.
type Softmax struct {
	k, dim      int
	w           []float32 // k rows of dim
	b           []float32
	weightDecay float64
	classWeight []float64
	tokenizer   tokenize.Config
}

// NewSoftmax is the default BackendFactory.
func NewSoftmax(spec BackendSpec) (Backend, error) {
	if spec.NumLabels < 2 {
		return nil, fmt.Errorf("softmax backend needs at least 2 labels, got %d", spec.NumLabels)
	}
	if spec.Weights != nil && len(spec.Weights) != spec.NumLabels {
		return nil, fmt.Errorf("got %d class weights for %d labels: %w", len(spec.Weights), spec.NumLabels, emotion.ErrWeightVectorMismatch)
	}
	dim := spec.Training.FeatureDim
	if dim <= 0 {
		dim = 1 << 16
	}
	return &Softmax{
		k:           spec.NumLabels,
		dim:         dim,
		w:           make([]float32, spec.NumLabels*dim),
		b:           make([]float32, spec.NumLabels),
		weightDecay: spec.Training.WeightDecay,
		classWeight: append([]float64(nil), spec.Weights...),
		tokenizer:   spec.Tokenizer,
	}, nil
}

// LoadSoftmax reads a model directory written by Save.
func LoadSoftmax(dir string) (*Softmax, ModelMeta, error) {
	meta, err := ReadModelMeta(dir)
	if err != nil {
		return nil, meta, err
	}
	if meta.Backend != softmaxName {
		return nil, meta, fmt.Errorf("model in %s was trained by backend %q", dir, meta.Backend)
	}
	s := &Softmax{k: meta.NumLabels, dim: meta.FeatureDim, tokenizer: meta.Tokenizer}
	if err := s.Restore(dir); err != nil {
		return nil, meta, err
	}
	return s, meta, nil
}

// ReadModelMeta decodes model.json in dir.
func ReadModelMeta(dir string) (ModelMeta, error) {
	var meta ModelMeta
	data, err := os.ReadFile(filepath.Join(dir, ModelFile))
	if err != nil {
		return meta, fmt.Errorf("read model meta: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("decode model meta: %w", err)
	}
	return meta, nil
}

func (s *Softmax) Name() string { return softmaxName }

// NumLabels returns K.
func (s *Softmax) NumLabels() int { return s.k }

type feature struct {
	idx int
	val float32
}

func (s *Softmax) features(enc tokenize.Encoding) []feature {
	n := enc.Len()
	if n == 0 {
		return nil
	}
	v := float32(1 / math.Sqrt(float64(n)))
	merged := make(map[int]float32, n)
	order := make([]int, 0, n)
	for i, id := range enc.IDs {
		if enc.Mask[i] == 0 {
			continue
		}
		f := id % s.dim
		if f < 0 {
			f += s.dim
		}
		if _, ok := merged[f]; !ok {
			order = append(order, f)
		}
		merged[f] += v
	}
	out := make([]feature, len(order))
	for i, f := range order {
		out[i] = feature{idx: f, val: merged[f]}
	}
	return out
}

func (s *Softmax) probs(feats []feature, out []float64) {
	maxLogit := math.Inf(-1)
	for c := 0; c < s.k; c++ {
		z := float64(s.b[c])
		row := s.w[c*s.dim : (c+1)*s.dim]
		for _, f := range feats {
			z += float64(row[f.idx]) * float64(f.val)
		}
		out[c] = z
		if z > maxLogit {
			maxLogit = z
		}
	}
	var sum float64
	for c := range out {
		out[c] = math.Exp(out[c] - maxLogit)
		sum += out[c]
	}
	for c := range out {
		out[c] /= sum
	}
}

func (s *Softmax) weightOf(label int) float64 {
	if len(s.classWeight) == 0 {
		return 1
	}
	return s.classWeight[label]
}

// Step runs one SGD update with weighted cross-entropy. Weight decay is applied to the
// feature columns touched by the batch.
func (s *Softmax) Step(ctx context.Context, batch Dataset, lr float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if batch.Len() == 0 {
		return 0, nil
	}
	grads := make(map[int][]float64)
	gradB := make([]float64, s.k)
	p := make([]float64, s.k)
	var loss, weightSum float64
	for i, enc := range batch.Inputs {
		y := batch.Labels[i]
		if y < 0 || y >= s.k {
			return 0, fmt.Errorf("label id %d: %w", y, emotion.ErrUnknownID)
		}
		feats := s.features(enc)
		s.probs(feats, p)
		w := s.weightOf(y)
		py := p[y]
		if py < 1e-12 {
			py = 1e-12
		}
		loss -= w * math.Log(py)
		weightSum += w
		for c := 0; c < s.k; c++ {
			d := p[c]
			if c == y {
				d -= 1
			}
			d *= w
			gradB[c] += d
			for _, f := range feats {
				g, ok := grads[f.idx]
				if !ok {
					g = make([]float64, s.k)
					grads[f.idx] = g
				}
				g[c] += d * float64(f.val)
			}
		}
	}
	if weightSum == 0 {
		return 0, errors.New("batch has zero total class weight")
	}
	scale := lr / weightSum
	decay := float32(1 - lr*s.weightDecay)
	for idx, g := range grads {
		for c := 0; c < s.k; c++ {
			pos := c*s.dim + idx
			if s.weightDecay > 0 {
				s.w[pos] *= decay
			}
			s.w[pos] -= float32(scale * g[c])
		}
	}
	for c := 0; c < s.k; c++ {
		s.b[c] -= float32(scale * gradB[c])
	}
	return loss / weightSum, nil
}

// Predict returns class probabilities.
func (s *Softmax) Predict(ctx context.Context, inputs []tokenize.Encoding) ([][]float64, error) {
	out := make([][]float64, len(inputs))
	for i, enc := range inputs {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := make([]float64, s.k)
		s.probs(s.features(enc), row)
		out[i] = row
	}
	return out, nil
}

// Save writes model.json and weights.bin into dir.
func (s *Softmax) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	meta := ModelMeta{
		Backend:    softmaxName,
		NumLabels:  s.k,
		FeatureDim: s.dim,
		Tokenizer:  s.tokenizer,
		SavedAt:    time.Now().UTC(),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ModelFile), data, 0o644); err != nil {
		return fmt.Errorf("write model meta: %w", err)
	}
	if err := writeBlocks(filepath.Join(dir, WeightsFile), s.w, s.b); err != nil {
		return fmt.Errorf("write weights: %w", err)
	}
	return nil
}

// Restore replaces the parameters with those stored in dir.
func (s *Softmax) Restore(dir string) error {
	blocks, err := readBlocks(filepath.Join(dir, WeightsFile), 2)
	if err != nil {
		return fmt.Errorf("read weights: %w", err)
	}
	if len(blocks[0]) != s.k*s.dim || len(blocks[1]) != s.k {
		return fmt.Errorf("weights in %s do not match %d labels × %d features", dir, s.k, s.dim)
	}
	s.w, s.b = blocks[0], blocks[1]
	return nil
}
