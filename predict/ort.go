package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"yashubustudio/emotion/emotion"
	"yashubustudio/emotion/internal/tokenize"
)

var (
	ortMu    sync.Mutex
	ortUsers int
)

// acquireRuntime initializes the ONNX Runtime environment on first use.
// The environment is process-wide; sessions are not.
func acquireRuntime(dll string) error {
	ortMu.Lock()
	defer ortMu.Unlock()
	if ortUsers == 0 {
		if dll != "" {
			ort.SetSharedLibraryPath(dll)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("init onnxruntime: %w", err)
		}
	}
	ortUsers++
	return nil
}

func releaseRuntime() {
	ortMu.Lock()
	defer ortMu.Unlock()
	if ortUsers == 0 {
		return
	}
	ortUsers--
	if ortUsers == 0 {
		_ = ort.DestroyEnvironment()
	}
}

// OrtPredictor runs an exported sequence-classification transformer with ONNX Runtime.
// The model takes input_ids and attention_mask and returns logits of shape [1, K].
type OrtPredictor struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	tok     *tokenize.Pretrained
	mapping *emotion.LabelMapping
	topK    int
	id      string
}

// NewOrtPredictor loads model.onnx, tokenizer.json and the label map. Paths left empty
// are looked up inside opts.ModelDir. The label map may be a label_map.json or the
// model's config.json.
func NewOrtPredictor(opts Options) (*OrtPredictor, error) {
	modelPath := firstExisting(opts.ModelPath, join(opts.ModelDir, "model.onnx"))
	tokPath := firstExisting(opts.TokenizerPath, join(opts.ModelDir, "tokenizer.json"))
	mapPath := firstExisting(opts.LabelMapPath, join(opts.ModelDir, "label_map.json"), join(opts.ModelDir, "config.json"))
	if modelPath == "" || tokPath == "" || mapPath == "" {
		return nil, errors.New("onnx predictor needs model.onnx, tokenizer.json and a label map")
	}
	maxLen := opts.MaxSeqLen
	if maxLen <= 0 {
		maxLen = 128
	}
	mapping, err := emotion.ReadLabelMapping(mapPath)
	if err != nil {
		return nil, err
	}
	tok, err := tokenize.NewPretrained(tokPath, maxLen, "")
	if err != nil {
		return nil, err
	}
	if err := acquireRuntime(opts.OrtDLL); err != nil {
		return nil, err
	}
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask"}, []string{"logits"}, nil)
	if err != nil {
		releaseRuntime()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return &OrtPredictor{
		session: session,
		tok:     tok,
		mapping: mapping,
		topK:    opts.TopK,
		id:      modelIDFor(filepath.Dir(modelPath)),
	}, nil
}

// Predict tokenizes the cleaned text, runs the session and softmaxes the logits.
func (p *OrtPredictor) Predict(ctx context.Context, text string) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	cleaned, err := cleanInput(text)
	if err != nil {
		return Prediction{}, err
	}
	enc, err := p.tok.Encode(cleaned)
	if err != nil {
		return Prediction{}, err
	}
	logits, err := p.run(enc)
	if err != nil {
		return Prediction{}, err
	}
	return rank(softmax(logits), p.mapping.Labels(), p.topK), nil
}

func (p *OrtPredictor) run(enc tokenize.Encoding) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, errors.New("onnx predictor is closed")
	}
	shape := ort.NewShape(1, int64(len(enc.IDs)))
	ids := make([]int64, len(enc.IDs))
	mask := make([]int64, len(enc.Mask))
	for i := range enc.IDs {
		ids[i] = int64(enc.IDs[i])
		mask[i] = int64(enc.Mask[i])
	}
	idsT, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsT.Destroy()
	maskT, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskT.Destroy()
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(p.mapping.Len())))
	if err != nil {
		return nil, fmt.Errorf("logits tensor: %w", err)
	}
	defer out.Destroy()
	if err := p.session.Run([]ort.Value{idsT, maskT}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("run onnx session: %w", err)
	}
	return append([]float32(nil), out.GetData()...), nil
}

// Labels returns the label names in id order.
func (p *OrtPredictor) Labels() []string { return p.mapping.Labels() }

// ModelID identifies the model in cache keys.
func (p *OrtPredictor) ModelID() string { return p.id }

// Close releases the session and, for the last user, the runtime.
func (p *OrtPredictor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	err := p.session.Destroy()
	p.session = nil
	releaseRuntime()
	return err
}

func softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	maxLogit := math.Inf(-1)
	for _, v := range logits {
		if float64(v) > maxLogit {
			maxLogit = float64(v)
		}
	}
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(float64(v) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func join(dir, name string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, name)
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
