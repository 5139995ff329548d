// Package trainer fine-tunes an emotion classifier and keeps its checkpoints.
package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"yashubustudio/emotion/emotion"
	"yashubustudio/emotion/evaluate"
	"yashubustudio/emotion/internal/tokenize"
)

const stateFile = "trainer_state.json"

// Options configures one training run.
type Options struct {
	Training  emotion.TrainingConfig
	Tokenizer tokenize.Config
	OutputDir string
	Weights   emotion.WeightVector
	Backend   BackendFactory

	// OnEpoch is called after every epoch's validation pass.
	OnEpoch func(EpochReport)
	// OnStep is called after every optimizer step with the 1-based step and the total.
	OnStep func(step, total int)
}

// EpochReport is the per-epoch side channel.
type EpochReport struct {
	Epoch      int              `json:"epoch"`
	Step       int              `json:"step"`
	TrainLoss  float64          `json:"train_loss"`
	LR         float64          `json:"learning_rate"`
	Validation evaluate.Metrics `json:"validation"`
	Checkpoint string           `json:"checkpoint"`
	Best       bool             `json:"best"`
}

// Result summarizes a completed run.
type Result struct {
	State          State            `json:"state"`
	Backend        string           `json:"backend"`
	Epochs         []EpochReport    `json:"epochs"`
	Steps          int              `json:"steps"`
	BestCheckpoint string           `json:"best_checkpoint"`
	BestModelDir   string           `json:"best_model_dir"`
	BestMetric     float64          `json:"best_metric"`
	Validation     evaluate.Metrics `json:"validation"`
	Elapsed        time.Duration    `json:"elapsed"`
}

// Driver runs Initialized → Tokenizing → Training → Evaluating → Completed.
// Any error moves it to Failed and aborts the run. Runs always start at epoch 1.
type Driver struct {
	opts   Options
	enc    tokenize.Encoder
	logger zerolog.Logger
	state  State
}

// NewDriver prepares a driver. A nil Backend factory selects the softmax backend.
func NewDriver(opts Options, enc tokenize.Encoder, logger zerolog.Logger) *Driver {
	opts.Training.ApplyDefaults()
	if opts.Backend == nil {
		opts.Backend = NewSoftmax
	}
	return &Driver{opts: opts, enc: enc, logger: logger, state: StateInitialized}
}

// State returns the current lifecycle state.
func (d *Driver) State() State { return d.state }

func (d *Driver) enter(s State) {
	d.logger.Debug().Str("from", d.state.String()).Str("to", s.String()).Msg("trainer state")
	d.state = s
}

// Run trains on train, selects the best checkpoint on validation and copies it to
// OutputDir/best_model together with the label map.
func (d *Driver) Run(ctx context.Context, train, validation emotion.Encoded, mapping *emotion.LabelMapping) (*Result, error) {
	res, err := d.run(ctx, train, validation, mapping)
	if err != nil {
		d.enter(StateFailed)
		if res != nil {
			res.State = StateFailed
		}
		return res, err
	}
	return res, nil
}

func (d *Driver) run(ctx context.Context, train, validation emotion.Encoded, mapping *emotion.LabelMapping) (*Result, error) {
	if d.state != StateInitialized {
		return nil, fmt.Errorf("driver already used (state %s)", d.state)
	}
	started := time.Now()
	cfg := d.opts.Training
	if train.Len() == 0 {
		return nil, fmt.Errorf("train: %w", emotion.ErrEmptyCorpus)
	}
	if d.opts.OutputDir == "" {
		return nil, errors.New("train: output dir is required")
	}
	if _, err := (evaluate.Metrics{}).Value(cfg.MetricForBest); err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	d.enter(StateTokenizing)
	trainSet, err := d.encode(train)
	if err != nil {
		return nil, err
	}
	valSet, err := d.encode(validation)
	if err != nil {
		return nil, err
	}

	backend, err := d.opts.Backend(BackendSpec{
		NumLabels: mapping.Len(),
		Training:  cfg,
		Tokenizer: d.opts.Tokenizer,
		Weights:   d.opts.Weights,
	})
	if err != nil {
		return nil, fmt.Errorf("init backend: %w", err)
	}
	res := &Result{Backend: backend.Name()}

	d.enter(StateTraining)
	stepsPerEpoch := int(math.Ceil(float64(trainSet.Len()) / float64(cfg.BatchSize)))
	total := stepsPerEpoch * cfg.Epochs
	sched, err := NewSchedule(cfg.Scheduler, cfg.LearningRate, cfg.WarmupRatio, total)
	if err != nil {
		return res, err
	}
	if err := os.MkdirAll(d.opts.OutputDir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}
	d.logger.Info().
		Str("backend", backend.Name()).
		Int("examples", trainSet.Len()).
		Int("labels", mapping.Len()).
		Int("epochs", cfg.Epochs).
		Int("steps", total).
		Bool("weighted", len(d.opts.Weights) > 0).
		Msg("training started")

	rng := rand.New(rand.NewSource(cfg.SeedValue()))
	order := make([]int, trainSet.Len())
	for i := range order {
		order[i] = i
	}
	var (
		saved      []string
		best       string
		bestMetric float64
		step       int
	)
	greater := evaluate.GreaterIsBetter(cfg.MetricForBest)
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		var lossSum float64
		var lr float64
		for start := 0; start < len(order); start += cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			end := start + cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			lr = sched.At(step)
			loss, err := backend.Step(ctx, trainSet.Slice(order[start:end]), lr)
			if err != nil {
				return res, fmt.Errorf("epoch %d step %d: %w", epoch, step+1, err)
			}
			lossSum += loss
			step++
			if d.opts.OnStep != nil {
				d.opts.OnStep(step, total)
			}
		}

		report := EpochReport{Epoch: epoch, Step: step, TrainLoss: lossSum / float64(stepsPerEpoch), LR: lr}
		report.Validation, err = d.score(ctx, backend, valSet, mapping.Len())
		if err != nil {
			return res, fmt.Errorf("validate epoch %d: %w", epoch, err)
		}
		dir := filepath.Join(d.opts.OutputDir, checkpointName(step))
		if err := d.saveCheckpoint(backend, dir, mapping, report); err != nil {
			return res, err
		}
		report.Checkpoint = dir
		saved = append(saved, dir)

		value, _ := report.Validation.Value(cfg.MetricForBest)
		if best == "" || valSet.Len() == 0 || improves(value, bestMetric, greater) {
			best, bestMetric = dir, value
			report.Best = true
		}
		if saved, err = rotateCheckpoints(saved, best, cfg.SaveTotalLimit); err != nil {
			return res, err
		}
		res.Epochs = append(res.Epochs, report)
		d.logger.Info().
			Int("epoch", epoch).
			Int("step", step).
			Float64("train_loss", report.TrainLoss).
			Float64("eval_loss", report.Validation.Loss).
			Float64("eval_accuracy", report.Validation.Accuracy).
			Float64("eval_f1", report.Validation.F1Weighted).
			Bool("best", report.Best).
			Msg("epoch finished")
		if d.opts.OnEpoch != nil {
			d.opts.OnEpoch(report)
		}
	}
	res.Steps = step

	d.enter(StateEvaluating)
	bestDir := filepath.Join(d.opts.OutputDir, BestModelDir)
	if err := copyDir(best, bestDir); err != nil {
		return res, fmt.Errorf("copy best model: %w", err)
	}
	if err := backend.Restore(bestDir); err != nil {
		return res, fmt.Errorf("restore best model: %w", err)
	}
	res.Validation, err = d.score(ctx, backend, valSet, mapping.Len())
	if err != nil {
		return res, fmt.Errorf("evaluate best model: %w", err)
	}
	res.BestCheckpoint = best
	res.BestModelDir = bestDir
	res.BestMetric = bestMetric
	res.Elapsed = time.Since(started)

	d.enter(StateCompleted)
	res.State = StateCompleted
	d.logger.Info().
		Str("best_checkpoint", filepath.Base(best)).
		Str(cfg.MetricForBest, fmt.Sprintf("%.4f", bestMetric)).
		Dur("elapsed", res.Elapsed).
		Msg("training completed")
	return res, nil
}

func improves(value, best float64, greater bool) bool {
	if greater {
		return value > best
	}
	return value < best
}

func (d *Driver) encode(e emotion.Encoded) (Dataset, error) {
	inputs, err := tokenize.EncodeAll(d.enc, e.Texts)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{Inputs: inputs, Labels: e.IDs}, nil
}

func (d *Driver) score(ctx context.Context, backend Backend, data Dataset, k int) (evaluate.Metrics, error) {
	if data.Len() == 0 {
		return evaluate.Metrics{PerClass: make([]evaluate.ClassReport, 0)}, nil
	}
	probs, err := predictBatched(ctx, backend, data.Inputs, d.opts.Training.EvalBatchSize)
	if err != nil {
		return evaluate.Metrics{}, err
	}
	m, err := evaluate.Compute(data.Labels, evaluate.Argmax(probs), k)
	if err != nil {
		return m, err
	}
	m.Loss = evaluate.CrossEntropy(probs, data.Labels)
	return m, nil
}

func predictBatched(ctx context.Context, backend Backend, inputs []tokenize.Encoding, size int) ([][]float64, error) {
	if size <= 0 {
		size = len(inputs)
	}
	out := make([][]float64, 0, len(inputs))
	for start := 0; start < len(inputs); start += size {
		end := start + size
		if end > len(inputs) {
			end = len(inputs)
		}
		probs, err := backend.Predict(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, probs...)
	}
	return out, nil
}

func (d *Driver) saveCheckpoint(backend Backend, dir string, mapping *emotion.LabelMapping, report EpochReport) error {
	if err := backend.Save(dir); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", filepath.Base(dir), err)
	}
	if err := emotion.WriteLabelMapping(filepath.Join(dir, LabelMapFile), mapping); err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trainer state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, stateFile), data, 0o644); err != nil {
		return fmt.Errorf("write trainer state: %w", err)
	}
	return nil
}
