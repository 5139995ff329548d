// Package pipeline wires loading, balancing, training and evaluation into one run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"yashubustudio/emotion/emotion"
	"yashubustudio/emotion/internal/runstore"
	"yashubustudio/emotion/internal/tokenize"
	"yashubustudio/emotion/predict"
	"yashubustudio/emotion/trainer"
)

// Service orchestrates one pipeline configuration.
type Service struct {
	cfgMu sync.RWMutex
	cfg   emotion.Config

	store  runstore.Store
	logger zerolog.Logger
}

// NewService constructs a service. A nil store records nothing.
func NewService(cfg emotion.Config, store runstore.Store, logger zerolog.Logger) *Service {
	cfg.ApplyDefaults()
	if store == nil {
		store = runstore.Discard{}
	}
	return &Service{cfg: cfg, store: store, logger: logger}
}

// Config returns a copy of the current configuration.
func (s *Service) Config() emotion.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone()
}

// UpdateConfig replaces the configuration.
func (s *Service) UpdateConfig(cfg emotion.Config) {
	cfg.ApplyDefaults()
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

// Close releases the run store.
func (s *Service) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}

// Prepared holds the splits produced by Prepare.
type Prepared struct {
	Mapping    *emotion.LabelMapping
	Train      []emotion.Record
	Validation []emotion.Record
	Test       []emotion.Record
	Weights    emotion.WeightVector
	Oversample *emotion.OversampleReport

	TrainStats emotion.LoadStats
	TestStats  emotion.LoadStats

	// Encoded splits. Records whose label is missing from Mapping are dropped.
	EncodedTrain      emotion.Encoded
	EncodedValidation emotion.Encoded
	EncodedTest       emotion.Encoded
}

// Prepare loads both sources, splits train into train and validation, builds the label
// mapping from the train split and applies the balancing strategy.
func (s *Service) Prepare(ctx context.Context) (*Prepared, error) {
	cfg := s.Config()
	loader := emotion.NewLoader(cfg, s.logger)

	trainCorpus, trainStats, err := loader.Load(ctx, cfg.Train)
	if err != nil {
		return nil, fmt.Errorf("load train source: %w", err)
	}
	testCorpus, testStats, err := loader.Load(ctx, cfg.Test)
	if err != nil {
		return nil, fmt.Errorf("load test source: %w", err)
	}

	train, validation, err := emotion.StratifiedSplit(trainCorpus.Records, cfg.Split.ValidationRatio, cfg.Split.SeedValue())
	if err != nil {
		return nil, fmt.Errorf("split train source: %w", err)
	}
	mapping := emotion.BuildLabelMapping(train)
	balanced, err := emotion.ApplyBalancing(train, mapping, cfg.Balancing, cfg.Split.SeedValue(), s.logger)
	if err != nil {
		return nil, fmt.Errorf("balance train split: %w", err)
	}

	p := &Prepared{
		Mapping:    mapping,
		Train:      balanced.Train,
		Validation: validation,
		Test:       testCorpus.Records,
		Weights:    balanced.Weights,
		Oversample: balanced.Oversample,
		TrainStats: trainStats,
		TestStats:  testStats,
	}
	p.EncodedTrain = s.encode("train", mapping, p.Train)
	p.EncodedValidation = s.encode("validation", mapping, p.Validation)
	p.EncodedTest = s.encode("test", mapping, p.Test)

	s.logger.Info().
		Int("train", p.EncodedTrain.Len()).
		Int("validation", p.EncodedValidation.Len()).
		Int("test", p.EncodedTest.Len()).
		Strs("labels", mapping.Labels()).
		Str("balancing", string(cfg.Balancing.Kind)).
		Msg("splits prepared")
	return p, nil
}

func (s *Service) encode(split string, mapping *emotion.LabelMapping, records []emotion.Record) emotion.Encoded {
	enc, dropped := mapping.EncodeRecords(records)
	if dropped > 0 {
		s.logger.Warn().Str("split", split).Int("dropped", dropped).Msg("records with labels unknown to the train split were dropped")
	}
	return enc
}

// TrainHooks forwards progress callbacks to the training driver.
type TrainHooks struct {
	OnStep  func(step, total int)
	OnEpoch func(trainer.EpochReport)
}

// Train fine-tunes on the prepared splits and writes validation_metrics.json.
func (s *Service) Train(ctx context.Context, p *Prepared, hooks TrainHooks) (*trainer.Result, error) {
	if p == nil {
		return nil, errors.New("train: nothing prepared")
	}
	cfg := s.Config()
	enc, err := tokenize.New(cfg.Tokenizer)
	if err != nil {
		return nil, fmt.Errorf("init tokenizer: %w", err)
	}
	driver := trainer.NewDriver(trainer.Options{
		Training:  cfg.Training,
		Tokenizer: cfg.Tokenizer,
		OutputDir: cfg.OutputDir,
		Weights:   p.Weights,
		OnStep:    hooks.OnStep,
		OnEpoch:   hooks.OnEpoch,
	}, enc, s.logger)
	res, err := driver.Run(ctx, p.EncodedTrain, p.EncodedValidation, p.Mapping)
	if err != nil {
		return res, err
	}
	path := filepath.Join(cfg.OutputDir, "validation_metrics.json")
	if err := writeMetrics(path, "validation", res.Validation.WithLabels(p.Mapping.Labels())); err != nil {
		return res, err
	}
	return res, nil
}

// Report summarizes a full pipeline run.
type Report struct {
	RunID    string
	Prepared *Prepared
	Training *trainer.Result
	Test     *Evaluation
}

// Run prepares, trains, evaluates the best model on the test split and records the run.
func (s *Service) Run(ctx context.Context, hooks TrainHooks) (*Report, error) {
	cfg := s.Config()
	run := runstore.NewRun("train")
	run.Backend = "softmax"
	run.Balancing = string(cfg.Balancing.Kind)
	report := &Report{RunID: run.ID}

	err := s.runAll(ctx, hooks, report)
	if p := report.Prepared; p != nil {
		run.Labels = p.Mapping.Labels()
		run.TrainSize = p.EncodedTrain.Len()
		run.ValidationSize = p.EncodedValidation.Len()
		run.TestSize = p.EncodedTest.Len()
	}
	run.Metrics = make(map[string]float64)
	if r := report.Training; r != nil {
		run.Backend = r.Backend
		run.BestModelDir = r.BestModelDir
		mergeMetrics(run.Metrics, "validation", r.Validation)
	}
	if e := report.Test; e != nil {
		mergeMetrics(run.Metrics, e.Name, e.Metrics)
	}
	run.Finish(err)
	if serr := s.store.Save(context.WithoutCancel(ctx), run); serr != nil {
		s.logger.Warn().Err(serr).Str("run", run.ID).Msg("run record not saved")
	}
	return report, err
}

func (s *Service) runAll(ctx context.Context, hooks TrainHooks, report *Report) error {
	p, err := s.Prepare(ctx)
	if err != nil {
		return err
	}
	report.Prepared = p
	res, err := s.Train(ctx, p, hooks)
	report.Training = res
	if err != nil {
		return err
	}
	pred, err := predict.LoadNative(res.BestModelDir, 0)
	if err != nil {
		return err
	}
	defer pred.Close()
	eval, err := s.Evaluate(ctx, pred, p.Test, "test")
	report.Test = eval
	return err
}

// EvaluateModel loads the configured predictor and scores it on the test source.
// The label mapping is the one stored with the model.
func (s *Service) EvaluateModel(ctx context.Context) (*Evaluation, error) {
	cfg := s.Config()
	run := runstore.NewRun("evaluate")
	run.Backend = cfg.Predict.Backend

	eval, err := s.evaluateModel(ctx, cfg)
	run.Metrics = make(map[string]float64)
	if eval != nil {
		run.Labels = eval.Labels
		run.TestSize = eval.Metrics.Support
		mergeMetrics(run.Metrics, eval.Name, eval.Metrics)
	}
	run.Finish(err)
	if serr := s.store.Save(context.WithoutCancel(ctx), run); serr != nil {
		s.logger.Warn().Err(serr).Str("run", run.ID).Msg("run record not saved")
	}
	return eval, err
}

func (s *Service) evaluateModel(ctx context.Context, cfg emotion.Config) (*Evaluation, error) {
	opts := predict.FromConfig(cfg.Predict)
	// Loss needs the full distribution.
	opts.TopK = 0
	if opts.ModelDir == "" {
		opts.ModelDir = filepath.Join(cfg.OutputDir, trainer.BestModelDir)
	}
	pred, err := predict.Open(opts)
	if err != nil {
		return nil, err
	}
	defer pred.Close()
	corpus, _, err := emotion.NewLoader(cfg, s.logger).Load(ctx, cfg.Test)
	if err != nil {
		return nil, fmt.Errorf("load test source: %w", err)
	}
	return s.Evaluate(ctx, pred, corpus.Records, "test")
}

// Inspect loads src and reports its class distribution.
func (s *Service) Inspect(ctx context.Context, src emotion.Source) (emotion.Distribution, emotion.LoadStats, error) {
	corpus, stats, err := emotion.NewLoader(s.Config(), s.logger).Load(ctx, src)
	if err != nil {
		return emotion.Distribution{}, stats, err
	}
	return emotion.Describe(corpus.Records), stats, nil
}

// Runs lists recorded runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]runstore.Run, error) {
	return s.store.List(ctx, limit)
}
