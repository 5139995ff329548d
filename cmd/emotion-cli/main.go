package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v2"

	"yashubustudio/emotion/emotion"
	"yashubustudio/emotion/internal/logging"
	"yashubustudio/emotion/internal/runstore"
	"yashubustudio/emotion/pipeline"
	"yashubustudio/emotion/predict"
	"yashubustudio/emotion/trainer"
)

type prepareCmd struct{}

type trainCmd struct {
	Epochs    int     `arg:"--epochs" help:"override training epochs"`
	Balancing string  `arg:"--balancing" help:"none, oversample or class_weights"`
	LR        float64 `arg:"--lr" help:"override learning rate"`
	NoBar     bool    `arg:"--no-progress" help:"disable the progress bar"`
}

type evaluateCmd struct {
	ModelDir string `arg:"--model-dir" help:"model directory (default: <outputDir>/best_model)"`
	Backend  string `arg:"--backend" help:"native or onnx"`
}

type predictCmd struct {
	Text       string `arg:"--text" help:"classify a single text and print the result"`
	Input      string `arg:"--input" help:"CSV/TSV/text file containing diary texts"`
	TextColumn string `arg:"--text-column" help:"column name or #index holding the text"`
	Output     string `arg:"--output" help:"CSV file to write results"`
	OutputDir  string `arg:"--output-dir" help:"directory for result CSVs when --output is omitted (default: <outputDir>/predictions)"`
	ModelDir   string `arg:"--model-dir" help:"model directory (default: <outputDir>/best_model)"`
	Backend    string `arg:"--backend" help:"native or onnx"`
	Stdout     bool   `arg:"--stdout" help:"print a result preview"`
}

type runsCmd struct {
	Limit int `arg:"--limit" default:"10" help:"number of runs to list"`
}

type inspectCmd struct {
	Text   string `arg:"--text" help:"text source (empty for dialogue-only JSON)"`
	Labels string `arg:"--labels" help:"JSON label source (default: the configured train source)"`
}

type cliArgs struct {
	Config   string       `arg:"--config" help:"path to config.yaml or config.json (default: ./config.yaml)"`
	Prepare  *prepareCmd  `arg:"subcommand:prepare" help:"load, split and balance the corpus"`
	Train    *trainCmd    `arg:"subcommand:train" help:"run prepare, training and test evaluation"`
	Evaluate *evaluateCmd `arg:"subcommand:evaluate" help:"score a saved model on the test source"`
	Predict  *predictCmd  `arg:"subcommand:predict" help:"classify diary texts"`
	Runs     *runsCmd     `arg:"subcommand:runs" help:"list recorded runs"`
	Inspect  *inspectCmd  `arg:"subcommand:inspect" help:"show the class distribution of a source"`
}

func main() {
	var args cliArgs
	p := arg.MustParse(&args)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}
	if err := run(args); err != nil {
		log.Fatalf("emotion-cli: %v", err)
	}
}

func run(args cliArgs) error {
	cfg, err := emotion.LoadConfig(strings.TrimSpace(args.Config))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New("emotion-cli", logging.Options{Level: cfg.Logging.Level, Console: cfg.Logging.Console})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args.Predict != nil {
		return runPredict(ctx, cfg, *args.Predict)
	}

	store, err := runstore.Open(ctx, cfg.RunStore, cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	service := pipeline.NewService(cfg, store, logger)
	defer service.Close(context.Background())

	switch {
	case args.Prepare != nil:
		return runPrepare(ctx, service)
	case args.Train != nil:
		return runTrain(ctx, service, *args.Train, logger)
	case args.Evaluate != nil:
		return runEvaluate(ctx, service, *args.Evaluate)
	case args.Runs != nil:
		return runRuns(ctx, service, args.Runs.Limit)
	case args.Inspect != nil:
		return runInspect(ctx, service, *args.Inspect)
	}
	return errors.New("missing subcommand")
}

func runPrepare(ctx context.Context, service *pipeline.Service) error {
	p, err := service.Prepare(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("라벨: %s\n", strings.Join(p.Mapping.Labels(), ", "))
	fmt.Printf("학습 %d건 / 검증 %d건 / 테스트 %d건\n", p.EncodedTrain.Len(), p.EncodedValidation.Len(), p.EncodedTest.Len())
	if p.TrainStats.Truncated || p.TestStats.Truncated {
		fmt.Println("경고: 텍스트와 라벨 파일의 행 수가 달라 짧은 쪽에 맞춰 잘랐습니다")
	}
	if r := p.Oversample; r != nil && !r.Skipped {
		fmt.Printf("오버샘플링: %s %d건 → %d건\n", r.Class, r.Before, r.After)
	}
	if len(p.Weights) > 0 {
		for i, label := range p.Mapping.Labels() {
			fmt.Printf("  가중치 %-14s %.4f\n", label, p.Weights[i])
		}
	}
	return emotion.Describe(p.Train).WriteTable(os.Stdout)
}

func runTrain(ctx context.Context, service *pipeline.Service, opts trainCmd, logger zerolog.Logger) error {
	cfg := service.Config()
	if opts.Epochs > 0 {
		cfg.Training.Epochs = opts.Epochs
	}
	if opts.LR > 0 {
		cfg.Training.LearningRate = opts.LR
	}
	if opts.Balancing != "" {
		cfg.Balancing.Kind = emotion.BalancingKind(opts.Balancing)
	}
	service.UpdateConfig(cfg)

	var bar *progressbar.ProgressBar
	var hooks pipeline.TrainHooks
	if !opts.NoBar {
		hooks.OnStep = func(step, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("학습 중"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
				)
			}
			_ = bar.Add(1)
		}
	}

	report, err := service.Run(ctx, hooks)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		logger.Error().Err(err).Str("run", report.RunID).Msg("run failed")
		return err
	}
	fmt.Printf("최적 모델을 %s 에 저장했습니다\n", report.Training.BestModelDir)
	if t := report.Test; t != nil {
		fmt.Printf("테스트 정확도 %.4f, 가중 F1 %.4f (%d건)\n", t.Metrics.Accuracy, t.Metrics.F1Weighted, t.Metrics.Support)
		fmt.Printf("결과 파일: %s, %s, %s\n", t.MetricsFile, t.PlotFile, t.ReportFile)
	}
	return nil
}

func runEvaluate(ctx context.Context, service *pipeline.Service, opts evaluateCmd) error {
	cfg := service.Config()
	if opts.ModelDir != "" {
		cfg.Predict.ModelDir = opts.ModelDir
	}
	if opts.Backend != "" {
		cfg.Predict.Backend = opts.Backend
	}
	service.UpdateConfig(cfg)
	eval, err := service.EvaluateModel(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("테스트 정확도 %.4f, 가중 F1 %.4f (%d건)\n", eval.Metrics.Accuracy, eval.Metrics.F1Weighted, eval.Metrics.Support)
	fmt.Printf("결과 파일: %s, %s, %s\n", eval.MetricsFile, eval.PlotFile, eval.ReportFile)
	return nil
}

func runRuns(ctx context.Context, service *pipeline.Service, limit int) error {
	runs, err := service.Runs(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("기록된 실행이 없습니다")
		return nil
	}
	for _, r := range runs {
		acc, ok := r.Metrics["test_accuracy"]
		score := "-"
		if ok {
			score = fmt.Sprintf("%.4f", acc)
		}
		fmt.Printf("%s  %-8s %-9s %s  test_accuracy=%s\n", r.StartedAt.Local().Format("2006-01-02 15:04"), r.Kind, r.State, r.ID, score)
		if r.Error != "" {
			fmt.Printf("    오류: %s\n", r.Error)
		}
	}
	return nil
}

func runInspect(ctx context.Context, service *pipeline.Service, opts inspectCmd) error {
	src := emotion.Source{Text: opts.Text, Labels: opts.Labels}
	if src.Labels == "" {
		src = service.Config().Train
	}
	dist, stats, err := service.Inspect(ctx, src)
	if err != nil {
		return err
	}
	fmt.Printf("텍스트 %d행, 라벨 %d행, 매핑 불가 %d건, 빈 텍스트 %d건\n", stats.TextRows, stats.LabelRows, stats.Unmappable, stats.Empty)
	return dist.WriteTable(os.Stdout)
}

func runPredict(ctx context.Context, cfg emotion.Config, opts predictCmd) error {
	popts := predict.FromConfig(cfg.Predict)
	if opts.ModelDir != "" {
		popts.ModelDir = opts.ModelDir
	}
	if opts.Backend != "" {
		popts.Backend = opts.Backend
	}
	if popts.ModelDir == "" {
		popts.ModelDir = filepath.Join(cfg.OutputDir, trainer.BestModelDir)
	}
	inner, err := predict.Open(popts)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	predictor := predict.NewCached(inner, 4096)
	defer predictor.Close()

	if strings.TrimSpace(opts.Text) != "" {
		out, err := predictor.Predict(ctx, opts.Text)
		if err != nil {
			return err
		}
		fmt.Printf("감정: %s (score=%.3f)\n", out.Label, out.Score)
		printSuggestions(out.Ranked)
		return nil
	}
	if strings.TrimSpace(opts.Input) == "" {
		return errors.New("missing --text or --input")
	}

	records, err := emotion.ParseInputRecords(opts.Input, opts.TextColumn)
	if err != nil {
		return fmt.Errorf("read input records: %w", err)
	}
	if len(records) == 0 {
		return errors.New("input file does not contain any texts")
	}
	results := make([]predict.Prediction, len(records))
	for i, rec := range records {
		out, err := predictor.Predict(ctx, rec.Text)
		if errors.Is(err, predict.ErrEmptyText) {
			continue
		}
		if err != nil {
			return fmt.Errorf("predict record %s: %w", rec.Index, err)
		}
		results[i] = out
	}

	outputPath, err := predictionPath(opts.Output, opts.OutputDir, cfg.OutputDir, predictor.ModelID(), time.Now())
	if err != nil {
		return err
	}
	if err := writeResultCSV(outputPath, records, results); err != nil {
		return err
	}
	fmt.Printf("분류 결과를 %s 에 저장했습니다\n", outputPath)
	if opts.Stdout {
		printSummary(records, results)
	}
	return nil
}
