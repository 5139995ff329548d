package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"yashubustudio/emotion/emotion"
	"yashubustudio/emotion/evaluate"
	"yashubustudio/emotion/predict"
)

const reportTopConfusions = 10

// Evaluation is the scored outcome of one split.
type Evaluation struct {
	Name      string
	Labels    []string
	Metrics   evaluate.Metrics
	Confusion evaluate.Matrix
	Dropped   int

	MetricsFile string
	PlotFile    string
	ReportFile  string
}

// Evaluate predicts every record with pred and writes <name>_metrics.json,
// <name>_confusion_matrix.png and <name>_report.txt into the output directory.
// Records whose label the model does not know are dropped.
func (s *Service) Evaluate(ctx context.Context, pred predict.Predictor, records []emotion.Record, name string) (*Evaluation, error) {
	cfg := s.Config()
	mapping, err := emotion.NewLabelMapping(pred.Labels())
	if err != nil {
		return nil, fmt.Errorf("model labels: %w", err)
	}
	encoded, dropped := mapping.EncodeRecords(records)
	if dropped > 0 {
		s.logger.Warn().Str("split", name).Int("dropped", dropped).Msg("records with labels unknown to the model were dropped")
	}
	if encoded.Len() == 0 {
		return nil, fmt.Errorf("evaluate %s: %w", name, emotion.ErrEmptyCorpus)
	}

	k := mapping.Len()
	yPred := make([]int, encoded.Len())
	probs := make([][]float64, 0, encoded.Len())
	complete := true
	for i, text := range encoded.Texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := pred.Predict(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("predict %s record %d: %w", name, i, err)
		}
		id, err := mapping.Encode(out.Label)
		if err != nil {
			return nil, err
		}
		yPred[i] = id
		if len(out.Ranked) != k {
			complete = false
			continue
		}
		row := make([]float64, k)
		for _, sug := range out.Ranked {
			if j, err := mapping.Encode(sug.Label); err == nil {
				row[j] = sug.Score
			}
		}
		probs = append(probs, row)
	}

	m, err := evaluate.Compute(encoded.IDs, yPred, k)
	if err != nil {
		return nil, err
	}
	if complete {
		m.Loss = evaluate.CrossEntropy(probs, encoded.IDs)
	} else {
		m.NoLoss = true
		s.logger.Warn().Str("split", name).Msg("predictor returned partial rankings, loss not computed")
	}
	m = m.WithLabels(mapping.Labels())
	cm := evaluate.ConfusionMatrix(encoded.IDs, yPred, k)

	eval := &Evaluation{
		Name:      name,
		Labels:    mapping.Labels(),
		Metrics:   m,
		Confusion: cm,
		Dropped:   dropped,
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return eval, fmt.Errorf("create output dir: %w", err)
	}
	eval.MetricsFile = filepath.Join(cfg.OutputDir, name+"_metrics.json")
	if err := writeMetrics(eval.MetricsFile, name, m); err != nil {
		return eval, err
	}
	eval.PlotFile = filepath.Join(cfg.OutputDir, name+"_confusion_matrix.png")
	if err := evaluate.RenderConfusionPNG(eval.PlotFile, cm, eval.Labels, "Confusion Matrix ("+name+")"); err != nil {
		return eval, err
	}
	eval.ReportFile = filepath.Join(cfg.OutputDir, name+"_report.txt")
	if err := evaluate.WriteReportFile(eval.ReportFile, m, cm, eval.Labels, reportTopConfusions); err != nil {
		return eval, err
	}
	s.logger.Info().
		Str("split", name).
		Int("samples", m.Support).
		Float64("accuracy", m.Accuracy).
		Float64("f1_weighted", m.F1Weighted).
		Msg("evaluation finished")
	return eval, nil
}

func writeMetrics(path, prefix string, m evaluate.Metrics) error {
	if err := evaluate.WriteSummary(path, prefix, m); err != nil {
		return fmt.Errorf("write %s metrics: %w", prefix, err)
	}
	return nil
}

func mergeMetrics(dst map[string]float64, prefix string, m evaluate.Metrics) {
	for k, v := range evaluate.Flatten(prefix, m) {
		dst[k] = v
	}
}
