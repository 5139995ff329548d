package evaluate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
)

// Flatten turns metrics into the flat key→number summary written next to the model.
func Flatten(prefix string, m Metrics) map[string]float64 {
	key := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "_" + name
	}
	out := map[string]float64{
		key("accuracy"):           m.Accuracy,
		key("precision_weighted"): m.PrecisionWeighted,
		key("recall_weighted"):    m.RecallWeighted,
		key("f1_weighted"):        m.F1Weighted,
		key("samples"):            float64(m.Support),
	}
	if !m.NoLoss {
		out[key("loss")] = m.Loss
	}
	return out
}

// WriteSummary stores Flatten(prefix, m) as JSON at path.
func WriteSummary(path, prefix string, m Metrics) error {
	data, err := json.MarshalIndent(Flatten(prefix, m), "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create summary dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	var out map[string]float64
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return out, nil
}

// WriteReport prints a per-class table, the confusion matrix and the top mistakes.
func WriteReport(w io.Writer, m Metrics, cm Matrix, labels []string, topN int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "label\tprecision\trecall\tf1\tsupport\t")
	for _, c := range m.WithLabels(labels).PerClass {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%d\t\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(tw, "\t\t\t\t\t\n")
	fmt.Fprintf(tw, "accuracy\t\t\t%.4f\t%d\t\n", m.Accuracy, m.Support)
	fmt.Fprintf(tw, "weighted avg\t%.4f\t%.4f\t%.4f\t%d\t\n", m.PrecisionWeighted, m.RecallWeighted, m.F1Weighted, m.Support)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "true\\pred\t%s\t\n", strings.Join(labels, "\t"))
	for i, row := range cm {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", labelAt(labels, i), strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	top := TopConfusions(cm, labels, topN)
	if len(top) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "most frequent mistakes:")
	for _, c := range top {
		if _, err := fmt.Fprintf(w, "  %s -> %s: %d\n", c.True, c.Pred, c.Count); err != nil {
			return err
		}
	}
	return nil
}

// WriteReportFile writes WriteReport output to path.
func WriteReportFile(path string, m Metrics, cm Matrix, labels []string, topN int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteReport(f, m, cm, labels, topN); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
