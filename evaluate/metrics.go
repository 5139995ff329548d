// Package evaluate scores predictions against gold labels.
package evaluate

import (
	"fmt"
	"math"
)

// ClassReport holds per-class scores. ID is the label id in mapping order.
type ClassReport struct {
	ID        int     `json:"id"`
	Label     string  `json:"label,omitempty"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Metrics are support-weighted classification scores. Zero divisions count as 0.
type Metrics struct {
	Accuracy          float64       `json:"accuracy"`
	PrecisionWeighted float64       `json:"precision_weighted"`
	RecallWeighted    float64       `json:"recall_weighted"`
	F1Weighted        float64       `json:"f1_weighted"`
	Loss              float64       `json:"loss"`
	Support           int           `json:"support"`
	PerClass          []ClassReport `json:"per_class"`

	// NoLoss marks Loss as not computed, e.g. when the predictor returned only top-k scores.
	NoLoss bool `json:"-"`
}

// Compute scores yPred against yTrue over label ids 0..k-1.
func Compute(yTrue, yPred []int, k int) (Metrics, error) {
	if len(yTrue) != len(yPred) {
		return Metrics{}, fmt.Errorf("compute metrics: %d gold labels but %d predictions", len(yTrue), len(yPred))
	}
	cm := ConfusionMatrix(yTrue, yPred, k)
	m := Metrics{Support: len(yTrue), PerClass: make([]ClassReport, k)}
	if len(yTrue) == 0 {
		for i := range m.PerClass {
			m.PerClass[i].ID = i
		}
		return m, nil
	}
	m.Accuracy = float64(cm.Trace()) / float64(len(yTrue))

	predicted := cm.ColSums()
	support := cm.RowSums()
	for c := 0; c < k; c++ {
		tp := cm[c][c]
		rep := ClassReport{ID: c, Support: support[c]}
		rep.Precision = safeDiv(float64(tp), float64(predicted[c]))
		rep.Recall = safeDiv(float64(tp), float64(support[c]))
		rep.F1 = safeDiv(2*rep.Precision*rep.Recall, rep.Precision+rep.Recall)
		m.PerClass[c] = rep

		w := float64(support[c]) / float64(len(yTrue))
		m.PrecisionWeighted += w * rep.Precision
		m.RecallWeighted += w * rep.Recall
		m.F1Weighted += w * rep.F1
	}
	return m, nil
}

// WithLabels names the per-class rows.
func (m Metrics) WithLabels(labels []string) Metrics {
	out := m
	out.PerClass = make([]ClassReport, len(m.PerClass))
	copy(out.PerClass, m.PerClass)
	for i := range out.PerClass {
		if id := out.PerClass[i].ID; id >= 0 && id < len(labels) {
			out.PerClass[i].Label = labels[id]
		}
	}
	return out
}

// Value returns the named metric: accuracy, f1, precision, recall or loss.
func (m Metrics) Value(name string) (float64, error) {
	switch name {
	case "accuracy":
		return m.Accuracy, nil
	case "f1", "f1_weighted":
		return m.F1Weighted, nil
	case "precision", "precision_weighted":
		return m.PrecisionWeighted, nil
	case "recall", "recall_weighted":
		return m.RecallWeighted, nil
	case "loss":
		return m.Loss, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", name)
	}
}

// GreaterIsBetter reports the improvement direction of a metric name.
func GreaterIsBetter(name string) bool {
	return name != "loss"
}

// Argmax returns the highest-scoring id of each row. Ties go to the lower id.
func Argmax(scores [][]float64) []int {
	out := make([]int, len(scores))
	for i, row := range scores {
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// CrossEntropy is the mean negative log probability of the gold label.
func CrossEntropy(probs [][]float64, yTrue []int) float64 {
	if len(probs) == 0 {
		return 0
	}
	var sum float64
	for i, row := range probs {
		p := row[yTrue[i]]
		if p < 1e-12 {
			p = 1e-12
		}
		sum -= math.Log(p)
	}
	return sum / float64(len(probs))
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
