package evaluate

import "sort"

// Matrix is a K×K confusion matrix. Rows are gold ids and columns predicted ids.
type Matrix [][]int

// ConfusionMatrix counts (gold, predicted) pairs. Ids outside [0, k) are ignored.
func ConfusionMatrix(yTrue, yPred []int, k int) Matrix {
	cm := make(Matrix, k)
	for i := range cm {
		cm[i] = make([]int, k)
	}
	n := len(yTrue)
	if len(yPred) < n {
		n = len(yPred)
	}
	for i := 0; i < n; i++ {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= k || p < 0 || p >= k {
			continue
		}
		cm[t][p]++
	}
	return cm
}

// RowSums returns gold counts per class.
func (cm Matrix) RowSums() []int {
	out := make([]int, len(cm))
	for i, row := range cm {
		for _, v := range row {
			out[i] += v
		}
	}
	return out
}

// ColSums returns prediction counts per class.
func (cm Matrix) ColSums() []int {
	out := make([]int, len(cm))
	for _, row := range cm {
		for j, v := range row {
			out[j] += v
		}
	}
	return out
}

// Trace is the number of correct predictions.
func (cm Matrix) Trace() int {
	t := 0
	for i := range cm {
		t += cm[i][i]
	}
	return t
}

// Total is the number of counted pairs.
func (cm Matrix) Total() int {
	t := 0
	for _, s := range cm.RowSums() {
		t += s
	}
	return t
}

// Confusion is one off-diagonal cell.
type Confusion struct {
	True  string `json:"true"`
	Pred  string `json:"pred"`
	Count int    `json:"count"`
}

// TopConfusions returns the n most frequent gold→predicted mistakes, largest first.
func TopConfusions(cm Matrix, labels []string, n int) []Confusion {
	var out []Confusion
	for i, row := range cm {
		for j, v := range row {
			if i == j || v == 0 {
				continue
			}
			out = append(out, Confusion{True: labelAt(labels, i), Pred: labelAt(labels, j), Count: v})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func labelAt(labels []string, i int) string {
	if i >= 0 && i < len(labels) {
		return labels[i]
	}
	return ""
}
