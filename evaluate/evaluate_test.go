package evaluate_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/emotion/evaluate"
)

var (
	gold = []int{0, 0, 0, 1, 1, 2, 2, 2, 2, 0}
	pred = []int{0, 1, 0, 1, 2, 2, 2, 0, 2, 0}
)

func TestConfusionMatrixInvariants(t *testing.T) {
	cm := evaluate.ConfusionMatrix(gold, pred, 3)
	assert.Equal(t, evaluate.Matrix{{3, 1, 0}, {0, 1, 1}, {1, 0, 3}}, cm)
	assert.Equal(t, []int{4, 2, 4}, cm.RowSums())
	assert.Equal(t, 10, cm.Total())

	m, err := evaluate.Compute(gold, pred, 3)
	require.NoError(t, err)
	assert.InDelta(t, float64(cm.Trace())/float64(cm.Total()), m.Accuracy, 1e-12)
}

func TestComputeWeightedScores(t *testing.T) {
	m, err := evaluate.Compute(gold, pred, 3)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, m.Accuracy, 1e-12)

	// class 0: p=3/4 r=3/4; class 1: p=1/2 r=1/2; class 2: p=3/4 r=3/4
	assert.InDelta(t, 0.75, m.PerClass[0].Precision, 1e-12)
	assert.InDelta(t, 0.5, m.PerClass[1].Recall, 1e-12)
	assert.InDelta(t, (4*0.75+2*0.5+4*0.75)/10, m.PrecisionWeighted, 1e-12)
	assert.InDelta(t, 0.7, m.RecallWeighted, 1e-12)
	assert.InDelta(t, (4*0.75+2*0.5+4*0.75)/10, m.F1Weighted, 1e-12)
}

func TestComputeZeroDivision(t *testing.T) {
	m, err := evaluate.Compute([]int{0, 0, 1}, []int{0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.PerClass[1].Precision)
	assert.Equal(t, 0.0, m.PerClass[2].F1)
	assert.Equal(t, 0, m.PerClass[2].Support)
	assert.InDelta(t, 2.0/3, m.Accuracy, 1e-12)

	_, err = evaluate.Compute([]int{0}, []int{0, 1}, 2)
	assert.Error(t, err)

	empty, err := evaluate.Compute(nil, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.Accuracy)
}

func TestMetricValue(t *testing.T) {
	m := evaluate.Metrics{Accuracy: 0.9, F1Weighted: 0.8, Loss: 0.3}
	v, err := m.Value("f1")
	require.NoError(t, err)
	assert.Equal(t, 0.8, v)
	_, err = m.Value("auc")
	assert.Error(t, err)
	assert.False(t, evaluate.GreaterIsBetter("loss"))
	assert.True(t, evaluate.GreaterIsBetter("accuracy"))
}

func TestArgmaxAndCrossEntropy(t *testing.T) {
	probs := [][]float64{{0.1, 0.7, 0.2}, {0.5, 0.5, 0}}
	assert.Equal(t, []int{1, 0}, evaluate.Argmax(probs))
	assert.Greater(t, evaluate.CrossEntropy(probs, []int{1, 0}), 0.0)
}

func TestTopConfusions(t *testing.T) {
	cm := evaluate.Matrix{{5, 3, 0}, {1, 2, 4}, {0, 0, 1}}
	top := evaluate.TopConfusions(cm, []string{"a", "b", "c"}, 2)
	assert.Equal(t, []evaluate.Confusion{{True: "b", Pred: "c", Count: 4}, {True: "a", Pred: "b", Count: 3}}, top)
}

func TestWriteSummaryAndReport(t *testing.T) {
	dir := t.TempDir()
	m, err := evaluate.Compute(gold, pred, 3)
	require.NoError(t, err)

	path := filepath.Join(dir, "test_metrics.json")
	require.NoError(t, evaluate.WriteSummary(path, "test", m))
	back, err := evaluate.ReadSummary(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, back["test_accuracy"], 1e-12)
	assert.Contains(t, back, "test_f1_weighted")

	var buf bytes.Buffer
	cm := evaluate.ConfusionMatrix(gold, pred, 3)
	require.NoError(t, evaluate.WriteReport(&buf, m, cm, []string{"anger", "joy", "sadness"}, 3))
	assert.Contains(t, buf.String(), "weighted avg")
	assert.Contains(t, buf.String(), "sadness -> anger: 1")
}

func TestFlattenOmitsUncomputedLoss(t *testing.T) {
	m := evaluate.Metrics{Accuracy: 1, Loss: 0.4}
	assert.InDelta(t, 0.4, evaluate.Flatten("test", m)["test_loss"], 1e-12)

	m.NoLoss = true
	flat := evaluate.Flatten("test", m)
	assert.NotContains(t, flat, "test_loss")
	assert.Contains(t, flat, "test_accuracy")
}

func TestRenderConfusionPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cm.png")
	cm := evaluate.ConfusionMatrix(gold, pred, 3)
	require.NoError(t, evaluate.RenderConfusionPNG(path, cm, []string{"anger", "joy", "sadness"}, "Confusion Matrix"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, evaluate.RenderConfusionPNG(path, cm, []string{"a"}, "bad"))
}
