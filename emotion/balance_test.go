package emotion_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/emotion/emotion"
)

func TestOversampleClassToFixedTarget(t *testing.T) {
	counts := map[string]int{"anger": 300, "sadness": 200, "joy": 50}
	records := makeRecords(counts)
	originals := make(map[emotion.Record]bool)
	for _, r := range records {
		if r.CoarseLabel == "joy" {
			originals[r] = true
		}
	}

	out, report := emotion.OversampleClass(records, "joy", emotion.TargetFixed(500), 42)
	require.False(t, report.Skipped)
	assert.Equal(t, 50, report.Before)
	assert.Equal(t, 500, report.After)

	after := emotion.ClassCounts(out)
	assert.Equal(t, 500, after["joy"])
	assert.Equal(t, 300, after["anger"])
	assert.Equal(t, 200, after["sadness"])
	for _, r := range out {
		if r.CoarseLabel == "joy" {
			assert.True(t, originals[r], "oversampled record %q is not a duplicate", r.RawText)
		}
	}
}

func TestOversampleClassMeanOthers(t *testing.T) {
	records := makeRecords(map[string]int{"anger": 100, "sadness": 51, "joy": 10})
	out, report := emotion.OversampleClass(records, "joy", emotion.TargetMeanOthers, 1)
	assert.Equal(t, 75, report.Target)
	assert.Equal(t, 75, emotion.ClassCounts(out)["joy"])
}

func TestOversampleClassDeterministic(t *testing.T) {
	records := makeRecords(map[string]int{"anger": 30, "joy": 5})
	a, _ := emotion.OversampleClass(records, "joy", emotion.TargetMaxOthers, 9)
	b, _ := emotion.OversampleClass(records, "joy", emotion.TargetMaxOthers, 9)
	assert.Equal(t, a, b)
}

func TestOversampleClassAbsent(t *testing.T) {
	records := makeRecords(map[string]int{"anger": 30, "sadness": 5})
	out, report := emotion.OversampleClass(records, "joy", emotion.TargetMeanOthers, 9)
	assert.True(t, report.Skipped)
	assert.Equal(t, records, out)
}

func TestBalancedWeights(t *testing.T) {
	records := makeRecords(map[string]int{"anger": 60, "joy": 20, "sadness": 20})
	m := emotion.BuildLabelMapping(records)
	w, err := emotion.BalancedWeights(records, m)
	require.NoError(t, err)
	// labels: anger, joy, sadness
	assert.InDeltaSlice(t, []float64{100.0 / 180, 100.0 / 60, 100.0 / 60}, []float64(w), 1e-9)
}

func TestManualWeightsLengthCheck(t *testing.T) {
	m, err := emotion.NewLabelMapping([]string{"a", "b", "c"})
	require.NoError(t, err)

	_, err = emotion.ManualWeights(m, []float64{1, 2})
	assert.ErrorIs(t, err, emotion.ErrWeightVectorMismatch)

	w, err := emotion.ManualWeights(m, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, emotion.WeightVector{1, 2, 3}, w)
}

func TestNamedWeights(t *testing.T) {
	m, err := emotion.NewLabelMapping([]string{"anger", "joy"})
	require.NoError(t, err)

	w, err := emotion.NamedWeights(m, map[string]float64{"joy": 0.5, "anger": 2})
	require.NoError(t, err)
	assert.Equal(t, emotion.WeightVector{2, 0.5}, w)

	_, err = emotion.NamedWeights(m, map[string]float64{"joy": 0.5})
	assert.ErrorIs(t, err, emotion.ErrWeightVectorMismatch)

	_, err = emotion.NamedWeights(m, map[string]float64{"joy": 0.5, "anger": 1, "hurt": 1})
	assert.ErrorIs(t, err, emotion.ErrWeightVectorMismatch)
}

func TestApplyBalancing(t *testing.T) {
	records := makeRecords(map[string]int{"anger": 40, "sadness": 20, "joy": 4})
	m := emotion.BuildLabelMapping(records)
	log := zerolog.Nop()

	none, err := emotion.ApplyBalancing(records, m, emotion.BalancingConfig{Kind: emotion.BalanceNone}, 1, log)
	require.NoError(t, err)
	assert.Equal(t, records, none.Train)
	assert.Nil(t, none.Weights)

	over, err := emotion.ApplyBalancing(records, m, emotion.BalancingConfig{Kind: emotion.BalanceOversample, Class: "joy"}, 1, log)
	require.NoError(t, err)
	require.NotNil(t, over.Oversample)
	assert.Equal(t, 30, emotion.ClassCounts(over.Train)["joy"])

	weighted, err := emotion.ApplyBalancing(records, m, emotion.BalancingConfig{Kind: emotion.BalanceClassWeights}, 1, log)
	require.NoError(t, err)
	assert.Len(t, weighted.Weights, 3)

	_, err = emotion.ApplyBalancing(records, m, emotion.BalancingConfig{
		Kind:          emotion.BalanceClassWeights,
		WeightMode:    emotion.WeightsManual,
		ManualWeights: map[string]float64{"joy": 3},
	}, 1, log)
	assert.ErrorIs(t, err, emotion.ErrWeightVectorMismatch)

	_, err = emotion.ApplyBalancing(records, m, emotion.BalancingConfig{Kind: "smote"}, 1, log)
	assert.Error(t, err)
}
