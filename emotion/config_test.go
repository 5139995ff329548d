package emotion_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/emotion/emotion"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := emotion.LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 0.1, cfg.Split.ValidationRatio)
	assert.Equal(t, emotion.DefaultSeed, cfg.Split.SeedValue())
	assert.Equal(t, emotion.DefaultSeed, cfg.Training.SeedValue())
	assert.Equal(t, emotion.BalanceNone, cfg.Balancing.Kind)
	assert.Equal(t, emotion.DefaultCodeTable(), cfg.CodeRanges)
	assert.Equal(t, []string{"문장", "utterance"}, cfg.Columns.Markers)
	assert.Equal(t, 3, cfg.Training.Epochs)
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dataDir: /corpus
balancing:
  kind: oversample
codeRanges:
  - {min: 0, max: 9, label: joy}
  - {min: 10, max: 19, label: anger}
training:
  epochs: 5
  scheduler: cosine
`), 0o644))

	cfg, err := emotion.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/corpus", cfg.DataDir)
	assert.Equal(t, emotion.LabelJoy, cfg.Balancing.Class)
	assert.Equal(t, emotion.TargetNameMeanOthers, cfg.Balancing.Target)
	assert.Len(t, cfg.CodeRanges, 2)
	assert.Equal(t, 5, cfg.Training.Epochs)
	assert.Equal(t, "cosine", cfg.Training.Scheduler)
}

func TestLoadConfigKeepsZeroSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("split:\n  seed: 0\ntraining:\n  seed: 0\n"), 0o644))

	cfg, err := emotion.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cfg.Split.SeedValue())
	assert.Equal(t, int64(0), cfg.Training.SeedValue())

	clone := cfg.Clone()
	require.NotNil(t, clone.Split.Seed)
	assert.Equal(t, int64(0), *clone.Split.Seed)
}

func TestLoadConfigRejectsOverlappingRanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"codeRanges":[{"min":0,"max":15,"label":"a"},{"min":10,"max":19,"label":"b"}]}`), 0o644))
	_, err := emotion.LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv(emotion.EnvOutputDir, "/tmp/out")
	t.Setenv(emotion.EnvLogLevel, "debug")
	cfg, err := emotion.LoadConfig(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"config.json", "config.yaml"} {
		path := filepath.Join(dir, name)
		cfg := emotion.Config{OutputDir: "out", Groups: emotion.ThreeGroupScheme()}
		cfg.Balancing = emotion.BalancingConfig{
			Kind:          emotion.BalanceClassWeights,
			WeightMode:    emotion.WeightsManual,
			ManualWeights: map[string]float64{"joy": 0.5},
		}
		require.NoError(t, emotion.SaveConfig(path, cfg))
		back, err := emotion.LoadConfig(path)
		require.NoError(t, err, name)
		assert.Equal(t, "out", back.OutputDir, name)
		assert.Equal(t, emotion.ThreeGroupScheme(), back.Groups, name)
		assert.Equal(t, 0.5, back.Balancing.ManualWeights["joy"], name)
		_, err = os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err))
	}
}

func TestConfigClone(t *testing.T) {
	cfg := emotion.Config{Columns: emotion.ColumnConfig{Markers: []string{"a"}}}
	clone := cfg.Clone()
	clone.Columns.Markers[0] = "b"
	assert.Equal(t, "a", cfg.Columns.Markers[0])
}

func TestDescribe(t *testing.T) {
	d := emotion.Describe(makeRecords(map[string]int{"anger": 30, "joy": 10}))
	assert.Equal(t, 40, d.Total)
	require.Len(t, d.Classes, 2)
	assert.Equal(t, "anger", d.Classes[0].Label)
	assert.InDelta(t, 0.75, d.Classes[0].Share, 1e-9)
	assert.InDelta(t, 20.0, d.Mean, 1e-9)
	assert.InDelta(t, 3.0, d.Imbalance, 1e-9)
}
