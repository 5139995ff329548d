package emotion

import (
	"encoding/json"

	"yashubustudio/emotion/internal/tokenize"
)

// Record is one conversational sample.
type Record struct {
	RawText     string `json:"rawText"`
	FineCode    string `json:"fineCode"`
	CleanedText string `json:"cleanedText"`
	CoarseLabel string `json:"coarseLabel"`
}

// Labeled reports whether the record carries a coarse label.
func (r Record) Labeled() bool {
	return r.CoarseLabel != ""
}

// Corpus is an ordered sequence of labeled records.
type Corpus struct {
	Name    string   `json:"name"`
	Records []Record `json:"records"`
}

// Len returns the number of records.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// Texts returns the cleaned texts in corpus order.
func (c *Corpus) Texts() []string {
	out := make([]string, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.CleanedText
	}
	return out
}

// Source names the files backing one corpus. An empty Text selects dialogue-only mode
// where the utterances come from the label file itself.
type Source struct {
	Text   string `json:"text" yaml:"text"`
	Labels string `json:"labels" yaml:"labels"`
}

// LoadStats summarizes what happened while building a corpus.
type LoadStats struct {
	TextRows   int  `json:"textRows"`
	LabelRows  int  `json:"labelRows"`
	Truncated  bool `json:"truncated"`
	Unmappable int  `json:"unmappable"`
	Empty      int  `json:"empty"`
	Kept       int  `json:"kept"`
}

// ColumnConfig controls which tabular columns hold dialogue turns.
type ColumnConfig struct {
	// Markers are substrings identifying utterance columns by header name.
	Markers []string `json:"markers" yaml:"markers"`
	// Explicit lists columns by header name or 1-based "#n" index. It wins over Markers.
	Explicit []string `json:"explicit" yaml:"explicit"`
	// NoHeader treats the first row as data. Explicit columns must then use "#n".
	NoHeader bool `json:"noHeader" yaml:"noHeader"`
	// Sheet selects the worksheet of an .xlsx source. Empty means the first sheet.
	Sheet string `json:"sheet" yaml:"sheet"`
}

// SplitConfig controls the stratified train/validation split.
type SplitConfig struct {
	ValidationRatio float64 `json:"validationRatio" yaml:"validationRatio"`
	// Seed is nil when unset; an explicit 0 is a valid seed.
	Seed *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// DefaultSeed seeds splits and shuffles when no seed is configured.
const DefaultSeed int64 = 42

// SeedOf returns a pointer to v for the Seed fields.
func SeedOf(v int64) *int64 { return &v }

func seedValue(p *int64) int64 {
	if p == nil {
		return DefaultSeed
	}
	return *p
}

// SeedValue returns the configured seed or DefaultSeed.
func (s SplitConfig) SeedValue() int64 { return seedValue(s.Seed) }

// BalancingKind selects a balancing strategy.
type BalancingKind string

const (
	BalanceNone         BalancingKind = "none"
	BalanceOversample   BalancingKind = "oversample"
	BalanceClassWeights BalancingKind = "class_weights"
)

// WeightMode selects how class weights are produced.
type WeightMode string

const (
	WeightsBalanced WeightMode = "balanced"
	WeightsManual   WeightMode = "manual"
)

// BalancingConfig is the tagged variant {none, oversample(class, target), class_weights(mode)}.
type BalancingConfig struct {
	Kind BalancingKind `json:"kind" yaml:"kind"`

	// Oversample settings.
	Class       string `json:"class" yaml:"class"`
	Target      string `json:"target" yaml:"target"`
	TargetCount int    `json:"targetCount" yaml:"targetCount"`

	// Class weight settings. Manual weights are keyed by label name.
	WeightMode    WeightMode         `json:"weightMode" yaml:"weightMode"`
	ManualWeights map[string]float64 `json:"manualWeights" yaml:"manualWeights"`
}

// TrainingConfig holds fine-tuning hyperparameters.
type TrainingConfig struct {
	Epochs         int     `json:"epochs" yaml:"epochs"`
	LearningRate   float64 `json:"learningRate" yaml:"learningRate"`
	BatchSize      int     `json:"batchSize" yaml:"batchSize"`
	EvalBatchSize  int     `json:"evalBatchSize" yaml:"evalBatchSize"`
	WeightDecay    float64 `json:"weightDecay" yaml:"weightDecay"`
	WarmupRatio    float64 `json:"warmupRatio" yaml:"warmupRatio"`
	Scheduler      string  `json:"scheduler" yaml:"scheduler"`
	SaveTotalLimit int     `json:"saveTotalLimit" yaml:"saveTotalLimit"`
	MetricForBest  string  `json:"metricForBest" yaml:"metricForBest"`
	FeatureDim     int     `json:"featureDim" yaml:"featureDim"`
	Seed           *int64  `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// SeedValue returns the configured shuffle seed or DefaultSeed.
func (t TrainingConfig) SeedValue() int64 { return seedValue(t.Seed) }

// PredictConfig selects and locates the model used by the predict operation.
type PredictConfig struct {
	Backend       string `json:"backend" yaml:"backend"`
	ModelDir      string `json:"modelDir" yaml:"modelDir"`
	OrtDLL        string `json:"ortDll" yaml:"ortDll"`
	ModelPath     string `json:"modelPath" yaml:"modelPath"`
	TokenizerPath string `json:"tokenizerPath" yaml:"tokenizerPath"`
	LabelMapPath  string `json:"labelMapPath" yaml:"labelMapPath"`
	MaxSeqLen     int    `json:"maxSeqLen" yaml:"maxSeqLen"`
	TopK          int    `json:"topK" yaml:"topK"`
}

// RunStoreConfig selects where run summaries are recorded.
type RunStoreConfig struct {
	Kind       string `json:"kind" yaml:"kind"`
	MongoURI   string `json:"mongoUri" yaml:"mongoUri"`
	Database   string `json:"database" yaml:"database"`
	Collection string `json:"collection" yaml:"collection"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level   string `json:"level" yaml:"level"`
	Console bool   `json:"console" yaml:"console"`
}

// Config aggregates pipeline settings persisted to config.json or config.yaml.
type Config struct {
	DataDir    string          `json:"dataDir" yaml:"dataDir"`
	OutputDir  string          `json:"outputDir" yaml:"outputDir"`
	Train      Source          `json:"train" yaml:"train"`
	Test       Source          `json:"test" yaml:"test"`
	Columns    ColumnConfig    `json:"columns" yaml:"columns"`
	CodeRanges CodeTable       `json:"codeRanges" yaml:"codeRanges"`
	Groups     GroupScheme     `json:"groups,omitempty" yaml:"groups,omitempty"`
	Split      SplitConfig     `json:"split" yaml:"split"`
	Balancing  BalancingConfig `json:"balancing" yaml:"balancing"`
	Tokenizer  tokenize.Config `json:"tokenizer" yaml:"tokenizer"`
	Training   TrainingConfig  `json:"training" yaml:"training"`
	Predict    PredictConfig   `json:"predict" yaml:"predict"`
	RunStore   RunStoreConfig  `json:"runStore" yaml:"runStore"`
	Logging    LoggingConfig   `json:"logging" yaml:"logging"`
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := json.Marshal(c)
	var out Config
	_ = json.Unmarshal(buf, &out)
	return out
}

// ApplyDefaults populates zero values with the values used by the reference training runs.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.OutputDir == "" {
		c.OutputDir = "./results"
	}
	if c.Train == (Source{}) {
		c.Train = Source{Text: "training-origin.xlsx", Labels: "training-label.json"}
	}
	if c.Test == (Source{}) {
		c.Test = Source{Text: "validation-origin.xlsx", Labels: "test.json"}
	}
	if len(c.Columns.Markers) == 0 && len(c.Columns.Explicit) == 0 {
		c.Columns.Markers = defaultUtteranceMarkers()
	}
	if len(c.CodeRanges) == 0 {
		c.CodeRanges = DefaultCodeTable()
	}
	if c.Split.ValidationRatio == 0 {
		c.Split.ValidationRatio = 0.1
	}
	if c.Split.Seed == nil {
		c.Split.Seed = SeedOf(DefaultSeed)
	}
	if c.Balancing.Kind == "" {
		c.Balancing.Kind = BalanceNone
	}
	if c.Balancing.Kind == BalanceOversample {
		if c.Balancing.Class == "" {
			c.Balancing.Class = LabelJoy
		}
		if c.Balancing.Target == "" {
			c.Balancing.Target = TargetNameMeanOthers
		}
	}
	if c.Balancing.Kind == BalanceClassWeights && c.Balancing.WeightMode == "" {
		c.Balancing.WeightMode = WeightsBalanced
	}
	c.Tokenizer.ApplyDefaults()
	c.Training.ApplyDefaults()
	if c.Predict.Backend == "" {
		c.Predict.Backend = "native"
	}
	if c.Predict.TopK <= 0 {
		c.Predict.TopK = 3
	}
	if c.Predict.MaxSeqLen <= 0 {
		c.Predict.MaxSeqLen = c.Tokenizer.MaxSeqLen
	}
	if c.RunStore.Kind == "" {
		c.RunStore.Kind = "file"
	}
	if c.RunStore.Database == "" {
		c.RunStore.Database = "emotion"
	}
	if c.RunStore.Collection == "" {
		c.RunStore.Collection = "training_runs"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// ApplyDefaults fills zero hyperparameters.
func (t *TrainingConfig) ApplyDefaults() {
	if t.Epochs <= 0 {
		t.Epochs = 3
	}
	if t.LearningRate <= 0 {
		t.LearningRate = 0.1
	}
	if t.BatchSize <= 0 {
		t.BatchSize = 16
	}
	if t.EvalBatchSize <= 0 {
		t.EvalBatchSize = 64
	}
	if t.WeightDecay < 0 {
		t.WeightDecay = 0
	}
	if t.WarmupRatio < 0 || t.WarmupRatio >= 1 {
		t.WarmupRatio = 0.1
	}
	if t.Scheduler == "" {
		t.Scheduler = "linear"
	}
	if t.SaveTotalLimit <= 0 {
		t.SaveTotalLimit = 2
	}
	if t.MetricForBest == "" {
		t.MetricForBest = "accuracy"
	}
	if t.FeatureDim <= 0 {
		t.FeatureDim = 1 << 16
	}
	if t.Seed == nil {
		t.Seed = SeedOf(DefaultSeed)
	}
}
