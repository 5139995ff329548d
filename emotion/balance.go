package emotion

import (
	"fmt"
	"math/rand"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"
)

// Oversampling target names accepted in configuration.
const (
	TargetNameMeanOthers = "mean_others"
	TargetNameMaxOthers  = "max_others"
	TargetNameFixed      = "fixed"
)

// TargetFunc decides how many records the oversampled class should end with.
type TargetFunc func(counts map[string]int, class string) int

// TargetMeanOthers is the mean count of the other classes, truncated to an integer.
func TargetMeanOthers(counts map[string]int, class string) int {
	others := otherCounts(counts, class)
	if len(others) == 0 {
		return counts[class]
	}
	mean, err := stats.Mean(others)
	if err != nil {
		return counts[class]
	}
	return int(mean)
}

// TargetMaxOthers is the largest count among the other classes.
func TargetMaxOthers(counts map[string]int, class string) int {
	others := otherCounts(counts, class)
	if len(others) == 0 {
		return counts[class]
	}
	top, err := stats.Max(others)
	if err != nil {
		return counts[class]
	}
	return int(top)
}

// TargetFixed always returns n.
func TargetFixed(n int) TargetFunc {
	return func(map[string]int, string) int { return n }
}

func otherCounts(counts map[string]int, class string) stats.Float64Data {
	var out stats.Float64Data
	for _, c := range sortedKeys(counts) {
		if c != class {
			out = append(out, float64(counts[c]))
		}
	}
	return out
}

// TargetFromConfig resolves a configured target name.
func TargetFromConfig(cfg BalancingConfig) (TargetFunc, error) {
	switch cfg.Target {
	case "", TargetNameMeanOthers:
		return TargetMeanOthers, nil
	case TargetNameMaxOthers:
		return TargetMaxOthers, nil
	case TargetNameFixed:
		if cfg.TargetCount <= 0 {
			return nil, fmt.Errorf("fixed oversampling target needs a positive targetCount")
		}
		return TargetFixed(cfg.TargetCount), nil
	default:
		return nil, fmt.Errorf("unknown oversampling target %q", cfg.Target)
	}
}

// OversampleReport describes one oversampling pass.
type OversampleReport struct {
	Class   string `json:"class"`
	Before  int    `json:"before"`
	After   int    `json:"after"`
	Target  int    `json:"target"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// OversampleClass redraws the records of class with replacement until it holds exactly the
// target count. Other classes are untouched and the result is shuffled with seed.
// An absent class or a non-positive target returns the input unchanged.
func OversampleClass(train []Record, class string, target TargetFunc, seed int64) ([]Record, OversampleReport) {
	counts := ClassCounts(train)
	report := OversampleReport{Class: class, Before: counts[class], After: counts[class]}
	if counts[class] == 0 {
		report.Skipped = true
		report.Reason = "class absent from training split"
		return train, report
	}
	report.Target = target(counts, class)
	if report.Target <= 0 {
		report.Skipped = true
		report.Reason = "target count is not positive"
		return train, report
	}

	var members, rest []Record
	for _, r := range train {
		if r.CoarseLabel == class {
			members = append(members, r)
		} else {
			rest = append(rest, r)
		}
	}
	rng := rand.New(rand.NewSource(seed))
	out := make([]Record, 0, len(rest)+report.Target)
	out = append(out, rest...)
	for i := 0; i < report.Target; i++ {
		out = append(out, members[rng.Intn(len(members))])
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	report.After = report.Target
	return out, report
}

// WeightVector holds one loss weight per label id.
type WeightVector []float64

// BalancedWeights computes total / (K * count[c]) for every label of m.
func BalancedWeights(train []Record, m *LabelMapping) (WeightVector, error) {
	counts := ClassCounts(train)
	total := 0
	for _, l := range m.labels {
		total += counts[l]
	}
	k := float64(m.Len())
	out := make(WeightVector, m.Len())
	for i, l := range m.labels {
		if counts[l] == 0 {
			return nil, fmt.Errorf("class %q has no training records: %w", l, ErrWeightVectorMismatch)
		}
		out[i] = float64(total) / (k * float64(counts[l]))
	}
	return out, nil
}

// ManualWeights validates a positional weight vector against m.
func ManualWeights(m *LabelMapping, weights []float64) (WeightVector, error) {
	if len(weights) != m.Len() {
		return nil, fmt.Errorf("got %d weights for %d labels: %w", len(weights), m.Len(), ErrWeightVectorMismatch)
	}
	return append(WeightVector(nil), weights...), nil
}

// NamedWeights orders label-keyed weights by id. Missing and extra names are both rejected.
func NamedWeights(m *LabelMapping, weights map[string]float64) (WeightVector, error) {
	out := make(WeightVector, m.Len())
	for i, l := range m.labels {
		w, ok := weights[l]
		if !ok {
			return nil, fmt.Errorf("no weight for label %q: %w", l, ErrWeightVectorMismatch)
		}
		out[i] = w
	}
	for name := range weights {
		if _, ok := m.index[name]; !ok {
			return nil, fmt.Errorf("weight for unknown label %q: %w", name, ErrWeightVectorMismatch)
		}
	}
	return out, nil
}

// Balanced is the outcome of applying a balancing strategy to the training split.
type Balanced struct {
	Train      []Record
	Weights    WeightVector
	Oversample *OversampleReport
}

// ApplyBalancing runs the configured strategy. Mapping must already be built from train.
func ApplyBalancing(train []Record, m *LabelMapping, cfg BalancingConfig, seed int64, logger zerolog.Logger) (Balanced, error) {
	out := Balanced{Train: train}
	switch cfg.Kind {
	case "", BalanceNone:
		return out, nil
	case BalanceOversample:
		target, err := TargetFromConfig(cfg)
		if err != nil {
			return out, err
		}
		records, report := OversampleClass(train, cfg.Class, target, seed)
		if report.Skipped {
			logger.Warn().Str("class", cfg.Class).Str("reason", report.Reason).Msg("oversampling skipped")
		} else {
			logger.Info().Str("class", cfg.Class).Int("before", report.Before).Int("after", report.After).Msg("oversampled class")
		}
		out.Train = records
		out.Oversample = &report
		return out, nil
	case BalanceClassWeights:
		var (
			w   WeightVector
			err error
		)
		switch cfg.WeightMode {
		case "", WeightsBalanced:
			w, err = BalancedWeights(train, m)
		case WeightsManual:
			w, err = NamedWeights(m, cfg.ManualWeights)
		default:
			err = fmt.Errorf("unknown class weight mode %q", cfg.WeightMode)
		}
		if err != nil {
			return out, err
		}
		logger.Info().Floats64("weights", w).Strs("labels", m.Labels()).Msg("class weights")
		out.Weights = w
		return out, nil
	default:
		return out, fmt.Errorf("unknown balancing strategy %q", cfg.Kind)
	}
}
