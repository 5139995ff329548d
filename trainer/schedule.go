package trainer

import (
	"fmt"
	"math"
)

// Schedule yields the learning rate of each optimizer step.
type Schedule struct {
	kind   string
	base   float64
	warmup int
	total  int
}

// NewSchedule builds a linear, cosine or constant schedule with linear warmup over
// warmupRatio of total steps.
func NewSchedule(kind string, base, warmupRatio float64, total int) (Schedule, error) {
	switch kind {
	case "", "linear":
		kind = "linear"
	case "cosine", "constant":
	default:
		return Schedule{}, fmt.Errorf("unknown lr scheduler %q", kind)
	}
	if total < 1 {
		total = 1
	}
	warmup := int(math.Ceil(warmupRatio * float64(total)))
	if warmup >= total {
		warmup = total - 1
	}
	return Schedule{kind: kind, base: base, warmup: warmup, total: total}, nil
}

// At returns the learning rate of the 0-based step.
func (s Schedule) At(step int) float64 {
	if step < s.warmup {
		return s.base * float64(step+1) / float64(s.warmup)
	}
	if s.kind == "constant" {
		return s.base
	}
	span := s.total - s.warmup
	progress := float64(step-s.warmup) / float64(span)
	if progress > 1 {
		progress = 1
	}
	if s.kind == "cosine" {
		return s.base * 0.5 * (1 + math.Cos(math.Pi*progress))
	}
	return s.base * (1 - progress)
}

// Warmup returns the number of warmup steps.
func (s Schedule) Warmup() int { return s.warmup }
