package emotion

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions the labeled records into train and validation so every class
// contributes within floor/ceil of ratio of its records to validation.
// The validation size is ceil(ratio*n). The same seed and input give the same partition.
func StratifiedSplit(records []Record, ratio float64, seed int64) ([]Record, []Record, error) {
	if !(ratio > 0 && ratio < 1) {
		return nil, nil, fmt.Errorf("split with ratio %v: %w", ratio, ErrInvalidRatio)
	}
	byClass := groupByLabel(records)
	classes := sortedKeys(byClass)
	n := 0
	for _, c := range classes {
		n += len(byClass[c])
	}
	if n == 0 {
		return nil, nil, fmt.Errorf("split: %w", ErrEmptyCorpus)
	}
	valTotal := int(math.Ceil(ratio*float64(n) - 1e-9))
	if valTotal >= n {
		return nil, nil, fmt.Errorf("split %d records with ratio %v leaves no training data: %w", n, ratio, ErrInvalidRatio)
	}

	quotas := allocateQuotas(byClass, classes, ratio, valTotal)
	rng := rand.New(rand.NewSource(seed))
	train := make([]Record, 0, n-valTotal)
	validation := make([]Record, 0, valTotal)
	for _, c := range classes {
		group := append([]Record(nil), byClass[c]...)
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		q := quotas[c]
		validation = append(validation, group[:q]...)
		train = append(train, group[q:]...)
	}
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(validation), func(i, j int) { validation[i], validation[j] = validation[j], validation[i] })
	return train, validation, nil
}

// allocateQuotas gives each class floor(ratio*n_c) and hands the rest out by largest remainder.
func allocateQuotas(byClass map[string][]Record, classes []string, ratio float64, total int) map[string]int {
	type rem struct {
		class string
		frac  float64
	}
	quotas := make(map[string]int, len(classes))
	rems := make([]rem, 0, len(classes))
	assigned := 0
	for _, c := range classes {
		exact := ratio * float64(len(byClass[c]))
		q := int(math.Floor(exact + 1e-9))
		quotas[c] = q
		assigned += q
		rems = append(rems, rem{class: c, frac: exact - float64(q)})
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for assigned < total {
		progressed := false
		for _, r := range rems {
			if assigned >= total {
				break
			}
			if quotas[r.class] < len(byClass[r.class]) {
				quotas[r.class]++
				assigned++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return quotas
}

func groupByLabel(records []Record) map[string][]Record {
	out := make(map[string][]Record)
	for _, r := range records {
		if !r.Labeled() {
			continue
		}
		out[r.CoarseLabel] = append(out[r.CoarseLabel], r)
	}
	return out
}

// ClassCounts returns the number of labeled records per class.
func ClassCounts(records []Record) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		if r.Labeled() {
			out[r.CoarseLabel]++
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
