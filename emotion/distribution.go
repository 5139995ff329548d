package emotion

import (
	"fmt"
	"io"
	"sort"

	"github.com/montanaflynn/stats"
)

// ClassShare is one row of a class distribution.
type ClassShare struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// Distribution summarizes class balance of a record set.
type Distribution struct {
	Total     int          `json:"total"`
	Classes   []ClassShare `json:"classes"`
	Mean      float64      `json:"mean"`
	StdDev    float64      `json:"stdDev"`
	Imbalance float64      `json:"imbalance"`
}

// Describe counts labeled records per class, largest class first.
func Describe(records []Record) Distribution {
	counts := ClassCounts(records)
	var d Distribution
	data := make(stats.Float64Data, 0, len(counts))
	for _, l := range sortedKeys(counts) {
		d.Total += counts[l]
		d.Classes = append(d.Classes, ClassShare{Label: l, Count: counts[l]})
		data = append(data, float64(counts[l]))
	}
	sort.SliceStable(d.Classes, func(i, j int) bool { return d.Classes[i].Count > d.Classes[j].Count })
	for i := range d.Classes {
		d.Classes[i].Share = float64(d.Classes[i].Count) / float64(d.Total)
	}
	if len(data) == 0 {
		return d
	}
	d.Mean, _ = stats.Mean(data)
	d.StdDev, _ = stats.StandardDeviation(data)
	lo, _ := stats.Min(data)
	hi, _ := stats.Max(data)
	if lo > 0 {
		d.Imbalance = hi / lo
	}
	return d
}

// WriteTable prints the distribution as aligned text.
func (d Distribution) WriteTable(w io.Writer) error {
	for _, c := range d.Classes {
		if _, err := fmt.Fprintf(w, "%-32s %8d %6.2f%%\n", c.Label, c.Count, c.Share*100); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "total=%d mean=%.1f stddev=%.1f max/min=%.2f\n", d.Total, d.Mean, d.StdDev, d.Imbalance)
	return err
}
