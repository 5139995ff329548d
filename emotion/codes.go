package emotion

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Coarse emotion classes.
const (
	LabelAnger         = "anger"
	LabelSadness       = "sadness"
	LabelAnxiety       = "anxiety"
	LabelHurt          = "hurt"
	LabelEmbarrassment = "embarrassment"
	LabelJoy           = "joy"
)

// CodeRange maps the numeric suffix of a fine code, inclusive on both ends, to a label.
type CodeRange struct {
	Min   int    `json:"min" yaml:"min"`
	Max   int    `json:"max" yaml:"max"`
	Label string `json:"label" yaml:"label"`
}

// CodeTable is an ordered set of non-overlapping code ranges.
type CodeTable []CodeRange

// DefaultCodeTable maps E10..E69 into the six coarse classes. E00..E09 stay unmapped.
func DefaultCodeTable() CodeTable {
	return CodeTable{
		{Min: 10, Max: 19, Label: LabelAnger},
		{Min: 20, Max: 29, Label: LabelSadness},
		{Min: 30, Max: 39, Label: LabelAnxiety},
		{Min: 40, Max: 49, Label: LabelHurt},
		{Min: 50, Max: 59, Label: LabelEmbarrassment},
		{Min: 60, Max: 69, Label: LabelJoy},
	}
}

// JoyZeroCodeTable is the variant that also maps E00..E09 to joy.
func JoyZeroCodeTable() CodeTable {
	return append(CodeTable{{Min: 0, Max: 9, Label: LabelJoy}}, DefaultCodeTable()...)
}

// Map parses "E<digits>" and returns the label of the range containing the number.
func (t CodeTable) Map(code string) (string, bool) {
	n, ok := parseCode(code)
	if !ok {
		return "", false
	}
	for _, r := range t {
		if n >= r.Min && n <= r.Max {
			return r.Label, true
		}
	}
	return "", false
}

// MapCode maps a fine code with the default table.
func MapCode(code string) (string, bool) {
	return DefaultCodeTable().Map(code)
}

// MapValue accepts arbitrary decoded JSON values; anything but a string is unmapped.
func (t CodeTable) MapValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return t.Map(s)
}

// Labels returns the distinct labels of the table in sorted order.
func (t CodeTable) Labels() []string {
	seen := make(map[string]struct{}, len(t))
	out := make([]string, 0, len(t))
	for _, r := range t {
		if _, ok := seen[r.Label]; ok {
			continue
		}
		seen[r.Label] = struct{}{}
		out = append(out, r.Label)
	}
	sort.Strings(out)
	return out
}

// Validate rejects empty labels, inverted bounds and overlapping ranges.
func (t CodeTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("code table is empty")
	}
	sorted := make(CodeTable, len(t))
	copy(sorted, t)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	for i, r := range sorted {
		if strings.TrimSpace(r.Label) == "" {
			return fmt.Errorf("code range %d-%d has no label", r.Min, r.Max)
		}
		if r.Min > r.Max {
			return fmt.Errorf("code range %d-%d is inverted", r.Min, r.Max)
		}
		if i > 0 && r.Min <= sorted[i-1].Max {
			return fmt.Errorf("code ranges %d-%d and %d-%d overlap", sorted[i-1].Min, sorted[i-1].Max, r.Min, r.Max)
		}
	}
	return nil
}

func parseCode(code string) (int, bool) {
	if len(code) < 2 || code[0] != 'E' {
		return 0, false
	}
	digits := code[1:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// GroupScheme relabels coarse labels into coarser groups. Labels without a group are dropped.
type GroupScheme map[string]string

// ThreeGroupScheme reproduces the sadness / anxiety+hurt / anger+embarrassment+joy grouping.
func ThreeGroupScheme() GroupScheme {
	return GroupScheme{
		LabelSadness:       "group1_sadness",
		LabelAnxiety:       "group2_anxiety_hurt",
		LabelHurt:          "group2_anxiety_hurt",
		LabelAnger:         "group3_anger_embarrassment_joy",
		LabelEmbarrassment: "group3_anger_embarrassment_joy",
		LabelJoy:           "group3_anger_embarrassment_joy",
	}
}

// Apply returns the group for label. An empty scheme is the identity.
func (g GroupScheme) Apply(label string) (string, bool) {
	if len(g) == 0 {
		return label, label != ""
	}
	group, ok := g[label]
	if !ok || group == "" {
		return "", false
	}
	return group, true
}
