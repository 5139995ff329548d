package emotion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

func defaultUtteranceMarkers() []string {
	return []string{"문장", "utterance"}
}

// DefaultUtteranceMarkers returns the built-in header markers for dialogue turn columns.
func DefaultUtteranceMarkers() []string {
	return cloneStrings(defaultUtteranceMarkers())
}

// resolveUtteranceColumns picks the dialogue turn columns of a table header.
// The second return value reports whether the first row is a header and must be skipped.
func resolveUtteranceColumns(header []string, cfg ColumnConfig) ([]int, bool, error) {
	if len(cfg.Explicit) > 0 {
		cols := make([]int, 0, len(cfg.Explicit))
		skip := false
		for _, explicit := range cfg.Explicit {
			h := header
			if cfg.NoHeader {
				h = nil
			}
			idx, fromHeader, err := matchExplicitColumn(h, explicit, len(header))
			if err != nil {
				return nil, false, err
			}
			if idx < 0 {
				continue
			}
			skip = skip || fromHeader
			cols = append(cols, idx)
		}
		if len(cols) == 0 {
			return nil, false, errors.New("no utterance columns selected")
		}
		return cols, skip && !cfg.NoHeader, nil
	}
	if cfg.NoHeader {
		return nil, false, errors.New("headerless tables need explicit #n utterance columns")
	}
	markers := cfg.Markers
	if len(markers) == 0 {
		markers = defaultUtteranceMarkers()
	}
	cols := findMarkedColumns(header, markers)
	if len(cols) == 0 {
		return nil, false, fmt.Errorf("no header contains any of %q", markers)
	}
	return cols, true, nil
}

func findMarkedColumns(header []string, markers []string) []int {
	var out []int
	for i, col := range header {
		lower := strings.ToLower(col)
		for _, m := range markers {
			m = strings.ToLower(strings.TrimSpace(m))
			if m != "" && strings.Contains(lower, m) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

func matchExplicitColumn(header []string, explicit string, width int) (int, bool, error) {
	trimmed := strings.TrimSpace(explicit)
	if trimmed == "" {
		return -1, false, nil
	}
	for i, col := range header {
		if strings.EqualFold(col, trimmed) {
			return i, true, nil
		}
	}
	if strings.HasPrefix(trimmed, "#") {
		idx, err := parseColumnIndex(trimmed)
		if err != nil {
			return -1, false, err
		}
		if idx >= width {
			return -1, false, fmt.Errorf("column index %s is out of range", trimmed)
		}
		return idx, false, nil
	}
	return -1, false, fmt.Errorf("column %q not found", explicit)
}

func parseColumnIndex(token string) (int, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(token, "#"))
	if trimmed == "" {
		return -1, fmt.Errorf("invalid column index %q", token)
	}
	idx, err := strconv.Atoi(trimmed)
	if err != nil {
		return -1, fmt.Errorf("invalid column index %q", token)
	}
	if idx <= 0 {
		return -1, fmt.Errorf("column indices are 1-based: %q", token)
	}
	return idx - 1, nil
}

func findColumn(header []string, candidates []string) int {
	for i, col := range header {
		for _, cand := range candidates {
			if strings.EqualFold(col, cand) {
				return i
			}
		}
	}
	return -1
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func cleanRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = cleanCell(cell)
	}
	return out
}

// joinTurns concatenates the non-empty cells of cols with a single space.
func joinTurns(row []string, cols []int) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		if c < 0 || c >= len(row) {
			continue
		}
		if v := cleanCell(row[c]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
