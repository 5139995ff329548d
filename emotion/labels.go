package emotion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// LabelMapping is the bijection between coarse labels and contiguous ids 0..K-1.
// Ids follow the lexicographic order of the labels.
type LabelMapping struct {
	labels []string
	index  map[string]int
}

// BuildLabelMapping collects the distinct labels of the training split.
func BuildLabelMapping(train []Record) *LabelMapping {
	seen := make(map[string]struct{})
	var labels []string
	for _, r := range train {
		if !r.Labeled() {
			continue
		}
		if _, ok := seen[r.CoarseLabel]; ok {
			continue
		}
		seen[r.CoarseLabel] = struct{}{}
		labels = append(labels, r.CoarseLabel)
	}
	sort.Strings(labels)
	m, _ := newMapping(labels)
	return m
}

// NewLabelMapping builds a mapping whose ids follow the given order.
func NewLabelMapping(labels []string) (*LabelMapping, error) {
	return newMapping(append([]string(nil), labels...))
}

func newMapping(labels []string) (*LabelMapping, error) {
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("label id %d is empty", i)
		}
		if _, dup := index[l]; dup {
			return nil, fmt.Errorf("label %q appears twice", l)
		}
		index[l] = i
	}
	return &LabelMapping{labels: labels, index: index}, nil
}

// Len returns K.
func (m *LabelMapping) Len() int { return len(m.labels) }

// Labels returns the labels in id order.
func (m *LabelMapping) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Encode returns the id of label.
func (m *LabelMapping) Encode(label string) (int, error) {
	id, ok := m.index[label]
	if !ok {
		return -1, fmt.Errorf("encode %q: %w", label, ErrUnknownLabel)
	}
	return id, nil
}

// Decode returns the label of id.
func (m *LabelMapping) Decode(id int) (string, error) {
	if id < 0 || id >= len(m.labels) {
		return "", fmt.Errorf("decode %d: %w", id, ErrUnknownID)
	}
	return m.labels[id], nil
}

// Encoded is a split ready for training: cleaned texts and their label ids.
type Encoded struct {
	Texts []string
	IDs   []int
}

// Len returns the number of examples.
func (e Encoded) Len() int { return len(e.IDs) }

// EncodeRecords encodes records and drops those whose label is outside the mapping.
// The second value is the number of dropped records.
func (m *LabelMapping) EncodeRecords(records []Record) (Encoded, int) {
	out := Encoded{Texts: make([]string, 0, len(records)), IDs: make([]int, 0, len(records))}
	dropped := 0
	for _, r := range records {
		id, ok := m.index[r.CoarseLabel]
		if !ok {
			dropped++
			continue
		}
		out.Texts = append(out.Texts, r.CleanedText)
		out.IDs = append(out.IDs, id)
	}
	return out, dropped
}

type labelMapJSON struct {
	ID2Label map[string]string `json:"id2label"`
	Label2ID map[string]int    `json:"label2id"`
}

// MarshalJSON writes the id2label/label2id shape used by transformer model configs.
func (m *LabelMapping) MarshalJSON() ([]byte, error) {
	out := labelMapJSON{
		ID2Label: make(map[string]string, len(m.labels)),
		Label2ID: make(map[string]int, len(m.labels)),
	}
	for i, l := range m.labels {
		out.ID2Label[strconv.Itoa(i)] = l
		out.Label2ID[l] = i
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads id2label, falling back to label2id. Unrelated keys are ignored.
func (m *LabelMapping) UnmarshalJSON(data []byte) error {
	var in labelMapJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var labels []string
	switch {
	case len(in.ID2Label) > 0:
		labels = make([]string, len(in.ID2Label))
		for k, v := range in.ID2Label {
			id, err := strconv.Atoi(k)
			if err != nil || id < 0 || id >= len(labels) {
				return fmt.Errorf("id2label key %q is not a contiguous id", k)
			}
			labels[id] = v
		}
	case len(in.Label2ID) > 0:
		labels = make([]string, len(in.Label2ID))
		for l, id := range in.Label2ID {
			if id < 0 || id >= len(labels) {
				return fmt.Errorf("label2id id %d for %q is not contiguous", id, l)
			}
			labels[id] = l
		}
	default:
		return fmt.Errorf("label map has neither id2label nor label2id")
	}
	parsed, err := newMapping(labels)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

// WriteLabelMapping stores m as indented JSON at path.
func WriteLabelMapping(path string, m *LabelMapping) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode label map: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create label map dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write label map: %w", err)
	}
	return nil
}

// ReadLabelMapping loads a label map or a model config.json carrying id2label.
func ReadLabelMapping(path string) (*LabelMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label map: %w", err)
	}
	var m LabelMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode label map %s: %w", filepath.Base(path), err)
	}
	return &m, nil
}
