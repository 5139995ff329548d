package emotion_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/emotion/emotion"
)

func TestBuildLabelMappingDeterministic(t *testing.T) {
	records := makeRecords(map[string]int{"joy": 3, "anger": 2, "sadness": 1})
	reversed := make([]emotion.Record, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}
	a := emotion.BuildLabelMapping(records)
	b := emotion.BuildLabelMapping(reversed)
	assert.Equal(t, a.Labels(), b.Labels())
	assert.Equal(t, []string{"anger", "joy", "sadness"}, a.Labels())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := emotion.BuildLabelMapping(makeRecords(map[string]int{"joy": 1, "anger": 1, "hurt": 1}))
	for i := 0; i < m.Len(); i++ {
		label, err := m.Decode(i)
		require.NoError(t, err)
		id, err := m.Encode(label)
		require.NoError(t, err)
		assert.Equal(t, i, id)
	}
	_, err := m.Decode(-1)
	assert.ErrorIs(t, err, emotion.ErrUnknownID)
	_, err = m.Decode(m.Len())
	assert.ErrorIs(t, err, emotion.ErrUnknownID)
	_, err = m.Encode("sadness")
	assert.ErrorIs(t, err, emotion.ErrUnknownLabel)
}

func TestEncodeRecordsDropsUnknown(t *testing.T) {
	m := emotion.BuildLabelMapping(makeRecords(map[string]int{"joy": 1, "anger": 1}))
	enc, dropped := m.EncodeRecords(makeRecords(map[string]int{"joy": 2, "sadness": 3}))
	assert.Equal(t, 3, dropped)
	assert.Equal(t, 2, enc.Len())
	assert.Equal(t, []int{1, 1}, enc.IDs)
}

func TestLabelMappingJSON(t *testing.T) {
	m, err := emotion.NewLabelMapping([]string{"anger", "joy"})
	require.NoError(t, err)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id2label":{"0":"anger","1":"joy"},"label2id":{"anger":0,"joy":1}}`, string(data))

	path := filepath.Join(t.TempDir(), "best_model", "label_map.json")
	require.NoError(t, emotion.WriteLabelMapping(path, m))
	back, err := emotion.ReadLabelMapping(path)
	require.NoError(t, err)
	assert.Equal(t, m.Labels(), back.Labels())
}

func TestReadLabelMappingFromModelConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := `{"architectures":["RobertaForSequenceClassification"],"id2label":{"1":"joy","0":"anger"},"num_labels":2}`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	m, err := emotion.ReadLabelMapping(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"anger", "joy"}, m.Labels())
}

func TestLabelMappingRejectsGaps(t *testing.T) {
	var m emotion.LabelMapping
	err := json.Unmarshal([]byte(`{"id2label":{"0":"a","2":"b"}}`), &m)
	assert.Error(t, err)
}
