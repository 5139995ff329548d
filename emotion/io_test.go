package emotion_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"yashubustudio/emotion/emotion"
)

const twoDialogues = `[
  {"profile": {"emotion": {"type": "E24"}}, "talk": {"content": {"1": "안녕 오늘 너무 슬펐어"}}},
  {"profile": {"emotion": {"type": "Z99"}}, "talk": {"content": {"1": "Hi!! 123 ***"}}}
]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newLoader(dir string) *emotion.Loader {
	cfg := emotion.Config{DataDir: dir}
	cfg.ApplyDefaults()
	return emotion.NewLoader(cfg, zerolog.Nop())
}

func TestLoadDialogueOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "labels.json", twoDialogues)

	corpus, stats, err := newLoader(dir).Load(context.Background(), emotion.Source{Labels: "labels.json"})
	require.NoError(t, err)
	require.Len(t, corpus.Records, 1)

	rec := corpus.Records[0]
	assert.Equal(t, "안녕 오늘 너무 슬펐어", rec.CleanedText)
	assert.Equal(t, emotion.LabelSadness, rec.CoarseLabel)
	assert.Equal(t, "E24", rec.FineCode)
	assert.Equal(t, 1, stats.Unmappable)
	assert.Equal(t, 1, stats.Kept)
	assert.False(t, stats.Truncated)
}

func TestLoadTabularWithLabels(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "texts.csv", "id,사람문장1,시스템문장1,사람문장2\n"+
		"1,안녕!,,오늘 너무 슬펐어\n"+
		"2,Hi!!,123,***\n")
	writeFile(t, dir, "labels.json", twoDialogues)

	corpus, stats, err := newLoader(dir).Load(context.Background(), emotion.Source{Text: "texts.csv", Labels: "labels.json"})
	require.NoError(t, err)
	require.Len(t, corpus.Records, 1)
	assert.Equal(t, "안녕! 오늘 너무 슬펐어", corpus.Records[0].RawText)
	assert.Equal(t, "안녕 오늘 너무 슬펐어", corpus.Records[0].CleanedText)
	assert.Equal(t, 2, stats.TextRows)
	assert.Equal(t, 2, stats.LabelRows)
	assert.Equal(t, "texts", corpus.Name)
}

func TestLoadTruncatesOnLengthMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "texts.tsv", "문장1\n화가 나\n기뻐\n슬퍼\n")
	writeFile(t, dir, "labels.json", `[
  {"profile": {"emotion": {"type": "E10"}}},
  {"profile": {"emotion": {"type": "E60"}}}
]`)
	corpus, stats, err := newLoader(dir).Load(context.Background(), emotion.Source{Text: "texts.tsv", Labels: "labels.json"})
	require.NoError(t, err)
	assert.True(t, stats.Truncated)
	assert.Equal(t, 3, stats.TextRows)
	assert.Equal(t, 2, stats.LabelRows)
	require.Len(t, corpus.Records, 2)
	assert.Equal(t, emotion.LabelAnger, corpus.Records[0].CoarseLabel)
	assert.Equal(t, emotion.LabelJoy, corpus.Records[1].CoarseLabel)
}

func TestLoadMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, _, err := newLoader(dir).Load(context.Background(), emotion.Source{Labels: "missing.json"})
	assert.ErrorIs(t, err, emotion.ErrSourceNotFound)

	writeFile(t, dir, "labels.json", twoDialogues)
	_, _, err = newLoader(dir).Load(context.Background(), emotion.Source{Text: "missing.xlsx", Labels: "labels.json"})
	assert.ErrorIs(t, err, emotion.ErrSourceNotFound)
}

func TestLoadEmptyCorpus(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "labels.json", `[{"profile": {"emotion": {"type": "X1"}}, "talk": {"content": {"a": "hi"}}}]`)
	_, _, err := newLoader(dir).Load(context.Background(), emotion.Source{Labels: "labels.json"})
	assert.ErrorIs(t, err, emotion.ErrEmptyCorpus)
}

func TestLoadDropsEmptyCleanedText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "labels.json", `[
  {"profile": {"emotion": {"type": "E11"}}, "talk": {"content": {"a": "!!!"}}},
  {"profile": {"emotion": {"type": "E11"}}, "talk": {"content": {"a": "짜증나"}}}
]`)
	corpus, stats, err := newLoader(dir).Load(context.Background(), emotion.Source{Labels: "labels.json"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Empty)
	assert.Len(t, corpus.Records, 1)
}

func TestParseDialoguesKeepsTurnOrder(t *testing.T) {
	got, err := emotion.ParseDialogues([]byte(`[
  {"profile": {"emotion": {"type": 3}}, "talk": {"content": {"HS02": "둘", "HS01": "하나", "SS01": "셋", "HS03": ""}}}
]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"둘", "하나", "셋", ""}, got[0].Turns)
	assert.Equal(t, "", got[0].FineCode())
}

func TestReadUtterancesXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texts.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"번호", "사람문장1", "사람문장2"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{1, "첫 문장", "둘째 문장"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{2, "혼자"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := emotion.ReadUtterances(path, emotion.ColumnConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"첫 문장 둘째 문장", "혼자"}, got)
}

func TestReadUtterancesExplicitColumns(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "raw.csv", "x,a,b\ny,c,d\n")

	got, err := emotion.ReadUtterances(path, emotion.ColumnConfig{Explicit: []string{"#2", "#3"}, NoHeader: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a b", "c d"}, got)

	_, err = emotion.ReadUtterances(path, emotion.ColumnConfig{Explicit: []string{"#9"}, NoHeader: true})
	assert.Error(t, err)

	_, err = emotion.ReadUtterances(path, emotion.ColumnConfig{NoHeader: true})
	assert.Error(t, err)
}

func TestParseInputRecords(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "in.csv", "id,text\nd1,오늘 좋았다\nd2,\nd3,힘들다\n")
	got, err := emotion.ParseInputRecords(csvPath, "")
	require.NoError(t, err)
	assert.Equal(t, []emotion.InputRecord{{Index: "d1", Text: "오늘 좋았다"}, {Index: "d3", Text: "힘들다"}}, got)

	txtPath := writeFile(t, dir, "in.txt", "첫째\n\n둘째\n")
	got, err = emotion.ParseInputRecords(txtPath, "")
	require.NoError(t, err)
	assert.Equal(t, []emotion.InputRecord{{Index: "1", Text: "첫째"}, {Index: "2", Text: "둘째"}}, got)
}
