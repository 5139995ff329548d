package emotion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Loader builds corpora from a tabular text source and a JSON dialogue label source.
type Loader struct {
	BaseDir string
	Columns ColumnConfig
	Codes   CodeTable
	Groups  GroupScheme
	Logger  zerolog.Logger
}

// NewLoader wires a loader from the pipeline configuration.
func NewLoader(cfg Config, logger zerolog.Logger) *Loader {
	codes := cfg.CodeRanges
	if len(codes) == 0 {
		codes = DefaultCodeTable()
	}
	return &Loader{
		BaseDir: cfg.DataDir,
		Columns: cfg.Columns,
		Codes:   codes,
		Groups:  cfg.Groups,
		Logger:  logger,
	}
}

// Dialogue is one record of the JSON label source.
type Dialogue struct {
	// Code is the raw profile.emotion.type value. Nil when absent.
	Code any
	// Turns are the talk.content utterances in document order.
	Turns []string
}

// FineCode returns Code as a string or "" for non-string values.
func (d Dialogue) FineCode() string {
	s, _ := d.Code.(string)
	return s
}

// Load reads src and returns the corpus of mapped, non-empty records.
// Text and label rows are joined by position and must describe the same dialogues in the same order.
func (l *Loader) Load(ctx context.Context, src Source) (*Corpus, LoadStats, error) {
	var stats LoadStats
	labelPath := l.resolve(src.Labels)
	dialogues, err := ReadDialogues(labelPath)
	if err != nil {
		return nil, stats, err
	}
	stats.LabelRows = len(dialogues)
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	var texts []string
	if strings.TrimSpace(src.Text) == "" {
		texts = make([]string, len(dialogues))
		for i, d := range dialogues {
			texts[i] = strings.Join(nonEmpty(d.Turns), " ")
		}
	} else {
		texts, err = ReadUtterances(l.resolve(src.Text), l.Columns)
		if err != nil {
			return nil, stats, err
		}
	}
	stats.TextRows = len(texts)

	n := len(texts)
	if len(dialogues) < n {
		n = len(dialogues)
	}
	if len(texts) != len(dialogues) {
		stats.Truncated = true
		l.Logger.Warn().
			Err(ErrLengthMismatch).
			Int("text_rows", len(texts)).
			Int("label_rows", len(dialogues)).
			Int("kept_rows", n).
			Msg("truncating corpus to the shorter source")
	}

	corpus := &Corpus{Name: corpusName(src), Records: make([]Record, 0, n)}
	for i := 0; i < n; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}
		label, ok := l.Codes.MapValue(dialogues[i].Code)
		if ok {
			label, ok = l.Groups.Apply(label)
		}
		if !ok {
			stats.Unmappable++
			continue
		}
		cleaned := Normalize(texts[i])
		if strings.TrimSpace(cleaned) == "" {
			stats.Empty++
			continue
		}
		corpus.Records = append(corpus.Records, Record{
			RawText:     texts[i],
			FineCode:    dialogues[i].FineCode(),
			CleanedText: cleaned,
			CoarseLabel: label,
		})
	}
	stats.Kept = len(corpus.Records)
	if stats.Unmappable > 0 {
		l.Logger.Warn().Int("dropped", stats.Unmappable).Str("source", labelPath).Msg("dropped records with unmappable emotion codes")
	}
	if stats.Empty > 0 {
		l.Logger.Warn().Int("dropped", stats.Empty).Str("source", labelPath).Msg("dropped records with empty cleaned text")
	}
	if stats.Kept == 0 {
		return nil, stats, fmt.Errorf("load %s: %w", corpus.Name, ErrEmptyCorpus)
	}
	return corpus, stats, nil
}

func (l *Loader) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || l.BaseDir == "" {
		return path
	}
	return filepath.Join(l.BaseDir, path)
}

func corpusName(src Source) string {
	base := src.Text
	if base == "" {
		base = src.Labels
	}
	return strings.TrimSuffix(filepath.Base(base), filepath.Ext(base))
}

func checkSource(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: no path configured", ErrSourceNotFound)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadDialogues decodes a JSON array of dialogue records.
func ReadDialogues(path string) ([]Dialogue, error) {
	if err := checkSource(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return ParseDialogues(data)
}

type rawDialogue struct {
	Profile struct {
		Emotion struct {
			Type any `json:"type"`
		} `json:"emotion"`
	} `json:"profile"`
	Talk struct {
		Content json.RawMessage `json:"content"`
	} `json:"talk"`
}

// ParseDialogues decodes dialogue records, keeping talk.content in key order.
func ParseDialogues(data []byte) ([]Dialogue, error) {
	var raws []rawDialogue
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode dialogues: %w", err)
	}
	out := make([]Dialogue, len(raws))
	for i, r := range raws {
		turns, err := orderedStrings(r.Talk.Content)
		if err != nil {
			return nil, fmt.Errorf("decode dialogue %d content: %w", i, err)
		}
		out[i] = Dialogue{Code: r.Profile.Emotion.Type, Turns: turns}
	}
	return out, nil
}

// orderedStrings returns the string values of a JSON object in document order.
func orderedStrings(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("content is not an object")
	}
	var out []string
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ReadUtterances reads a .csv, .tsv or .xlsx text source and returns one joined dialogue per data row.
func ReadUtterances(path string, cols ColumnConfig) ([]string, error) {
	if err := checkSource(path); err != nil {
		return nil, err
	}
	rows, err := readTable(path, cols.Sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), ErrEmptyCorpus)
	}
	header := cleanRow(rows[0])
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if len(header) < width {
		header = append(header, make([]string, width-len(header))...)
	}
	selected, skipHeader, err := resolveUtteranceColumns(header, cols)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", filepath.Base(path), err)
	}
	start := 0
	if skipHeader {
		start = 1
	}
	out := make([]string, 0, len(rows)-start)
	for _, row := range rows[start:] {
		out = append(out, joinTurns(row, selected))
	}
	return out, nil
}

func readTable(path, sheet string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path, sheet)
	case ".tsv":
		return readDelimited(path, '\t')
	case ".csv":
		return readDelimited(path, ',')
	default:
		return nil, fmt.Errorf("unsupported text source %s", filepath.Base(path))
	}
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// InputRecord is one text submitted for prediction.
type InputRecord struct {
	Index string
	Text  string
}

var (
	inputIndexColumns = []string{"id", "index", "no", "번호"}
	inputTextColumns  = []string{"text", "content", "diary", "본문", "내용", "일기"}
)

// ParseInputRecords reads prediction input from .csv, .tsv or plain text (one text per line).
// textColumn may name a header or use "#n"; empty means auto-detect.
func ParseInputRecords(path, textColumn string) ([]InputRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return parseDelimitedInput(path, ',', textColumn)
	case ".tsv":
		return parseDelimitedInput(path, '\t', textColumn)
	default:
		return parsePlainInput(path)
	}
}

func parsePlainInput(path string) ([]InputRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open text file: %w", err)
	}
	defer f.Close()
	return scanPlainInput(f)
}

func scanPlainInput(r io.Reader) ([]InputRecord, error) {
	var out []InputRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := cleanCell(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, InputRecord{Index: fmt.Sprint(len(out) + 1), Text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan text file: %w", err)
	}
	return out, nil
}

func parseDelimitedInput(path string, comma rune, textColumn string) ([]InputRecord, error) {
	rows, err := readDelimited(path, comma)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}
	header := cleanRow(rows[0])
	indexCol := findColumn(header, inputIndexColumns)
	textCol := -1
	fromHeader := indexCol >= 0
	if strings.TrimSpace(textColumn) != "" {
		idx, named, err := matchExplicitColumn(header, textColumn, len(header))
		if err != nil {
			return nil, err
		}
		textCol = idx
		fromHeader = fromHeader || named
	} else if idx := findColumn(header, inputTextColumns); idx >= 0 {
		textCol = idx
		fromHeader = true
	}
	if textCol < 0 {
		textCol = 0
	}
	start := 0
	if fromHeader {
		start = 1
	}
	out := make([]InputRecord, 0, len(rows)-start)
	for i, row := range rows[start:] {
		if textCol >= len(row) {
			continue
		}
		text := cleanCell(row[textCol])
		if text == "" {
			continue
		}
		rec := InputRecord{Index: fmt.Sprint(i + 1), Text: text}
		if indexCol >= 0 && indexCol < len(row) {
			if v := cleanCell(row[indexCol]); v != "" {
				rec.Index = v
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
