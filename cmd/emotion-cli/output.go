package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"yashubustudio/emotion/emotion"
	"yashubustudio/emotion/predict"
)

const predictionsDir = "predictions"

// predictionPath picks the result CSV. An explicit path wins; otherwise the file goes to
// dir, or <outputDir>/predictions, named after the model and the time of the run.
func predictionPath(path, dir, outputDir, modelID string, now time.Time) (string, error) {
	if path == "" {
		if dir == "" {
			dir = filepath.Join(outputDir, predictionsDir)
		}
		name := "predictions"
		if id := sanitizeModelID(modelID); id != "" {
			name += "_" + id
		}
		path = filepath.Join(dir, name+"_"+now.Format("20060102-150405")+".csv")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create prediction dir: %w", err)
	}
	return path, nil
}

func sanitizeModelID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, strings.Trim(id, "/"))
}

func writeResultCSV(path string, records []emotion.InputRecord, results []predict.Prediction) error {
	if len(records) != len(results) {
		return fmt.Errorf("records/results length mismatch: %d vs %d", len(records), len(results))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"번호", "본문", "감정", "점수"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		score := ""
		if results[i].Label != "" {
			score = fmt.Sprintf("%.3f", results[i].Score)
		}
		if err := writer.Write([]string{rec.Index, rec.Text, results[i].Label, score}); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}
	return nil
}

func printSummary(records []emotion.InputRecord, results []predict.Prediction) {
	fmt.Println()
	fmt.Println("==== 분류 결과 미리보기 ====")
	for i, rec := range records {
		fmt.Printf("%d. %s\n", i+1, summarizeRecord(rec))
		if len(results[i].Ranked) == 0 {
			fmt.Println("    결과 없음")
			continue
		}
		printSuggestions(results[i].Ranked)
	}
}

func printSuggestions(suggestions []predict.Suggestion) {
	limit := 3
	if len(suggestions) < limit {
		limit = len(suggestions)
	}
	for i := 0; i < limit; i++ {
		fmt.Printf("      - %s (score=%.3f)\n", suggestions[i].Label, suggestions[i].Score)
	}
}

func summarizeRecord(rec emotion.InputRecord) string {
	text := strings.TrimSpace(rec.Text)
	if text == "" {
		return "(빈 텍스트)"
	}
	runes := []rune(text)
	if len(runes) > 60 {
		text = string(runes[:60]) + "…"
	}
	if idx := strings.TrimSpace(rec.Index); idx != "" {
		return "#" + idx + " " + text
	}
	return text
}
