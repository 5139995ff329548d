package trainer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const checkpointPrefix = "checkpoint-"

// BestModelDir is the directory that receives the selected checkpoint.
const BestModelDir = "best_model"

func checkpointName(step int) string {
	return checkpointPrefix + strconv.Itoa(step)
}

// ListCheckpoints returns checkpoint directories under dir ordered by step.
func ListCheckpoints(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type ckpt struct {
		path string
		step int
	}
	var found []ckpt
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), checkpointPrefix) {
			continue
		}
		step, err := strconv.Atoi(strings.TrimPrefix(e.Name(), checkpointPrefix))
		if err != nil {
			continue
		}
		found = append(found, ckpt{path: filepath.Join(dir, e.Name()), step: step})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].step < found[j].step })
	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.path
	}
	return out, nil
}

// rotateCheckpoints deletes the oldest checkpoints beyond limit. The best and the newest
// checkpoints are never removed, so up to limit+1 may remain.
func rotateCheckpoints(saved []string, best string, limit int) ([]string, error) {
	if limit <= 0 {
		return saved, nil
	}
	kept := append([]string(nil), saved...)
	for len(kept) > limit {
		victim := -1
		for i, p := range kept[:len(kept)-1] {
			if p != best {
				victim = i
				break
			}
		}
		if victim < 0 {
			break
		}
		if err := os.RemoveAll(kept[victim]); err != nil {
			return kept, fmt.Errorf("remove checkpoint: %w", err)
		}
		kept = append(kept[:victim], kept[victim+1:]...)
	}
	return kept, nil
}

// copyDir replaces dst with a flat copy of the regular files in src.
func copyDir(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("clear %s: %w", dst, err)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := copyFile(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(src), err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dst), err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	return out.Close()
}
