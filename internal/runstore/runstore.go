// Package runstore records training and evaluation runs.
package runstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"yashubustudio/emotion/emotion"
)

// Run is one pipeline execution.
type Run struct {
	ID             string             `json:"id" bson:"_id"`
	Kind           string             `json:"kind" bson:"kind"`
	State          string             `json:"state" bson:"state"`
	StartedAt      time.Time          `json:"started_at" bson:"started_at"`
	FinishedAt     time.Time          `json:"finished_at" bson:"finished_at"`
	Backend        string             `json:"backend,omitempty" bson:"backend,omitempty"`
	Balancing      string             `json:"balancing,omitempty" bson:"balancing,omitempty"`
	Labels         []string           `json:"labels,omitempty" bson:"labels,omitempty"`
	TrainSize      int                `json:"train_size" bson:"train_size"`
	ValidationSize int                `json:"validation_size" bson:"validation_size"`
	TestSize       int                `json:"test_size" bson:"test_size"`
	Metrics        map[string]float64 `json:"metrics,omitempty" bson:"metrics,omitempty"`
	BestModelDir   string             `json:"best_model_dir,omitempty" bson:"best_model_dir,omitempty"`
	Error          string             `json:"error,omitempty" bson:"error,omitempty"`
}

// NewRun starts a run record with a fresh id.
func NewRun(kind string) Run {
	return Run{ID: uuid.NewString(), Kind: kind, State: "running", StartedAt: time.Now().UTC()}
}

// Finish stamps the end time and the final state.
func (r *Run) Finish(err error) {
	r.FinishedAt = time.Now().UTC()
	if err != nil {
		r.State = "failed"
		r.Error = err.Error()
		return
	}
	r.State = "completed"
}

// Store persists runs.
type Store interface {
	Save(ctx context.Context, run Run) error
	// List returns up to limit runs, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]Run, error)
	Close(ctx context.Context) error
}

// Open builds the configured store. The file store lives in outputDir/runs.jsonl.
func Open(ctx context.Context, cfg emotion.RunStoreConfig, outputDir string) (Store, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "file":
		return NewFileStore(filepath.Join(outputDir, "runs.jsonl")), nil
	case "mongo", "mongodb":
		return ConnectMongo(ctx, cfg.MongoURI, cfg.Database, cfg.Collection)
	case "none":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown run store %q", cfg.Kind)
	}
}

// Discard drops every run.
type Discard struct{}

func (Discard) Save(context.Context, Run) error          { return nil }
func (Discard) List(context.Context, int) ([]Run, error) { return nil, nil }
func (Discard) Close(context.Context) error              { return nil }
