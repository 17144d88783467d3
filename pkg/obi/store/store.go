// Package store persists built models and cross-validation outcomes so a
// model can be reused without re-reading its corpus.
package store

import (
	"context"
	"time"

	"github.com/cognicore/obi/pkg/obi/model"
)

// Store is the persistence interface shared by the SQLite and memory backends.
type Store interface {
	Close() error

	// Models
	SaveModel(ctx context.Context, name string, m *model.Model) error
	LoadModel(ctx context.Context, name string, requiredFrequency int64) (*model.Model, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
	DeleteModel(ctx context.Context, name string) error

	// Evaluations
	RecordEvaluations(ctx context.Context, recs []Evaluation) error
	Evaluations(ctx context.Context, runID string) ([]Evaluation, error)
}

// ModelInfo describes a stored model without its entries.
type ModelInfo struct {
	Name      string
	Spec      string
	Grades    int
	Entries   int
	CreatedAt time.Time
}

// Evaluation is the stored outcome of one held-out document.
type Evaluation struct {
	RunID     string
	Fold      int
	Ref       string
	Grade     int
	Vote      float64
	Final     float64
	Operative int64
	Info      []string
}
