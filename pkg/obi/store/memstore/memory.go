package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cognicore/obi/pkg/obi/internalerr"
	"github.com/cognicore/obi/pkg/obi/model"
	"github.com/cognicore/obi/pkg/obi/store"
)

type storedModel struct {
	info  store.ModelInfo
	model *model.Model
}

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu     sync.RWMutex
	models map[string]storedModel
	evals  map[string][]store.Evaluation
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		models: make(map[string]storedModel),
		evals:  make(map[string][]store.Evaluation),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveModel stores a deep copy of m.
func (s *Store) SaveModel(ctx context.Context, name string, m *model.Model) error {
	if name == "" {
		return fmt.Errorf("model name is empty: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.models[name] = storedModel{
		info: store.ModelInfo{
			Name:      name,
			Spec:      m.Spec,
			Grades:    m.Grades,
			Entries:   len(m.Entries),
			CreatedAt: time.Now().UTC(),
		},
		model: copyModel(m, 0),
	}
	return nil
}

// LoadModel returns a copy of the stored model filtered by frequency.
func (s *Store) LoadModel(ctx context.Context, name string, requiredFrequency int64) (*model.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sm, ok := s.models[name]
	if !ok {
		return nil, fmt.Errorf("model %q: %w", name, internalerr.ErrNotFound)
	}
	return copyModel(sm.model, requiredFrequency), nil
}

// ListModels returns stored models ordered by name.
func (s *Store) ListModels(ctx context.Context) ([]store.ModelInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.ModelInfo, 0, len(s.models))
	for _, sm := range s.models {
		out = append(out, sm.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteModel removes a model.
func (s *Store) DeleteModel(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.models, name)
	return nil
}

// RecordEvaluations appends outcomes, replacing any with the same key.
func (s *Store) RecordEvaluations(ctx context.Context, recs []store.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range recs {
		r.Info = slices.Clone(r.Info)
		run := s.evals[r.RunID]
		idx := slices.IndexFunc(run, func(e store.Evaluation) bool {
			return e.Fold == r.Fold && e.Ref == r.Ref
		})
		if idx >= 0 {
			run[idx] = r
		} else {
			run = append(run, r)
		}
		s.evals[r.RunID] = run
	}
	return nil
}

// Evaluations returns the outcomes of a run ordered by fold and reference.
func (s *Store) Evaluations(ctx context.Context, runID string) ([]store.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.evals[runID])
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fold != out[j].Fold {
			return out[i].Fold < out[j].Fold
		}
		return strings.Compare(out[i].Ref, out[j].Ref) < 0
	})
	return out, nil
}

func copyModel(m *model.Model, requiredFrequency int64) *model.Model {
	cp := &model.Model{Spec: m.Spec, Grades: m.Grades, Entries: make(map[string]model.Entry, len(m.Entries))}
	for g, e := range m.Entries {
		if e.Freq < requiredFrequency {
			continue
		}
		cp.Entries[g] = model.Entry{Freq: e.Freq, Weights: slices.Clone(e.Weights)}
	}
	return cp
}
