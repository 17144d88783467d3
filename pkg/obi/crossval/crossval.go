// Package crossval measures how well models generalise by scoring labelled
// documents against models that never saw them.
package crossval

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math"

	"github.com/oklog/ulid/v2"

	obilog "github.com/cognicore/obi/internal/logger"
	"github.com/cognicore/obi/pkg/obi/corpus"
	"github.com/cognicore/obi/pkg/obi/estimate"
	"github.com/cognicore/obi/pkg/obi/internalerr"
	"github.com/cognicore/obi/pkg/obi/model"
	"github.com/cognicore/obi/pkg/obi/ngram"
)

// Evaluation is the outcome for one held-out document.
type Evaluation struct {
	RunID  string
	Fold   int
	Entry  corpus.Entry
	Text   model.Text
	Result *estimate.Result
}

// Options configures model construction, estimation and result delivery.
type Options struct {
	Build    model.BuildOptions
	Estimate estimate.Options
	// OnResult, when set, receives each evaluation as soon as it is ready.
	// Returning an error stops the run.
	OnResult func(Evaluation) error
}

// Validator runs leave-one-out and k-fold evaluations.
type Validator struct {
	agg     *corpus.Aggregator
	opts    Options
	logger  *slog.Logger
	entropy *ulid.MonotonicEntropy
}

// New creates a validator that reads documents through agg.
func New(agg *corpus.Aggregator, opts Options, logger *slog.Logger) *Validator {
	if opts.Build.Order == 0 {
		opts.Build.Order = agg.Options().Ngram.Order
	}
	if logger == nil {
		logger = obilog.Discard()
	}
	return &Validator{
		agg:     agg,
		opts:    opts,
		logger:  logger,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// LeaveOneOut scores every sample against a model built from base minus
// that sample. base is shared by all samples and is never modified.
func (v *Validator) LeaveOneOut(ctx context.Context, base *corpus.Corpus, samples corpus.Definition) ([]Evaluation, error) {
	if err := v.agg.Validate(samples); err != nil {
		return nil, err
	}
	runID := v.newRunID()
	v.logger.Info("leave-one-out started", "run_id", runID, "samples", len(samples))

	evals := make([]Evaluation, 0, len(samples))
	for i, sample := range samples {
		if err := ctx.Err(); err != nil {
			return evals, err
		}
		counts, err := v.agg.Text(ctx, sample)
		if err != nil {
			return evals, err
		}
		held, err := base.LeaveOneOut(counts, sample.Grade)
		if err != nil {
			return evals, fmt.Errorf("%s: %w", sample.Ref, err)
		}
		m, err := model.Build(held, v.opts.Build)
		if err != nil {
			return evals, fmt.Errorf("%s: %w", sample.Ref, err)
		}

		eval, err := v.evaluate(m, counts, sample)
		if err != nil {
			return evals, err
		}
		eval.RunID, eval.Fold = runID, i
		evals = append(evals, eval)
		if err := v.deliver(eval); err != nil {
			return evals, err
		}
	}
	return evals, nil
}

// KFold deals def round-robin into p buckets and scores each bucket against
// a model built from the others.
func (v *Validator) KFold(ctx context.Context, def corpus.Definition, p int) ([]Evaluation, error) {
	if p < 2 {
		return nil, fmt.Errorf("k-fold needs at least 2 partitions, got %d: %w", p, internalerr.ErrInvalidConfig)
	}
	if err := v.agg.Validate(def); err != nil {
		return nil, err
	}
	parts, err := corpus.Partition(def, p)
	if err != nil {
		return nil, err
	}
	runID := v.newRunID()
	v.logger.Info("k-fold started", "run_id", runID, "samples", len(def), "partitions", p)

	evals := make([]Evaluation, 0, len(def))
	for fold := range parts {
		if len(parts[fold]) == 0 {
			continue
		}
		c, err := v.agg.BuildPartition(ctx, parts, fold)
		if err != nil {
			return evals, fmt.Errorf("fold %d: %w", fold, err)
		}
		m, err := model.Build(c, v.opts.Build)
		if err != nil {
			return evals, fmt.Errorf("fold %d: %w", fold, err)
		}
		v.logger.Debug("fold model built", "run_id", runID, "fold", fold, "ngrams", m.Len())

		for _, sample := range parts[fold] {
			if err := ctx.Err(); err != nil {
				return evals, err
			}
			counts, err := v.agg.Text(ctx, sample)
			if err != nil {
				return evals, err
			}
			eval, err := v.evaluate(m, counts, sample)
			if err != nil {
				return evals, err
			}
			eval.RunID, eval.Fold = runID, fold
			evals = append(evals, eval)
			if err := v.deliver(eval); err != nil {
				return evals, err
			}
		}
	}
	return evals, nil
}

func (v *Validator) evaluate(m *model.Model, counts ngram.Counts, sample corpus.Entry) (Evaluation, error) {
	text, contrib := m.Score(counts)
	res, err := estimate.Estimate(contrib, v.opts.Estimate)
	if err != nil {
		return Evaluation{}, fmt.Errorf("%s: %w", sample.Ref, err)
	}
	return Evaluation{Entry: sample, Text: text, Result: res}, nil
}

func (v *Validator) deliver(e Evaluation) error {
	if v.opts.OnResult == nil {
		return nil
	}
	return v.opts.OnResult(e)
}

func (v *Validator) newRunID() string {
	return ulid.MustNew(ulid.Now(), v.entropy).String()
}

// Summary aggregates the accuracy of a run against the labelled grades.
type Summary struct {
	N        int
	Exact    int     // voted grade equals the label
	Adjacent int     // voted grade within one grade of the label
	MAE      float64 // mean absolute error of the voted grade
}

// Summarize compares each evaluation's vote with its label.
func Summarize(evals []Evaluation) Summary {
	var s Summary
	var total float64
	for _, e := range evals {
		if e.Result == nil {
			continue
		}
		diff := math.Abs(e.Result.Vote - float64(e.Entry.Grade))
		s.N++
		total += diff
		if diff == 0 {
			s.Exact++
		}
		if diff <= 1 {
			s.Adjacent++
		}
	}
	if s.N > 0 {
		s.MAE = total / float64(s.N)
	}
	return s
}
