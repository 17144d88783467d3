// Package obi estimates the school grade of Japanese text from the
// character n-grams it contains. Engine wires corpus aggregation, model
// construction, scoring, estimation and cross-validation around an explicit
// Config.
package obi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	obilog "github.com/cognicore/obi/internal/logger"
	"github.com/cognicore/obi/pkg/obi/config"
	"github.com/cognicore/obi/pkg/obi/corpus"
	"github.com/cognicore/obi/pkg/obi/crossval"
	"github.com/cognicore/obi/pkg/obi/estimate"
	"github.com/cognicore/obi/pkg/obi/internalerr"
	"github.com/cognicore/obi/pkg/obi/kanji"
	"github.com/cognicore/obi/pkg/obi/model"
	"github.com/cognicore/obi/pkg/obi/ngram"
	"github.com/cognicore/obi/pkg/obi/store"
)

// Version identifies this implementation of the obi2 readability scale.
const Version = "obi2.305-go"

// Engine is the main readability facade.
type Engine struct {
	cfg       *config.Config
	source    corpus.Source
	operative ngram.OperativeSet
	agg       *corpus.Aggregator
	store     store.Store
	logger    *slog.Logger
}

// Options configures an Engine.
type Options struct {
	Config *config.Config
	// Source opens corpus documents; defaults to files under Config.Corpus.Dir.
	Source corpus.Source
	// Operative restricts which n-grams count. Nil admits every n-gram.
	Operative ngram.OperativeSet
	// Store, when set, persists models and cross-validation outcomes.
	Store  store.Store
	Logger *slog.Logger
}

// New validates the configuration and creates an Engine.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = obilog.Discard()
	}
	src := opts.Source
	if src == nil {
		src = corpus.DirSource{Dir: cfg.Corpus.Dir}
	}

	e := &Engine{
		cfg:       cfg,
		source:    src,
		operative: opts.Operative,
		store:     opts.Store,
		logger:    logger,
	}
	e.agg = e.aggregator(opts.Operative)
	return e, nil
}

func (e *Engine) aggregator(op ngram.OperativeSet) *corpus.Aggregator {
	return corpus.NewAggregator(e.source, corpus.Options{
		Ngram:        e.cfg.NgramOptions(op),
		DefaultKanji: kanji.Code(e.cfg.Kanji),
	}, obilog.WithComponent(e.logger, "corpus"))
}

// Close releases the attached store, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Config returns the engine settings.
func (e *Engine) Config() *config.Config { return e.cfg }

// Aggregator returns the aggregator used for every corpus and text read.
func (e *Engine) Aggregator() *corpus.Aggregator { return e.agg }

// BuildCorpus aggregates the labelled documents of def.
func (e *Engine) BuildCorpus(ctx context.Context, def corpus.Definition) (*corpus.Corpus, error) {
	return e.agg.Build(ctx, def)
}

// CorpusSize returns the overall and per-grade n-gram totals of def. Bigram
// sizes count every bigram; unigram sizes count operative characters only.
func (e *Engine) CorpusSize(ctx context.Context, def corpus.Definition) ([]int64, error) {
	agg := e.agg
	if e.cfg.Ngram == ngram.Bigram {
		agg = e.aggregator(nil)
	}
	c, err := agg.Build(ctx, def)
	if err != nil {
		return nil, err
	}
	return c.Size(), nil
}

// BuildModel aggregates def and derives a model from it. The model is
// written to Config.Model.Output when set, and to the store under
// Config.Model.Save when a store is attached.
func (e *Engine) BuildModel(ctx context.Context, def corpus.Definition) (*model.Model, error) {
	c, err := e.BuildCorpus(ctx, def)
	if err != nil {
		return nil, err
	}
	m, err := model.Build(c, e.cfg.BuildOptions())
	if err != nil {
		return nil, err
	}
	m.Spec = e.cfg.Model.Name
	e.logger.Info("model built", "documents", len(def), "grades", m.Grades, "ngrams", m.Len())

	if out := e.cfg.Model.Output; out != "" {
		if err := m.SaveFile(out); err != nil {
			return nil, fmt.Errorf("save model %s: %w", out, err)
		}
		e.logger.Info("model saved", "path", out)
	}
	if name := e.cfg.Model.Save; e.store != nil && name != "" {
		if err := e.store.SaveModel(ctx, name, m); err != nil {
			return nil, err
		}
		e.logger.Info("model stored", "name", name)
	}
	return m, nil
}

// LoadModel returns the configured prebuilt model. An explicit model file
// wins; otherwise a named model is taken from the store when present and
// from the model directory when not.
func (e *Engine) LoadModel(ctx context.Context) (*model.Model, error) {
	path, spec := e.cfg.ModelPath()
	if e.store != nil && e.cfg.Model.File == "" {
		m, err := e.store.LoadModel(ctx, spec, e.cfg.RequiredFrequency)
		if err == nil {
			m.Spec = spec
			e.logger.Debug("model loaded from store", "name", spec, "ngrams", m.Len())
			return m, nil
		}
		if !errors.Is(err, internalerr.ErrNotFound) {
			return nil, err
		}
	}
	m, err := model.LoadFile(path, e.cfg.RequiredFrequency, spec)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	e.logger.Debug("model loaded", "path", path, "ngrams", m.Len())
	return m, nil
}

// Reading is the scored form of one text.
type Reading struct {
	Text   model.Text
	Result *estimate.Result
}

// Grade returns the final grade estimate.
func (r *Reading) Grade() float64 { return r.Result.Final }

// Operative returns the number of scored n-gram occurrences.
func (r *Reading) Operative() int64 { return r.Result.Contrib.Operative }

// Readability scores text read from r in the given kanji code.
func (e *Engine) Readability(m *model.Model, r io.Reader, code string) (*Reading, error) {
	counts, err := e.agg.Count(r, code)
	if err != nil {
		return nil, err
	}
	return e.Score(m, counts)
}

// ReadabilityOf scores the document named by a definition entry.
func (e *Engine) ReadabilityOf(ctx context.Context, m *model.Model, entry corpus.Entry) (*Reading, error) {
	counts, err := e.agg.Text(ctx, entry)
	if err != nil {
		return nil, err
	}
	return e.Score(m, counts)
}

// Score estimates the grade of already counted n-grams.
func (e *Engine) Score(m *model.Model, counts ngram.Counts) (*Reading, error) {
	text, contrib := m.Score(counts)
	res, err := estimate.Estimate(contrib, e.cfg.EstimateOptions(m.Spec))
	if err != nil {
		return nil, err
	}
	return &Reading{Text: text, Result: res}, nil
}

// Ngrams streams the operative n-grams of r.
func (e *Engine) Ngrams(r io.Reader, code string) (iter.Seq2[string, error], error) {
	resolved, err := kanji.Resolve(code, kanji.Code(e.cfg.Kanji))
	if err != nil {
		return nil, err
	}
	dec, err := kanji.NewReader(r, resolved)
	if err != nil {
		return nil, err
	}
	return ngram.Extract(dec, e.cfg.NgramOptions(e.operative)), nil
}

// CrossValidate evaluates def with Config.Corpus.Partitions folds. One
// partition means leave-one-out: the corpus is built from def once and each
// sample of test (or def when test is empty) is scored against it minus
// itself. onResult, when set, receives every evaluation as it is produced;
// with a store attached evaluations are also recorded there.
func (e *Engine) CrossValidate(ctx context.Context, def, test corpus.Definition, onResult func(crossval.Evaluation) error) ([]crossval.Evaluation, error) {
	v := crossval.New(e.agg, crossval.Options{
		Build:    e.cfg.BuildOptions(),
		Estimate: e.cfg.EstimateOptions(e.cfg.Model.Name),
		OnResult: func(ev crossval.Evaluation) error {
			if e.store != nil {
				if err := e.store.RecordEvaluations(ctx, []store.Evaluation{Record(ev)}); err != nil {
					return err
				}
			}
			if onResult != nil {
				return onResult(ev)
			}
			return nil
		},
	}, obilog.WithComponent(e.logger, "crossval"))

	p := e.cfg.Corpus.Partitions
	if p > 1 {
		return v.KFold(ctx, def, p)
	}

	base, err := e.BuildCorpus(ctx, def)
	if err != nil {
		return nil, err
	}
	samples := test
	if len(samples) == 0 {
		samples = def
	}
	return v.LeaveOneOut(ctx, base, samples)
}

// Record converts an evaluation into its stored form.
func Record(ev crossval.Evaluation) store.Evaluation {
	rec := store.Evaluation{
		RunID: ev.RunID,
		Fold:  ev.Fold,
		Ref:   ev.Entry.Ref,
		Grade: ev.Entry.Grade,
		Info:  ev.Entry.Info,
	}
	if ev.Result != nil {
		rec.Vote = ev.Result.Vote
		rec.Final = ev.Result.Final
		rec.Operative = ev.Result.Contrib.Operative
	}
	return rec
}
