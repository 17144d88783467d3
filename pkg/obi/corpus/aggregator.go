package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	obilog "github.com/cognicore/obi/internal/logger"
	"github.com/cognicore/obi/pkg/obi/internalerr"
	"github.com/cognicore/obi/pkg/obi/kanji"
	"github.com/cognicore/obi/pkg/obi/ngram"
)

// Source opens the documents named by definition entries.
type Source interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// DirSource resolves references relative to a directory.
type DirSource struct {
	Dir string
}

// Open implements Source.
func (s DirSource) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	path := ref
	if s.Dir != "" && !filepath.IsAbs(ref) {
		path = filepath.Join(s.Dir, ref)
	}
	return os.Open(path)
}

// Options configures extraction for every document the aggregator reads.
type Options struct {
	Ngram        ngram.Options
	DefaultKanji kanji.Code
}

// Aggregator folds labelled documents into a Corpus.
type Aggregator struct {
	source Source
	opts   Options
	logger *slog.Logger
}

// NewAggregator creates an aggregator reading documents from src.
// A nil logger discards output.
func NewAggregator(src Source, opts Options, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = obilog.Discard()
	}
	return &Aggregator{source: src, opts: opts, logger: logger}
}

// Options returns the extraction settings.
func (a *Aggregator) Options() Options { return a.opts }

// Validate rejects bad n-gram settings and unknown kanji codes before any
// document is opened.
func (a *Aggregator) Validate(def Definition) error {
	if err := a.opts.Ngram.Validate(); err != nil {
		return err
	}
	if err := kanji.Validate(string(a.opts.DefaultKanji)); err != nil {
		return fmt.Errorf("default kanji code: %w", err)
	}
	for _, e := range def {
		if err := kanji.Validate(e.Kanji); err != nil {
			return fmt.Errorf("%s: %w", e.Ref, err)
		}
	}
	return nil
}

// Text counts the operative n-grams of a single document.
func (a *Aggregator) Text(ctx context.Context, e Entry) (ngram.Counts, error) {
	counts := make(ngram.Counts)
	err := a.each(ctx, e, func(g string) error {
		counts[g]++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Count reads r in the given kanji code and counts its operative n-grams.
func (a *Aggregator) Count(r io.Reader, code string) (ngram.Counts, error) {
	resolved, err := kanji.Resolve(code, a.opts.DefaultKanji)
	if err != nil {
		return nil, err
	}
	dec, err := kanji.NewReader(r, resolved)
	if err != nil {
		return nil, err
	}
	return ngram.Count(ngram.Extract(dec, a.opts.Ngram))
}

// Build aggregates every document of def into a finalized corpus whose
// width is the highest grade in def.
func (a *Aggregator) Build(ctx context.Context, def Definition) (*Corpus, error) {
	return a.BuildWidth(ctx, def, def.MaxGrade())
}

// BuildWidth aggregates def into a corpus for grades 1..grades. grades must
// cover every label in def.
func (a *Aggregator) BuildWidth(ctx context.Context, def Definition, grades int) (*Corpus, error) {
	if err := a.Validate(def); err != nil {
		return nil, err
	}
	if top := def.MaxGrade(); grades < top {
		return nil, fmt.Errorf("corpus width %d below highest grade %d: %w", grades, top, internalerr.ErrInvalidConfig)
	}
	c, err := New(grades)
	if err != nil {
		return nil, err
	}

	for _, e := range def {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := a.each(ctx, e, func(g string) error {
			return c.Add(g, e.Grade, 1)
		})
		if err != nil {
			return nil, err
		}
	}
	c.Finalize()

	a.logger.Debug("corpus built", "documents", len(def), "ngrams", c.Len(), "grades", c.Grades)
	return c, nil
}

// BuildPartition builds a corpus from every bucket except the one at index p.
// Its width is the highest grade across all buckets, so every fold shares
// one grade scale.
func (a *Aggregator) BuildPartition(ctx context.Context, parts []Definition, p int) (*Corpus, error) {
	if p < 0 || p >= len(parts) {
		return nil, fmt.Errorf("partition %d outside 0..%d: %w", p, len(parts)-1, internalerr.ErrInvalidConfig)
	}
	var train Definition
	grades := 0
	for i, part := range parts {
		grades = max(grades, part.MaxGrade())
		if i == p {
			continue
		}
		train = append(train, part...)
	}
	return a.BuildWidth(ctx, train, grades)
}

func (a *Aggregator) each(ctx context.Context, e Entry, fn func(string) error) error {
	code, err := kanji.Resolve(e.Kanji, a.opts.DefaultKanji)
	if err != nil {
		return fmt.Errorf("%s: %w", e.Ref, err)
	}
	rc, err := a.source.Open(ctx, e.Ref)
	if err != nil {
		return fmt.Errorf("open %s: %w", e.Ref, err)
	}
	defer rc.Close()

	r, err := kanji.NewReader(rc, code)
	if err != nil {
		return fmt.Errorf("%s: %w", e.Ref, err)
	}
	for g, err := range ngram.Extract(r, a.opts.Ngram) {
		if err != nil {
			return fmt.Errorf("%s: %w", e.Ref, err)
		}
		if err := fn(g); err != nil {
			return fmt.Errorf("%s: %w", e.Ref, err)
		}
	}
	return nil
}
