// Package model turns a grade-labelled corpus into per-ngram weight vectors
// and scores texts against them.
//
// A weight vector holds, for each grade, the base-10 log probability of the
// n-gram minus the mean over all grades. Only the relative shape matters:
// a positive weight means the grade favours the n-gram.
package model

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/cognicore/obi/pkg/obi/corpus"
	"github.com/cognicore/obi/pkg/obi/internalerr"
	"github.com/cognicore/obi/pkg/obi/ngram"
)

// Entry is the model row of one n-gram.
type Entry struct {
	Freq    int64     // total training occurrences
	Weights []float64 // centred log10 weights for grades 1..G
}

// Model maps n-grams to weight vectors.
type Model struct {
	Spec    string // scale name the model was loaded as, e.g. "T13" or "T7"
	Grades  int
	Entries map[string]Entry
}

// BuildOptions control model construction.
type BuildOptions struct {
	Order             int
	RequiredFrequency int64
}

// Build derives a model from c. Rows whose total is below
// RequiredFrequency, or zero, are skipped. A negative count anywhere in c
// is rejected with ErrInvalidInput. c is not modified.
func Build(c *corpus.Corpus, opts BuildOptions) (*Model, error) {
	if opts.Order != ngram.Unigram && opts.Order != ngram.Bigram {
		return nil, fmt.Errorf("ngram order %d: %w", opts.Order, internalerr.ErrInvalidConfig)
	}
	if c.Grades < 2 {
		return nil, fmt.Errorf("model needs at least 2 grades, corpus has %d: %w", c.Grades, internalerr.ErrInvalidConfig)
	}

	kept := make(map[string][]int64, len(c.Counts))
	for g, row := range c.Counts {
		for i, v := range row {
			if v < 0 {
				return nil, fmt.Errorf("ngram %q: negative count %d at column %d: %w", g, v, i, internalerr.ErrInvalidInput)
			}
		}
		if row[0] < opts.RequiredFrequency || row[0] <= 0 {
			continue
		}
		kept[g] = row
	}

	totals := gradeTotals(kept, c.Grades, opts.Order)

	m := &Model{Grades: c.Grades, Entries: make(map[string]Entry, len(kept))}
	for g, row := range kept {
		m.Entries[g] = Entry{
			Freq:    row[0],
			Weights: weights(row, totals(g)),
		}
	}
	return m, nil
}

// gradeTotals returns the per-grade denominators for each n-gram. Bigrams
// are conditioned on their first character; unigrams share one grand total.
func gradeTotals(rows map[string][]int64, grades, order int) func(string) []int64 {
	if order == ngram.Unigram {
		all := make([]int64, grades+1)
		for _, row := range rows {
			for i, v := range row {
				all[i] += v
			}
		}
		return func(string) []int64 { return all }
	}

	byFirst := make(map[rune][]int64)
	for g, row := range rows {
		first, _ := utf8.DecodeRuneInString(g)
		t, ok := byFirst[first]
		if !ok {
			t = make([]int64, grades+1)
			byFirst[first] = t
		}
		for i, v := range row {
			t[i] += v
		}
	}
	return func(g string) []int64 {
		first, _ := utf8.DecodeRuneInString(g)
		return byFirst[first]
	}
}

// weights converts one count row into centred log10 probabilities.
func weights(row, total []int64) []float64 {
	p := make([]float64, len(row)-1)
	for i := 1; i < len(row); i++ {
		if row[i] == 0 || total[i] == 0 {
			continue
		}
		p[i-1] = float64(row[i]) / float64(total[i])
	}
	p = Interpolate(p)

	var mean float64
	for i, v := range p {
		p[i] = math.Log10(v)
		mean += p[i]
	}
	mean /= float64(len(p))
	for i := range p {
		p[i] -= mean
	}
	return p
}

// Interpolate replaces zero probabilities until none is left. In each pass
// a zero becomes the mean of its two neighbours from the previous pass; a
// zero at either end becomes half of its only neighbour. An all-zero vector
// is returned unchanged since there is nothing to spread.
func Interpolate(p []float64) []float64 {
	v := append([]float64(nil), p...)
	if len(v) < 2 || !hasZero(v) || allZero(v) {
		return v
	}
	for hasZero(v) {
		next := make([]float64, len(v))
		last := len(v) - 1
		for i, x := range v {
			switch {
			case x != 0:
				next[i] = x
			case i == 0:
				next[i] = v[1] / 2
			case i == last:
				next[i] = v[last-1] / 2
			default:
				next[i] = (v[i-1] + v[i+1]) / 2
			}
		}
		v = next
	}
	return v
}

func hasZero(v []float64) bool {
	for _, x := range v {
		if x == 0 {
			return true
		}
	}
	return false
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Len returns the number of n-grams in the model.
func (m *Model) Len() int { return len(m.Entries) }
