// Package corpus aggregates grade-labelled documents into n-gram frequency
// tables.
//
// Each table row is a vector of length G+1: index 0 holds the total across
// grades and index i (1..G) the count observed in documents of grade i.
// G is fixed when the corpus is created.
package corpus

import (
	"fmt"

	"github.com/cognicore/obi/pkg/obi/internalerr"
	"github.com/cognicore/obi/pkg/obi/ngram"
)

// Corpus is a grade-indexed n-gram frequency table.
type Corpus struct {
	Grades int
	Counts map[string][]int64
}

// New creates an empty corpus for grades 1..grades.
func New(grades int) (*Corpus, error) {
	if grades < 1 {
		return nil, fmt.Errorf("corpus needs at least one grade, got %d: %w", grades, internalerr.ErrInvalidConfig)
	}
	return &Corpus{Grades: grades, Counts: make(map[string][]int64)}, nil
}

// Add records n occurrences of g in a document of the given grade. The total
// column is brought up to date by Finalize.
func (c *Corpus) Add(g string, grade int, n int64) error {
	if grade < 1 || grade > c.Grades {
		return fmt.Errorf("grade %d outside 1..%d: %w", grade, c.Grades, internalerr.ErrInvalidInput)
	}
	row, ok := c.Counts[g]
	if !ok {
		row = make([]int64, c.Grades+1)
		c.Counts[g] = row
	}
	row[grade] += n
	return nil
}

// Finalize recomputes the total column of every row.
func (c *Corpus) Finalize() {
	for _, row := range c.Counts {
		var sum int64
		for _, v := range row[1:] {
			sum += v
		}
		row[0] = sum
	}
}

// Len returns the number of distinct n-grams.
func (c *Corpus) Len() int { return len(c.Counts) }

// Clone returns a deep copy that shares no rows with c.
func (c *Corpus) Clone() *Corpus {
	cp := &Corpus{Grades: c.Grades, Counts: make(map[string][]int64, len(c.Counts))}
	for g, row := range c.Counts {
		cp.Counts[g] = append([]int64(nil), row...)
	}
	return cp
}

// LeaveOneOut returns a copy of c with one text's counts removed from its
// grade column and the total. c itself is never modified. The text must have
// been aggregated into c under the same grade: removing an occurrence c
// never saw is reported as ErrInvalidInput.
func (c *Corpus) LeaveOneOut(text ngram.Counts, grade int) (*Corpus, error) {
	if grade < 1 || grade > c.Grades {
		return nil, fmt.Errorf("leave-one-out grade %d outside 1..%d: %w", grade, c.Grades, internalerr.ErrInvalidInput)
	}
	cp := c.Clone()
	for g, n := range text {
		row := cp.Counts[g]
		var have int64
		if row != nil {
			have = row[grade]
		}
		if have < n {
			return nil, fmt.Errorf("leave-one-out %q: text has %d occurrences, grade %d has %d: %w", g, n, grade, have, internalerr.ErrInvalidInput)
		}
		row[grade] -= n
		row[0] -= n
	}
	return cp, nil
}

// Size returns the column totals: overall n-gram occurrences followed by
// the occurrences per grade.
func (c *Corpus) Size() []int64 {
	size := make([]int64, c.Grades+1)
	for _, row := range c.Counts {
		for i, v := range row {
			size[i] += v
		}
	}
	return size
}
