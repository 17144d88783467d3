package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cognicore/obi/pkg/obi"
)

// outputOptions selects what is printed for each scored text.
type outputOptions struct {
	long       bool // every method's grade, not only the vote
	tail       bool // info columns first, tab separated
	likelihood bool // per-method curves before the result line
	contrib    bool // per-ngram contributions before the result line
}

// writeReading prints one result line, preceded by the optional
// contribution table and likelihood curves.
func writeReading(w io.Writer, r *obi.Reading, info []string, opts outputOptions) error {
	if opts.contrib {
		if err := writeContrib(w, r); err != nil {
			return err
		}
	}
	if opts.likelihood {
		if err := writeLikelihood(w, r); err != nil {
			return err
		}
	}

	res := r.Result
	grades := []string{formatGrade(res.Final)}
	if opts.long || opts.likelihood {
		for _, m := range res.Methods {
			grades = append(grades, strconv.Itoa(res.Grades[m]))
		}
	}
	grades = append(grades, strconv.FormatInt(res.Contrib.Operative, 10))

	sep := " "
	var cols []string
	if opts.tail {
		sep = "\t"
		cols = append(append(cols, info...), grades...)
	} else {
		cols = append(grades, info...)
	}
	if _, err := fmt.Fprintln(w, strings.Join(cols, sep)); err != nil {
		return err
	}
	if opts.likelihood {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}

func writeContrib(w io.Writer, r *obi.Reading) error {
	keys := make([]string, 0, len(r.Text))
	for g := range r.Text {
		keys = append(keys, g)
	}
	sort.Strings(keys)

	for _, g := range keys {
		e := r.Text[g]
		var b strings.Builder
		fmt.Fprintf(&b, "%s %3d", g, e.Count)
		for _, c := range e.Contrib {
			fmt.Fprintf(&b, " %6.2f", c)
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func writeLikelihood(w io.Writer, r *obi.Reading) error {
	res := r.Result
	for _, m := range res.Methods {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %2d", m, res.Grades[m])
		for _, v := range res.Curves[m] {
			fmt.Fprintf(&b, " %6.2f", v)
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// formatGrade prints whole grades without a fraction and half grades as 2.5.
func formatGrade(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSize(size []int64) string {
	cols := make([]string, len(size))
	for i, v := range size {
		cols[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(cols, " ")
}
