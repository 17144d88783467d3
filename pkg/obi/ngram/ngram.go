// Package ngram turns line-oriented text into lazy sequences of character
// unigrams or bigrams.
//
// Markup tags (anything matching <...>) and whitespace are removed from each
// line before n-grams are formed. For bigrams the tags also act as
// boundaries: a blank line or a line that starts with a tag resets the
// sliding window, and a line that ends with a tag closes it after the line
// has been emitted, so no bigram bridges unrelated content.
package ngram

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"
	"unicode"

	"github.com/cognicore/obi/pkg/obi/internalerr"
)

// Supported n-gram orders.
const (
	Unigram = 1
	Bigram  = 2
)

var tagPattern = regexp.MustCompile(`<[^<]*>`)

// Options selects the n-gram order and the optional operative filter.
// It is passed explicitly to every extraction call.
type Options struct {
	Order     int
	Operative OperativeSet
}

// Validate reports whether the order is one the engine understands.
func (o Options) Validate() error {
	if o.Order != Unigram && o.Order != Bigram {
		return fmt.Errorf("ngram order %d: %w", o.Order, internalerr.ErrInvalidConfig)
	}
	return nil
}

// Extract yields the operative n-grams of r in the order selected by opts.
// The sequence is finite and can only be consumed once. A read failure is
// yielded as the final element.
func Extract(r io.Reader, opts Options) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := opts.Validate(); err != nil {
			yield("", err)
			return
		}

		var seq iter.Seq2[string, error]
		if opts.Order == Unigram {
			seq = Unigrams(r)
		} else {
			seq = Bigrams(r)
		}

		for g, err := range seq {
			if err != nil {
				yield("", err)
				return
			}
			if !opts.Operative.Operative(g) {
				continue
			}
			if !yield(g, nil) {
				return
			}
		}
	}
}

// Unigrams yields every character left after stripping tags and whitespace.
func Unigrams(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for line, err := range lines(r) {
			if err != nil {
				yield("", err)
				return
			}
			for _, c := range clean(line) {
				if !yield(string(c), nil) {
					return
				}
			}
		}
	}
}

// Bigrams yields overlapping character pairs. The window carries across
// line breaks unless a tag or blank line marks a boundary.
func Bigrams(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var window []rune
		for line, err := range lines(r) {
			if err != nil {
				yield("", err)
				return
			}

			if isBlank(line) || strings.HasPrefix(line, "<") {
				window = window[:0]
			}
			tailTag := strings.HasSuffix(line, ">")

			window = append(window, clean(line)...)
			for len(window) >= 2 {
				if !yield(string(window[:2]), nil) {
					return
				}
				window = window[1:]
			}

			if tailTag {
				window = window[:0]
			}
		}
	}
}

// Count folds a sequence into per-ngram occurrence counts.
func Count(seq iter.Seq2[string, error]) (Counts, error) {
	counts := make(Counts)
	for g, err := range seq {
		if err != nil {
			return nil, err
		}
		counts[g]++
	}
	return counts, nil
}

// Counts maps an n-gram to the number of times it occurred in one text.
type Counts map[string]int64

// Total returns the number of n-gram occurrences.
func (c Counts) Total() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// lines yields the lines of r without their terminators.
func lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadString('\n')
			if len(line) > 0 {
				if !yield(strings.TrimRight(line, "\r\n"), nil) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield("", fmt.Errorf("read text: %w", err))
				}
				return
			}
		}
	}
}

// clean removes markup tags and all whitespace from a line.
func clean(line string) []rune {
	line = tagPattern.ReplaceAllString(line, "")
	out := make([]rune, 0, len(line))
	for _, c := range line {
		if unicode.IsSpace(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isBlank(line string) bool {
	return strings.TrimFunc(line, unicode.IsSpace) == ""
}
