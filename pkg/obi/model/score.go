package model

import "github.com/cognicore/obi/pkg/obi/ngram"

// TextEntry is the per-ngram evidence of a scored text.
type TextEntry struct {
	Count   int64
	Contrib []float64 // Count * weight, per grade
}

// Text holds the evidence of every n-gram that the model knows about.
type Text map[string]TextEntry

// Contribution is the aggregate evidence of a text: how many operative
// n-gram occurrences were scored and the summed contribution per grade.
type Contribution struct {
	Operative int64
	Totals    []float64
}

// Score weighs counts against the model. N-grams the model does not know are
// dropped: they are not evidence for any grade.
func (m *Model) Score(counts ngram.Counts) (Text, Contribution) {
	text := make(Text, len(counts))
	contrib := Contribution{Totals: make([]float64, m.Grades)}

	for g, n := range counts {
		e, ok := m.Entries[g]
		if !ok {
			continue
		}
		te := TextEntry{Count: n, Contrib: make([]float64, len(e.Weights))}
		for i, w := range e.Weights {
			te.Contrib[i] = float64(n) * w
			if i < len(contrib.Totals) {
				contrib.Totals[i] += te.Contrib[i]
			}
		}
		contrib.Operative += n
		text[g] = te
	}
	return text, contrib
}
