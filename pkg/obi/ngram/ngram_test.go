package ngram

import (
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/obi/pkg/obi/internalerr"
)

func collect(t *testing.T, text string, opts Options) []string {
	t.Helper()
	var out []string
	for g, err := range Extract(strings.NewReader(text), opts) {
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		out = append(out, g)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBigramBoundaries(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"window spans lines", "abc\nde\n", []string{"ab", "bc", "cd", "de"}},
		{"blank line resets", "ab\n\ncd\n", []string{"ab", "cd"}},
		{"whitespace-only line resets", "ab\n \t\ncd", []string{"ab", "cd"}},
		{"leading tag resets", "ab\n<p>cd\n", []string{"ab", "cd"}},
		{"trailing tag closes", "ab</p>\ncd\n", []string{"ab", "cd"}},
		{"inline tag is removed", "a<br>b\n", []string{"ab"}},
		{"whitespace is removed", "a b\tc\r\n", []string{"ab", "bc"}},
		{"single character", "a", nil},
		{"multibyte", "日本語\n", []string{"日本", "本語"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, tt.text, Options{Order: Bigram})
			if !equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnigrams(t *testing.T) {
	got := collect(t, "a <b>b</b>\n\n c", Options{Order: Unigram})
	want := []string{"a", "b", "c"}
	if !equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestOperativeFilter(t *testing.T) {
	set := NewOperativeSet("ab")

	bi := collect(t, "abca", Options{Order: Bigram, Operative: set})
	if !equal(bi, []string{"ab"}) {
		t.Errorf("bigrams: got %q", bi)
	}

	uni := collect(t, "abca", Options{Order: Unigram, Operative: set})
	if !equal(uni, []string{"a", "b", "a"}) {
		t.Errorf("unigrams: got %q", uni)
	}
}

func TestExtractInvalidOrder(t *testing.T) {
	for _, err := range Extract(strings.NewReader("abc"), Options{Order: 3}) {
		if !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}
		return
	}
	t.Fatal("expected an error element")
}

func TestExtractStopsEarly(t *testing.T) {
	n := 0
	for range Extract(strings.NewReader("abcdef"), Options{Order: Bigram}) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("expected to stop after 2, got %d", n)
	}
}

func TestCount(t *testing.T) {
	counts, err := Count(Extract(strings.NewReader("ABABAB\n"), Options{Order: Bigram}))
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if counts["AB"] != 3 || counts["BA"] != 2 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if counts.Total() != 5 {
		t.Errorf("Total = %d, want 5", counts.Total())
	}
}

func TestLoadOperativeSet(t *testing.T) {
	set, err := LoadOperativeSet(strings.NewReader("あ\tHIRAGANA\nい\r\n\nxy\n"))
	if err != nil {
		t.Fatalf("LoadOperativeSet: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 characters, got %d", set.Len())
	}
	if !set.Operative("あい") {
		t.Error("あい should be operative")
	}
	if set.Operative("あx") {
		t.Error("あx should not be operative")
	}
	var nilSet OperativeSet
	if !nilSet.Operative("zz") {
		t.Error("nil set admits everything")
	}
}
