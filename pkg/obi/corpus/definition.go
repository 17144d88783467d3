package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cognicore/obi/pkg/obi/internalerr"
)

// Entry is one labelled document of a corpus definition.
// Format: ref \t kanji \t grade \t info...
type Entry struct {
	Ref   string
	Kanji string
	Grade int
	Info  []string
}

// Fields returns the entry as the columns it was read from.
func (e Entry) Fields() []string {
	out := []string{e.Ref, e.Kanji, strconv.Itoa(e.Grade)}
	return append(out, e.Info...)
}

// Definition is an ordered list of labelled documents.
type Definition []Entry

// MaxGrade returns the highest grade label, which fixes the corpus width.
func (d Definition) MaxGrade() int {
	g := 0
	for _, e := range d {
		g = max(g, e.Grade)
	}
	return g
}

// LoadDefinition parses a tab-separated corpus definition. Blank lines are
// skipped; a missing or non-positive grade is rejected with its line number.
func LoadDefinition(r io.Reader) (Definition, error) {
	var def Definition
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			return nil, fmt.Errorf("definition line %d: expected ref, kanji and grade columns: %w", lineNo, internalerr.ErrInvalidInput)
		}
		grade, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || grade < 1 {
			return nil, fmt.Errorf("definition line %d: bad grade %q: %w", lineNo, parts[2], internalerr.ErrInvalidInput)
		}

		def = append(def, Entry{
			Ref:   parts[0],
			Kanji: parts[1],
			Grade: grade,
			Info:  parts[3:],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return def, nil
}

// LoadDefinitionFile opens path and parses it with LoadDefinition.
func LoadDefinitionFile(path string) (Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDefinition(f)
}

// Partition deals the definition round-robin into p buckets: entry i goes
// to bucket i mod p.
func Partition(def Definition, p int) ([]Definition, error) {
	if p < 1 {
		return nil, fmt.Errorf("partition count %d: %w", p, internalerr.ErrInvalidConfig)
	}
	parts := make([]Definition, p)
	for i, e := range def {
		parts[i%p] = append(parts[i%p], e)
	}
	return parts, nil
}
