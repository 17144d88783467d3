package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cognicore/obi/pkg/obi/internalerr"
)

// Save writes the model as tab-separated lines:
// ngram \t freq \t w_1 \t ... \t w_G, weights to five decimals.
// Lines are sorted by n-gram so identical models produce identical files.
func (m *Model) Save(w io.Writer) error {
	keys := make([]string, 0, len(m.Entries))
	for g := range m.Entries {
		keys = append(keys, g)
	}
	sort.Strings(keys)

	bw := bufio.NewWriter(w)
	for _, g := range keys {
		e := m.Entries[g]
		bw.WriteString(g)
		bw.WriteByte('\t')
		bw.WriteString(strconv.FormatInt(e.Freq, 10))
		for _, v := range e.Weights {
			bw.WriteByte('\t')
			bw.WriteString(strconv.FormatFloat(v, 'f', 5, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// SaveFile writes the model to path.
func (m *Model) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("write model %s: %w", path, err)
	}
	return f.Close()
}

// Load reads a model file, skipping entries whose stored frequency is below
// requiredFrequency.
func Load(r io.Reader, requiredFrequency int64, spec string) (*Model, error) {
	m := &Model{Spec: spec, Entries: make(map[string]Entry)}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			return nil, fmt.Errorf("model line %d: too few columns: %w", lineNo, internalerr.ErrInvalidInput)
		}
		freq, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("model line %d: bad frequency %q: %w", lineNo, parts[1], internalerr.ErrInvalidInput)
		}
		weights := make([]float64, len(parts)-2)
		for i, s := range parts[2:] {
			weights[i], err = strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("model line %d: bad weight %q: %w", lineNo, s, internalerr.ErrInvalidInput)
			}
		}
		if m.Grades == 0 {
			m.Grades = len(weights)
		} else if len(weights) != m.Grades {
			return nil, fmt.Errorf("model line %d: %d weights, expected %d: %w", lineNo, len(weights), m.Grades, internalerr.ErrInvalidInput)
		}

		if freq < requiredFrequency {
			continue
		}
		m.Entries[parts[0]] = Entry{Freq: freq, Weights: weights}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return m, nil
}

// LoadFile opens path and reads it with Load.
func LoadFile(path string, requiredFrequency int64, spec string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, requiredFrequency, spec)
}

// FileName returns the conventional file of a named scale model. The T7
// scale is computed from the T13 model.
func FileName(spec, dir string) string {
	if spec == "T7" {
		spec = "T13"
	}
	return filepath.Join(dir, "Obi2-"+spec+".model")
}
