package ngram

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// OperativeSet is the allow-list of characters that count as evidence.
// A nil set admits every character.
type OperativeSet map[rune]struct{}

// NewOperativeSet builds a set from the runes of chars.
func NewOperativeSet(chars string) OperativeSet {
	set := make(OperativeSet)
	for _, c := range chars {
		set[c] = struct{}{}
	}
	return set
}

// Operative reports whether every character of g belongs to the set.
func (s OperativeSet) Operative(g string) bool {
	if s == nil {
		return true
	}
	for _, c := range g {
		if _, ok := s[c]; !ok {
			return false
		}
	}
	return true
}

// Len returns the number of operative characters.
func (s OperativeSet) Len() int { return len(s) }

// LoadOperativeSet reads one character per line; only the first
// tab-delimited field is used. Lines whose field is not exactly one
// character are ignored since they could never match.
func LoadOperativeSet(r io.Reader) (OperativeSet, error) {
	set := make(OperativeSet)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		field, _, _ := strings.Cut(strings.TrimRight(scanner.Text(), "\r"), "\t")
		if utf8.RuneCountInString(field) != 1 {
			continue
		}
		c, _ := utf8.DecodeRuneInString(field)
		set[c] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read operative characters: %w", err)
	}
	return set, nil
}

// LoadOperativeFile opens path and loads it with LoadOperativeSet.
func LoadOperativeFile(path string) (OperativeSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadOperativeSet(f)
}
