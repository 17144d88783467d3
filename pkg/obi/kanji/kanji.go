// Package kanji resolves the kanji-code tokens used in corpus definitions
// and wraps readers so the n-gram extractor always sees UTF-8.
package kanji

import (
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/cognicore/obi/pkg/obi/internalerr"
)

// Code is a kanji-code token.
type Code string

const (
	Default  Code = ""  // use the caller's default
	EUCJP    Code = "E" // EUC-JP
	JIS      Code = "J" // ISO-2022-JP
	ShiftJIS Code = "S" // Shift_JIS
	UTF8     Code = "W" // UTF-8, no conversion
)

// ErrUnknownCode is returned for a token outside E, J, S, W.
var ErrUnknownCode = fmt.Errorf("unknown kanji code: %w", internalerr.ErrInvalidConfig)

var labels = map[Code]string{
	EUCJP:    "euc-jp",
	JIS:      "iso-2022-jp",
	ShiftJIS: "shift_jis",
}

// Resolve picks the code for one document. An explicit spec wins; an empty
// spec falls back to fallback. W always means "leave the bytes alone".
func Resolve(spec string, fallback Code) (Code, error) {
	switch Code(spec) {
	case UTF8:
		return UTF8, nil
	case EUCJP, JIS, ShiftJIS:
		return Code(spec), nil
	case Default:
		if fallback == Default {
			return Default, nil
		}
		return Resolve(string(fallback), Default)
	default:
		return Default, fmt.Errorf("%q: %w", spec, ErrUnknownCode)
	}
}

// Validate checks a single token without resolving a fallback.
func Validate(spec string) error {
	_, err := Resolve(spec, Default)
	return err
}

// NewReader returns a reader producing UTF-8 from r encoded as code.
func NewReader(r io.Reader, code Code) (io.Reader, error) {
	if code == Default || code == UTF8 {
		return r, nil
	}
	label, ok := labels[code]
	if !ok {
		return nil, fmt.Errorf("%q: %w", string(code), ErrUnknownCode)
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return nil, fmt.Errorf("no decoder for %s: %w", label, internalerr.ErrInvalidConfig)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}
