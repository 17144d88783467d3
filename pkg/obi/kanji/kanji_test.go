package kanji

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/cognicore/obi/pkg/obi/internalerr"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		spec     string
		fallback Code
		want     Code
	}{
		{"E", Default, EUCJP},
		{"S", EUCJP, ShiftJIS},
		{"W", ShiftJIS, UTF8},
		{"", JIS, JIS},
		{"", Default, Default},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.spec, tt.fallback)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "spec=%q fallback=%q", tt.spec, tt.fallback)
	}
}

func TestResolveRejectsUnknown(t *testing.T) {
	_, err := Resolve("X", Default)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCode))
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))

	_, err = Resolve("", Code("W16"))
	assert.True(t, errors.Is(err, ErrUnknownCode))
}

func TestNewReaderDecodesShiftJIS(t *testing.T) {
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, japanese.ShiftJIS.NewEncoder())
	_, err := w.Write([]byte("日本語のテキスト"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(&buf, ShiftJIS)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "日本語のテキスト", string(out))
}

func TestNewReaderPassThrough(t *testing.T) {
	src := strings.NewReader("abc")
	r, err := NewReader(src, UTF8)
	require.NoError(t, err)
	assert.Same(t, src, r)
}
