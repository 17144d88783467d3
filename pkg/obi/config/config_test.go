package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/obi/pkg/obi/estimate"
	"github.com/cognicore/obi/pkg/obi/internalerr"
	"github.com/cognicore/obi/pkg/obi/kanji"
)

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "obi.yaml")

	content := `ngram: 1
requiredFrequency: 3
smoothing: [0, 2]
kanji: S
corpus:
  dir: /data/corpus
  definition: train.def
  partitions: 5
model:
  name: T7
  dir: /data/models
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Ngram != 1 || cfg.RequiredFrequency != 3 || cfg.Kanji != "S" {
		t.Errorf("unexpected top-level values: %+v", cfg)
	}
	if cfg.Corpus.Partitions != 5 || cfg.Corpus.Definition != "train.def" {
		t.Errorf("unexpected corpus config: %+v", cfg.Corpus)
	}
	// Unset fields keep their defaults.
	if cfg.OperativeChars != "jchar.utf8" || cfg.Logging.Format != "text" {
		t.Errorf("defaults lost: %+v", cfg)
	}

	opts := cfg.EstimateOptions(cfg.Model.Name)
	if opts.Scale != estimate.ScaleT7 {
		t.Errorf("expected T7 scale, got %q", opts.Scale)
	}
	if len(opts.Voting) != 2 || opts.Voting[0] != estimate.NS || opts.Voting[1] != estimate.S2 {
		t.Errorf("unexpected voting list %v", opts.Voting)
	}

	path, spec := cfg.ModelPath()
	if path != filepath.Join("/data/models", "Obi2-T13.model") || spec != "T7" {
		t.Errorf("ModelPath = %s, %s", path, spec)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OBI_NGRAM", "1")
	t.Setenv("OBI_KANJI", "E")
	t.Setenv("OBI_SMOOTHING", "0,4")
	t.Setenv("OBI_LOGGING_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ngram != 1 || cfg.Kanji != "E" || cfg.Logging.Format != "json" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if len(cfg.Smoothing) != 2 || cfg.Smoothing[1] != 4 {
		t.Errorf("smoothing override not applied: %v", cfg.Smoothing)
	}
}

func TestEstimateOptionsMethods(t *testing.T) {
	cfg := Default()
	cfg.Methods = []int{0, 2}
	cfg.Smoothing = []int{0}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	opts := cfg.EstimateOptions("T13")
	if len(opts.Methods) != 2 || opts.Methods[1] != estimate.S2 {
		t.Errorf("unexpected methods %v", opts.Methods)
	}
	if len(opts.Voting) != 1 || opts.Voting[0] != estimate.NS {
		t.Errorf("unexpected voting %v", opts.Voting)
	}
	if opts.Scale != estimate.ScaleNone {
		t.Errorf("T13 should not rescale, got %q", opts.Scale)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"bad ngram", func(c *Config) { c.Ngram = 3 }, internalerr.ErrInvalidConfig},
		{"negative frequency", func(c *Config) { c.RequiredFrequency = -1 }, internalerr.ErrInvalidConfig},
		{"unknown kanji", func(c *Config) { c.Kanji = "X" }, kanji.ErrUnknownCode},
		{"bad smoothing", func(c *Config) { c.Smoothing = []int{1} }, internalerr.ErrInvalidConfig},
		{"bad methods", func(c *Config) { c.Methods = []int{6} }, internalerr.ErrInvalidConfig},
		{"voting not computed", func(c *Config) { c.Methods, c.Smoothing = []int{0}, []int{0, 2} }, internalerr.ErrInvalidConfig},
		{"default voting not computed", func(c *Config) { c.Methods = []int{0, 2} }, internalerr.ErrInvalidConfig},
		{"unknown model", func(c *Config) { c.Model.Name = "T99" }, internalerr.ErrInvalidConfig},
		{"no partitions", func(c *Config) { c.Corpus.Partitions = 0 }, internalerr.ErrInvalidConfig},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStoredModelNames(t *testing.T) {
	cfg := Default()
	cfg.Model.Name = "custom"
	if err := cfg.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("unknown name without a store should fail, got %v", err)
	}
	cfg.Store.Path = "obi.db"
	if err := cfg.Validate(); err != nil {
		t.Errorf("stored names are accepted with a store: %v", err)
	}
}

func TestModelPathDefaults(t *testing.T) {
	cfg := Default()
	path, spec := cfg.ModelPath()
	if path != "Obi2-T13.model" || spec != "T13" {
		t.Errorf("ModelPath = %s, %s", path, spec)
	}

	cfg.Model.File = "custom.model"
	if path, _ := cfg.ModelPath(); path != "custom.model" {
		t.Errorf("explicit file should win, got %s", path)
	}
}
