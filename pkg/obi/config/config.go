// Package config loads engine settings from YAML with OBI_* environment
// overrides. Every engine call receives these settings explicitly; nothing
// here is process-wide state.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/obi/pkg/obi/estimate"
	"github.com/cognicore/obi/pkg/obi/internalerr"
	"github.com/cognicore/obi/pkg/obi/kanji"
	"github.com/cognicore/obi/pkg/obi/model"
	"github.com/cognicore/obi/pkg/obi/ngram"
)

// Config is the full set of engine settings.
type Config struct {
	Ngram             int           `yaml:"ngram"`
	RequiredFrequency int64         `yaml:"requiredFrequency"`
	Smoothing         []int         `yaml:"smoothing"`
	Methods           []int         `yaml:"methods"`
	Kanji             string        `yaml:"kanji"`
	OperativeChars    string        `yaml:"operativeChars"`
	Corpus            CorpusConfig  `yaml:"corpus"`
	Model             ModelConfig   `yaml:"model"`
	Store             StoreConfig   `yaml:"store"`
	Logging           LoggingConfig `yaml:"logging"`
}

// CorpusConfig locates labelled documents.
type CorpusConfig struct {
	Dir            string `yaml:"dir"`
	Definition     string `yaml:"definition"`
	TestDefinition string `yaml:"testDefinition"`
	Partitions     int    `yaml:"partitions"`
}

// ModelConfig selects a prebuilt model or where to write a new one.
type ModelConfig struct {
	Name   string `yaml:"name"`
	File   string `yaml:"file"`
	Dir    string `yaml:"dir"`
	Output string `yaml:"output"`
	// Save names a built model in the store.
	Save string `yaml:"save"`
}

// StoreConfig points at the optional SQLite model store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ModelNames lists the scale models that can be loaded by name from the
// model directory. With a store configured any stored name is accepted.
var ModelNames = []string{"T13", "T13U", "T7"}

// DefaultModelName is used when neither a model nor a corpus is given.
const DefaultModelName = "T13"

// Load reads a YAML file (if path is non-empty) over the defaults and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns the settings of a plain bigram run.
func Default() *Config {
	return &Config{
		Ngram:             ngram.Bigram,
		RequiredFrequency: 1,
		OperativeChars:    "jchar.utf8",
		Corpus:            CorpusConfig{Partitions: 2},
		Model:             ModelConfig{Dir: "."},
		Logging:           LoggingConfig{Level: "info", Format: "text"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OBI_NGRAM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ngram = n
		}
	}
	if v := os.Getenv("OBI_REQUIRED_FREQUENCY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.RequiredFrequency = n
		}
	}
	if v := os.Getenv("OBI_SMOOTHING"); v != "" {
		if degrees, err := estimate.ParseSmoothing(v); err == nil {
			cfg.Smoothing = degrees
		}
	}
	if v := os.Getenv("OBI_METHODS"); v != "" {
		if degrees, err := estimate.ParseSmoothing(v); err == nil {
			cfg.Methods = degrees
		}
	}
	if v := os.Getenv("OBI_KANJI"); v != "" {
		cfg.Kanji = v
	}
	if v := os.Getenv("OBI_OPERATIVE_CHARS"); v != "" {
		cfg.OperativeChars = v
	}
	if v := os.Getenv("OBI_CORPUS_DIR"); v != "" {
		cfg.Corpus.Dir = v
	}
	if v := os.Getenv("OBI_MODEL_DIR"); v != "" {
		cfg.Model.Dir = v
	}
	if v := os.Getenv("OBI_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("OBI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OBI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate rejects settings that would make any run meaningless. It is
// called before any corpus or model work starts.
func (c *Config) Validate() error {
	if err := (ngram.Options{Order: c.Ngram}).Validate(); err != nil {
		return err
	}
	if c.RequiredFrequency < 0 {
		return fmt.Errorf("required frequency %d: %w", c.RequiredFrequency, internalerr.ErrInvalidConfig)
	}
	if err := kanji.Validate(c.Kanji); err != nil {
		return err
	}
	voting, err := estimate.MethodsFromSmoothing(c.Smoothing)
	if err != nil {
		return err
	}
	methods, err := estimate.MethodsFromSmoothing(c.Methods)
	if err != nil {
		return err
	}
	if len(voting) == 0 {
		voting = estimate.DefaultVoting
	}
	for _, m := range voting {
		if len(methods) > 0 && !slices.Contains(methods, m) {
			return fmt.Errorf("voting method %s is not computed: %w", m, internalerr.ErrInvalidConfig)
		}
	}
	if c.Model.Name != "" && c.Store.Path == "" && !slices.Contains(ModelNames, c.Model.Name) {
		return fmt.Errorf("model name %q (want one of %s): %w", c.Model.Name, strings.Join(ModelNames, ", "), internalerr.ErrInvalidConfig)
	}
	if c.Corpus.Partitions < 1 {
		return fmt.Errorf("partition count %d: %w", c.Corpus.Partitions, internalerr.ErrInvalidConfig)
	}
	return nil
}

// NgramOptions returns the extraction settings for the given operative set.
func (c *Config) NgramOptions(op ngram.OperativeSet) ngram.Options {
	return ngram.Options{Order: c.Ngram, Operative: op}
}

// BuildOptions returns the model construction settings.
func (c *Config) BuildOptions() model.BuildOptions {
	return model.BuildOptions{Order: c.Ngram, RequiredFrequency: c.RequiredFrequency}
}

// EstimateOptions returns the estimation settings for a model of the given
// scale spec. The methods list selects the computed curves and the smoothing
// list selects the voting ones.
func (c *Config) EstimateOptions(spec string) estimate.Options {
	opts := estimate.Options{}
	if methods, err := estimate.MethodsFromSmoothing(c.Methods); err == nil && len(methods) > 0 {
		opts.Methods = methods
	}
	if voting, err := estimate.MethodsFromSmoothing(c.Smoothing); err == nil && len(voting) > 0 {
		opts.Voting = voting
	}
	if spec == string(estimate.ScaleT7) {
		opts.Scale = estimate.ScaleT7
	}
	return opts
}

// ModelPath resolves the model file to load: an explicit file wins over a
// named model, and the default model is used when neither is set.
func (c *Config) ModelPath() (path, spec string) {
	if c.Model.File != "" {
		return c.Model.File, c.Model.Name
	}
	name := c.Model.Name
	if name == "" {
		name = DefaultModelName
	}
	return model.FileName(name, c.Model.Dir), name
}
