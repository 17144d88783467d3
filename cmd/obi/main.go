package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/cognicore/obi/internal/logger"
	"github.com/cognicore/obi/pkg/obi"
	"github.com/cognicore/obi/pkg/obi/config"
	"github.com/cognicore/obi/pkg/obi/corpus"
	"github.com/cognicore/obi/pkg/obi/crossval"
	"github.com/cognicore/obi/pkg/obi/estimate"
	"github.com/cognicore/obi/pkg/obi/model"
	"github.com/cognicore/obi/pkg/obi/ngram"
	"github.com/cognicore/obi/pkg/obi/store"
	"github.com/cognicore/obi/pkg/obi/store/sqlite"
)

const usageHeader = `Usage: obi [flags] [files]

Each level of the T13 (T13U) scale model corresponds to a Japanese school
grade level:
	 1 - 6: elementary school (6 years)
	 7 - 9: junior high school (3 years)
	10 - 12: high school (3 years)
	    13: beyond high school

By default two values are printed per text: the readability level and the
number of operative characters in the text.

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}

// cli holds the parsed command line.
type cli struct {
	configPath string
	execMode   string
	version    bool
	output     outputOptions
	inputs     []string
	// explicitOperative is set when -o was given rather than defaulted.
	explicitOperative bool
}

func parseFlags(args []string, stderr io.Writer) (*cli, *config.Config, error) {
	fs := flag.NewFlagSet("obi", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usageHeader)
		fs.PrintDefaults()
	}

	c := &cli{}
	var (
		modelName   = fs.String("m", "", "scale model name (T13, T13U, T7) [default T13]")
		modelFile   = fs.String("M", "", "scale model file")
		operative   = fs.String("o", "", "operative character file")
		ngramOrder  = fs.Int("N", ngram.Bigram, "n-gram order (1 or 2)")
		kanjiCode   = fs.String("k", "", "kanji code of the text files (E, S, J, W)")
		corpusDir   = fs.String("D", "", "corpus directory")
		corpusDef   = fs.String("d", "", "corpus definition file")
		testDef     = fs.String("t", "", "test definition file")
		requiredF   = fs.Int64("f", 1, "required n-gram frequency")
		smoothing   = fs.String("s", "", "voting smoothing degrees, e.g. 0,2,4")
		methods     = fs.String("methods", "", "computed smoothing degrees, e.g. 0,2 [default all]")
		modelOutput = fs.String("O", "", "write the built model to this file")
		saveAs      = fs.String("save", "", "store the built model under this name (needs -db)")
		partitions  = fs.Int("p", 2, "cross-validation partitions (1 = leave-one-out)")
		dbPath      = fs.String("db", "", "SQLite model store")
		logLevel    = fs.String("log-level", "", "log level (debug, info, warn, error)")
		logFormat   = fs.String("log-format", "", "log format (text, json)")
	)
	fs.StringVar(&c.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&c.execMode, "x", "", "execution mode (size, bigram, cross_validation)")
	fs.BoolVar(&c.output.long, "l", false, "display long output")
	fs.BoolVar(&c.output.tail, "T", false, "display info columns first, tab separated")
	fs.BoolVar(&c.output.likelihood, "L", false, "display likelihood values of levels")
	fs.BoolVar(&c.output.contrib, "C", false, "display per n-gram contributions")
	fs.BoolVar(&c.version, "v", false, "display version")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	c.inputs = fs.Args()

	switch c.execMode {
	case "", "size", "bigram", "cross_validation":
	default:
		return nil, nil, fmt.Errorf("unknown execution mode %q", c.execMode)
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}

	// Flags given on the command line override the file and environment.
	var ferr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "m":
			cfg.Model.Name = *modelName
		case "M":
			cfg.Model.File = *modelFile
		case "o":
			cfg.OperativeChars = *operative
			c.explicitOperative = true
		case "N":
			cfg.Ngram = *ngramOrder
		case "k":
			cfg.Kanji = *kanjiCode
		case "D":
			cfg.Corpus.Dir = *corpusDir
		case "d":
			cfg.Corpus.Definition = *corpusDef
		case "t":
			cfg.Corpus.TestDefinition = *testDef
		case "f":
			cfg.RequiredFrequency = *requiredF
		case "s":
			degrees, err := estimate.ParseSmoothing(*smoothing)
			if err != nil {
				ferr = err
			}
			cfg.Smoothing = degrees
		case "methods":
			degrees, err := estimate.ParseSmoothing(*methods)
			if err != nil {
				ferr = err
			}
			cfg.Methods = degrees
		case "O":
			cfg.Model.Output = *modelOutput
		case "save":
			cfg.Model.Save = *saveAs
		case "p":
			cfg.Corpus.Partitions = *partitions
		case "db":
			cfg.Store.Path = *dbPath
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "log-format":
			cfg.Logging.Format = *logFormat
		}
	})
	if ferr != nil {
		return nil, nil, ferr
	}
	return c, cfg, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	c, cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if c.version {
		_, err := fmt.Fprintf(stdout, "obi %s\n", obi.Version)
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lg := logger.Setup(stderr, cfg.Logging.Level, cfg.Logging.Format)

	op, err := loadOperative(cfg.OperativeChars, c.explicitOperative, lg)
	if err != nil {
		return err
	}

	var st store.Store
	if cfg.Store.Path != "" {
		st, err = sqlite.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
	}

	engine, err := obi.New(obi.Options{
		Config:    cfg,
		Operative: op,
		Store:     st,
		Logger:    lg,
	})
	if err != nil {
		if st != nil {
			st.Close()
		}
		return err
	}
	defer engine.Close()

	out := bufio.NewWriter(stdout)
	defer out.Flush()

	switch c.execMode {
	case "size":
		return runSize(ctx, engine, out)
	case "bigram":
		return runNgrams(engine, c.inputs, stdin, out)
	case "cross_validation":
		return runCrossValidation(ctx, engine, c.output, out, lg)
	default:
		return runEstimate(ctx, engine, c, stdin, out)
	}
}

// loadOperative reads the operative character file. A missing default file
// admits every character; a missing explicit file is an error.
func loadOperative(path string, explicit bool, lg *slog.Logger) (ngram.OperativeSet, error) {
	if path == "" {
		return nil, nil
	}
	op, err := ngram.LoadOperativeFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			lg.Warn("operative character file not found, every character counts", "path", path)
			return nil, nil
		}
		return nil, err
	}
	lg.Debug("operative characters loaded", "path", path, "chars", op.Len())
	return op, nil
}

func loadDefinition(path string) (corpus.Definition, error) {
	if path == "" {
		return nil, errors.New("corpus definition file required (-d)")
	}
	return corpus.LoadDefinitionFile(path)
}

func runSize(ctx context.Context, engine *obi.Engine, out io.Writer) error {
	def, err := loadDefinition(engine.Config().Corpus.Definition)
	if err != nil {
		return err
	}
	size, err := engine.CorpusSize(ctx, def)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, formatSize(size))
	return err
}

func runNgrams(engine *obi.Engine, inputs []string, stdin io.Reader, out io.Writer) error {
	dump := func(r io.Reader) error {
		seq, err := engine.Ngrams(r, "")
		if err != nil {
			return err
		}
		for g, err := range seq {
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(out, g); err != nil {
				return err
			}
		}
		return nil
	}

	if len(inputs) == 0 {
		return dump(stdin)
	}
	for _, path := range inputs {
		if err := withFile(path, dump); err != nil {
			return err
		}
	}
	return nil
}

func runCrossValidation(ctx context.Context, engine *obi.Engine, opts outputOptions, out io.Writer, lg *slog.Logger) error {
	cfg := engine.Config()
	def, err := loadDefinition(cfg.Corpus.Definition)
	if err != nil {
		return err
	}
	var test corpus.Definition
	if cfg.Corpus.TestDefinition != "" {
		if test, err = corpus.LoadDefinitionFile(cfg.Corpus.TestDefinition); err != nil {
			return err
		}
	}

	evals, err := engine.CrossValidate(ctx, def, test, func(ev crossval.Evaluation) error {
		return writeReading(out, &obi.Reading{Text: ev.Text, Result: ev.Result}, ev.Entry.Fields(), opts)
	})
	if err != nil {
		return err
	}

	s := crossval.Summarize(evals)
	runID := ""
	if len(evals) > 0 {
		runID = evals[0].RunID
	}
	lg.Info("cross-validation finished",
		"run_id", runID,
		"samples", s.N,
		"exact", s.Exact,
		"adjacent", s.Adjacent,
		"mae", s.MAE,
	)
	return nil
}

func runEstimate(ctx context.Context, engine *obi.Engine, c *cli, stdin io.Reader, out io.Writer) error {
	cfg := engine.Config()

	m, err := prepareModel(ctx, engine)
	if err != nil {
		return err
	}

	show := func(r *obi.Reading, info []string) error {
		return writeReading(out, r, info, c.output)
	}

	switch {
	case cfg.Corpus.TestDefinition != "":
		def, err := corpus.LoadDefinitionFile(cfg.Corpus.TestDefinition)
		if err != nil {
			return err
		}
		for _, e := range def {
			r, err := engine.ReadabilityOf(ctx, m, e)
			if err != nil {
				return err
			}
			if err := show(r, e.Fields()); err != nil {
				return err
			}
		}
		return nil

	case len(c.inputs) > 0:
		for _, path := range c.inputs {
			err := withFile(path, func(f io.Reader) error {
				r, err := engine.Readability(m, f, "")
				if err != nil {
					return err
				}
				return show(r, []string{path})
			})
			if err != nil {
				return err
			}
		}
		return nil

	case cfg.Model.Output != "":
		// Model construction only.
		return nil

	case cfg.Corpus.Dir != "":
		// Each stdin line names a file in the corpus directory and,
		// optionally, its kanji code.
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) == 0 {
				continue
			}
			e := corpus.Entry{Ref: fields[0]}
			if len(fields) > 1 {
				e.Kanji = fields[1]
			}
			r, err := engine.ReadabilityOf(ctx, m, e)
			if err != nil {
				return err
			}
			if err := show(r, fields); err != nil {
				return err
			}
		}
		return scanner.Err()

	default:
		r, err := engine.Readability(m, stdin, "")
		if err != nil {
			return err
		}
		return show(r, nil)
	}
}

// prepareModel loads a prebuilt model unless only a corpus definition was
// given, in which case the model is built from it.
func prepareModel(ctx context.Context, engine *obi.Engine) (*model.Model, error) {
	cfg := engine.Config()
	if cfg.Model.File == "" && cfg.Model.Name == "" && cfg.Corpus.Definition != "" {
		def, err := corpus.LoadDefinitionFile(cfg.Corpus.Definition)
		if err != nil {
			return nil, err
		}
		return engine.BuildModel(ctx, def)
	}
	return engine.LoadModel(ctx)
}

func withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
