package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/natefinch/atomic"

	"github.com/CTAG07/ngramtext/pkg/corpus"
	"github.com/CTAG07/ngramtext/pkg/markov"
)

const usage = `Usage: ngramtext [-config FILE] <command> [flags] [args]

Commands:
  add [-name NAME] FILE...   store corpus documents (FILE "-" reads stdin)
  remove NAME...             delete stored documents
  list                       list stored documents
  stats [-file F] [-doc D]   show corpus and model statistics
  generate [flags]           train on the corpus and print generated text
  shell [flags]              interactive prompt; each line is a seed phrase

Run "ngramtext <command> -h" for command flags.
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries everything a command needs.
type app struct {
	config    *Config
	logger    *slog.Logger
	tokenizer markov.Tokenizer
	generator *markov.Generator
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
}

// run parses global flags, loads configuration and dispatches a command. It
// returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ngramtext", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", defaultConfigPath, "path to the JSON config file")
	if err := parseFlags(fs, args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	config, err := LoadConfig(*configPath, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLogLevel(config.LogLevel)}))

	tokenizer, err := newTokenizer(config)
	if err != nil {
		logger.Error("Failed to create tokenizer", "error", err)
		return 1
	}
	generator := markov.NewGenerator(tokenizer)
	generator.SetLogger(logger)

	a := &app{
		config:    config,
		logger:    logger,
		tokenizer: tokenizer,
		generator: generator,
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
	}

	command, commandArgs := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "add":
		err = a.runAdd(ctx, commandArgs)
	case "remove":
		err = a.runRemove(ctx, commandArgs)
	case "list":
		err = a.runList(ctx, commandArgs)
	case "stats":
		err = a.runStats(ctx, commandArgs)
	case "generate":
		err = a.runGenerate(ctx, commandArgs)
	case "shell":
		err = a.runShell(ctx, commandArgs)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		fs.Usage()
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		logger.Error("Command failed", "command", command, "error", err)
		return 1
	}
}

// newFlagSet creates a subcommand flag set reporting to the app's stderr.
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parseFlags parses args into fs. The flag package has already reported any
// problem, so every failure maps to errUsage.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// openStore opens the configured database, ensures the schema exists and
// returns a Store plus a function releasing both.
func (a *app) openStore() (*corpus.Store, func(), error) {
	db, err := initDB(a.config.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = corpus.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to setup corpus schema: %w", err)
	}
	store, err := corpus.NewStore(db, a.tokenizer)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to prepare corpus store: %w", err)
	}
	store.SetLogger(a.logger)

	closeFn := func() {
		store.Close()
		if err := db.Close(); err != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
	}
	return store, closeFn, nil
}

func (a *app) runAdd(ctx context.Context, args []string) error {
	fs := a.newFlagSet("add")
	name := fs.String("name", "", "document name (default: the file's base name; required for stdin)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		_, _ = fmt.Fprintln(a.stderr, "add: at least one FILE is required")
		return errUsage
	}
	if *name != "" && fs.NArg() > 1 {
		_, _ = fmt.Fprintln(a.stderr, "add: -name needs exactly one FILE")
		return errUsage
	}

	store, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	for _, path := range fs.Args() {
		docName := *name
		if docName == "" {
			if path == "-" {
				_, _ = fmt.Fprintln(a.stderr, "add: -name is required when reading stdin")
				return errUsage
			}
			docName = filepath.Base(path)
		}

		var doc corpus.Document
		if path == "-" {
			doc, err = store.AddDocument(ctx, docName, a.stdin)
		} else {
			doc, err = addFile(ctx, store, docName, path)
		}
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.stdout, "added %s (%d tokens)\n", doc.Name, doc.TokenCount)
	}
	return nil
}

func addFile(ctx context.Context, store *corpus.Store, name, path string) (corpus.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return corpus.Document{}, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	return store.AddDocument(ctx, name, f)
}

func (a *app) runRemove(ctx context.Context, args []string) error {
	fs := a.newFlagSet("remove")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		_, _ = fmt.Fprintln(a.stderr, "remove: at least one NAME is required")
		return errUsage
	}

	store, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	for _, name := range fs.Args() {
		if err = store.RemoveDocument(ctx, name); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.stdout, "removed %s\n", name)
	}
	return nil
}

func (a *app) runList(ctx context.Context, args []string) error {
	fs := a.newFlagSet("list")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	store, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tTOKENS\tADDED")
	for _, doc := range docs {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", doc.Id, doc.Name, doc.TokenCount, doc.AddedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func (a *app) runStats(ctx context.Context, args []string) error {
	fs := a.newFlagSet("stats")
	src := corpusFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if src.file == "" {
		store, closeStore, err := a.openStore()
		if err != nil {
			return err
		}
		stats, err := store.GetStats(ctx)
		closeStore()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.stdout, "documents: %d\ntokens: %d\n", stats.Documents, stats.TotalTokens)
	}

	models, err := a.loadModels(ctx, src)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ORDER\tCONTEXTS\tTRANSITIONS\tFREQUENCY\tVOCABULARY")
	allStats := models.Stats()
	for order := markov.UnigramOrder; order <= markov.TrigramOrder; order++ {
		s := allStats[order]
		_, _ = fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n", order, s.Contexts, s.Transitions, s.TotalFrequency, s.Vocabulary)
	}
	return w.Flush()
}

// corpusSource selects the training text: a plain file, or stored documents.
type corpusSource struct {
	file string
	docs string
}

func corpusFlags(fs *flag.FlagSet) *corpusSource {
	src := &corpusSource{}
	fs.StringVar(&src.file, "file", "", "train on this text file instead of the stored corpus")
	fs.StringVar(&src.docs, "doc", "", "comma-separated stored documents to train on (default: all)")
	return src
}

// loadModels trains every order from the selected source.
func (a *app) loadModels(ctx context.Context, src *corpusSource) (*markov.Models, error) {
	start := time.Now()
	defer func() {
		a.logger.Debug("Models loaded", "duration", time.Since(start))
	}()

	if src.file != "" {
		f, err := os.Open(src.file)
		if err != nil {
			return nil, err
		}
		defer func(f *os.File) {
			_ = f.Close()
		}(f)
		return a.generator.Train(ctx, f)
	}

	store, closeStore, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer closeStore()

	var names []string
	for _, name := range strings.Split(src.docs, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	docs, err := store.Documents(ctx, names...)
	if err != nil {
		return nil, err
	}
	return a.generator.TrainDocuments(ctx, docs)
}

// generationFlags are shared by generate and shell.
type generationFlags struct {
	order       int
	length      int
	temperature float64
	topK        int
	randSeed    int64
}

func (a *app) generationFlags(fs *flag.FlagSet) *generationFlags {
	gen := a.config.Generation
	f := &generationFlags{}
	fs.IntVar(&f.order, "order", gen.Order, "model order: 1 unigram, 2 bigram, 3 trigram")
	fs.IntVar(&f.length, "n", gen.Length, "number of tokens to output, seed included")
	fs.Float64Var(&f.temperature, "temperature", gen.Temperature, "sampling temperature (1 is plain sampling, 0 is greedy)")
	fs.IntVar(&f.topK, "topk", gen.TopK, "sample only from the k most likely tokens (0 disables)")
	fs.Int64Var(&f.randSeed, "rand-seed", gen.Seed, "random seed for reproducible output (-1 is random)")
	return f
}

func (f *generationFlags) options() []markov.GenerateOption {
	opts := []markov.GenerateOption{
		markov.WithTemperature(f.temperature),
		markov.WithTopK(f.topK),
	}
	if f.randSeed >= 0 {
		opts = append(opts, markov.WithSeed(uint64(f.randSeed)))
	}
	return opts
}

// defaultSeedText returns the seed phrase used when none is given.
func defaultSeedText(order int) string {
	switch order {
	case markov.BigramOrder:
		return "the"
	case markov.TrigramOrder:
		return "there is"
	default:
		return ""
	}
}

// seedTokens tokenizes text and keeps the last order-1 tokens as the walk's
// seed, so any phrase ending in a known context works.
func seedTokens(tokenizer markov.Tokenizer, text string, order int) ([]string, error) {
	if order == markov.UnigramOrder {
		return nil, nil
	}
	tokens, err := markov.ReadTokens(tokenizer, strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	need := order - 1
	if len(tokens) < need {
		return nil, fmt.Errorf("seed %q has %d tokens, order %d needs %d: %w",
			text, len(tokens), order, need, markov.ErrInvalidArgument)
	}
	return tokens[len(tokens)-need:], nil
}

func (a *app) runGenerate(ctx context.Context, args []string) error {
	fs := a.newFlagSet("generate")
	src := corpusFlags(fs)
	gen := a.generationFlags(fs)
	seedText := fs.String("seed", "", `seed phrase, e.g. "there is" (default depends on -order)`)
	out := fs.String("out", "", "write the text to this file instead of stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *seedText == "" {
		*seedText = defaultSeedText(gen.order)
	}

	models, err := a.loadModels(ctx, src)
	if err != nil {
		return err
	}
	chain, err := models.Chain(gen.order)
	if err != nil {
		return err
	}
	seed, err := seedTokens(a.tokenizer, *seedText, gen.order)
	if err != nil {
		return err
	}

	tokens, err := a.generator.Generate(ctx, chain, seed, gen.length, gen.options()...)
	if err != nil {
		return err
	}
	text := markov.Join(a.tokenizer, tokens)

	if *out != "" {
		if err = atomic.WriteFile(*out, strings.NewReader(text+"\n")); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		a.logger.Info("Generated text written", "path", *out, "tokens", len(tokens))
		return nil
	}
	_, err = fmt.Fprintln(a.stdout, text)
	return err
}
