package markov

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Generator is the main entry point for training and generating from text.
// It holds a tokenizer, used both to read corpora and seeds and to render
// output, and a logger. Models are owned by the caller; a Generator holds no
// model state and is safe for concurrent use.
type Generator struct {
	tokenizer Tokenizer
	logger    *slog.Logger
}

// NewGenerator creates and returns a new Generator using tokenizer.
func NewGenerator(tokenizer Tokenizer) *Generator {
	return &Generator{
		tokenizer: tokenizer,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Generator. By default, all logs are discarded.
// Providing a `log/slog.Logger` will enable logging for training and generation.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// Tokenizer returns the generator's tokenizer.
func (g *Generator) Tokenizer() Tokenizer {
	return g.tokenizer
}

// Generate walks chain from seed like the package-level Generate, logging the
// outcome.
func (g *Generator) Generate(ctx context.Context, chain Chain, seed []string, count int, opts ...GenerateOption) ([]string, error) {
	tokens, err := Generate(chain, seed, count, opts...)
	if err != nil {
		g.logger.DebugContext(ctx, "Generation failed",
			slog.Int("order", chain.Order()),
			slog.Int("requested_length", count),
			slog.Any("error", err),
		)
		return nil, err
	}
	g.logger.DebugContext(ctx, "Generation completed",
		slog.Int("order", chain.Order()),
		slog.Int("generated_length", len(tokens)),
	)
	return tokens, nil
}

// GenerateText tokenizes seedText into the chain's seed, generates count
// tokens and joins them with the tokenizer's separators. For a unigram chain
// seedText must be empty.
func (g *Generator) GenerateText(ctx context.Context, chain Chain, seedText string, count int, opts ...GenerateOption) (string, error) {
	seed, err := ReadTokens(g.tokenizer, strings.NewReader(seedText))
	if err != nil {
		return "", fmt.Errorf("tokenizer error while reading seed: %w", err)
	}
	tokens, err := g.Generate(ctx, chain, seed, count, opts...)
	if err != nil {
		return "", err
	}
	return Join(g.tokenizer, tokens), nil
}
