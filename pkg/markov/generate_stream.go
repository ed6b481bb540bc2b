package markov

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// TokenStream delivers the tokens of one streamed generation.
type TokenStream struct {
	// C yields the tokens, seed included, and is closed when the walk ends.
	C   <-chan string
	err error
}

// Err returns the error that ended the walk early, or nil if it completed or
// was cancelled. It must only be called after C is closed. When Err is not
// nil the tokens already received are a truncated walk and should be
// discarded, matching Generate, which returns no tokens on failure.
func (s *TokenStream) Err() error {
	return s.err
}

// GenerateStream walks chain from seed and streams the tokens, seed included.
// Arguments are validated before the stream is returned. The channel is
// closed once count tokens were sent, the context is cancelled, or the walk
// reaches a context with no transitions; the last case is reported by Err.
func (g *Generator) GenerateStream(ctx context.Context, chain Chain, seed []string, count int, opts ...GenerateOption) (*TokenStream, error) {
	if err := validateWalk(chain, seed, count); err != nil {
		return nil, err
	}
	options := newGenerateOptions(opts)

	tokenChan := make(chan string)
	stream := &TokenStream{C: tokenChan}

	go func() {
		defer close(tokenChan)

		out := make([]string, 0, count)
		for _, token := range seed {
			select {
			case <-ctx.Done():
				return
			case tokenChan <- token:
			}
			out = append(out, token)
		}

		for len(out) < count {
			select {
			case <-ctx.Done():
				g.logger.DebugContext(ctx, "Generation stream cancelled by context",
					slog.Int("generated_length", len(out)),
				)
				return
			default:
				// continue
			}

			next, err := step(chain, out, options)
			if err != nil {
				stream.err = fmt.Errorf("generation stopped after %d of %d tokens: %w", len(out), count, err)
				g.logger.ErrorContext(ctx, "Generation stream stopped early",
					slog.Int("order", chain.Order()),
					slog.Int("generated_length", len(out)),
					slog.Any("error", err),
				)
				return
			}
			select {
			case <-ctx.Done():
				return
			case tokenChan <- next:
			}
			out = append(out, next)
		}
	}()

	return stream, nil
}

// GenerateStreamFromString is a convenience wrapper around GenerateStream that
// tokenizes seedText into the seed.
func (g *Generator) GenerateStreamFromString(ctx context.Context, chain Chain, seedText string, count int, opts ...GenerateOption) (*TokenStream, error) {
	seed, err := ReadTokens(g.tokenizer, strings.NewReader(seedText))
	if err != nil {
		return nil, fmt.Errorf("tokenizer error while reading seed: %w", err)
	}
	return g.GenerateStream(ctx, chain, seed, count, opts...)
}
