package markov

import (
	"fmt"
	"math/rand/v2"
)

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	source      Source
	seed        *uint64
	temperature float64
	topK        int
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in generation functions like GenerateBigram and
// Generator.GenerateStream.
type GenerateOption func(*generateOptions)

// WithSource sets the random source used for every draw of one generation
// call. A Source is not safe for concurrent use, so give each goroutine its own.
func WithSource(src Source) GenerateOption {
	return func(o *generateOptions) { o.source = src }
}

// WithSeed makes generation reproducible by drawing from a fresh PCG source
// seeded with seed on every call. WithSource takes precedence.
func WithSeed(seed uint64) GenerateOption {
	return func(o *generateOptions) { o.seed = &seed }
}

// WithTemperature adjusts the randomness of the token selection.
// A value of 1.0 is plain maximum-likelihood sampling.
// Values > 1.0 flatten the distribution, values < 1.0 sharpen it.
// A value of 0 or less always picks the most likely token.
func WithTemperature(t float64) GenerateOption {
	return func(o *generateOptions) { o.temperature = t }
}

// WithTopK restricts the token selection pool to the top `k` most likely tokens
// at each step. A value of 0 disables Top-K sampling.
func WithTopK(k int) GenerateOption {
	return func(o *generateOptions) { o.topK = k }
}

func newGenerateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{
		temperature: 1.0,
		topK:        0,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.source == nil {
		if options.seed != nil {
			options.source = rand.New(rand.NewPCG(*options.seed, *options.seed))
		} else {
			options.source = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	return options
}

// GenerateUnigram draws count tokens independently from the unigram
// distribution.
func GenerateUnigram(model *UnigramModel, count int, opts ...GenerateOption) ([]string, error) {
	return Generate(model, nil, count, opts...)
}

// GenerateBigram walks the bigram chain starting at seed and returns count
// tokens, seed included. It returns ErrUnknownContext if seed, or any token
// reached before the walk completes, has no outgoing transitions.
func GenerateBigram(model *BigramModel, seed string, count int, opts ...GenerateOption) ([]string, error) {
	return Generate(model, []string{seed}, count, opts...)
}

// GenerateTrigram walks the trigram chain starting at (first, second) and
// returns count tokens, both seeds included. Unseen pairs fall back to the
// bigram model as described by WithFallback.
func GenerateTrigram(trigrams *TrigramModel, bigrams *BigramModel, first, second string, count int, opts ...GenerateOption) ([]string, error) {
	return Generate(WithFallback(trigrams, bigrams), []string{first, second}, count, opts...)
}

// Generate walks any chain. seed must hold exactly Order()-1 tokens and
// count must be at least 1 for unigram chains and 2 otherwise. The result
// starts with seed and has exactly count tokens; on error no tokens are
// returned.
func Generate(chain Chain, seed []string, count int, opts ...GenerateOption) ([]string, error) {
	if err := validateWalk(chain, seed, count); err != nil {
		return nil, err
	}
	options := newGenerateOptions(opts)

	out := make([]string, 0, count)
	out = append(out, seed...)
	for len(out) < count {
		next, err := step(chain, out, options)
		if err != nil {
			return nil, fmt.Errorf("generation stopped after %d of %d tokens: %w", len(out), count, err)
		}
		out = append(out, next)
	}
	return out, nil
}

// MinLength returns the shortest output a chain of the given order can generate.
func MinLength(order int) int {
	if order <= UnigramOrder {
		return 1
	}
	return 2
}

func validateWalk(chain Chain, seed []string, count int) error {
	order := chain.Order()
	if order < UnigramOrder || order > TrigramOrder {
		return errOrder(order)
	}
	if len(seed) != order-1 {
		return fmt.Errorf("order %d generation needs %d seed tokens, got %d: %w", order, order-1, len(seed), ErrInvalidArgument)
	}
	if minLen := MinLength(order); count < minLen {
		return fmt.Errorf("order %d generation needs a length of at least %d, got %d: %w", order, minLen, count, ErrInvalidArgument)
	}
	return nil
}

// step draws the token following out.
func step(chain Chain, out []string, options *generateOptions) (string, error) {
	history := out[len(out)-(chain.Order()-1):]
	dist, err := chain.Next(history)
	if err != nil {
		return "", err
	}
	if options.temperature != 1.0 || options.topK > 0 {
		// reweight renormalizes, so a malformed input must be caught first.
		if err = dist.validate(); err != nil {
			return "", err
		}
		dist = dist.reweight(options.temperature, options.topK)
	}
	return dist.Sample(options.source)
}

func errOrder(order int) error {
	return fmt.Errorf("unsupported model order %d, want 1, 2 or 3: %w", order, ErrInvalidArgument)
}
