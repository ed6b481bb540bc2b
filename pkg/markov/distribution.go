package markov

import (
	"fmt"
	"math"
	"sort"
)

// sumTolerance is how far a distribution's total may drift from 1.0 before
// sampling refuses it.
const sumTolerance = 1e-6

// Source is a uniform random source producing values in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
}

// Distribution is an immutable discrete probability distribution over tokens.
// Tokens are enumerated in ascending lexical order, which makes sampling
// reproducible for a seeded Source.
type Distribution struct {
	tokens []string
	probs  []float64
	sum    float64
}

// Normalize converts a table of occurrence counts into a Distribution by
// dividing every count by the total. Zero counts are dropped. It returns
// ErrEmptyInput if the table is empty or sums to zero, and ErrInvalidArgument
// for a negative count.
func Normalize(counts map[string]int) (Distribution, error) {
	if len(counts) == 0 {
		return Distribution{}, fmt.Errorf("cannot normalize an empty count table: %w", ErrEmptyInput)
	}

	total := 0
	tokens := make([]string, 0, len(counts))
	for token, count := range counts {
		if count < 0 {
			return Distribution{}, fmt.Errorf("negative count %d for token %q: %w", count, token, ErrInvalidArgument)
		}
		if count == 0 {
			continue
		}
		total += count
		tokens = append(tokens, token)
	}
	if total == 0 {
		return Distribution{}, fmt.Errorf("cannot normalize a count table summing to zero: %w", ErrEmptyInput)
	}
	sort.Strings(tokens)

	probs := make([]float64, len(tokens))
	var sum float64
	for i, token := range tokens {
		probs[i] = float64(counts[token]) / float64(total)
		sum += probs[i]
	}
	return Distribution{tokens: tokens, probs: probs, sum: sum}, nil
}

// NewDistribution builds a Distribution from explicit probabilities. The
// values are not checked here; Sample rejects a distribution whose values do
// not sum to 1.
func NewDistribution(probs map[string]float64) Distribution {
	tokens := make([]string, 0, len(probs))
	for token := range probs {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	d := Distribution{tokens: tokens, probs: make([]float64, len(tokens))}
	for i, token := range tokens {
		d.probs[i] = probs[token]
		d.sum += d.probs[i]
	}
	return d
}

// Sample draws one token using inverse-CDF sampling: a single uniform draw r
// is compared against the running cumulative probability and the first token
// whose cumulative sum exceeds r is returned.
func (d Distribution) Sample(src Source) (string, error) {
	if err := d.validate(); err != nil {
		return "", err
	}

	r := src.Float64()
	var cumulative float64
	for i, p := range d.probs {
		cumulative += p
		if r < cumulative {
			return d.tokens[i], nil
		}
	}
	return "", fmt.Errorf("no token selected for draw %v (cumulative %v): %w", r, cumulative, ErrInvariantViolation)
}

// validate returns ErrInvariantViolation unless the probabilities sum to 1
// within sumTolerance.
func (d Distribution) validate() error {
	if math.Abs(d.sum-1.0) > sumTolerance {
		return fmt.Errorf("distribution sums to %v, not 1: %w", d.sum, ErrInvariantViolation)
	}
	return nil
}

// Len returns the number of tokens with non-zero probability.
func (d Distribution) Len() int {
	return len(d.tokens)
}

// Prob returns the probability of token, or 0 if it is not in the distribution.
func (d Distribution) Prob(token string) float64 {
	i := sort.SearchStrings(d.tokens, token)
	if i < len(d.tokens) && d.tokens[i] == token {
		return d.probs[i]
	}
	return 0
}

// Tokens returns the tokens in enumeration order.
func (d Distribution) Tokens() []string {
	return append([]string(nil), d.tokens...)
}

// Map returns a copy of the distribution as a token -> probability map.
func (d Distribution) Map() map[string]float64 {
	m := make(map[string]float64, len(d.tokens))
	for i, token := range d.tokens {
		m[token] = d.probs[i]
	}
	return m
}

// reweight returns a renormalized copy restricted to the topK most likely
// tokens (0 keeps all) and sharpened or flattened by temperature. A
// temperature of 0 or less collapses to the single most likely token, ties
// going to the first in enumeration order.
func (d Distribution) reweight(temperature float64, topK int) Distribution {
	if len(d.tokens) == 0 {
		return d
	}

	idx := make([]int, len(d.tokens))
	for i := range idx {
		idx[i] = i
	}
	if topK > 0 && topK < len(idx) {
		sort.SliceStable(idx, func(a, b int) bool {
			return d.probs[idx[a]] > d.probs[idx[b]]
		})
		idx = idx[:topK]
		sort.Ints(idx)
	}

	if temperature <= 0 {
		best := idx[0]
		for _, i := range idx[1:] {
			if d.probs[i] > d.probs[best] {
				best = i
			}
		}
		return Distribution{tokens: []string{d.tokens[best]}, probs: []float64{1}, sum: 1}
	}

	weights := make([]float64, len(idx))
	if temperature == 1.0 {
		for j, i := range idx {
			weights[j] = d.probs[i]
		}
	} else {
		maxLog := math.Inf(-1)
		for j, i := range idx {
			weights[j] = math.Log(d.probs[i]) / temperature
			if weights[j] > maxLog {
				maxLog = weights[j]
			}
		}
		for j := range weights {
			weights[j] = math.Exp(weights[j] - maxLog)
		}
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	out := Distribution{tokens: make([]string, len(idx)), probs: make([]float64, len(idx))}
	for j, i := range idx {
		out.tokens[j] = d.tokens[i]
		out.probs[j] = weights[j] / total
		out.sum += out.probs[j]
	}
	return out
}
