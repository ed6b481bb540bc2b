package markov

import (
	"fmt"
	"sort"
)

// Orders of the supported models.
const (
	UnigramOrder = 1
	BigramOrder  = 2
	TrigramOrder = 3
)

// Chain is a trained n-gram model that can produce the distribution over the
// token following a history. history always holds at least Order()-1 tokens;
// only the last Order()-1 are consulted.
type Chain interface {
	Order() int
	Next(history []string) (Distribution, error)
}

// Pair is the two-token context of a trigram model, oldest token first.
type Pair [2]string

// UnigramModel is a single unconditional distribution over every token in the
// training sequence.
type UnigramModel struct {
	dist  Distribution
	stats ModelStats
}

// BigramModel maps each token to the distribution over the token following it.
type BigramModel struct {
	table map[string]Distribution
	stats ModelStats
}

// TrigramModel maps each adjacent token pair to the distribution over the
// token following it.
type TrigramModel struct {
	table map[Pair]Distribution
	stats ModelStats
}

// BuildUnigram counts each distinct token and normalizes the counts.
// An empty sequence returns ErrEmptyInput.
func BuildUnigram(tokens []string) (*UnigramModel, error) {
	return buildUnigram([][]string{tokens})
}

// BuildBigram counts every adjacent pair under the context of its first token
// and normalizes each context independently. Sequences shorter than two
// tokens yield an empty model.
func BuildBigram(tokens []string) *BigramModel {
	return buildBigram([][]string{tokens})
}

// BuildTrigram counts every adjacent triple under the context of its first two
// tokens and normalizes each context independently. Sequences shorter than
// three tokens yield an empty model.
func BuildTrigram(tokens []string) *TrigramModel {
	return buildTrigram([][]string{tokens})
}

func buildUnigram(docs [][]string) (*UnigramModel, error) {
	counts := make(map[string]int)
	total := 0
	for _, tokens := range docs {
		for _, token := range tokens {
			counts[token]++
		}
		total += len(tokens)
	}
	dist, err := Normalize(counts)
	if err != nil {
		return nil, fmt.Errorf("could not build unigram model: %w", err)
	}
	return &UnigramModel{
		dist: dist,
		stats: ModelStats{
			Contexts:       1,
			Transitions:    len(counts),
			TotalFrequency: total,
			Vocabulary:     len(counts),
		},
	}, nil
}

// buildBigram counts pairs inside each document only.
func buildBigram(docs [][]string) *BigramModel {
	counts := make(map[string]map[string]int)
	for _, tokens := range docs {
		for i := 0; i+1 < len(tokens); i++ {
			next := counts[tokens[i]]
			if next == nil {
				next = make(map[string]int)
				counts[tokens[i]] = next
			}
			next[tokens[i+1]]++
		}
	}
	table, stats := normalizeTable(counts)
	stats.Vocabulary = vocabularySize(docs)
	return &BigramModel{table: table, stats: stats}
}

// buildTrigram counts triples inside each document only.
func buildTrigram(docs [][]string) *TrigramModel {
	counts := make(map[Pair]map[string]int)
	for _, tokens := range docs {
		for i := 0; i+2 < len(tokens); i++ {
			key := Pair{tokens[i], tokens[i+1]}
			next := counts[key]
			if next == nil {
				next = make(map[string]int)
				counts[key] = next
			}
			next[tokens[i+2]]++
		}
	}
	table, stats := normalizeTable(counts)
	stats.Vocabulary = vocabularySize(docs)
	return &TrigramModel{table: table, stats: stats}
}

// normalizeTable turns per-context count tables into conditional
// distributions. Every inner table holds positive counts, so Normalize
// cannot fail here.
func normalizeTable[K comparable](counts map[K]map[string]int) (map[K]Distribution, ModelStats) {
	table := make(map[K]Distribution, len(counts))
	var stats ModelStats
	for key, next := range counts {
		dist, err := Normalize(next)
		if err != nil {
			panic(fmt.Sprintf("markov: normalizing positive counts failed: %v", err))
		}
		table[key] = dist
		stats.Contexts++
		stats.Transitions += len(next)
		for _, c := range next {
			stats.TotalFrequency += c
		}
	}
	return table, stats
}

func vocabularySize(docs [][]string) int {
	seen := make(map[string]struct{})
	for _, tokens := range docs {
		for _, token := range tokens {
			seen[token] = struct{}{}
		}
	}
	return len(seen)
}

// Order returns 1.
func (m *UnigramModel) Order() int { return UnigramOrder }

// Next returns the unconditional distribution; history is ignored.
func (m *UnigramModel) Next(_ []string) (Distribution, error) {
	return m.dist, nil
}

// Distribution returns the model's single distribution.
func (m *UnigramModel) Distribution() Distribution {
	return m.dist
}

// Stats returns counts gathered while the model was built.
func (m *UnigramModel) Stats() ModelStats {
	return m.stats
}

// Order returns 2.
func (m *BigramModel) Order() int { return BigramOrder }

// Next returns the distribution following the last token of history.
func (m *BigramModel) Next(history []string) (Distribution, error) {
	if len(history) < 1 {
		return Distribution{}, fmt.Errorf("bigram model needs one token of history: %w", ErrInvalidArgument)
	}
	last := history[len(history)-1]
	dist, ok := m.table[last]
	if !ok {
		return Distribution{}, fmt.Errorf("no transitions from %q: %w", last, ErrUnknownContext)
	}
	return dist, nil
}

// Lookup returns the distribution following token and whether it was observed.
func (m *BigramModel) Lookup(token string) (Distribution, bool) {
	dist, ok := m.table[token]
	return dist, ok
}

// Contexts returns every observed context token in sorted order.
func (m *BigramModel) Contexts() []string {
	keys := make([]string, 0, len(m.table))
	for k := range m.table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stats returns counts gathered while the model was built.
func (m *BigramModel) Stats() ModelStats {
	return m.stats
}

// Order returns 3.
func (m *TrigramModel) Order() int { return TrigramOrder }

// Next returns the distribution following the last two tokens of history.
// It never falls back; use WithFallback for generation.
func (m *TrigramModel) Next(history []string) (Distribution, error) {
	if len(history) < 2 {
		return Distribution{}, fmt.Errorf("trigram model needs two tokens of history: %w", ErrInvalidArgument)
	}
	key := Pair{history[len(history)-2], history[len(history)-1]}
	dist, ok := m.table[key]
	if !ok {
		return Distribution{}, fmt.Errorf("no transitions from (%q, %q): %w", key[0], key[1], ErrUnknownContext)
	}
	return dist, nil
}

// Lookup returns the distribution following the pair (first, second) and
// whether it was observed.
func (m *TrigramModel) Lookup(first, second string) (Distribution, bool) {
	dist, ok := m.table[Pair{first, second}]
	return dist, ok
}

// Contexts returns every observed context pair, sorted by first then second token.
func (m *TrigramModel) Contexts() []Pair {
	keys := make([]Pair, 0, len(m.table))
	for k := range m.table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	return keys
}

// Stats returns counts gathered while the model was built.
func (m *TrigramModel) Stats() ModelStats {
	return m.stats
}

// fallbackChain is a trigram chain that degrades to bigram statistics when a
// pair was never observed.
type fallbackChain struct {
	trigrams *TrigramModel
	bigrams  *BigramModel
}

// WithFallback returns a trigram Chain that, for an unseen pair (a, b),
// samples from the bigram distribution of a, the OLDER of the two tokens.
// Conditioning on a rather than b is kept so seeded output stays compatible
// with earlier releases.
func WithFallback(trigrams *TrigramModel, bigrams *BigramModel) Chain {
	return &fallbackChain{trigrams: trigrams, bigrams: bigrams}
}

func (c *fallbackChain) Order() int { return TrigramOrder }

func (c *fallbackChain) Next(history []string) (Distribution, error) {
	if len(history) < 2 {
		return Distribution{}, fmt.Errorf("trigram model needs two tokens of history: %w", ErrInvalidArgument)
	}
	first, second := history[len(history)-2], history[len(history)-1]
	if dist, ok := c.trigrams.Lookup(first, second); ok {
		return dist, nil
	}
	if dist, ok := c.bigrams.Lookup(first); ok {
		return dist, nil
	}
	return Distribution{}, fmt.Errorf("no transitions from (%q, %q) and no bigram fallback from %q: %w",
		first, second, first, ErrUnknownContext)
}
