package markov

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUnigram(t *testing.T) {
	model, err := BuildUnigram([]string{"i", "think", "therefore", "i", "am"})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"i": 0.4, "am": 0.2, "think": 0.2, "therefore": 0.2}, model.Distribution().Map())
	assert.Equal(t, UnigramOrder, model.Order())

	_, err = BuildUnigram(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestBuildBigram(t *testing.T) {
	model := BuildBigram(descartes)

	want := map[string]map[string]float64{
		"i":         {"am": 0.25, "think": 0.75},
		"am":        {"i": 1.0},
		"think":     {"i": 0.5, "therefore": 0.5},
		"therefore": {"i": 1.0},
	}
	assert.Equal(t, []string{"am", "i", "therefore", "think"}, model.Contexts())
	for context, probs := range want {
		dist, ok := model.Lookup(context)
		require.True(t, ok, "context %q missing", context)
		assert.Equal(t, probs, dist.Map(), "context %q", context)
	}

	_, ok := model.Lookup("nowhere")
	assert.False(t, ok)
}

func TestBuildTrigram(t *testing.T) {
	model := BuildTrigram(descartes)

	want := map[Pair]map[string]float64{
		{"think", "i"}:         {"think": 1.0},
		{"i", "am"}:            {"i": 1.0},
		{"therefore", "i"}:     {"am": 1.0},
		{"think", "therefore"}: {"i": 1.0},
		{"i", "think"}:         {"i": 0.5, "therefore": 0.5},
		{"am", "i"}:            {"think": 1.0},
	}
	require.Len(t, model.Contexts(), len(want))
	for pair, probs := range want {
		dist, ok := model.Lookup(pair[0], pair[1])
		require.True(t, ok, "context %v missing", pair)
		assert.Equal(t, probs, dist.Map(), "context %v", pair)
	}
	assert.Equal(t, Pair{"am", "i"}, model.Contexts()[0])
}

func TestShortSequencesYieldEmptyModels(t *testing.T) {
	assert.Empty(t, BuildBigram(nil).Contexts())
	assert.Empty(t, BuildBigram([]string{"alone"}).Contexts())
	assert.Empty(t, BuildTrigram([]string{"just", "two"}).Contexts())
	assert.Len(t, BuildTrigram([]string{"now", "three", "tokens"}).Contexts(), 1)
}

func TestBuildIsDeterministic(t *testing.T) {
	u1, err := BuildUnigram(descartes)
	require.NoError(t, err)
	u2, err := BuildUnigram(descartes)
	require.NoError(t, err)
	assert.Equal(t, u1, u2)

	assert.Equal(t, BuildBigram(descartes), BuildBigram(descartes))
	assert.Equal(t, BuildTrigram(descartes), BuildTrigram(descartes))
}

func TestModelStats(t *testing.T) {
	models := setupTestModels(t)

	assert.Equal(t, ModelStats{Contexts: 1, Transitions: 4, TotalFrequency: 9, Vocabulary: 4}, models.Unigram.Stats())
	assert.Equal(t, ModelStats{Contexts: 4, Transitions: 6, TotalFrequency: 8, Vocabulary: 4}, models.Bigram.Stats())
	assert.Equal(t, ModelStats{Contexts: 6, Transitions: 7, TotalFrequency: 7, Vocabulary: 4}, models.Trigram.Stats())
	assert.Len(t, models.Stats(), 3)
}

func TestChainNext(t *testing.T) {
	models := setupTestModels(t)

	t.Run("bigram uses last token", func(t *testing.T) {
		dist, err := models.Bigram.Next([]string{"am", "i"})
		require.NoError(t, err)
		assert.Equal(t, 0.75, dist.Prob("think"))
	})

	t.Run("bigram unknown context", func(t *testing.T) {
		_, err := models.Bigram.Next([]string{"cogito"})
		assert.ErrorIs(t, err, ErrUnknownContext)
	})

	t.Run("bigram without history", func(t *testing.T) {
		_, err := models.Bigram.Next(nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("trigram uses last pair", func(t *testing.T) {
		dist, err := models.Trigram.Next([]string{"am", "i", "think"})
		require.NoError(t, err)
		assert.Equal(t, 0.5, dist.Prob("therefore"))
	})

	t.Run("trigram alone never falls back", func(t *testing.T) {
		_, err := models.Trigram.Next([]string{"am", "think"})
		assert.ErrorIs(t, err, ErrUnknownContext)
	})
}

func TestFallbackUsesOlderToken(t *testing.T) {
	tokens := []string{"a", "b", "c", "a", "b", "d"}
	bigrams := BuildBigram(tokens)
	trigrams := BuildTrigram(tokens)
	chain := WithFallback(trigrams, bigrams)
	assert.Equal(t, TrigramOrder, chain.Order())

	bigramOf := func(token string) Distribution {
		dist, ok := bigrams.Lookup(token)
		require.True(t, ok)
		return dist
	}

	t.Run("seen pair uses trigram", func(t *testing.T) {
		dist, err := chain.Next([]string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"c": 0.5, "d": 0.5}, dist.Map())
	})

	t.Run("unseen pair uses bigram of first token", func(t *testing.T) {
		// (c, b) was never observed; bigram[c] is {a: 1} while bigram[b] is {c, d}.
		dist, err := chain.Next([]string{"c", "b"})
		require.NoError(t, err)
		assert.Equal(t, bigramOf("c"), dist)
		assert.NotEqual(t, bigramOf("b").Map(), dist.Map())
	})

	t.Run("second token without successors", func(t *testing.T) {
		// (b, d) is unseen and falls back to bigram[b], never bigram[d].
		dist, err := chain.Next([]string{"b", "d"})
		require.NoError(t, err)
		assert.Equal(t, bigramOf("b"), dist)
	})

	t.Run("fallback miss", func(t *testing.T) {
		_, err := chain.Next([]string{"d", "c"})
		assert.ErrorIs(t, err, ErrUnknownContext)
	})
}

func TestModelsChain(t *testing.T) {
	models := setupTestModels(t)

	for order := UnigramOrder; order <= TrigramOrder; order++ {
		chain, err := models.Chain(order)
		require.NoError(t, err)
		assert.Equal(t, order, chain.Order())
	}

	_, err := models.Chain(4)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func BenchmarkBuildAll(b *testing.B) {
	corpus := createBenchmarkCorpus()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := BuildAll(corpus); err != nil {
			b.Fatalf("BuildAll() failed: %v", err)
		}
	}
}

func TestBuildAllDocuments(t *testing.T) {
	models, err := BuildAllDocuments([][]string{{"a", "b", "c"}, {"c", "a", "b"}, {}})
	require.NoError(t, err)

	_, ok := models.Bigram.Lookup("c")
	assert.True(t, ok, "c is followed by a inside the second document")
	dist, ok := models.Bigram.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, map[string]float64{"c": 1.0}, dist.Map())

	assert.Equal(t, []Pair{{"a", "b"}, {"c", "a"}}, models.Trigram.Contexts())
	assert.Equal(t, ModelStats{Contexts: 3, Transitions: 3, TotalFrequency: 4, Vocabulary: 3}, models.Bigram.Stats())
	assert.Equal(t, 6, models.Unigram.Stats().TotalFrequency)

	joined, err := BuildAll([]string{"a", "b", "c", "c", "a", "b"})
	require.NoError(t, err)
	_, ok = joined.Trigram.Lookup("b", "c")
	require.True(t, ok)
	_, ok = models.Trigram.Lookup("b", "c")
	assert.False(t, ok, "no trigram spans two documents")

	_, err = BuildAllDocuments([][]string{{}, nil})
	assert.ErrorIs(t, err, ErrEmptyInput)
}
