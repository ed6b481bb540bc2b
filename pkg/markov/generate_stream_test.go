package markov

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(stream *TokenStream) []string {
	var tokens []string
	for token := range stream.C {
		tokens = append(tokens, token)
	}
	return tokens
}

func TestGenerateStream(t *testing.T) {
	ctx := context.Background()
	models := setupTestModels(t)
	g := NewGenerator(NewDefaultTokenizer())

	t.Run("Successful stream", func(t *testing.T) {
		stream, err := g.GenerateStream(ctx, models.Bigram, []string{"i"}, 5, WithTemperature(0))
		require.NoError(t, err)
		assert.Equal(t, []string{"i", "think", "i", "think", "i"}, collect(stream))
		assert.NoError(t, stream.Err())
	})

	t.Run("Matches collecting form", func(t *testing.T) {
		chain, err := models.Chain(TrigramOrder)
		require.NoError(t, err)

		stream, err := g.GenerateStream(ctx, chain, []string{"i", "think"}, 30, WithSeed(3))
		require.NoError(t, err)
		want, err := Generate(chain, []string{"i", "think"}, 30, WithSeed(3))
		require.NoError(t, err)
		assert.Equal(t, want, collect(stream))
	})

	t.Run("Invalid arguments fail eagerly", func(t *testing.T) {
		stream, err := g.GenerateStream(ctx, models.Bigram, []string{"i"}, 1)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Nil(t, stream)
	})

	t.Run("Dead end closes the stream", func(t *testing.T) {
		stream, err := g.GenerateStream(ctx, BuildBigram([]string{"a", "b", "c"}), []string{"a"}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, collect(stream))
		assert.ErrorIs(t, stream.Err(), ErrUnknownContext, "a truncated walk must be reported")

		_, err = g.Generate(ctx, BuildBigram([]string{"a", "b", "c"}), []string{"a"}, 10)
		assert.ErrorIs(t, err, ErrUnknownContext)
	})

	t.Run("Stream cancellation", func(t *testing.T) {
		ctxCancel, cancel := context.WithCancel(ctx)
		defer cancel()

		streamCancel, err := g.GenerateStream(ctxCancel, models.Unigram, nil, 1_000_000)
		require.NoError(t, err)

		// Read one token, then cancel
		<-streamCancel.C
		cancel()

		// At most a token in flight may still arrive before the channel closes.
		timeout := time.After(time.Second)
		for received := 0; ; received++ {
			select {
			case _, ok := <-streamCancel.C:
				if !ok {
					assert.NoError(t, streamCancel.Err(), "cancellation is not a failure")
					return
				}
				require.Less(t, received, 2, "channel kept producing after cancellation")
			case <-timeout:
				t.Fatal("timed out waiting for stream channel to close after cancellation")
			}
		}
	})
}

func TestGenerateStreamFromString(t *testing.T) {
	ctx := context.Background()
	models := setupTestModels(t)
	g := NewGenerator(NewDefaultTokenizer())

	chain, err := models.Chain(TrigramOrder)
	require.NoError(t, err)

	stream, err := g.GenerateStreamFromString(ctx, chain, "I, think", 4, WithSeed(8))
	require.NoError(t, err)
	tokens := collect(stream)
	require.Len(t, tokens, 4)
	assert.Equal(t, []string{"i", "think"}, tokens[:2])

	_, err = g.GenerateStreamFromString(ctx, chain, "only", 4)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
