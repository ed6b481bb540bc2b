package markov

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	dist, err := Normalize(map[string]int{"a": 9, "b": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 0.9, "b": 0.1}, dist.Map())
	assert.Equal(t, []string{"a", "b"}, dist.Tokens())
	assert.Equal(t, 2, dist.Len())
	assert.Equal(t, 0.0, dist.Prob("c"))
}

func TestNormalizeSumsToOne(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 200; i++ {
		counts := make(map[string]int)
		n := 1 + rng.IntN(50)
		for j := 0; j < n; j++ {
			counts[string(rune('a'+rng.IntN(26)))+string(rune('a'+rng.IntN(26)))] += 1 + rng.IntN(1000)
		}
		dist, err := Normalize(counts)
		require.NoError(t, err)

		var sum float64
		for _, p := range dist.Map() {
			assert.Greater(t, p, 0.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, sumTolerance)
	}
}

func TestNormalizeErrors(t *testing.T) {
	testCases := []struct {
		name    string
		counts  map[string]int
		wantErr error
	}{
		{name: "nil table", counts: nil, wantErr: ErrEmptyInput},
		{name: "empty table", counts: map[string]int{}, wantErr: ErrEmptyInput},
		{name: "zero sum", counts: map[string]int{"a": 0, "b": 0}, wantErr: ErrEmptyInput},
		{name: "negative count", counts: map[string]int{"a": 2, "b": -1}, wantErr: ErrInvalidArgument},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.counts)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNormalizeDropsZeroCounts(t *testing.T) {
	dist, err := Normalize(map[string]int{"a": 0, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"b": 1.0}, dist.Map())
}

func TestSampleInverseCDF(t *testing.T) {
	dist := NewDistribution(map[string]float64{"a": 0.9, "b": 0.1})

	testCases := []struct {
		draw float64
		want string
	}{
		{draw: 0, want: "a"},
		{draw: 0.5, want: "a"},
		{draw: 0.89, want: "a"},
		{draw: 0.9, want: "b"},
		{draw: 0.999, want: "b"},
	}
	for _, tc := range testCases {
		got, err := dist.Sample(fixedSource(tc.draw))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "draw %v", tc.draw)
	}
}

func TestSampleFrequencies(t *testing.T) {
	dist := NewDistribution(map[string]float64{"a": 0.9, "b": 0.1})
	rng := rand.New(rand.NewPCG(42, 42))

	const draws = 100000
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		token, err := dist.Sample(rng)
		require.NoError(t, err)
		counts[token]++
	}

	assert.Len(t, counts, 2, "only keys of the distribution may be returned")
	assert.InDelta(t, 0.9, float64(counts["a"])/draws, 0.02)
}

func TestSampleInvariantViolation(t *testing.T) {
	t.Run("sum too small", func(t *testing.T) {
		_, err := NewDistribution(map[string]float64{"a": 0.5, "b": 0.4}).Sample(fixedSource(0.1))
		assert.ErrorIs(t, err, ErrInvariantViolation)
	})

	t.Run("empty distribution", func(t *testing.T) {
		_, err := Distribution{}.Sample(fixedSource(0.1))
		assert.ErrorIs(t, err, ErrInvariantViolation)
	})

	t.Run("draw past cumulative total", func(t *testing.T) {
		// Within tolerance of 1, but a draw above the total selects nothing.
		dist := NewDistribution(map[string]float64{"a": 0.5, "b": 0.4999995})
		_, err := dist.Sample(fixedSource(0.9999999))
		assert.ErrorIs(t, err, ErrInvariantViolation)
	})
}

func TestReweight(t *testing.T) {
	dist, err := Normalize(map[string]int{"am": 1, "think": 3})
	require.NoError(t, err)

	t.Run("identity", func(t *testing.T) {
		assert.Equal(t, dist.Map(), dist.reweight(1.0, 0).Map())
	})

	t.Run("greedy", func(t *testing.T) {
		assert.Equal(t, map[string]float64{"think": 1}, dist.reweight(0, 0).Map())
	})

	t.Run("greedy tie takes first in order", func(t *testing.T) {
		tie := NewDistribution(map[string]float64{"b": 0.5, "a": 0.5})
		assert.Equal(t, map[string]float64{"a": 1}, tie.reweight(-1, 0).Map())
	})

	t.Run("top k", func(t *testing.T) {
		assert.Equal(t, map[string]float64{"think": 1}, dist.reweight(1.0, 1).Map())
		assert.Equal(t, dist.Map(), dist.reweight(1.0, 5).Map())
	})

	t.Run("flattening temperature", func(t *testing.T) {
		hot := dist.reweight(2.0, 0)
		want := math.Sqrt(0.25) / (math.Sqrt(0.25) + math.Sqrt(0.75))
		assert.InDelta(t, want, hot.Prob("am"), 1e-9)
		assert.InDelta(t, 1.0, hot.Prob("am")+hot.Prob("think"), sumTolerance)
		assert.Greater(t, hot.Prob("am"), dist.Prob("am"))
	})

	t.Run("sharpening temperature", func(t *testing.T) {
		cold := dist.reweight(0.5, 0)
		assert.Less(t, cold.Prob("am"), dist.Prob("am"))
		_, err := cold.Sample(fixedSource(0.5))
		assert.NoError(t, err)
	})
}
