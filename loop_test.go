package optics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusterWithOutlier builds a dense uniform cluster around the origin plus
// one far-away point, which gets the last id.
func clusterWithOutlier(t *testing.T, n int) *Engine {
	t.Helper()
	rng := rand.New(rand.NewSource(8))
	x := make([]float64, n+1)
	y := make([]float64, n+1)
	for i := 0; i < n; i++ {
		x[i] = rng.Float64()
		y[i] = rng.Float64()
	}
	x[n], y[n] = 50, 50
	e, err := NewEngine(x, y, 2500, DefaultConfig())
	require.NoError(t, err)
	return e
}

func TestLoop_ScoresInUnitInterval(t *testing.T) {
	e := clusterWithOutlier(t, 200)
	scores, err := e.Loop(10, 0, false)
	require.NoError(t, err)
	require.Len(t, scores, 201)
	for i, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0, "point %d", i)
		assert.LessOrEqual(t, s, 1.0, "point %d", i)
	}
}

func TestLoop_IsolatedPointScoresHighest(t *testing.T) {
	e := clusterWithOutlier(t, 300)
	scores, err := e.Loop(15, 3, false)
	require.NoError(t, err)

	outlier := scores[len(scores)-1]
	for i := 0; i < len(scores)-1; i++ {
		assert.Greater(t, outlier, scores[i],
			"outlier score %v not above cluster point %d (%v)", outlier, i, scores[i])
	}
	assert.Greater(t, outlier, 0.9, "far outlier should score near 1")
}

func TestLoop_SinglePointScoresZero(t *testing.T) {
	e, err := NewEngine([]float64{3}, []float64{4}, 1, DefaultConfig())
	require.NoError(t, err)
	scores, err := e.Loop(5, 3, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, scores)
}

func TestLoop_KClampedToAvailablePoints(t *testing.T) {
	e := clusterWithOutlier(t, 4)
	scores, err := e.Loop(100, 3, false)
	require.NoError(t, err)
	assert.Len(t, scores, 5)
}

func TestLoop_CachedRepeatIdentical(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache = true
	rng := rand.New(rand.NewSource(40))
	x, y := randomPoints(rng, 200, 10)
	e, err := NewEngine(x, y, 100, cfg)
	require.NoError(t, err)

	first, err := e.Loop(8, 3, true)
	require.NoError(t, err)
	require.NotNil(t, e.loopNeighbors)

	second, err := e.Loop(8, 3, true)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A different k must not serve stale neighbor lists.
	third, err := e.Loop(4, 3, true)
	require.NoError(t, err)
	assert.Len(t, third, 200)
	assert.Equal(t, 4, e.loopK)
}

func TestLoop_CancellationBetweenStages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Progress = &stopAfter{remaining: 0}
	rng := rand.New(rand.NewSource(52))
	x, y := randomPoints(rng, 100, 10)
	e, err := NewEngine(x, y, 100, cfg)
	require.NoError(t, err)

	scores, err := e.Loop(5, 3, false)
	require.ErrorIs(t, err, ErrCanceled)
	assert.Nil(t, scores)
}

func TestLoop_UniformDataScoresLow(t *testing.T) {
	rng := rand.New(rand.NewSource(64))
	x, y := randomPoints(rng, 400, 10)
	e, err := NewEngine(x, y, 100, DefaultConfig())
	require.NoError(t, err)

	scores, err := e.Loop(10, 3, false)
	require.NoError(t, err)

	high := 0
	for _, s := range scores {
		if s > 0.95 {
			high++
		}
	}
	assert.Less(t, high, 20, "uniform data should produce few near-1 scores")
}
