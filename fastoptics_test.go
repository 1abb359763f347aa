package optics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoBlobs builds two well-separated gaussian-ish blobs and returns the
// engine plus the blob index per point.
func twoBlobs(t *testing.T, n int, cfg Config) (*Engine, []int) {
	t.Helper()
	rng := rand.New(rand.NewSource(61))
	x := make([]float64, n)
	y := make([]float64, n)
	blob := make([]int, n)
	for i := 0; i < n; i++ {
		cx, cy := 2.0, 2.0
		if i%2 == 1 {
			cx, cy = 18.0, 18.0
			blob[i] = 1
		}
		x[i] = cx + rng.NormFloat64()*0.5
		y[i] = cy + rng.NormFloat64()*0.5
	}
	e, err := NewEngine(x, y, 400, cfg)
	require.NoError(t, err)
	return e, blob
}

func TestFastOptics_FullOrderCoverage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RandomSeed = 4
	e, _ := twoBlobs(t, 300, cfg)

	res, err := e.FastOptics(5, 0, 0, false, false, SampleModeAll)
	require.NoError(t, err)
	require.Len(t, res.Order, 300)

	seen := make([]bool, 300)
	for _, entry := range res.Order {
		assert.False(t, seen[entry.ID], "point %d visited twice", entry.ID)
		seen[entry.ID] = true
	}
	assert.Greater(t, res.GeneratingDistance, 0.0)
}

func TestFastOptics_SeparatedBlobsNeverMix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RandomSeed = 9
	e, blob := twoBlobs(t, 400, cfg)

	res, err := e.FastOptics(5, 0, 0, true, false, SampleModeAll)
	require.NoError(t, err)

	// Extract at half the maximum reachability: the inter-blob jump is far
	// larger than any intra-blob step, so no cluster may span both blobs.
	labels := res.ExtractDbscanClustering(res.MaxReachability() / 2)
	owner := map[int]int{}
	for i, l := range labels {
		if l == 0 {
			continue
		}
		if prev, ok := owner[l]; ok {
			assert.Equal(t, prev, blob[i], "cluster %d mixes both blobs", l)
		} else {
			owner[l] = blob[i]
		}
	}
}

func TestFastOptics_DeterministicUnderFixedSeed(t *testing.T) {
	run := func() *OpticsResult {
		cfg := DefaultConfig()
		cfg.RandomSeed = 123
		cfg.Workers = 4
		e, _ := twoBlobs(t, 200, cfg)
		res, err := e.FastOptics(4, 6, 0, false, false, SampleModeMedian)
		require.NoError(t, err)
		return res
	}
	first := run()
	second := run()
	assert.Equal(t, first, second)
}

func TestFastOptics_SeedIndependentOfWorkerCount(t *testing.T) {
	run := func(workers int) *OpticsResult {
		cfg := DefaultConfig()
		cfg.RandomSeed = 123
		cfg.Workers = workers
		e, _ := twoBlobs(t, 200, cfg)
		res, err := e.FastOptics(4, 0, 0, true, false, SampleModeAll)
		require.NoError(t, err)
		return res
	}
	first := run(1)
	for _, workers := range []int{2, 3, 8} {
		assert.Equal(t, first, run(workers), "workers=%d", workers)
	}
}

func TestFastOptics_SampleModes(t *testing.T) {
	for _, mode := range []SampleMode{SampleModeAll, SampleModeRandom, SampleModeMedian} {
		cfg := DefaultConfig()
		cfg.RandomSeed = 77
		e, _ := twoBlobs(t, 150, cfg)
		res, err := e.FastOptics(4, 0, 0, false, false, mode)
		require.NoError(t, err, "mode %d", mode)
		assert.Len(t, res.Order, 150, "mode %d", mode)
	}
}

func TestFastOptics_SavedSetsReused(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RandomSeed = 5
	cfg.Cache = true
	e, _ := twoBlobs(t, 120, cfg)

	first, err := e.FastOptics(4, 0, 0, false, true, SampleModeAll)
	require.NoError(t, err)
	require.NotNil(t, e.projFinder, "approximate sets should be retained")

	saved := e.projFinder
	second, err := e.FastOptics(4, 0, 0, false, true, SampleModeAll)
	require.NoError(t, err)
	assert.Same(t, saved, e.projFinder, "repeat call should reuse the projection")
	assert.Equal(t, first, second)
}

func TestFastOptics_Cancellation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Progress = &stopAfter{remaining: 2}
	e, _ := twoBlobs(t, 100, cfg)

	res, err := e.FastOptics(4, 0, 0, false, false, SampleModeAll)
	require.ErrorIs(t, err, ErrCanceled)
	assert.Nil(t, res)
}
