package optics

import (
	"fmt"
	"math"
	"runtime"
)

// Config controls engine behavior. Start with [DefaultConfig] and override
// the fields you need.
type Config struct {
	// Finder selects the neighborhood search structure. FinderAuto picks
	// one from the dimensionality and estimated density; 3D data always
	// uses the KD-tree regardless of this setting. Default: FinderAuto.
	Finder FinderVariant

	// TieBreak controls the seed queue's order among equal reachability
	// distances. The strict policies make repeated runs byte-identical.
	// Default: TieBreakNone.
	TieBreak TieBreak

	// Queue selects the seed queue structure. Default: QueueBinaryHeap.
	Queue QueueStructure

	// Cache keeps the neighbor finder, KD-tree, projected neighborhoods,
	// and LoOP k-NN lists on the engine between calls with matching
	// parameters. Callers must still not run two passes concurrently.
	// Default: false.
	Cache bool

	// Workers is the goroutine count for the FastOptics projection stages
	// and the LoOP stages. 0 means runtime.NumCPU(). Default: 0.
	Workers int

	// RandomSeed seeds the FastOptics projections. The same seed over the
	// same input yields the same output regardless of Workers. Default: 0.
	RandomSeed int64

	// Progress receives fractional progress and supplies the cooperative
	// stop signal. Nil means no reporting and no cancellation.
	Progress ProgressReporter
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{}
}

func applyDefaults(cfg *Config) {
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Progress == nil {
		cfg.Progress = nullProgress{}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Finder < FinderAuto || cfg.Finder > FinderTree {
		return fmt.Errorf("optics: invalid Finder %d", cfg.Finder)
	}
	if cfg.TieBreak < TieBreakNone || cfg.TieBreak > TieBreakDescending {
		return fmt.Errorf("optics: invalid TieBreak %d", cfg.TieBreak)
	}
	if cfg.Queue < QueueBinaryHeap || cfg.Queue > QueueFlatList {
		return fmt.Errorf("optics: invalid Queue %d", cfg.Queue)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("optics: Workers must be >= 0, got %d", cfg.Workers)
	}
	return nil
}

// Engine runs the clustering algorithms over one fixed point set. The
// single-threaded drivers (Optics, Dbscan, and the FastOptics expansion)
// mutate shared per-point state, so an engine supports exactly one active
// pass at a time; this is a documented contract rather than a lock.
type Engine struct {
	x, y, z []float64 // re-centered to the bounding-box origin; z nil for 2D
	dims    int
	area    float64 // bounding area (2D) or volume (3D)

	spanX, spanY, spanZ float64

	records []pointRecord
	cfg     Config

	// Cached collaborators, reused across calls only when cfg.Cache is set.
	finder        neighborFinder
	finderE       float64
	finderVariant FinderVariant
	tree          *kdTree
	projFinder    *projectedFinder
	loopK         int
	loopNeighbors [][]int32
}

// NewEngine builds a 2D engine over the given coordinates and bounding
// area. The coordinate slices are retained and mutated in place: each axis
// is re-centered so its minimum becomes the internal origin. Invalid input
// (nil or empty arrays, mismatched lengths, non-finite or non-positive
// area) fails fast.
func NewEngine(x, y []float64, area float64, cfg Config) (*Engine, error) {
	return newEngine(x, y, nil, area, cfg)
}

// NewEngine3D builds a 3D engine over the given coordinates and bounding
// volume. Input handling matches NewEngine. 3D engines always use the
// KD-tree neighbor finder.
func NewEngine3D(x, y, z []float64, volume float64, cfg Config) (*Engine, error) {
	if z == nil {
		return nil, fmt.Errorf("optics: z coordinates must not be nil")
	}
	return newEngine(x, y, z, volume, cfg)
}

func newEngine(x, y, z []float64, area float64, cfg Config) (*Engine, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("optics: coordinate arrays must not be empty")
	}
	if len(y) != len(x) {
		return nil, fmt.Errorf("optics: coordinate array lengths differ: x=%d y=%d", len(x), len(y))
	}
	if z != nil && len(z) != len(x) {
		return nil, fmt.Errorf("optics: coordinate array lengths differ: x=%d z=%d", len(x), len(z))
	}
	if !(area > 0) || math.IsInf(area, 0) || math.IsNaN(area) {
		return nil, fmt.Errorf("optics: bounding area/volume must be finite and positive, got %v", area)
	}

	e := &Engine{
		x:    x,
		y:    y,
		z:    z,
		dims: 2,
		area: area,
		cfg:  cfg,
	}
	if z != nil {
		e.dims = 3
	}

	e.spanX = recenter(x)
	e.spanY = recenter(y)
	if z != nil {
		e.spanZ = recenter(z)
	}

	e.records = newPointRecords(len(x))
	return e, nil
}

func (e *Engine) n() int { return len(e.x) }

// Dims returns the dimensionality of the point set (2 or 3).
func (e *Engine) Dims() int { return e.dims }

// NumPoints returns the number of points in the engine.
func (e *Engine) NumPoints() int { return e.n() }

// recenter shifts the values so their minimum becomes 0 and returns the
// resulting span. NaN values are ignored for the minimum and left in
// place; an all-NaN axis keeps a zero span.
func recenter(values []float64) float64 {
	minV := math.Inf(1)
	maxV := math.Inf(-1)
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if math.IsInf(minV, 1) {
		return 0
	}
	for i := range values {
		values[i] -= minV
	}
	return maxV - minV
}

// sharedTree returns the KD-tree over the engine coordinates, building it
// on first use and retaining it only when caching is enabled.
func (e *Engine) sharedTree() *kdTree {
	if e.tree != nil {
		return e.tree
	}
	t := newKDTree(e.x, e.y, e.z, 0)
	if e.cfg.Cache {
		e.tree = t
	}
	return t
}
