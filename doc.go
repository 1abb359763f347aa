// Package optics implements density-based spatial clustering of 2D and 3D
// point sets: OPTICS (Ordering Points To Identify the Clustering Structure),
// DBSCAN, and the randomized FastOPTICS variant, plus the LoOP local outlier
// probability score.
//
// An Engine is built once over a set of coordinates and can then run any of
// the algorithms. Neighborhood search is backed by an interchangeable spatial
// index: a uniform grid (the 2D default), radial-pruning grid variants that
// are substituted automatically as the estimated neighborhood density grows,
// a bucketed KD-tree (always used for 3D and for LoOP), and a randomized
// projection space for FastOPTICS.
//
// Basic usage:
//
//	cfg := optics.DefaultConfig()
//	engine, err := optics.NewEngine(xs, ys, area, cfg)
//	result, err := engine.Optics(0, 4) // distance 0 = auto-derived
//	labels := result.ExtractDbscanClustering(result.GeneratingDistance)
//	// labels[i] is the cluster ID for point i (0 = noise)
//
// Or for a plain DBSCAN clustering:
//
//	result, err := engine.Dbscan(0.05, 4)
//	// result.Labels[i] is the cluster ID for point i (0 = noise)
//
// # Determinism
//
// When reachability distances tie, the order in which OPTICS visits points is
// implementation-defined. Config.TieBreak can force strict ascending or
// descending id order among ties, making repeated runs on identical input
// byte-identical; this exists to reproduce the observable ordering of a
// reference implementation and is not needed for a valid clustering.
//
// # Concurrency
//
// Optics and Dbscan are single-threaded and reuse internal state: an Engine
// supports one active pass at a time. FastOptics projections and the LoOP
// stages fan work out across Config.Workers goroutines, joining between
// stages.
package optics
