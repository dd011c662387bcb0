package suspicion

import "time"

// Additive suspicion score weights. These are fixed heuristics; tests
// verify the arithmetic, not detection accuracy.
const (
	weightVolume        = 35 // total complaints reached 3
	weightRecency       = 25 // 2+ complaints in the recent window
	weightFewDevices    = 20 // devices at or below half the complaint count
	weightManyReporters = 20 // 3+ reporters funneled through <=2 devices

	volumeThreshold        = 3
	recencyThreshold       = 2
	manyReportersThreshold = 3
	fewSharedDevices       = 2

	// recentWindow sizes the recency check.
	recentWindow = 7 * 24 * time.Hour

	// DefaultClusterThreshold is the score at which a complaint joins
	// or starts a cluster.
	DefaultClusterThreshold = 70
)
