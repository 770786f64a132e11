package workers

import (
	"os"
	"runtime"
	"strconv"
)

// OverrideEnv names the environment variable that pins the worker count.
const OverrideEnv = "INDEX_WORKERS"

// Count returns multiplier workers per available CPU, at least one, capped
// at limit when limit is positive. A valid OverrideEnv value replaces the
// computed count but still respects limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(OverrideEnv); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return capAt(count, limit)
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capAt(workers, limit)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForCPU returns one worker per CPU for hashing-bound work.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns two workers per CPU for work that mostly waits on disk.
func ForIO(limit int) int {
	return Count(2.0, limit)
}
