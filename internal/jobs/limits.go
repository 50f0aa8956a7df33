package jobs

// Worker count limits
const (
	MinWorkers     = 1
	MaxWorkers     = 16
	DefaultWorkers = 2
)

// ClampWorkerCount ensures the worker count is within valid bounds.
func ClampWorkerCount(n int) int {
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// IsValidWorkerCount returns true if the worker count is within valid bounds.
func IsValidWorkerCount(n int) bool {
	return n >= MinWorkers && n <= MaxWorkers
}
