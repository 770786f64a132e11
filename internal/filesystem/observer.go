package filesystem

// RetryEvent is one step of the stale file handle retry loop.
type RetryEvent string

const (
	RetryStale   RetryEvent = "stale"
	RetryAttempt RetryEvent = "attempt"
	RetrySuccess RetryEvent = "success"
	RetryFailure RetryEvent = "failure"
)

// Observer receives what happens on the mounted volumes. volume is the label
// a VolumeResolver gives the path: a root, "cache" or "database".
type Observer interface {
	Operation(volume, op string, seconds float64, err error)
	Retry(volume, op string, event RetryEvent)
	// RetriesExhausted reports the time an operation spent before giving up.
	RetriesExhausted(volume, op string, seconds float64)
	LinkPruned(volume string)
}

var defaultObserver Observer

// SetObserver installs the observer. Without one nothing is recorded.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
