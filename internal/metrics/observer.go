package metrics

import "virtual-drive/internal/filesystem"

type volumeObserver struct{}

// NewFilesystemObserver records filesystem events into the Filesystem* vectors.
func NewFilesystemObserver() filesystem.Observer {
	return volumeObserver{}
}

func (volumeObserver) Operation(volume, op string, seconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, op).Observe(seconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, op).Inc()
	}
}

func (volumeObserver) Retry(volume, op string, event filesystem.RetryEvent) {
	FilesystemRetries.WithLabelValues(volume, op, string(event)).Inc()
}

func (volumeObserver) RetriesExhausted(volume, op string, seconds float64) {
	FilesystemRetryDuration.WithLabelValues(volume, op).Observe(seconds)
}

func (volumeObserver) LinkPruned(volume string) {
	FilesystemLinksPruned.WithLabelValues(volume).Inc()
}
