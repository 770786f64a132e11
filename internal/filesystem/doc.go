/*
Package filesystem wraps the filesystem calls used by the indexer and the
flash-transfer protocol.

Mounted roots are frequently NFS exports, so Stat, Lstat, Open and ReadDir are
retried with exponential backoff when they fail with ESTALE. Any other error is
returned immediately.

Probe classifies a path as live, missing or a broken symlink. The index treats
a symlink as existing only while its target exists:

	state, err := filesystem.Probe(path, filesystem.DefaultRetryConfig())
	if state == filesystem.StateBrokenLink {
	    filesystem.RemoveBrokenLink(path)
	}

Metrics are reported through an Observer registered with SetObserver.
*/
package filesystem
