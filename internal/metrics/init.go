package metrics

// InitializeMetrics pre-populates the expected label combinations so every
// series is exported from the first scrape. volumes are the filesystem
// volume labels in use.
func InitializeMetrics(volumes []string) {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	volumes = append(volumes, "cache", "database", "unknown")
	for _, vol := range volumes {
		for _, op := range []string{"stat", "lstat", "open", "readdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryDuration.WithLabelValues(vol, op)
			for _, event := range []string{"stale", "attempt", "success", "failure"} {
				FilesystemRetries.WithLabelValues(vol, op, event)
			}
		}
		FilesystemLinksPruned.WithLabelValues(vol)
	}

	for _, kind := range []string{"full", "directory", "scan"} {
		IndexerRunsTotal.WithLabelValues(kind)
		IndexerLastRunTimestamp.WithLabelValues(kind)
		IndexerLastRunDuration.WithLabelValues(kind)
	}
	for _, kind := range []string{"file", "directory"} {
		IndexerRecordsWritten.WithLabelValues(kind)
	}
	for _, reason := range []string{"missing", "broken_link", "outside_root", "removed"} {
		IndexerRecordsDeleted.WithLabelValues(reason)
	}
	for _, stage := range []string{"stat", "fingerprint", "store", "readdir"} {
		IndexerErrors.WithLabelValues(stage)
	}
	for _, m := range []string{"directory", "full", "sketch"} {
		FingerprintDuration.WithLabelValues(m)
	}
	for _, outcome := range []string{"created", "exists", "not_found", "source_missing", "failed"} {
		FlashTransfersTotal.WithLabelValues(outcome)
	}
	for _, outcome := range []string{"success", "conflict", "error"} {
		UploadsTotal.WithLabelValues(outcome)
	}
	for _, t := range []string{"image", "video"} {
		ThumbnailGenerationsTotal.WithLabelValues(t, "success")
		ThumbnailGenerationsTotal.WithLabelValues(t, "error")
		ThumbnailGenerationDuration.WithLabelValues(t)
	}

	for _, op := range []string{"initialize_schema", "upsert_file", "batch_upsert", "get_file_by_path",
		"exists_by_path", "records_by_fingerprint", "children_of", "delete_file", "delete_by_parent",
		"delete_tree", "delete_not_under_roots", "search", "cursor_page", "clear"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, r := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(r)
	}
}
