package handlers

import (
	"net/http"

	"github.com/boostgo/fsx"
	"github.com/dustin/go-humanize"

	"virtual-drive/internal/database"
	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/indexer"
	"virtual-drive/internal/logging"
)

// RootStats is the usage of one mounted root.
type RootStats struct {
	database.RootUsage
	BytesHuman string `json:"bytesHuman"`
	// DiskBytes is measured on disk and only present with COUNT_DIR_SIZE.
	DiskBytes      *int64 `json:"diskBytes,omitempty"`
	DiskBytesHuman string `json:"diskBytesHuman,omitempty"`
	// Volume is the capacity of the filesystem the root lives on.
	Volume *filesystem.Capacity `json:"volume,omitempty"`
}

// StatsResponse summarizes the index.
type StatsResponse struct {
	*database.Stats
	TotalBytesHuman string               `json:"totalBytesHuman"`
	Roots           []RootStats          `json:"roots"`
	Health          indexer.HealthStatus `json:"health"`
}

// GetStats returns index totals, per-root usage and volume capacity.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.db.GetStats(ctx)
	if err != nil {
		writeError(w, r, &indexer.Error{Op: "stats", Kind: indexer.ErrStore, Err: err})
		return
	}
	usage, err := h.db.RootUsage(ctx)
	if err != nil {
		writeError(w, r, &indexer.Error{Op: "stats", Kind: indexer.ErrStore, Err: err})
		return
	}

	resp := StatsResponse{
		Stats:           stats,
		TotalBytesHuman: humanize.IBytes(uint64(stats.TotalBytes)),
		Roots:           make([]RootStats, 0, len(usage)),
		Health:          h.indexer.GetHealthStatus(),
	}
	for _, u := range usage {
		rs := RootStats{RootUsage: u, BytesHuman: humanize.IBytes(uint64(u.Bytes))}
		if h.countDirSize {
			if size, err := fsx.CalculateDirectorySize(u.Root); err != nil {
				logging.Warn("Failed to measure %s: %v", u.Root, err)
			} else {
				rs.DiskBytes = &size
				rs.DiskBytesHuman = humanize.IBytes(uint64(size))
			}
		}
		if c, err := filesystem.VolumeCapacity(u.Root); err != nil {
			logging.Debug("No capacity for %s: %v", u.Root, err)
		} else {
			rs.Volume = &c
		}
		resp.Roots = append(resp.Roots, rs)
	}

	writeJSON(w, resp)
}
