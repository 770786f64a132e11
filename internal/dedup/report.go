package dedup

import (
	"context"
	"path/filepath"
	"sort"

	"virtual-drive/internal/database"
	"virtual-drive/internal/filesystem"
	"virtual-drive/internal/indexer"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/metrics"
)

// ReportOptions filters the duplicate report.
type ReportOptions struct {
	// LiveOnly drops members whose path no longer resolves.
	LiveOnly bool
	// MinSize skips content smaller than this many bytes.
	MinSize int64
}

// Member is one path in a duplicate group.
type Member struct {
	database.FileRecord
	// Link is true when the path is a symlink, or passes through one, and
	// holds no bytes of its own.
	Link bool `json:"link"`
}

// DuplicateGroup is every path sharing one fingerprint.
type DuplicateGroup struct {
	Fingerprint string   `json:"fingerprint"`
	Size        int64    `json:"size"`
	Members     []Member `json:"members"`
	// Copies counts the members that are real files rather than links.
	Copies int `json:"copies"`
	// ReclaimableBytes is what deleting all but one real copy would free.
	ReclaimableBytes int64 `json:"reclaimableBytes"`
}

// FindDuplicates scans the whole index and returns the file fingerprints
// carried by more than one path. Groups are ordered by fingerprint and
// members by path. The scan makes two passes so memory is bounded by the
// number of distinct fingerprints plus the duplicates themselves.
func (s *Service) FindDuplicates(ctx context.Context, opts ReportOptions) ([]DuplicateGroup, error) {
	counts := make(map[string]int)
	cur := s.store.AllRecords()
	for cur.Next(ctx) {
		rec := cur.Record()
		if rec.IsDir() || rec.Size < opts.MinSize {
			continue
		}
		counts[rec.Fingerprint]++
	}
	if err := cur.Err(); err != nil {
		return nil, &indexer.Error{Op: "find duplicates", Kind: indexer.ErrStore, Err: err}
	}

	members := make(map[string][]Member)
	cur = s.store.AllRecords()
	for cur.Next(ctx) {
		rec := cur.Record()
		if rec.IsDir() || counts[rec.Fingerprint] < 2 {
			continue
		}
		if opts.LiveOnly && !filesystem.Exists(rec.Path) {
			continue
		}
		members[rec.Fingerprint] = append(members[rec.Fingerprint], Member{
			FileRecord: rec,
			Link:       filesystem.IsSymlink(rec.Path) || filesystem.LinkBelow(rec.RootScope, filepath.Dir(rec.Path)) != "",
		})
	}
	if err := cur.Err(); err != nil {
		return nil, &indexer.Error{Op: "find duplicates", Kind: indexer.ErrStore, Err: err}
	}

	groups := make([]DuplicateGroup, 0, len(members))
	var reclaimable int64
	for fp, ms := range members {
		if len(ms) < 2 {
			continue
		}
		sort.Slice(ms, func(i, j int) bool { return ms[i].Path < ms[j].Path })

		g := DuplicateGroup{Fingerprint: fp, Members: ms}
		for _, m := range ms {
			if m.Size > g.Size {
				g.Size = m.Size
			}
			if !m.Link {
				g.Copies++
			}
		}
		if g.Copies > 1 {
			g.ReclaimableBytes = int64(g.Copies-1) * g.Size
		}
		reclaimable += g.ReclaimableBytes
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Fingerprint < groups[j].Fingerprint })

	metrics.DuplicateGroups.Set(float64(len(groups)))
	metrics.ReclaimableBytes.Set(float64(reclaimable))
	logging.Debug("Duplicate report: %d groups, %d reclaimable bytes", len(groups), reclaimable)
	return groups, nil
}
