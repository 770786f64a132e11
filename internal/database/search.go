package database

import (
	"context"
	"strings"
	"time"

	"virtual-drive/internal/mediatypes"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func mediaTypeOf(s string) mediatypes.FileType {
	if s == "" {
		return mediatypes.FileTypeOther
	}
	return mediatypes.FileType(s)
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func orderClause(field mediatypes.SortField, order mediatypes.SortOrder) string {
	dir := "ASC"
	if order == mediatypes.SortDesc {
		dir = "DESC"
	}

	var col string
	switch field {
	case mediatypes.SortBySize:
		col = "size " + dir
	case mediatypes.SortByDate:
		col = "mod_time " + dir
	default:
		col = "name COLLATE NOCASE " + dir
	}
	return "ORDER BY (CASE WHEN kind = 'directory' THEN 0 ELSE 1 END), " + col + ", path ASC"
}

func normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// Search returns one page of records matching opts. Directories sort before files.
func (d *Database) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	page, pageSize := normalizePaging(opts.Page, opts.PageSize)

	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(opts.Query); q != "" {
		where = append(where, `name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q)+"%")
	}
	if opts.Parent != "" {
		where = append(where, "parent_path = ? AND path != ?")
		args = append(args, opts.Parent, opts.Parent)
	}
	if opts.Root != "" {
		where = append(where, "root_scope = ?")
		args = append(args, opts.Root)
	}
	if len(opts.Types) > 0 {
		var types []string
		for _, t := range opts.Types {
			for _, e := range mediatypes.Expand(t) {
				types = append(types, "?")
				args = append(args, string(e))
			}
		}
		where = append(where, "media_type IN ("+strings.Join(types, ",")+")")
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var total int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM file_index "+whereSQL, args...).Scan(&total); err != nil {
		recordQuery("search", start, err)
		return nil, err
	}

	query := "SELECT " + recordColumns + " FROM file_index " + whereSQL + " " +
		orderClause(opts.SortField, opts.SortOrder) + " LIMIT ? OFFSET ?"
	rows, err := d.db.QueryContext(ctx, query, append(args, pageSize, (page-1)*pageSize)...)
	if err != nil {
		recordQuery("search", start, err)
		return nil, err
	}
	items, err := scanRecords(rows)
	recordQuery("search", start, err)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []FileRecord{}
	}

	return &SearchResult{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// Recent returns the most recently modified files.
func (d *Database) Recent(ctx context.Context, limit int) ([]FileRecord, error) {
	_, limit = normalizePaging(1, limit)

	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM file_index WHERE kind = 'file' ORDER BY mod_time DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		recordQuery("recent", start, err)
		return nil, err
	}
	recs, err := scanRecords(rows)
	recordQuery("recent", start, err)
	return recs, err
}

// GetStats summarizes the index.
func (d *Database) GetStats(ctx context.Context) (*Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats := &Stats{ByMediaType: make(map[mediatypes.FileType]int64)}
	err := d.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = 'file' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'directory' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'file' THEN size ELSE 0 END), 0),
			COUNT(DISTINCT CASE WHEN kind = 'file' THEN fingerprint END)
		FROM file_index`).Scan(&stats.Files, &stats.Directories, &stats.TotalBytes, &stats.Fingerprints)
	if err != nil {
		recordQuery("get_stats", start, err)
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT media_type, COUNT(*) FROM file_index WHERE kind = 'file' GROUP BY media_type`)
	if err != nil {
		recordQuery("get_stats", start, err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			recordQuery("get_stats", start, err)
			return nil, err
		}
		stats.ByMediaType[mediaTypeOf(t)] = n
	}
	err = rows.Err()
	recordQuery("get_stats", start, err)
	return stats, err
}

// RootUsage summarizes records per mounted root.
func (d *Database) RootUsage(ctx context.Context) ([]RootUsage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT root_scope,
			SUM(CASE WHEN kind = 'file' THEN 1 ELSE 0 END),
			SUM(CASE WHEN kind = 'directory' THEN 1 ELSE 0 END),
			SUM(CASE WHEN kind = 'file' THEN size ELSE 0 END)
		FROM file_index GROUP BY root_scope ORDER BY root_scope`)
	if err != nil {
		recordQuery("root_usage", start, err)
		return nil, err
	}
	defer rows.Close()

	var out []RootUsage
	for rows.Next() {
		var u RootUsage
		if err := rows.Scan(&u.Root, &u.Files, &u.Directories, &u.Bytes); err != nil {
			recordQuery("root_usage", start, err)
			return nil, err
		}
		out = append(out, u)
	}
	err = rows.Err()
	recordQuery("root_usage", start, err)
	return out, err
}
