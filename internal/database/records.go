package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const recordColumns = `id, path, name, fingerprint, parent_path, root_scope, kind, media_type, size, mod_time, indexed_at`

const upsertSQL = `
	INSERT INTO file_index (path, name, fingerprint, parent_path, root_scope, kind, media_type, size, mod_time, indexed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		name = excluded.name,
		fingerprint = excluded.fingerprint,
		parent_path = excluded.parent_path,
		root_scope = excluded.root_scope,
		kind = excluded.kind,
		media_type = excluded.media_type,
		size = excluded.size,
		mod_time = excluded.mod_time,
		indexed_at = excluded.indexed_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (FileRecord, error) {
	var (
		rec       FileRecord
		kind      string
		mediaType string
		modTime   int64
		indexedAt int64
	)
	if err := s.Scan(&rec.ID, &rec.Path, &rec.Name, &rec.Fingerprint, &rec.ParentPath, &rec.RootScope,
		&kind, &mediaType, &rec.Size, &modTime, &indexedAt); err != nil {
		return FileRecord{}, err
	}
	rec.Kind = Kind(kind)
	rec.MediaType = mediaTypeOf(mediaType)
	rec.ModTime = time.Unix(0, modTime)
	rec.IndexedAt = time.Unix(indexedAt, 0)
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]FileRecord, error) {
	defer rows.Close()
	var out []FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func upsertArgs(rec *FileRecord) []any {
	if rec.IndexedAt.IsZero() {
		rec.IndexedAt = time.Now()
	}
	return []any{
		rec.Path, rec.Name, rec.Fingerprint, rec.ParentPath, rec.RootScope,
		string(rec.Kind), string(rec.MediaType), rec.Size, rec.ModTime.UnixNano(), rec.IndexedAt.Unix(),
	}
}

func validateRecord(rec *FileRecord) error {
	switch {
	case rec.Path == "":
		return errors.New("record path is empty")
	case rec.Fingerprint == "":
		return fmt.Errorf("record %s has no fingerprint", rec.Path)
	case rec.Kind != KindFile && rec.Kind != KindDirectory:
		return fmt.Errorf("record %s has invalid kind %q", rec.Path, rec.Kind)
	}
	return nil
}

// Upsert inserts rec or fully replaces the row with the same path.
func (d *Database) Upsert(ctx context.Context, rec *FileRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, upsertSQL, upsertArgs(rec)...)
	recordQuery("upsert_file", start, err)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.Path, err)
	}
	return nil
}

// UpsertBatch writes all records in a single transaction.
func (d *Database) UpsertBatch(ctx context.Context, recs []FileRecord) error {
	if len(recs) == 0 {
		return nil
	}
	for i := range recs {
		if err := validateRecord(&recs[i]); err != nil {
			return err
		}
	}

	return d.inTx(ctx, "batch_upsert", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range recs {
			if _, err := stmt.ExecContext(ctx, upsertArgs(&recs[i])...); err != nil {
				return fmt.Errorf("upsert %s: %w", recs[i].Path, err)
			}
		}
		return nil
	})
}

// Get returns the record stored for path, or ErrNotFound.
func (d *Database) Get(ctx context.Context, path string) (*FileRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM file_index WHERE path = ?`, path)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	recordQuery("get_file_by_path", start, err)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ExistsByPath reports whether path is indexed.
func (d *Database) ExistsByPath(ctx context.Context, path string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var one int
	err := d.db.QueryRowContext(ctx, `SELECT 1 FROM file_index WHERE path = ?`, path).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("exists_by_path", start, nil)
		return false, nil
	}
	recordQuery("exists_by_path", start, err)
	if err != nil {
		return false, err
	}
	return true, nil
}

// FingerprintByPath returns the fingerprint stored for path, or ErrNotFound.
func (d *Database) FingerprintByPath(ctx context.Context, path string) (string, error) {
	rec, err := d.Get(ctx, path)
	if err != nil {
		return "", err
	}
	return rec.Fingerprint, nil
}

// RecordsByFingerprint returns every record carrying fp in insertion order.
func (d *Database) RecordsByFingerprint(ctx context.Context, fp string) ([]FileRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM file_index WHERE fingerprint = ? ORDER BY id`, fp)
	if err != nil {
		recordQuery("records_by_fingerprint", start, err)
		return nil, err
	}
	recs, err := scanRecords(rows)
	recordQuery("records_by_fingerprint", start, err)
	return recs, err
}

// PathsByFingerprint returns every path carrying fp in insertion order.
func (d *Database) PathsByFingerprint(ctx context.Context, fp string) ([]string, error) {
	recs, err := d.RecordsByFingerprint(ctx, fp)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(recs))
	for i, r := range recs {
		paths[i] = r.Path
	}
	return paths, nil
}

// PathByFingerprintUnderParent returns the first path carrying fp among the
// direct children of parent, or ErrNotFound.
func (d *Database) PathByFingerprintUnderParent(ctx context.Context, fp, parent string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var path string
	err := d.db.QueryRowContext(ctx,
		`SELECT path FROM file_index WHERE fingerprint = ? AND parent_path = ? ORDER BY id LIMIT 1`,
		fp, parent).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	recordQuery("path_by_fingerprint_under_parent", start, err)
	if err != nil {
		return "", err
	}
	return path, nil
}

// ChildrenOf returns the direct children of parent, directories first, then by name.
func (d *Database) ChildrenOf(ctx context.Context, parent string) ([]FileRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM file_index
		WHERE parent_path = ? AND path != ?
		ORDER BY (CASE WHEN kind = 'directory' THEN 0 ELSE 1 END), name COLLATE NOCASE, path`,
		parent, parent)
	if err != nil {
		recordQuery("children_of", start, err)
		return nil, err
	}
	recs, err := scanRecords(rows)
	recordQuery("children_of", start, err)
	return recs, err
}

// ChildFingerprints returns path -> fingerprint for the direct children of parent.
func (d *Database) ChildFingerprints(ctx context.Context, parent string) (map[string]string, error) {
	recs, err := d.ChildrenOf(ctx, parent)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(recs))
	for _, r := range recs {
		out[r.Path] = r.Fingerprint
	}
	return out, nil
}

func (d *Database) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, query, args...)
	recordQuery(op, start, err)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes the record for path and reports whether one existed.
func (d *Database) Delete(ctx context.Context, path string) (bool, error) {
	n, err := d.exec(ctx, "delete_file", `DELETE FROM file_index WHERE path = ?`, path)
	return n > 0, err
}

// DeleteByParent removes the direct children of parent and returns how many rows went.
func (d *Database) DeleteByParent(ctx context.Context, parent string) (int64, error) {
	return d.exec(ctx, "delete_by_parent",
		`DELETE FROM file_index WHERE parent_path = ? AND path != ?`, parent, parent)
}

// DeleteTree removes path and every record below it.
func (d *Database) DeleteTree(ctx context.Context, path string) (int64, error) {
	lo, hi := subtreeBounds(path)
	return d.exec(ctx, "delete_tree",
		`DELETE FROM file_index WHERE path = ? OR (path >= ? AND path < ?)`, path, lo, hi)
}

// DeleteNotUnderRoots removes every record whose root scope is not one of roots.
func (d *Database) DeleteNotUnderRoots(ctx context.Context, roots []string) (int64, error) {
	if len(roots) == 0 {
		return d.exec(ctx, "delete_not_under_roots", `DELETE FROM file_index`)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(roots)), ",")
	args := make([]any, len(roots))
	for i, r := range roots {
		args[i] = r
	}
	return d.exec(ctx, "delete_not_under_roots",
		`DELETE FROM file_index WHERE root_scope NOT IN (`+placeholders+`)`, args...)
}

// DeleteByRoot removes every record belonging to root.
func (d *Database) DeleteByRoot(ctx context.Context, root string) (int64, error) {
	return d.exec(ctx, "delete_by_root", `DELETE FROM file_index WHERE root_scope = ?`, root)
}

// Clear removes every record.
func (d *Database) Clear(ctx context.Context) error {
	_, err := d.exec(ctx, "clear", `DELETE FROM file_index`)
	return err
}

// subtreeBounds returns a half-open range [lo, hi) covering every path
// strictly below dir. '0' is the byte after '/', so the range is exact and
// case-sensitive, unlike LIKE.
func subtreeBounds(dir string) (string, string) {
	dir = strings.TrimSuffix(dir, "/")
	return dir + "/", dir + "0"
}
