package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"virtual-drive/internal/logging"
	"virtual-drive/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database is the SQLite-backed index store.
type Database struct {
	db     *sql.DB
	dbPath string
	// mu serializes writers for the duration of one statement or transaction.
	// It is never held across calls.
	mu sync.RWMutex
}

// New opens (creating if necessary) the index database at dbPath.
// dbPath is the database FILE; its parent directory must exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors under concurrent writers
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	metrics.DBConnectionsOpen.Set(float64(db.Stats().OpenConnections))
	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS file_index (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		parent_path TEXT NOT NULL,
		root_scope TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('file', 'directory')),
		media_type TEXT NOT NULL DEFAULT 'other',
		size INTEGER NOT NULL DEFAULT 0,
		mod_time INTEGER NOT NULL DEFAULT 0,
		indexed_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_file_index_fingerprint ON file_index(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_file_index_parent ON file_index(parent_path);
	CREATE INDEX IF NOT EXISTS idx_file_index_root ON file_index(root_scope);
	CREATE INDEX IF NOT EXISTS idx_file_index_name ON file_index(name COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_file_index_media_type ON file_index(media_type);
	CREATE INDEX IF NOT EXISTS idx_file_index_mod_time ON file_index(mod_time);
	CREATE INDEX IF NOT EXISTS idx_file_index_fp_parent ON file_index(fingerprint, parent_path);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
`

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	d.mu.Lock()
	_, err := d.db.ExecContext(ctx, schema)
	d.mu.Unlock()
	recordQuery("initialize_schema", start, err)
	return err
}

// Close closes the underlying database handle.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// inTx runs fn inside a transaction under the writer lock. fn's error rolls
// the transaction back; a rollback failure is joined onto it.
func (d *Database) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	defer func() { recordQuery(op, start, err) }()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err = fn(tx); err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(time.Since(start).Seconds())
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(time.Since(start).Seconds())
	return nil
}

// recordQuery records the outcome and latency of one database operation.
func recordQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, sql.ErrNoRows) {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// FileSizes reports the size of the database and its WAL/SHM side files.
func (d *Database) FileSizes() map[string]int64 {
	sizes := make(map[string]int64, 3)
	for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
		if info, err := os.Stat(d.dbPath + suffix); err == nil {
			sizes[label] = info.Size()
		}
	}
	return sizes
}

func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("%s is read-only (mode %v), writes will fail", p, info.Mode())
			if chmodErr := os.Chmod(p, 0o600); chmodErr != nil {
				logging.Error("Failed to fix permissions on %s: %v", p, chmodErr)
			} else {
				logging.Info("Fixed permissions on %s", p)
			}
		}
	}
	return nil
}
