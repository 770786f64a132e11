package database

import (
	"context"
	"time"
)

const cursorPageSize = 1000

// Cursor iterates every record in insertion order. It reads in keyset pages,
// so no lock or transaction is held between calls to Next and callers may
// write to the store while iterating.
type Cursor struct {
	d        *Database
	pageSize int
	afterID  int64
	buf      []FileRecord
	pos      int
	cur      FileRecord
	err      error
	done     bool
}

// AllRecords returns a cursor over the whole index.
func (d *Database) AllRecords() *Cursor {
	return &Cursor{d: d, pageSize: cursorPageSize}
}

// Next advances to the next record. It returns false at the end or on error.
func (c *Cursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if c.pos >= len(c.buf) {
		if c.done {
			return false
		}
		if err := ctx.Err(); err != nil {
			c.err = err
			return false
		}
		if err := c.fetch(ctx); err != nil {
			c.err = err
			return false
		}
		if len(c.buf) == 0 {
			return false
		}
	}
	c.cur = c.buf[c.pos]
	c.pos++
	return true
}

// Record returns the current record.
func (c *Cursor) Record() FileRecord {
	return c.cur
}

// Err returns the error that stopped iteration, if any.
func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) fetch(ctx context.Context) error {
	c.d.mu.RLock()
	defer c.d.mu.RUnlock()

	start := time.Now()
	qctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := c.d.db.QueryContext(qctx,
		`SELECT `+recordColumns+` FROM file_index WHERE id > ? ORDER BY id LIMIT ?`, c.afterID, c.pageSize)
	if err != nil {
		recordQuery("cursor_page", start, err)
		return err
	}
	recs, err := scanRecords(rows)
	recordQuery("cursor_page", start, err)
	if err != nil {
		return err
	}

	c.buf = recs
	c.pos = 0
	if len(recs) < c.pageSize {
		c.done = true
	}
	if len(recs) > 0 {
		c.afterID = recs[len(recs)-1].ID
	}
	return nil
}
