// Package catalog provides a durable, priority-ordered index over the
// records a buffer.Buffer tracks: (priority, hash, size, on_disk).
//
// A SQLite-backed index opened with a single-connection pragma set, in
// the style of a single-process, single-writer store. Query shape
// (Insert/Delete/Update/GetHighestHash/GetLowestMemoryHash/
// GetLowestDiskHash/Full) maps directly onto the methods below.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrUnavailable is returned by any operation when the backing SQLite
// database is missing its schema or signals a hard I/O failure. The
// catalog never attempts to rebuild itself; callers of Push/Pop must
// propagate this to their own callers.
var ErrUnavailable = errors.New("catalog: unavailable")

// Record is one row of the catalog.
type Record struct {
	ID       int64
	Priority uint64
	Hash     string
	Size     uint64
	OnDisk   bool
}

// Catalog is a durable, queryable index over [Record]s, backed by SQLite.
type Catalog struct {
	db            *sql.DB
	maxDiskBytes  uint64
	path          string
	closeUnderlay func() error
}

// Options configures [Open].
type Options struct {
	// Path is the filesystem path of the SQLite database file.
	Path string

	// MaxDiskBytes is the on-disk byte budget used by [Catalog.Full].
	// Must be nonzero.
	MaxDiskBytes uint64
}

// Open opens (creating if necessary) the catalog database at opts.Path
// and ensures its schema exists. It reports a configuration error when
// MaxDiskBytes is zero, and [ErrUnavailable] when the underlying store
// cannot be opened.
func Open(ctx context.Context, opts Options) (*Catalog, error) {
	if opts.MaxDiskBytes == 0 {
		return nil, errors.New("catalog: max disk bytes must be nonzero")
	}

	if opts.Path == "" {
		return nil, errors.New("catalog: path must not be empty")
	}

	db, err := openSqlite(ctx, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	err = ensureSchema(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return &Catalog{
		db:           db,
		maxDiskBytes: opts.MaxDiskBytes,
		path:         opts.Path,
		closeUnderlay: func() error {
			return db.Close()
		},
	}, nil
}

// Close releases the underlying SQLite handle.
func (c *Catalog) Close() error {
	if c == nil || c.closeUnderlay == nil {
		return nil
	}

	return c.closeUnderlay()
}

// Insert appends a new row. Empty hash is silently ignored.
func (c *Catalog) Insert(ctx context.Context, priority uint64, hash string, size uint64, onDisk bool) error {
	if hash == "" {
		return nil
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO `+tableName+` (priority, hash, size, on_disk) VALUES (?, ?, ?, ?)`,
		priority, hash, size, onDisk,
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %w", ErrUnavailable, err)
	}

	return nil
}

// Delete removes all rows matching hash. No-op on empty input or an
// unmatched hash.
func (c *Catalog) Delete(ctx context.Context, hash string) error {
	if hash == "" {
		return nil
	}

	_, err := c.db.ExecContext(ctx, `DELETE FROM `+tableName+` WHERE hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("%w: delete: %w", ErrUnavailable, err)
	}

	return nil
}

// UpdateTier sets the on_disk flag of rows matching hash. No-op on empty
// input or an unmatched hash.
func (c *Catalog) UpdateTier(ctx context.Context, hash string, onDisk bool) error {
	if hash == "" {
		return nil
	}

	_, err := c.db.ExecContext(ctx, `UPDATE `+tableName+` SET on_disk = ? WHERE hash = ?`, onDisk, hash)
	if err != nil {
		return fmt.Errorf("%w: update tier: %w", ErrUnavailable, err)
	}

	return nil
}

// Highest returns the hash of the row with the greatest priority, ties
// broken by on_disk ASC (memory tier wins) then insertion order. Returns
// ("", false, nil) when the catalog has no rows.
func (c *Catalog) Highest(ctx context.Context) (hash string, onDisk bool, err error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT hash, on_disk FROM `+tableName+` ORDER BY priority DESC, on_disk ASC, id ASC LIMIT 1`,
	)

	err = row.Scan(&hash, &onDisk)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("%w: highest: %w", ErrUnavailable, err)
	}

	return hash, onDisk, nil
}

// LowestInMemory returns the hash of the row with the smallest priority
// among rows where on_disk = false; empty if none.
func (c *Catalog) LowestInMemory(ctx context.Context) (string, error) {
	return c.lowestWithTier(ctx, false)
}

// LowestOnDisk returns the hash of the row with the smallest priority
// among rows where on_disk = true; empty if none.
func (c *Catalog) LowestOnDisk(ctx context.Context) (string, error) {
	return c.lowestWithTier(ctx, true)
}

func (c *Catalog) lowestWithTier(ctx context.Context, onDisk bool) (string, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT hash FROM `+tableName+` WHERE on_disk = ? ORDER BY priority ASC, id ASC LIMIT 1`,
		onDisk,
	)

	var hash string

	err := row.Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%w: lowest (on_disk=%v): %w", ErrUnavailable, onDisk, err)
	}

	return hash, nil
}

// Full reports whether the sum of size over on_disk=true rows strictly
// exceeds MaxDiskBytes.
func (c *Catalog) Full(ctx context.Context) (bool, error) {
	bytes, err := c.DiskBytes(ctx)
	if err != nil {
		return false, err
	}

	return bytes > c.maxDiskBytes, nil
}

// DiskCount returns the number of rows with on_disk = true.
func (c *Catalog) DiskCount(ctx context.Context) (int, error) {
	row := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+tableName+` WHERE on_disk = 1`)

	var count int

	err := row.Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: disk count: %w", ErrUnavailable, err)
	}

	return count, nil
}

// DiskBytes returns the sum of size over rows with on_disk = true.
func (c *Catalog) DiskBytes(ctx context.Context) (uint64, error) {
	row := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM `+tableName+` WHERE on_disk = 1`)

	var total uint64

	err := row.Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w: disk bytes: %w", ErrUnavailable, err)
	}

	return total, nil
}

// Exists reports whether any row matches hash. Used by hash minting to
// re-draw on collision.
func (c *Catalog) Exists(ctx context.Context, hash string) (bool, error) {
	row := c.db.QueryRowContext(ctx, `SELECT 1 FROM `+tableName+` WHERE hash = ? LIMIT 1`, hash)

	var found int

	err := row.Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("%w: exists: %w", ErrUnavailable, err)
	}

	return true, nil
}

// Dump returns every row ordered by priority descending, tie-broken the
// same way [Catalog.Highest] is. Used by operator tooling (prismctl
// inspect and prismctl fsck, through buffer.Buffer.Records) to read the
// catalog without reaching into SQLite directly.
func (c *Catalog) Dump(ctx context.Context) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, priority, hash, size, on_disk FROM `+tableName+` ORDER BY priority DESC, on_disk ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: dump: %w", ErrUnavailable, err)
	}

	defer func() { _ = rows.Close() }()

	var records []Record

	for rows.Next() {
		var r Record

		scanErr := rows.Scan(&r.ID, &r.Priority, &r.Hash, &r.Size, &r.OnDisk)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: dump scan: %w", ErrUnavailable, scanErr)
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: dump rows: %w", ErrUnavailable, err)
	}

	return records, nil
}
