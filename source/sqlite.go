// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: source/sqlite.go
// Summary: SQLite-backed store of persistent memory blocks.
//
// Each block is a bounded address range stored as sparse pages:
//   - blocks(name, base, size, unit_size) describes the range
//   - pages(block, page, data) holds PageSize-byte pages that were written
//
// Pages that were never written read as zero. Block implements
// memory.DataSource, so a saved block can be opened in any view.

package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/framegrace/texelmem/memory"
)

// ErrNoBlock is returned when a named block does not exist.
var ErrNoBlock = errors.New("source: no such block")

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS blocks (
    name TEXT PRIMARY KEY,
    base INTEGER NOT NULL,        -- first address, in units
    size INTEGER NOT NULL,        -- length, in units
    unit_size INTEGER NOT NULL    -- bytes per unit
);

CREATE TABLE IF NOT EXISTS pages (
    block TEXT NOT NULL REFERENCES blocks(name) ON DELETE CASCADE,
    page INTEGER NOT NULL,        -- byte offset / PageSize
    data BLOB NOT NULL,
    PRIMARY KEY (block, page)
);
`

// SQLiteStore holds memory blocks in one database file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// BlockInfo describes a stored block.
type BlockInfo struct {
	Name     string
	Base     memory.Address
	Size     uint64
	UnitSize int
}

// OpenSQLiteStore opens (creating if needed) the store at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(ON)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateBlock defines a block of size units at base. An existing block
// with the same name is replaced and its pages dropped.
func (s *SQLiteStore) CreateBlock(ctx context.Context, name string, base memory.Address, size uint64, unitSize int) (*Block, error) {
	if unitSize < 1 {
		return nil, fmt.Errorf("invalid unit size %d", unitSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE block = ?`, name); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO blocks(name, base, size, unit_size) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET base = excluded.base, size = excluded.size, unit_size = excluded.unit_size`,
		name, int64(base), int64(size), unitSize); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	log.Printf("Source: created block %q at %s (%d units of %d bytes)", name, base, size, unitSize)
	return &Block{store: s, info: BlockInfo{Name: name, Base: base, Size: size, UnitSize: unitSize}}, nil
}

// ImportBlock creates a block holding data at base.
func (s *SQLiteStore) ImportBlock(ctx context.Context, name string, base memory.Address, data []byte, unitSize int) (*Block, error) {
	if unitSize < 1 {
		unitSize = 1
	}
	b, err := s.CreateBlock(ctx, name, base, uint64(len(data)/unitSize), unitSize)
	if err != nil {
		return nil, err
	}
	if err := b.WriteBytes(ctx, base, data[:len(data)/unitSize*unitSize]); err != nil {
		return nil, err
	}
	return b, nil
}

// Block opens a stored block.
func (s *SQLiteStore) Block(ctx context.Context, name string) (*Block, error) {
	var base, size int64
	var unitSize int
	err := s.db.QueryRowContext(ctx,
		`SELECT base, size, unit_size FROM blocks WHERE name = ?`, name).Scan(&base, &size, &unitSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNoBlock, name)
	}
	if err != nil {
		return nil, err
	}
	return &Block{store: s, info: BlockInfo{Name: name, Base: memory.Address(base), Size: uint64(size), UnitSize: unitSize}}, nil
}

// Blocks lists stored blocks ordered by name.
func (s *SQLiteStore) Blocks(ctx context.Context) ([]BlockInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, base, size, unit_size FROM blocks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BlockInfo
	for rows.Next() {
		var info BlockInfo
		var base, size int64
		if err := rows.Scan(&info.Name, &base, &size, &info.UnitSize); err != nil {
			return nil, err
		}
		info.Base, info.Size = memory.Address(base), uint64(size)
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteBlock removes a block and its pages.
func (s *SQLiteStore) DeleteBlock(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM blocks WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrNoBlock, name)
	}
	return nil
}

// Block is one stored address range.
type Block struct {
	store *SQLiteStore
	info  BlockInfo
}

func (b *Block) Info() BlockInfo { return b.info }
func (b *Block) ID() string      { return "sqlite:" + b.info.Name }

// BaseAddress implements memory.BaseAddresser.
func (b *Block) BaseAddress() (memory.Address, bool) { return b.info.Base, true }

// ValidRange implements memory.DataSource.
func (b *Block) ValidRange() (memory.Range, bool) {
	return memory.Range{Start: b.info.Base, End: b.info.Base.Add(b.info.Size)}, true
}

// byteRange converts a unit range to a byte offset range clipped to the
// block. ok is false if nothing overlaps.
func (b *Block) byteRange(address memory.Address, units uint64) (skip, from, to uint64, ok bool) {
	us := uint64(b.info.UnitSize)
	rng, _ := b.ValidRange()
	start := address
	if start < rng.Start {
		skip = uint64(rng.Start-start) * us
		start = rng.Start
	}
	end := address.Add(units)
	if end > rng.End {
		end = rng.End
	}
	if end <= start {
		return 0, 0, 0, false
	}
	return skip, uint64(start-rng.Start) * us, uint64(end-rng.Start) * us, true
}

// ReadBytes implements memory.DataSource. Units outside the block come
// back unreadable.
func (b *Block) ReadBytes(ctx context.Context, address memory.Address, units uint64) ([]memory.MemoryByte, error) {
	out := make([]memory.MemoryByte, units*uint64(b.info.UnitSize))
	skip, from, to, ok := b.byteRange(address, units)
	if !ok {
		return out, nil
	}
	for i := skip; i < skip+(to-from); i++ {
		out[i] = memory.NewByte(0)
	}

	rows, err := b.store.db.QueryContext(ctx,
		`SELECT page, data FROM pages WHERE block = ? AND page BETWEEN ? AND ?`,
		b.info.Name, int64(from/PageSize), int64((to-1)/PageSize))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var page int64
		var data []byte
		if err := rows.Scan(&page, &data); err != nil {
			return nil, err
		}
		pageStart := uint64(page) * PageSize
		for j, v := range data {
			off := pageStart + uint64(j)
			if off < from || off >= to {
				continue
			}
			out[skip+off-from].Value = v
		}
	}
	return out, rows.Err()
}

// WriteBytes implements memory.DataSource. The write is atomic.
func (b *Block) WriteBytes(ctx context.Context, address memory.Address, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	us := uint64(b.info.UnitSize)
	units := (uint64(len(data)) + us - 1) / us
	skip, from, to, ok := b.byteRange(address, units)
	if !ok || skip != 0 || to-from < uint64(len(data)) {
		return fmt.Errorf("%w: %d bytes at %s", ErrOutOfBounds, len(data), address)
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	end := from + uint64(len(data))
	for page := from / PageSize; page <= (end-1)/PageSize; page++ {
		buf := make([]byte, PageSize)
		var stored []byte
		err := tx.QueryRowContext(ctx,
			`SELECT data FROM pages WHERE block = ? AND page = ?`, b.info.Name, int64(page)).Scan(&stored)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		copy(buf, stored)

		pageStart := page * PageSize
		lo := max(from, pageStart)
		hi := min(end, pageStart+PageSize)
		copy(buf[lo-pageStart:hi-pageStart], data[lo-from:hi-from])

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pages(block, page, data) VALUES (?, ?, ?)
			 ON CONFLICT(block, page) DO UPDATE SET data = excluded.data`,
			b.info.Name, int64(page), buf); err != nil {
			return err
		}
	}
	return tx.Commit()
}
