// Package cache is the on-device store for couple documents, the offline
// sync queue and device-local metadata.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/CoupleHQ/internal/db"
	"github.com/atinyakov/CoupleHQ/internal/models"
)

// ErrNotFound is returned when a document or metadata key is absent.
var ErrNotFound = errors.New("not found")

// Cache is a SQLite-backed Local Document Cache.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	conn, err := db.InitSQLite(path)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// New wraps an already initialized database.
func New(conn *sql.DB) *Cache {
	return &Cache{db: conn, now: time.Now}
}

// DB exposes the underlying connection for maintenance jobs.
func (c *Cache) DB() *sql.DB {
	return c.db
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached document for id or ErrNotFound.
func (c *Cache) Get(ctx context.Context, id string) (*models.CoupleDocument, error) {
	var data string
	err := c.db.QueryRowContext(ctx, `SELECT data FROM couples WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read couple %s: %w", id, err)
	}

	var doc models.CoupleDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("decode couple %s: %w", id, err)
	}
	doc.ID = id
	doc.Normalize()
	return &doc, nil
}

// Put overwrites the document stored under id.
func (c *Cache) Put(ctx context.Context, id string, doc models.CoupleDocument) error {
	doc.ID = id
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode couple %s: %w", id, err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO couples (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, id, string(data), c.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("write couple %s: %w", id, err)
	}
	return nil
}

// GetMetadata returns the value stored under key or ErrNotFound.
func (c *Cache) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read metadata %s: %w", key, err)
	}
	return value, nil
}

// SetMetadata stores value under key.
func (c *Cache) SetMetadata(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("write metadata %s: %w", key, err)
	}
	return nil
}

// DeleteMetadata removes key. Deleting a missing key is not an error.
func (c *Cache) DeleteMetadata(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete metadata %s: %w", key, err)
	}
	return nil
}
