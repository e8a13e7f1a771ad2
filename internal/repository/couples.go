// Package repository provides persistence implementations for the couple
// document store using a PostgreSQL database.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

// ChangeChannel is the LISTEN/NOTIFY channel that carries the ID of every
// couple whose document was written.
const ChangeChannel = "couple_changes"

var (
	// ErrNotFound is returned when no couple has the requested ID.
	ErrNotFound = errors.New("couple not found")
	// ErrExists is returned by Create when the ID is already taken.
	ErrExists = errors.New("couple already exists")
)

// PostgresCoupleRepository stores one JSON document per couple.
type PostgresCoupleRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresCoupleRepository creates a new PostgresCoupleRepository using the
// provided *sql.DB. db must be a valid connection to a PostgreSQL instance.
func NewPostgresCoupleRepository(db *sql.DB) *PostgresCoupleRepository {
	return &PostgresCoupleRepository{DB: db}
}

// Get retrieves the document of a couple together with its server stamp.
// The PIN hash is never part of the document; Settings.PINProtected tells
// whether one is stored.
//
//	ctx: context for cancellation and deadlines
//	id:  couple identifier
//
// Returns ErrNotFound if the couple does not exist.
func (r *PostgresCoupleRepository) Get(ctx context.Context, id string) (*models.Snapshot, error) {
	var (
		data      []byte
		updatedAt time.Time
		protected bool
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT data, updated_at, COALESCE(pin_hash, '') <> '' FROM couples WHERE id = $1
	`, id).Scan(&data, &updatedAt, &protected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get failed: %w", err)
	}
	snap, err := decodeSnapshot(id, data, updatedAt)
	if err != nil {
		return nil, err
	}
	setPINProtected(&snap.Data, protected)
	return snap, nil
}

// Exists reports whether a couple with the given ID is stored.
func (r *PostgresCoupleRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM couples WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("Exists failed: %w", err)
	}
	return exists, nil
}

// Create inserts a new couple. The document is stored with its UpdatedAt
// set to now.
//
//	ctx:     context for cancellation and deadlines
//	id:      couple identifier
//	pinHash: bcrypt hash of the access PIN, empty for none
//	doc:     initial document
//	now:     server time used as the first stamp
//
// Returns ErrExists if the ID is already taken.
func (r *PostgresCoupleRepository) Create(ctx context.Context, id, pinHash string, doc models.CoupleDocument, now time.Time) (*models.Snapshot, error) {
	setPINProtected(&doc, false)
	doc.ID = ""
	doc.UpdatedAt = models.NewTimestamp(now)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO couples (id, pin_hash, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO NOTHING
	`, id, pinHash, data, now)
	if err != nil {
		return nil, fmt.Errorf("Create failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrExists
	}

	doc.ID = id
	setPINProtected(&doc, pinHash != "")
	return &models.Snapshot{Data: doc, UpdatedAt: doc.UpdatedAt}, nil
}

// Save replaces the document of a couple within a transaction and notifies
// listeners on ChangeChannel. The stored stamp never decreases: it is the
// later of now and the previous stamp. A couple that does not exist yet is
// inserted, so documents created offline can be uploaded later.
//
//	ctx: context for cancellation and deadlines
//	id:  couple identifier
//	doc: full replacement document
//	now: server time
//
// Returns the stored snapshot.
func (r *PostgresCoupleRepository) Save(ctx context.Context, id string, doc models.CoupleDocument, now time.Time) (*models.Snapshot, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		previous  time.Time
		protected bool
	)
	err = tx.QueryRowContext(ctx, `
		SELECT updated_at, COALESCE(pin_hash, '') <> '' FROM couples WHERE id = $1 FOR UPDATE
	`, id).Scan(&previous, &protected)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lock couple: %w", err)
	}

	stamp := now
	if previous.After(stamp) {
		stamp = previous
	}
	setPINProtected(&doc, false)
	doc.ID = ""
	doc.UpdatedAt = models.NewTimestamp(stamp)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	if exists {
		_, err = tx.ExecContext(ctx, `
			UPDATE couples SET data = $2, updated_at = $3 WHERE id = $1
		`, id, data, stamp)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO couples (id, pin_hash, data, created_at, updated_at)
			VALUES ($1, '', $2, $3, $3)
		`, id, data, stamp)
	}
	if err != nil {
		return nil, fmt.Errorf("write couple: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, ChangeChannel, id); err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	doc.ID = id
	setPINProtected(&doc, protected)
	return &models.Snapshot{Data: doc, UpdatedAt: doc.UpdatedAt}, nil
}

// PINHash returns the stored PIN hash of a couple, empty when no PIN is set.
func (r *PostgresCoupleRepository) PINHash(ctx context.Context, id string) (string, error) {
	var hash sql.NullString
	err := r.DB.QueryRowContext(ctx, `
		SELECT pin_hash FROM couples WHERE id = $1
	`, id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("PINHash failed: %w", err)
	}
	return hash.String, nil
}

// SetPINHash replaces the stored PIN hash of a couple.
func (r *PostgresCoupleRepository) SetPINHash(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE couples SET pin_hash = $2 WHERE id = $1
	`, id, hash)
	if err != nil {
		return fmt.Errorf("SetPINHash failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeSnapshot(id string, data []byte, updatedAt time.Time) (*models.Snapshot, error) {
	var doc models.CoupleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc.ID = id
	doc.Normalize()
	stamp := models.NewTimestamp(updatedAt)
	doc.UpdatedAt = stamp
	return &models.Snapshot{Data: doc, UpdatedAt: stamp}, nil
}

// setPINProtected drops PIN secrets from doc. The hash lives in the
// pin_hash column only.
func setPINProtected(doc *models.CoupleDocument, protected bool) {
	doc.Settings = doc.Settings.WithoutPINSecrets()
	doc.Settings.PINProtected = protected
}
