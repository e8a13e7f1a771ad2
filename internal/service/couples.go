// Package service provides the business logic of the couple document store,
// delegating persistence to a repository interface.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/CoupleHQ/internal/models"
	"github.com/atinyakov/CoupleHQ/internal/repository"
)

var (
	// ErrCoupleExists is returned when creating a couple whose ID is taken.
	ErrCoupleExists = errors.New("couple already exists")
	// ErrCoupleNotFound is returned when the couple does not exist.
	ErrCoupleNotFound = errors.New("couple not found")
	// ErrInvalidPIN is returned for PINs that cannot be hashed.
	ErrInvalidPIN = errors.New("invalid pin")
	// ErrPINMismatch is returned when changing a PIN without the current one.
	ErrPINMismatch = errors.New("current pin does not match")
)

const generatedIDLength = 12

// CoupleRepository defines the persistence operations needed by the
// CoupleService.
type CoupleRepository interface {
	// Get returns the stored document, or repository.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Snapshot, error)
	// Exists reports whether the couple is stored.
	Exists(ctx context.Context, id string) (bool, error)
	// Create inserts a new couple, or fails with repository.ErrExists.
	Create(ctx context.Context, id, pinHash string, doc models.CoupleDocument, now time.Time) (*models.Snapshot, error)
	// Save replaces the document and returns what was stored.
	Save(ctx context.Context, id string, doc models.CoupleDocument, now time.Time) (*models.Snapshot, error)
	// PINHash returns the stored PIN hash, or repository.ErrNotFound.
	PINHash(ctx context.Context, id string) (string, error)
	// SetPINHash replaces the stored PIN hash.
	SetPINHash(ctx context.Context, id, hash string) error
}

// CoupleService implements the Remote Store operations.
type CoupleService struct {
	repo CoupleRepository
	now  func() time.Time
}

// NewCoupleService constructs a CoupleService with the provided repository.
func NewCoupleService(repo CoupleRepository) *CoupleService {
	return &CoupleService{repo: repo, now: time.Now}
}

// Create stores a new couple. An empty id is replaced by a generated one.
// A non-empty pin, or a plaintext PIN left in the document by older
// clients, is stored as a bcrypt hash.
func (s *CoupleService) Create(ctx context.Context, id string, doc models.CoupleDocument, pin string) (*models.Snapshot, error) {
	if id == "" {
		id = newID()
	}
	if pin == "" {
		pin = doc.Settings.PIN
	}
	hash, err := hashPIN(pin)
	if err != nil {
		return nil, err
	}
	doc.Normalize()

	snap, err := s.repo.Create(ctx, id, hash, doc, s.now().UTC())
	if errors.Is(err, repository.ErrExists) {
		return nil, ErrCoupleExists
	}
	return snap, err
}

// Get returns the document of a couple.
func (s *CoupleService) Get(ctx context.Context, id string) (*models.Snapshot, error) {
	snap, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCoupleNotFound
	}
	return snap, err
}

// Update replaces the document of a couple. The server stamps the write;
// any UpdatedAt sent by the client is ignored.
func (s *CoupleService) Update(ctx context.Context, id string, doc models.CoupleDocument) (*models.Snapshot, error) {
	doc.Normalize()
	return s.repo.Save(ctx, id, doc, s.now().UTC())
}

// Exists reports whether a couple is stored.
func (s *CoupleService) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// VerifyPIN reports whether pin matches the couple's PIN. A couple without a
// PIN accepts any input.
func (s *CoupleService) VerifyPIN(ctx context.Context, id, pin string) (bool, error) {
	hash, err := s.repo.PINHash(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, ErrCoupleNotFound
	}
	if err != nil {
		return false, err
	}
	if hash == "" {
		return true, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil, nil
}

// SetPIN replaces the couple's PIN. An empty pin removes it. When a PIN is
// already set, current must match it.
func (s *CoupleService) SetPIN(ctx context.Context, id, current, pin string) error {
	valid, err := s.VerifyPIN(ctx, id, current)
	if err != nil {
		return err
	}
	if !valid {
		return ErrPINMismatch
	}
	hash, err := hashPIN(pin)
	if err != nil {
		return err
	}
	err = s.repo.SetPINHash(ctx, id, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCoupleNotFound
	}
	return err
}

func hashPIN(pin string) (string, error) {
	if pin == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrInvalidPIN
	}
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:generatedIDLength]
}
