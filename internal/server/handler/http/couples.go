// Package http provides HTTP handlers for the couple document store.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/CoupleHQ/internal/middleware"
	"github.com/atinyakov/CoupleHQ/internal/models"
	"github.com/atinyakov/CoupleHQ/internal/service"
)

// CoupleService defines the operations required by the CoupleHandler.
type CoupleService interface {
	// Create stores a new couple; an empty id asks the service to generate one.
	Create(ctx context.Context, id string, doc models.CoupleDocument, pin string) (*models.Snapshot, error)
	// Get returns the stored document of a couple.
	Get(ctx context.Context, id string) (*models.Snapshot, error)
	// Update replaces the document of a couple and returns what was stored.
	Update(ctx context.Context, id string, doc models.CoupleDocument) (*models.Snapshot, error)
	// Exists reports whether a couple is stored.
	Exists(ctx context.Context, id string) (bool, error)
	// VerifyPIN checks a PIN against the stored hash.
	VerifyPIN(ctx context.Context, id, pin string) (bool, error)
	// SetPIN replaces the PIN after checking the current one; an empty pin
	// removes it.
	SetPIN(ctx context.Context, id, current, pin string) error
}

const (
	// maxBodyBytes bounds document payloads, which may embed photos.
	maxBodyBytes = 8 << 20
	// maxPINBodyBytes bounds the PIN endpoints.
	maxPINBodyBytes = 1 << 10
)

// CoupleHandler handles HTTP requests for couple documents.
type CoupleHandler struct {
	// CoupleService performs the underlying store operations.
	CoupleService CoupleService
}

// CreateRequest is the JSON payload of POST /api/couples.
type CreateRequest struct {
	// ID is the requested couple ID; empty to let the server pick one.
	ID   string                `json:"id,omitempty"`
	Data models.CoupleDocument `json:"data"`
	// PIN optionally protects the couple from the start.
	PIN string `json:"pin,omitempty"`
}

// CreateResponse is the JSON answer of POST /api/couples.
type CreateResponse struct {
	ID   string                `json:"id"`
	Data models.CoupleDocument `json:"data"`
}

// PINRequest is the JSON payload of the PIN endpoints.
type PINRequest struct {
	PIN string `json:"pin"`
	// CurrentPIN must match the stored PIN when changing or removing it.
	CurrentPIN string `json:"currentPin,omitempty"`
}

// Create handles POST /api/couples.
// It returns 201 with the stored document, or 409 if the ID is taken.
func (h *CoupleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !decodeBody(w, r, maxBodyBytes, &req) {
		return
	}

	snap, err := h.CoupleService.Create(r.Context(), req.ID, req.Data, req.PIN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateResponse{ID: snap.Data.ID, Data: snap.Data})
}

// Get handles GET /api/couples/{coupleID}.
func (h *CoupleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetCoupleIDFromContext(r.Context())
	snap, err := h.CoupleService.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Update handles PUT /api/couples/{coupleID}.
// The body is the full document; the response carries the server stamp.
func (h *CoupleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var doc models.CoupleDocument
	if !decodeBody(w, r, maxBodyBytes, &doc) {
		return
	}

	id := middleware.GetCoupleIDFromContext(r.Context())
	snap, err := h.CoupleService.Update(r.Context(), id, doc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Exists handles GET /api/couples/{coupleID}/exists.
func (h *CoupleHandler) Exists(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetCoupleIDFromContext(r.Context())
	exists, err := h.CoupleService.Exists(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// VerifyPIN handles POST /api/couples/{coupleID}/pin/verify.
func (h *CoupleHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req PINRequest
	if !decodeBody(w, r, maxPINBodyBytes, &req) {
		return
	}

	id := middleware.GetCoupleIDFromContext(r.Context())
	valid, err := h.CoupleService.VerifyPIN(r.Context(), id, req.PIN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// SetPIN handles PUT /api/couples/{coupleID}/pin.
// It returns 403 when a PIN is set and currentPin does not match it.
func (h *CoupleHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	var req PINRequest
	if !decodeBody(w, r, maxPINBodyBytes, &req) {
		return
	}

	id := middleware.GetCoupleIDFromContext(r.Context())
	if err := h.CoupleService.SetPIN(r.Context(), id, req.CurrentPIN, req.PIN); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrCoupleNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrCoupleExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrInvalidPIN):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrPINMismatch):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// decodeBody decodes at most limit bytes of JSON from the request body. It
// writes the error response and returns false when decoding fails.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	http.Error(w, "invalid body", http.StatusBadRequest)
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
