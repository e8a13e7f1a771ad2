package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

func scopedRouter(next http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/couples/{coupleID}", func(r chi.Router) {
		r.Use(CoupleScope)
		r.Handle("/*", next)
		r.Handle("/", next)
	})
	return r
}

func TestCoupleScope_ValidID(t *testing.T) {
	dummy := &dummyHandler{}
	h := scopedRouter(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/couples/maryjohn/exists", nil)
	h.ServeHTTP(rec, req)

	if !dummy.called {
		t.Fatal("expected next handler to be called for a valid couple id")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 OK, got %d", rec.Code)
	}
	if id := GetCoupleIDFromContext(dummy.ctx); id != "maryjohn" {
		t.Errorf("expected context couple 'maryjohn', got '%s'", id)
	}
}

func TestCoupleScope_InvalidID(t *testing.T) {
	dummy := &dummyHandler{}
	h := scopedRouter(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/couples/not%20valid!/exists", nil)
	h.ServeHTTP(rec, req)

	if dummy.called {
		t.Error("did not expect next handler to be called for a malformed couple id")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 Bad Request, got %d", rec.Code)
	}
}

func TestCoupleScope_MissingParam(t *testing.T) {
	dummy := &dummyHandler{}
	h := CoupleScope(dummy)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/couples", nil)
	h.ServeHTTP(rec, req)

	if dummy.called {
		t.Error("did not expect next handler to be called without a couple id")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 Bad Request, got %d", rec.Code)
	}
}

func TestGetCoupleIDFromContext(t *testing.T) {
	// no value
	empty := GetCoupleIDFromContext(context.Background())
	if empty != "" {
		t.Errorf("expected empty string for missing couple, got '%s'", empty)
	}
	// with value
	ctx := context.WithValue(context.Background(), coupleKey, "abc")
	val := GetCoupleIDFromContext(ctx)
	if val != "abc" {
		t.Errorf("expected 'abc', got '%s'", val)
	}
}
