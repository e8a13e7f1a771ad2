// Package remote is the HTTP and websocket client of the Remote Store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

// ErrNotFound is returned when the couple does not exist remotely.
var ErrNotFound = errors.New("couple not found")

// Client talks to the Remote Store server. A Client with an empty base URL
// is unconfigured and every call is a no-op.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New returns a client for baseURL.
func New(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

// IsConfigured reports whether a remote endpoint is set.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && strings.HasPrefix(c.baseURL, "http")
}

type createRequest struct {
	ID   string                `json:"id,omitempty"`
	Data models.CoupleDocument `json:"data"`
	PIN  string                `json:"pin,omitempty"`
}

type createResponse struct {
	ID   string                `json:"id"`
	Data models.CoupleDocument `json:"data"`
}

type pinRequest struct {
	PIN        string `json:"pin"`
	CurrentPIN string `json:"currentPin,omitempty"`
}

// Fetch returns the remote document or nil when it does not exist.
func (c *Client) Fetch(ctx context.Context, id string) (*models.Snapshot, error) {
	if !c.IsConfigured() {
		return nil, nil
	}
	var snap models.Snapshot
	err := c.do(ctx, http.MethodGet, c.coupleURL(id), nil, &snap)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.Data.ID = id
	snap.Data.Normalize()
	return &snap, nil
}

// Create stores a new couple and returns its ID. An empty id lets the
// server generate one.
func (c *Client) Create(ctx context.Context, id string, doc models.CoupleDocument, pin string) (string, error) {
	if !c.IsConfigured() {
		return id, nil
	}
	var resp createResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/api/couples", createRequest{ID: id, Data: doc, PIN: pin}, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Update replaces the remote document and returns the stored snapshot.
func (c *Client) Update(ctx context.Context, id string, doc models.CoupleDocument) (*models.Snapshot, error) {
	if !c.IsConfigured() {
		return nil, nil
	}
	var snap models.Snapshot
	if err := c.do(ctx, http.MethodPut, c.coupleURL(id), doc, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Exists reports whether the couple exists remotely.
func (c *Client) Exists(ctx context.Context, id string) (bool, error) {
	if !c.IsConfigured() {
		return false, nil
	}
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := c.do(ctx, http.MethodGet, c.coupleURL(id)+"/exists", nil, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// VerifyPIN checks pin against the server-side hash. Without a remote
// every PIN is accepted.
func (c *Client) VerifyPIN(ctx context.Context, id, pin string) (bool, error) {
	if !c.IsConfigured() {
		return true, nil
	}
	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := c.do(ctx, http.MethodPost, c.coupleURL(id)+"/pin/verify", pinRequest{PIN: pin}, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

// SetPIN sets the server-side PIN; an empty pin removes it. current must
// match an existing PIN, otherwise models.ErrWrongPIN is returned.
func (c *Client) SetPIN(ctx context.Context, id, current, pin string) error {
	if !c.IsConfigured() {
		return nil
	}
	return c.do(ctx, http.MethodPut, c.coupleURL(id)+"/pin", pinRequest{PIN: pin, CurrentPIN: current}, nil)
}

func (c *Client) coupleURL(id string) string {
	return c.baseURL + "/api/couples/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusForbidden:
		return models.ErrWrongPIN
	case resp.StatusCode >= 300:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Debug("remote error",
			zap.String("request_id", reqID),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("server error: %s", strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
