package http

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/middleware"
	"github.com/atinyakov/CoupleHQ/internal/models"
)

const writeTimeout = 5 * time.Second

// Subscriber registers realtime listeners for a couple.
type Subscriber interface {
	Subscribe(coupleID string) (<-chan models.Snapshot, func())
}

// RealtimeHandler streams document changes over a websocket.
type RealtimeHandler struct {
	Hub Subscriber
	// OriginPatterns lists the browser origins allowed to connect.
	OriginPatterns []string
	Logger         *zap.Logger
}

// Subscribe handles GET /api/couples/{coupleID}/subscribe. Every change to
// the couple is written as one JSON snapshot message until either side
// closes the connection.
func (h *RealtimeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetCoupleIDFromContext(r.Context())

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.OriginPatterns,
	})
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", zap.String("couple_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	changes, cancel := h.Hub.Subscribe(id)
	defer cancel()

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-changes:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, snap)
			cancelWrite()
			if err != nil {
				h.Logger.Debug("realtime write failed", zap.String("couple_id", id), zap.Error(err))
				return
			}
		}
	}
}
