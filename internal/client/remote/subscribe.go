package remote

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

const (
	dialTimeout    = 10 * time.Second
	reconnectDelay = 2 * time.Second
)

// Subscribe opens the realtime feed for id and calls onChange for every
// document the server publishes. The feed reconnects after transient
// failures until the returned unsubscribe func is called or ctx ends.
func (c *Client) Subscribe(ctx context.Context, id string, onChange func(models.Snapshot)) (func(), error) {
	if !c.IsConfigured() {
		return func() {}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	conn, err := c.dial(ctx, id)
	if err != nil {
		cancel()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			c.readLoop(ctx, conn, id, onChange)
			if ctx.Err() != nil {
				return
			}
			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(reconnectDelay):
				}
				conn, err = c.dial(ctx, id)
				if err == nil {
					break
				}
				c.log.Warn("realtime reconnect failed", zap.String("couple_id", id), zap.Error(err))
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

func (c *Client) dial(ctx context.Context, id string) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	// The dial context bounds the handshake; a client-wide timeout would
	// also cut the long-lived connection.
	hc := *c.http
	hc.Timeout = 0

	conn, _, err := websocket.Dial(dialCtx, c.coupleURL(id)+"/subscribe", &websocket.DialOptions{HTTPClient: &hc})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, id string, onChange func(models.Snapshot)) {
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
				c.log.Info("realtime connection lost", zap.String("couple_id", id), zap.Error(err))
			}
			return
		}

		var snap models.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			c.log.Warn("invalid realtime message", zap.Error(err))
			continue
		}
		snap.Data.ID = id
		snap.Data.Normalize()
		onChange(snap)
	}
}
