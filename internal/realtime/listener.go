package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
	loadTimeout          = 5 * time.Second
)

// Loader reads the current document of a couple.
type Loader interface {
	Get(ctx context.Context, id string) (*models.Snapshot, error)
}

// Relay turns change notifications into published snapshots.
type Relay struct {
	hub    *Hub
	loader Loader
	log    *zap.Logger
}

// NewRelay returns a relay publishing to hub.
func NewRelay(hub *Hub, loader Loader, log *zap.Logger) *Relay {
	return &Relay{hub: hub, loader: loader, log: log}
}

// Handle loads the document of coupleID and publishes it. Couples nobody
// is subscribed to are skipped without touching the database.
func (r *Relay) Handle(ctx context.Context, coupleID string) {
	if r.hub.Subscribers(coupleID) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	snap, err := r.loader.Get(ctx, coupleID)
	if err != nil {
		r.log.Warn("failed to load changed couple", zap.String("couple_id", coupleID), zap.Error(err))
		return
	}
	r.hub.Publish(coupleID, *snap)
}

// Run handles notifications until ctx ends or the channel is closed. A nil
// notification signals a reconnect of the underlying listener, after which
// changes may have been missed; it is logged and otherwise ignored.
func (r *Relay) Run(ctx context.Context, notifications <-chan *pq.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if n == nil {
				r.log.Info("change listener reconnected")
				continue
			}
			r.Handle(ctx, n.Extra)
		}
	}
}

// Listen subscribes to channel on the Postgres server at dsn and feeds the
// relay until ctx ends.
func Listen(ctx context.Context, dsn, channel string, relay *Relay, log *zap.Logger) error {
	listener := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Warn("change listener event", zap.Int("event", int(ev)), zap.Error(err))
			}
		})
	if err := listener.Listen(channel); err != nil {
		listener.Close()
		return fmt.Errorf("listen %s: %w", channel, err)
	}

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := listener.Ping(); err != nil {
					log.Warn("change listener ping failed", zap.Error(err))
				}
			}
		}
	}()

	go func() {
		defer listener.Close()
		relay.Run(ctx, listener.Notify)
	}()
	return nil
}
