package changefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Channel is the NOTIFY channel written by the portal_notify_change trigger.
const Channel = "portal_changes"

// Listener bridges Postgres LISTEN/NOTIFY into a Hub.
type Listener struct {
	pool    *pgxpool.Pool
	hub     Publisher
	logger  zerolog.Logger
	backoff time.Duration
}

func NewListener(pool *pgxpool.Pool, hub Publisher, logger zerolog.Logger) *Listener {
	return &Listener{
		pool:    pool,
		hub:     hub,
		logger:  logger.With().Str("component", "changefeed").Logger(),
		backoff: 2 * time.Second,
	}
}

// Run listens until ctx is cancelled, reconnecting after failures.
func (l *Listener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn().Err(err).Dur("retry_in", l.backoff).Msg("change listener stopped")
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("listen %s: %w", Channel, err)
	}
	l.logger.Info().Str("channel", Channel).Msg("listening for record changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		event, ok := ParseNotification(n)
		if !ok {
			l.logger.Debug().Str("payload", n.Payload).Msg("ignoring malformed change payload")
			continue
		}
		_ = l.hub.Publish(ctx, event)
	}
}

// ParseNotification decodes a payload of the form
// {"table":"patients","op":"insert","id":"..."}.
func ParseNotification(n *pgconn.Notification) (Event, bool) {
	if n == nil || !gjson.Valid(n.Payload) {
		return Event{}, false
	}
	p := gjson.Parse(n.Payload)
	table := p.Get("table").String()
	if table == "" {
		return Event{}, false
	}
	return Event{
		Type:      p.Get("op").String(),
		Topic:     table,
		RecordID:  p.Get("id").String(),
		Timestamp: time.Now().UTC(),
	}, true
}
