// Package natsad publishes sync lifecycle events over NATS. Publishing is
// strictly best-effort: callers log and move on when the bus is down.
package natsad

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"channelsync/internal/domain"
)

type Notifier struct {
	nc *nats.Conn
}

// Connect dials NATS with bounded reconnect behavior. A nil-safe disabled
// notifier is returned when url is empty.
func Connect(url string) (*Notifier, error) {
	if url == "" {
		return &Notifier{}, nil
	}
	nc, err := nats.Connect(url,
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	log.Info().Str("url", url).Msg("nats connected")
	return &Notifier{nc: nc}, nil
}

func (n *Notifier) Publish(_ context.Context, subject string, event domain.SyncEvent) error {
	if n.nc == nil {
		return nil // notifications disabled
	}
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.nc.Publish(subject, b); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

func (n *Notifier) Close() {
	if n.nc != nil {
		n.nc.Close()
	}
}
