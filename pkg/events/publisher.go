// Package events publishes room and schedule change notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects relative to the configured prefix.
const (
	ScheduleCreated = "schedules.created"
	ScheduleUpdated = "schedules.updated"
	ScheduleDeleted = "schedules.deleted"
	ScheduleStatus  = "schedules.status"
	RoomCreated     = "rooms.created"
	RoomUpdated     = "rooms.updated"
	RoomDeleted     = "rooms.deleted"
	RoomStatus      = "rooms.status"
)

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
}

// Envelope wraps every published payload.
type Envelope struct {
	ID         string      `json:"id"`
	Subject    string      `json:"subject"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// msgConn is the subset of *nats.Conn used by NATSPublisher.
type msgConn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher publishes JSON envelopes to NATS subjects.
type NATSPublisher struct {
	conn   msgConn
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// Connect dials the NATS server and returns a publisher.
func Connect(url, prefix string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("room-scheduling-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newNATSPublisher(conn, prefix, logger), nil
}

func newNATSPublisher(conn msgConn, prefix string, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger,
		now:    time.Now,
	}
}

// Subject returns the fully qualified subject name.
func (p *NATSPublisher) Subject(subject string) string {
	if p.prefix == "" {
		return subject
	}
	return p.prefix + "." + subject
}

// Publish encodes payload in an Envelope and sends it.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := p.Subject(subject)
	body, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Subject:    full,
		OccurredAt: p.now().UTC(),
		Data:       payload,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.conn.Publish(full, body); err != nil {
		return fmt.Errorf("publish %s: %w", full, err)
	}
	p.logger.Debug("event published", zap.String("subject", full))
	return nil
}

// Ping flushes pending messages to confirm the connection is usable.
func (p *NATSPublisher) Ping(ctx context.Context) error {
	return p.conn.FlushWithContext(ctx)
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Noop discards events. Used when ENABLE_EVENTS is false.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, string, interface{}) error { return nil }
