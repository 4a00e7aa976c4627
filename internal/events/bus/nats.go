package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/missionctl/missionctl/internal/common/config"
	"github.com/missionctl/missionctl/internal/common/logger"
)

// NATSEventBus implements EventBus on top of a NATS connection.
type NATSEventBus struct {
	conn   *nats.Conn
	logger *logger.Logger
}

// Ensure NATSEventBus implements EventBus
var _ EventBus = (*NATSEventBus)(nil)

// NewNATSEventBus connects to NATS using the given configuration.
func NewNATSEventBus(cfg config.NATSConfig, log *logger.Logger) (*NATSEventBus, error) {
	opts := []nats.Option{
		nats.Name("missionctl-resource-manager"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWaitDuration()),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	return &NATSEventBus{conn: conn, logger: log}, nil
}

// Conn exposes the underlying connection for collaborators that need
// JetStream access (e.g. the KV document store).
func (b *NATSEventBus) Conn() *nats.Conn {
	return b.conn
}

// Publish publishes an event to a subject.
func (b *NATSEventBus) Publish(ctx context.Context, subject string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe subscribes to a subject. NATS wildcards ("*", ">") are supported.
func (b *NATSEventBus) Subscribe(subject string, handler EventHandler) (Subscription, error) {
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		b.dispatch(msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return &natsSubscription{sub: sub}, nil
}

// QueueSubscribe subscribes to a subject as part of a queue group.
func (b *NATSEventBus) QueueSubscribe(subject, queue string, handler EventHandler) (Subscription, error) {
	sub, err := b.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		b.dispatch(msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to queue-subscribe to %s: %w", subject, err)
	}
	return &natsSubscription{sub: sub}, nil
}

// Request performs a request/reply exchange.
func (b *NATSEventBus) Request(ctx context.Context, subject string, event *Event, timeout time.Duration) (*Event, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := b.conn.RequestWithContext(reqCtx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", subject, err)
	}

	var reply Event
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reply: %w", err)
	}
	return &reply, nil
}

// Close drains and closes the connection.
func (b *NATSEventBus) Close() {
	if err := b.conn.Drain(); err != nil {
		b.logger.Warn("NATS drain failed", zap.Error(err))
	}
	b.conn.Close()
}

// IsConnected reports whether the connection is currently up.
func (b *NATSEventBus) IsConnected() bool {
	return b.conn.IsConnected()
}

func (b *NATSEventBus) dispatch(msg *nats.Msg, handler EventHandler) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		b.logger.Warn("Dropping malformed event",
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return
	}
	handler(&event)
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s *natsSubscription) Unsubscribe() error {
	return s.sub.Unsubscribe()
}
