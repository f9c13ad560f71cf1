package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Broker is a long-lived connection to a message broker. Exchanges are
// provisioned elsewhere; Publish only writes.
type Broker interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// Publisher delivers envelopes at most once. A circuit breaker stops calling
// the broker after repeated failures so callers fail fast while it is down.
type Publisher struct {
	broker   Broker
	exchange string
	cb       *gobreaker.CircuitBreaker[struct{}]
}

type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

func NewPublisher(broker Broker, exchange string, bs BreakerSettings) *Publisher {
	if bs.ConsecutiveFailures == 0 {
		bs.ConsecutiveFailures = 5
	}
	if bs.OpenTimeout == 0 {
		bs.OpenTimeout = 30 * time.Second
	}

	st := gobreaker.Settings{
		Name:        "publisher:" + exchange,
		MaxRequests: 1,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Default().Warn("publisher_breaker_state", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &Publisher{
		broker:   broker,
		exchange: exchange,
		cb:       gobreaker.NewCircuitBreaker[struct{}](st),
	}
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, event Envelope) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", event.EventType, err)
	}

	_, err = p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.broker.Publish(ctx, p.exchange, routingKey, body)
	})
	if err != nil {
		return fmt.Errorf("events: publish %s to %s/%s: %w", event.EventType, p.exchange, routingKey, err)
	}
	return nil
}

// LogBroker writes events to a logger instead of a broker. It is used when no
// broker address is configured.
type LogBroker struct {
	Logger *slog.Logger
}

func (b LogBroker) Publish(_ context.Context, exchange, routingKey string, body []byte) error {
	l := b.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("event_published", "exchange", exchange, "routing_key", routingKey, "body", string(body))
	return nil
}
