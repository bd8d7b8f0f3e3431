package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abgdnv/producttags/pkg/config"
	"github.com/abgdnv/producttags/pkg/messaging"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sony/gobreaker/v2"
)

// ErrPublisherUnavailable is returned while the publisher circuit is open.
var ErrPublisherUnavailable = errors.New("event publisher unavailable")

type NatsPublisher struct {
	js jetstream.JetStream
}

func NewNatsPublisher(js jetstream.JetStream) *NatsPublisher {
	return &NatsPublisher{js: js}
}

func (p *NatsPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	_, err = p.js.Publish(ctx, event.Subject(), data)
	return err
}

// BreakerPublisher wraps a Publisher in a circuit breaker so an unhealthy broker
// is not hit on every request.
type BreakerPublisher struct {
	next    messaging.Publisher
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerPublisher creates a BreakerPublisher configured from cfg.
func NewBreakerPublisher(next messaging.Publisher, cfg config.CircuitBreakerConfig) *BreakerPublisher {
	st := gobreaker.Settings{
		Name:        "nats-publisher-cb",
		MaxRequests: max(cfg.HalfOpenRequests, 1),
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(counts.Requests >= cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(counts.Requests)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up is not a broker failure
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerPublisher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](st),
	}
}

// Publish forwards the event unless the circuit is open.
func (p *BreakerPublisher) Publish(ctx context.Context, event messaging.Event) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.Publish(ctx, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrPublisherUnavailable, err)
	}
	return err
}

// State reports the current breaker state.
func (p *BreakerPublisher) State() gobreaker.State {
	return p.breaker.State()
}

// EnsureStream creates or updates the stream that stores product events.
func EnsureStream(ctx context.Context, js jetstream.JetStream, name string, subjects []string, maxAge time.Duration) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      name,
		Subjects:  subjects,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    maxAge,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure stream %s: %w", name, err)
	}
	return stream, nil
}
