// Package subscriber consumes product events from JetStream and writes them to the audit log.
package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/producttags/pkg/config"
	"github.com/abgdnv/producttags/pkg/messaging"
	"github.com/abgdnv/producttags/pkg/messaging/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var errUnknownSubject = errors.New("unknown subject")

// ackableMsg is the part of jetstream.Msg the handler needs.
type ackableMsg interface {
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
}

// Start initializes the NATS JetStream consumer and starts multiple worker goroutines to process messages.
func Start(ctx context.Context, js jetstream.JetStream, subscriberCfg config.SubscriberConfig, logger *slog.Logger) error {
	cfg := jetstream.ConsumerConfig{
		FilterSubject: subscriberCfg.Subject,
		Durable:       subscriberCfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       subscriberCfg.AckWait,
		MaxDeliver:    subscriberCfg.MaxDeliver,
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, subscriberCfg.Stream, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", subscriberCfg.Consumer, err)
	}
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < subscriberCfg.Workers; i++ {
		g.Go(func() error {
			return runWorker(gCtx, consumer, subscriberCfg, logger.With("worker", i))
		})
	}
	return g.Wait()
}

// runWorker fetches batches from the consumer until ctx is done.
func runWorker(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			batch, err := consumer.Fetch(cfg.Batch, jetstream.FetchMaxWait(cfg.Timeout))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				logger.Error("failed to fetch messages", "error", err)
				time.Sleep(cfg.Interval)
				continue
			}
			for msg := range batch.Messages() {
				handleMessage(ctx, msg, logger)
			}
			if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
				logger.Warn("batch finished with error", "error", err)
			}
		}
	}
}

// handleMessage records one event. Messages that cannot be decoded are nacked.
func handleMessage(ctx context.Context, msg ackableMsg, logger *slog.Logger) {
	if msg == nil {
		logger.Error("received nil message")
		return
	}
	subject := msg.Subject()
	event, header, err := decode(subject, msg.Data())
	if err != nil {
		logger.Error("failed to decode message", "error", err, "subject", subject)
		if err := msg.Nak(); err != nil {
			logger.Error("failed to nack message", "error", err)
		}
		return
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, header.Carrier)
	ctx, span := otel.Tracer("audit-subscriber").Start(ctx, "audit "+subject,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.destination.name", subject)))
	defer span.End()

	attrs := []any{
		slog.String("subject", subject),
		slog.String("event_id", header.EventID.String()),
		slog.String("occurred_at", header.OccurredAt.Format(time.RFC3339Nano)),
	}
	logger.InfoContext(ctx, "product event", append(attrs, eventAttrs(event)...)...)

	if err := msg.Ack(); err != nil {
		logger.ErrorContext(ctx, "failed to ack message", "error", err)
	}
}

// decode unmarshals data into the event type published on subject.
func decode(subject string, data []byte) (any, events.Header, error) {
	switch subject {
	case messaging.ProductCreatedSubject:
		var e events.ProductCreatedEvent
		err := json.Unmarshal(data, &e)
		return e, e.Header, err
	case messaging.ProductTagUpdatedSubject:
		var e events.ProductTagUpdatedEvent
		err := json.Unmarshal(data, &e)
		return e, e.Header, err
	case messaging.ProductTagsBulkUpdateSubject:
		var e events.ProductTagsBulkUpdatedEvent
		err := json.Unmarshal(data, &e)
		return e, e.Header, err
	case messaging.ProductDeletedSubject:
		var e events.ProductDeletedEvent
		err := json.Unmarshal(data, &e)
		return e, e.Header, err
	default:
		return nil, events.Header{}, fmt.Errorf("%w: %s", errUnknownSubject, subject)
	}
}

func eventAttrs(event any) []any {
	switch e := event.(type) {
	case events.ProductCreatedEvent:
		return []any{
			slog.String("product_id", e.ProductID),
			slog.Int64("external_id", e.ExternalID),
			slog.String("name", e.Name),
			slog.Int("tag", e.Tag),
		}
	case events.ProductTagUpdatedEvent:
		return []any{
			slog.String("product_id", e.ProductID),
			slog.Int64("external_id", e.ExternalID),
			slog.Int("tag", e.Tag),
		}
	case events.ProductTagsBulkUpdatedEvent:
		return []any{
			slog.Any("external_ids", e.ExternalIDs),
			slog.Int("tag", e.Tag),
			slog.Int64("matched", e.MatchedCount),
			slog.Int64("modified", e.ModifiedCount),
		}
	case events.ProductDeletedEvent:
		return []any{slog.String("product_id", e.ProductID)}
	default:
		return nil
	}
}
