// Package redpanda publishes interview session lifecycle events to
// Redpanda/Kafka.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// DefaultTopic carries every session lifecycle event.
const DefaultTopic = "interview-session-events"

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Publisher implements domain.EventPublisher. Records are keyed by session id
// so every event of one session lands on the same partition in order.
type Publisher struct {
	client producer
	topic  string
}

// NewPublisher connects to the brokers and makes sure the topic exists.
func NewPublisher(ctx context.Context, brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	slog.Info("creating redpanda publisher", slog.Any("brokers", brokers), slog.String("topic", topic))

	kotelService := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))))
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
		kgo.DialTimeout(10*time.Second),
		kgo.WithHooks(kotelService.Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}
	if err := createTopicIfNotExists(ctx, client, topic, 3, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist", slog.String("topic", topic), slog.Any("error", err))
	}
	return newPublisher(client, topic), nil
}

func newPublisher(client producer, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// Publish writes one event synchronously.
func (p *Publisher) Publish(ctx domain.Context, ev domain.SessionEvent) error {
	rec, err := buildRecord(p.topic, ev)
	if err != nil {
		observability.ObserveEvent(string(ev.Type), err)
		return err
	}
	err = p.client.ProduceSync(ctx, rec).FirstErr()
	observability.ObserveEvent(string(ev.Type), err)
	if err != nil {
		return fmt.Errorf("op=events.publish: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

func buildRecord(topic string, ev domain.SessionEvent) (*kgo.Record, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("op=events.marshal: %w", err)
	}
	return &kgo.Record{
		Topic:     topic,
		Key:       []byte(ev.SessionID),
		Value:     b,
		Timestamp: ev.OccurredAt,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "session_id", Value: []byte(ev.SessionID)},
			{Key: "employer_id", Value: []byte(ev.EmployerID)},
		},
	}, nil
}

// LogPublisher stands in for the broker when none is configured.
type LogPublisher struct{ Logger *slog.Logger }

// Publish logs the event.
func (p LogPublisher) Publish(_ domain.Context, ev domain.SessionEvent) error {
	lg := p.Logger
	if lg == nil {
		lg = slog.Default()
	}
	lg.Info("session event", slog.String("type", string(ev.Type)), slog.String("session_id", ev.SessionID),
		slog.String("status", string(ev.Status)))
	observability.ObserveEvent(string(ev.Type), nil)
	return nil
}
