// Package publisher delivers finished screening results to downstream
// consumers.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"screener/internal/screening/models"
)

// DefaultTopic receives results when no topic is configured.
const DefaultTopic = "screening.results"

// producer is the part of *kgo.Client the publisher needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher produces each result as JSON keyed by symbol, so every
// result for one instrument lands on the same partition in order.
type KafkaPublisher struct {
	client producer
	topic  string
	logger *slog.Logger
}

type KafkaOption func(*KafkaPublisher)

func WithTopic(topic string) KafkaOption {
	return func(p *KafkaPublisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

func WithLogger(logger *slog.Logger) KafkaOption {
	return func(p *KafkaPublisher) {
		p.logger = logger
	}
}

func NewKafkaPublisher(client *kgo.Client, opts ...KafkaOption) *KafkaPublisher {
	return newKafkaPublisher(client, opts...)
}

func newKafkaPublisher(client producer, opts ...KafkaOption) *KafkaPublisher {
	p := &KafkaPublisher{client: client, topic: DefaultTopic}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p
}

// Publish blocks until the broker acknowledges the record.
func (p *KafkaPublisher) Publish(ctx context.Context, result *models.ScreeningResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode screening result: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(result.Symbol),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "audit_id", Value: []byte(result.AuditID)},
			{Key: "final_verdict", Value: []byte(result.FinalVerdict)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.logger.ErrorContext(ctx, "failed to produce screening result",
			"topic", p.topic,
			"symbol", result.Symbol,
			"audit_id", result.AuditID,
			"error", err,
		)
		return fmt.Errorf("produce screening result: %w", err)
	}
	return nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}
