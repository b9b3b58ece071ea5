package repository

import (
	"context"
	"time"

	"NodeFlow/internal/domain/models"
	"NodeFlow/internal/domain/repository"
	pkgkafka "NodeFlow/pkg/kafka"
	"NodeFlow/pkg/logger"
)

// actionEnvelope is the wire shape of a published action. The kind tag
// lets consumers decode the payload without trial unmarshalling.
type actionEnvelope struct {
	Symbol string            `json:"symbol"`
	Kind   models.ActionKind `json:"kind"`
	At     time.Time         `json:"at"`
	Action models.Action     `json:"action"`
}

// KafkaActionPublisher delivers engine actions to the action topic,
// keyed by symbol for per-symbol ordering.
type KafkaActionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaActionPublisher creates the publisher.
func NewKafkaActionPublisher(producer *pkgkafka.Producer, topic string) repository.ActionPublisher {
	return &KafkaActionPublisher{producer: producer, topic: topic}
}

func (p *KafkaActionPublisher) Publish(ctx context.Context, symbol string, a models.Action) error {
	return p.producer.Publish(ctx, p.topic, []byte(symbol), actionEnvelope{
		Symbol: symbol,
		Kind:   a.Kind(),
		At:     time.Now().UTC(),
		Action: a,
	})
}

func (p *KafkaActionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// KafkaLogPublisher forwards aggregated error logs to a log topic.
type KafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

// NewKafkaLogPublisher creates the log publisher.
func NewKafkaLogPublisher(producer *pkgkafka.Producer) logger.Publisher {
	return &KafkaLogPublisher{producer: producer}
}

func (p *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// LogActionPublisher writes actions to the log only. Used when no
// broker is configured, e.g. local replay runs.
type LogActionPublisher struct {
	log *logger.Logger
}

// NewLogActionPublisher creates the log-only publisher.
func NewLogActionPublisher(log *logger.Logger) repository.ActionPublisher {
	return &LogActionPublisher{log: log}
}

func (p *LogActionPublisher) Publish(_ context.Context, symbol string, a models.Action) error {
	p.log.Info("action",
		logger.String("symbol", symbol),
		logger.String("kind", string(a.Kind())),
		logger.Any("payload", a))
	return nil
}

func (p *LogActionPublisher) Close() error { return nil }
