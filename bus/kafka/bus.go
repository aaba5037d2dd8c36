// Package kafka publishes relayed envelopes to a Kafka topic.
//
// The message key is the envelope's correlation ID (the contract ID), so
// every event of one contract lands on the same partition in order. The
// body is the message value; every other envelope attribute travels as a
// header.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/squideyes/esignatures/delivery"
)

// Header names.
const (
	HeaderMessageID     = "message-id"
	HeaderSubject       = "subject"
	HeaderCorrelationID = "correlation-id"
	HeaderContentType   = "content-type"
	HeaderExpiresAt     = "expires-at"
	HeaderPropPrefix    = "prop-"
)

// Configuration errors returned by New.
var (
	ErrNoBrokers = errors.New("esignatures/bus/kafka: no brokers configured")
	ErrNoTopic   = errors.New("esignatures/bus/kafka: no topic configured")
)

// MessageWriter is the subset of *kafka.Writer the bus uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// compile-time interface check
var _ delivery.Bus = (*Bus)(nil)

// Config configures a Kafka bus.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// Bus is a delivery.Bus backed by a Kafka topic.
type Bus struct {
	writer MessageWriter
}

// New creates a Bus writing to cfg.Topic on cfg.Brokers.
func New(cfg Config) (*Bus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		return nil, ErrNoTopic
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	return NewWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
	}), nil
}

// NewWithWriter creates a Bus over an existing writer.
func NewWithWriter(w MessageWriter) *Bus {
	return &Bus{writer: w}
}

// Publish writes env as one Kafka message.
func (b *Bus) Publish(ctx context.Context, env *delivery.Envelope) error {
	if err := b.writer.WriteMessages(ctx, ToMessage(env)); err != nil {
		return fmt.Errorf("esignatures/bus/kafka: write %s: %w", env.MessageID, err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (b *Bus) Close() error {
	return b.writer.Close()
}

// ToMessage converts env to the Kafka message Publish writes.
func ToMessage(env *delivery.Envelope) kafka.Message {
	headers := []kafka.Header{
		{Key: HeaderMessageID, Value: []byte(env.MessageID)},
		{Key: HeaderSubject, Value: []byte(env.Subject)},
		{Key: HeaderCorrelationID, Value: []byte(env.CorrelationID)},
		{Key: HeaderContentType, Value: []byte(env.ContentType)},
	}
	if at := env.ExpiresAt(); !at.IsZero() {
		headers = append(headers, kafka.Header{
			Key:   HeaderExpiresAt,
			Value: []byte(at.UTC().Format(time.RFC3339Nano)),
		})
	}

	names := make([]string, 0, len(env.Properties))
	for k := range env.Properties {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		headers = append(headers, kafka.Header{
			Key:   HeaderPropPrefix + k,
			Value: []byte(env.Properties[k]),
		})
	}

	return kafka.Message{
		Key:     []byte(env.CorrelationID),
		Value:   env.Body,
		Time:    env.CreatedAt,
		Headers: headers,
	}
}
