// Package kafka publishes summary events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/papercomputeco/memoria/pkg/eventstream"
)

const DefaultTopic = "memoria.summaries"

// Config holds the Kafka connection settings.
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes each event as one JSON message keyed by namespace, so
// a namespace's events keep their order within a partition.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	timeout := c.WriteTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return NewPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}, topic), nil
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w messageWriter, topic string) *Publisher {
	return &Publisher{writer: w, topic: topic}
}

// PublishSummary encodes and writes one event.
func (p *Publisher) PublishSummary(ctx context.Context, event *eventstream.SummaryEmittedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding summary event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Namespace),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "tier", Value: []byte(event.Tier)},
		},
	})
	if err != nil {
		return fmt.Errorf("writing to kafka topic %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
