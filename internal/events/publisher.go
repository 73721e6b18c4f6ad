// Package events publishes note run outcomes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voice-notes-service/internal/models"
	"voice-notes-service/internal/observability/metrics"
)

// Publisher publishes run events to separate Kafka topics for processed and
// failed notes.
type Publisher struct {
	writerProcessed *kafka.Writer
	writerFailed    *kafka.Writer
	principal       string
	topicProcessed  string
	topicFailed     string
	enabled         bool
	metrics         *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicProcessed string
	TopicFailed    string
	Principal      string
	Enabled        bool
}

// New creates a new Kafka event publisher. A nil or disabled config yields a
// log-only publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:      cfg.Principal,
			topicProcessed: cfg.TopicProcessed,
			topicFailed:    cfg.TopicFailed,
			enabled:        false,
			metrics:        m,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicProcessed", cfg.TopicProcessed).
		Str("topicFailed", cfg.TopicFailed).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerProcessed: newWriter(cfg.TopicProcessed),
		writerFailed:    newWriter(cfg.TopicFailed),
		principal:       cfg.Principal,
		topicProcessed:  cfg.TopicProcessed,
		topicFailed:     cfg.TopicFailed,
		enabled:         true,
		metrics:         m,
	}
}

// PublishProcessed publishes a successful run to the processed topic.
func (p *Publisher) PublishProcessed(ctx context.Context, ev models.NoteProcessed) error {
	return p.publish(ctx, p.writerProcessed, p.topicProcessed, ev.EventType, ev.RecordingID, ev)
}

// PublishFailed publishes a failed run to the failed topic.
func (p *Publisher) PublishFailed(ctx context.Context, ev models.NoteFailed) error {
	return p.publish(ctx, p.writerFailed, p.topicFailed, ev.EventType, ev.RecordingID, ev)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerProcessed != nil {
		if e := p.writerProcessed.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing processed writer")
			err = e
		}
	}
	if p.writerFailed != nil {
		if e := p.writerFailed.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing failed writer")
			err = e
		}
	}
	return err
}
