package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"voice-notes-service/internal/models"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Event is one decoded run outcome. Exactly one of Processed and Failed is set.
type Event struct {
	Topic     string
	Processed *models.NoteProcessed
	Failed    *models.NoteFailed
}

// WatchConfig selects the topics to tail.
type WatchConfig struct {
	Brokers []string
	Topics  []string
	// Since rewinds each partition reader before tailing.
	Since time.Duration
}

// Decode parses a published message by its eventType.
func Decode(value []byte) (Event, error) {
	if !gjson.ValidBytes(value) {
		return Event{}, fmt.Errorf("invalid event payload")
	}

	r := gjson.ParseBytes(value)
	switch t := r.Get("eventType").String(); t {
	case models.EventNoteProcessed:
		return Event{Processed: &models.NoteProcessed{
			EventType:       t,
			RunID:           r.Get("runId").String(),
			RecordingID:     r.Get("recordingId").String(),
			Destination:     r.Get("destination").String(),
			DestinationKind: r.Get("destinationKind").String(),
			Timestamp:       r.Get("timestamp").Int(),
			RecordCount:     int(r.Get("recordCount").Int()),
			RowCount:        int(r.Get("rowCount").Int()),
			Mirrored:        r.Get("mirrored").Bool(),
			Fallback:        r.Get("fallback").Bool(),
			DurationMs:      r.Get("durationMs").Int(),
		}}, nil
	case models.EventNoteFailed:
		return Event{Failed: &models.NoteFailed{
			EventType:   t,
			RunID:       r.Get("runId").String(),
			RecordingID: r.Get("recordingId").String(),
			Destination: r.Get("destination").String(),
			Timestamp:   r.Get("timestamp").Int(),
			Stage:       r.Get("stage").String(),
			Kind:        r.Get("kind").String(),
			Message:     r.Get("message").String(),
		}}, nil
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, t)
	}
}

// Watch tails partition 0 of every topic and calls fn for each decoded
// event until ctx is cancelled. fn may be called from several goroutines.
func Watch(ctx context.Context, cfg WatchConfig, fn func(Event)) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("no Kafka brokers configured")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range cfg.Topics {
		g.Go(func() error {
			return tail(gctx, cfg, topic, fn)
		})
	}
	return g.Wait()
}

func tail(ctx context.Context, cfg WatchConfig, topic string, fn func(Event)) error {
	// Partition reader without a consumer group, so the watcher never
	// commits offsets.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   cfg.Brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if cfg.Since > 0 {
		if err := reader.SetOffsetAt(ctx, time.Now().Add(-cfg.Since)); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("Could not rewind reader, tailing from the end")
		}
	}

	log.Info().Str("topic", topic).Dur("since", cfg.Since).Msg("Watching note events")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Str("topic", topic).Msg("Kafka read error")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		ev, err := Decode(msg.Value)
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Int64("offset", msg.Offset).Msg("Skipping event")
			continue
		}
		ev.Topic = topic
		fn(ev)
	}
}
