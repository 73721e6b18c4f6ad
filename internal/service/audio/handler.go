// Package audio holds finished recordings between upload and processing.
// Recordings live in memory only and are lost on restart.
package audio

import (
	"errors"
	"fmt"
	"mime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"voice-notes-service/internal/observability/metrics"
)

var (
	ErrEmptyAudio      = errors.New("recording has no audio")
	ErrTooLarge        = errors.New("recording exceeds max audio bytes")
	ErrTooLong         = errors.New("recording exceeds max duration")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrNotFound        = errors.New("recording not found")
)

// RecordingLimits defines safety guardrails for accepted recordings.
type RecordingLimits struct {
	MaxAudioBytes int64         // Max bytes per recording
	MaxDuration   time.Duration // Max reported recording length
}

// DefaultLimits returns the limits of the upstream transcription API.
func DefaultLimits() RecordingLimits {
	return RecordingLimits{
		MaxAudioBytes: 25 * 1024 * 1024,
		MaxDuration:   10 * time.Minute,
	}
}

// Recording is one finished voice note.
type Recording struct {
	ID          string        `json:"id"`
	ContentType string        `json:"contentType"`
	Duration    time.Duration `json:"-"`
	DurationSec float64       `json:"durationSeconds"`
	CreatedAt   time.Time     `json:"createdAt"`
	Size        int           `json:"size"`
	Audio       []byte        `json:"-"`
}

// Handler stores accepted recordings.
type Handler struct {
	mu         sync.RWMutex
	recordings map[string]Recording
	ids        *Generator
	limits     RecordingLimits
	now        func() time.Time
	metrics    *metrics.Metrics
}

// NewHandler creates a handler with default limits.
func NewHandler() *Handler {
	return NewHandlerWithLimits(DefaultLimits())
}

// NewHandlerWithLimits creates a handler with custom recording limits.
func NewHandlerWithLimits(limits RecordingLimits) *Handler {
	return &Handler{
		recordings: make(map[string]Recording),
		ids:        NewGenerator(),
		limits:     limits,
		now:        time.Now,
		metrics:    metrics.DefaultMetrics,
	}
}

// Accept validates and stores a recording. The audio slice is retained.
func (h *Handler) Accept(audio []byte, contentType string, duration time.Duration) (Recording, error) {
	if err := h.check(audio, contentType, duration); err != nil {
		return Recording{}, err
	}

	rec := Recording{
		ID:          h.ids.Next(),
		ContentType: contentType,
		Duration:    duration,
		DurationSec: duration.Seconds(),
		CreatedAt:   h.now().UTC(),
		Size:        len(audio),
		Audio:       audio,
	}

	h.mu.Lock()
	h.recordings[rec.ID] = rec
	h.mu.Unlock()

	h.metrics.RecordRecordingAccepted(len(audio))
	log.Info().
		Str("recordingId", rec.ID).
		Int("bytes", rec.Size).
		Dur("duration", duration).
		Str("contentType", contentType).
		Msg("Recording accepted")
	return rec, nil
}

func (h *Handler) check(audio []byte, contentType string, duration time.Duration) error {
	reject := func(reason string, err error) error {
		h.metrics.RecordRecordingRejected(reason)
		log.Warn().Str("reason", reason).Err(err).Msg("Recording rejected")
		return err
	}

	if len(audio) == 0 {
		return reject("empty", ErrEmptyAudio)
	}
	if h.limits.MaxAudioBytes > 0 && int64(len(audio)) > h.limits.MaxAudioBytes {
		return reject("too_large", fmt.Errorf("%w: %d > %d", ErrTooLarge, len(audio), h.limits.MaxAudioBytes))
	}
	if h.limits.MaxDuration > 0 && duration > h.limits.MaxDuration {
		return reject("too_long", fmt.Errorf("%w: %v > %v", ErrTooLong, duration, h.limits.MaxDuration))
	}
	if !isAudioType(contentType) {
		return reject("content_type", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType))
	}
	return nil
}

// Get returns the stored recording including its audio.
func (h *Handler) Get(id string) (Recording, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec, ok := h.recordings[id]
	if !ok {
		return Recording{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// List returns the stored recordings, oldest first, without audio.
func (h *Handler) List() []Recording {
	h.mu.RLock()
	out := make([]Recording, 0, len(h.recordings))
	for _, rec := range h.recordings {
		rec.Audio = nil
		out = append(out, rec)
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return seq(out[i].ID) < seq(out[j].ID)
	})
	return out
}

// Delete removes a recording. Deleting an unknown id returns ErrNotFound.
func (h *Handler) Delete(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.recordings[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(h.recordings, id)
	log.Debug().Str("recordingId", id).Msg("Recording deleted")
	return nil
}

// Len returns the number of stored recordings.
func (h *Handler) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.recordings)
}

// isAudioType accepts audio/* media types and untyped uploads.
func isAudioType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "audio/") || mt == "video/webm" || mt == "application/octet-stream"
}

func seq(id string) int {
	var n int
	_, _ = fmt.Sscanf(id, "rec-%d", &n)
	return n
}
