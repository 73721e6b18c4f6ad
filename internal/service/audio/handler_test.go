package audio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"voice-notes-service/internal/observability/metrics"
)

func newTestHandler(limits RecordingLimits) *Handler {
	h := NewHandlerWithLimits(limits)
	h.metrics = metrics.NewMetrics(prometheus.NewRegistry())
	h.now = func() time.Time { return time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC) }
	return h
}

func TestGenerator_Sequential(t *testing.T) {
	g := NewGenerator()

	if got := g.Next(); got != "rec-1" {
		t.Errorf("expected rec-1, got %s", got)
	}
	if got := g.Next(); got != "rec-2" {
		t.Errorf("expected rec-2, got %s", got)
	}
}

func TestGenerator_Concurrent(t *testing.T) {
	g := NewGenerator()
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.Next()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 100 {
		t.Errorf("expected 100 unique ids, got %d", len(seen))
	}
}

func TestHandler_Accept(t *testing.T) {
	h := newTestHandler(DefaultLimits())

	rec, err := h.Accept([]byte("webm"), "audio/webm;codecs=opus", 12*time.Second)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if rec.ID != "rec-1" {
		t.Errorf("expected rec-1, got %s", rec.ID)
	}
	if rec.Size != 4 || rec.DurationSec != 12 {
		t.Errorf("unexpected recording metadata: %+v", rec)
	}

	got, err := h.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Audio) != "webm" {
		t.Error("stored audio does not match")
	}
}

func TestHandler_Limits(t *testing.T) {
	limits := RecordingLimits{MaxAudioBytes: 100, MaxDuration: time.Minute}

	tests := []struct {
		name        string
		audio       []byte
		contentType string
		duration    time.Duration
		want        error
	}{
		{"empty", nil, "audio/webm", time.Second, ErrEmptyAudio},
		{"at byte limit", make([]byte, 100), "audio/webm", time.Second, nil},
		{"over byte limit", make([]byte, 101), "audio/webm", time.Second, ErrTooLarge},
		{"at duration limit", []byte("a"), "audio/webm", time.Minute, nil},
		{"over duration limit", []byte("a"), "audio/webm", time.Minute + time.Second, ErrTooLong},
		{"untyped", []byte("a"), "", time.Second, nil},
		{"octet stream", []byte("a"), "application/octet-stream", time.Second, nil},
		{"text", []byte("a"), "text/plain", time.Second, ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(limits)
			_, err := h.Accept(tt.audio, tt.contentType, tt.duration)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if h.Len() != 0 {
				t.Error("rejected recording must not be stored")
			}
		})
	}
}

func TestHandler_ZeroLimitsDisableChecks(t *testing.T) {
	h := newTestHandler(RecordingLimits{})

	if _, err := h.Accept(make([]byte, 1<<20), "audio/mp4", time.Hour); err != nil {
		t.Fatalf("expected no limits, got %v", err)
	}
}

func TestHandler_ListAndDelete(t *testing.T) {
	h := newTestHandler(DefaultLimits())
	for i := 0; i < 12; i++ {
		if _, err := h.Accept([]byte("a"), "audio/webm", time.Second); err != nil {
			t.Fatal(err)
		}
	}

	list := h.List()
	if len(list) != 12 {
		t.Fatalf("expected 12 recordings, got %d", len(list))
	}
	if list[0].ID != "rec-1" || list[11].ID != "rec-12" {
		t.Errorf("unexpected order: first=%s last=%s", list[0].ID, list[11].ID)
	}
	for _, rec := range list {
		if rec.Audio != nil {
			t.Fatal("List must not return audio")
		}
	}

	if err := h.Delete("rec-3"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := h.Delete("rec-3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := h.Get("rec-3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if h.Len() != 11 {
		t.Errorf("expected 11 recordings, got %d", h.Len())
	}
}
