package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-notes-service/internal/service/stt"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL + "/"
	a, err := New(cfg)
	require.NoError(t, err)
	return a
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(DefaultConfig())
	assert.Error(t, err)
}

func TestAdapter_Transcribe(t *testing.T) {
	var body string
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/audio/transcriptions"))
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"  Pedro participó mucho hoy. "}`)
	})

	text, err := a.Transcribe(context.Background(), []byte("webm-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "Pedro participó mucho hoy.", text)
	assert.Contains(t, body, "whisper-1")
	assert.Contains(t, body, "audio.webm")
	assert.Contains(t, body, "webm-bytes")
}

func TestAdapter_EmptyAudio(t *testing.T) {
	var calls atomic.Int32
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := a.Transcribe(context.Background(), nil)

	var sttErr *stt.Error
	require.ErrorAs(t, err, &sttErr)
	assert.Equal(t, stt.KindInvalidAudio, sttErr.Kind)
	assert.True(t, errors.Is(err, stt.ErrEmptyAudio))
	assert.Zero(t, calls.Load())
}

func TestAdapter_EmptyTranscript(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"   "}`)
	})

	_, err := a.Transcribe(context.Background(), []byte("silence"))

	assert.ErrorIs(t, err, stt.ErrEmptyTranscript)
}

func TestAdapter_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   string
	}{
		{http.StatusUnauthorized, stt.KindUnauthenticated},
		{http.StatusBadRequest, stt.KindInvalidAudio},
		{http.StatusTooManyRequests, stt.KindUnavailable},
		{http.StatusInternalServerError, stt.KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"test"}}`)
			})

			_, err := a.Transcribe(context.Background(), []byte("audio"))

			var sttErr *stt.Error
			require.ErrorAs(t, err, &sttErr)
			assert.Equal(t, tt.kind, sttErr.Kind)
			assert.Equal(t, int32(1), calls.Load(), "no retries")
		})
	}
}
