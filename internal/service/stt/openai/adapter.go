// Package openai provides a Whisper transcription adapter.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"voice-notes-service/internal/service/stt"
)

const providerName = "openai"

// Config holds the Whisper adapter configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Language    string
	Filename    string
	ContentType string
	Timeout     time.Duration
}

// DefaultConfig returns defaults for browser-recorded Spanish notes.
func DefaultConfig() Config {
	return Config{
		Model:       string(oai.AudioModelWhisper1),
		Language:    "es",
		Filename:    "audio.webm",
		ContentType: "audio/webm",
		Timeout:     60 * time.Second,
	}
}

// Adapter implements stt.Adapter using the OpenAI transcription endpoint.
type Adapter struct {
	client oai.Client
	cfg    Config
}

// New creates a Whisper adapter. The API key is required.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai stt: apiKey must not be empty")
	}
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Filename == "" {
		cfg.Filename = def.Filename
	}
	if cfg.ContentType == "" {
		cfg.ContentType = def.ContentType
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	return &Adapter{client: oai.NewClient(opts...), cfg: cfg}, nil
}

// Name implements stt.Adapter.
func (a *Adapter) Name() string {
	return providerName
}

// Transcribe uploads the whole recording and returns the recognised text.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", &stt.Error{Provider: providerName, Kind: stt.KindInvalidAudio, Err: stt.ErrEmptyAudio}
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(audio), a.cfg.Filename, a.cfg.ContentType),
		Model: oai.AudioModel(a.cfg.Model),
	}
	if a.cfg.Language != "" {
		params.Language = oai.String(a.cfg.Language)
	}

	resp, err := a.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", &stt.Error{Provider: providerName, Kind: classify(err), Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", &stt.Error{Provider: providerName, Kind: stt.KindEmpty, Err: stt.ErrEmptyTranscript}
	}
	return text, nil
}

// Close implements stt.Adapter. The HTTP client holds no session.
func (a *Adapter) Close() error {
	return nil
}

func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return stt.KindTimeout
	}
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return stt.KindUnauthenticated
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500:
			return stt.KindUnavailable
		case apiErr.StatusCode >= 400:
			return stt.KindInvalidAudio
		}
	}
	return stt.KindProvider
}
