// Package mock provides a mock STT adapter for running without provider credentials.
// It returns canned Spanish transcripts, cycling through them on every call.
package mock

import (
	"context"
	"sync"
	"time"

	"voice-notes-service/internal/service/stt"
)

const providerName = "mock"

// DefaultTranscripts provides sample notes for simulation, one per destination kind.
var DefaultTranscripts = []string{
	"Pedro y Luis trabajaron excelente en el proyecto de ciencias, hay que felicitarlos.",
	"Recordar preparar la reunión de evaluación del viernes y pedir los informes a tutoría.",
	"Ha llamado María García, teléfono 612345678, interesada en el curso de inglés por las tardes.",
	"Ana estuvo muy distraída durante la clase y no entregó los deberes.",
}

// Adapter implements stt.Adapter with canned responses.
type Adapter struct {
	mu          sync.Mutex
	transcripts []string
	next        int
	delay       time.Duration
	err         error
	calls       int
}

// Option configures the mock adapter.
type Option func(*Adapter)

// WithTranscripts replaces the canned transcripts.
func WithTranscripts(ts ...string) Option {
	return func(a *Adapter) { a.transcripts = ts }
}

// WithDelay simulates provider latency.
func WithDelay(d time.Duration) Option {
	return func(a *Adapter) { a.delay = d }
}

// WithError makes every call fail with err.
func WithError(err error) Option {
	return func(a *Adapter) { a.err = err }
}

// New creates a new mock STT adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{transcripts: DefaultTranscripts}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements stt.Adapter.
func (a *Adapter) Name() string {
	return providerName
}

// Transcribe returns the next canned transcript after the configured delay.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", &stt.Error{Provider: providerName, Kind: stt.KindInvalidAudio, Err: stt.ErrEmptyAudio}
	}

	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return "", &stt.Error{Provider: providerName, Kind: stt.KindTimeout, Err: ctx.Err()}
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++

	if a.err != nil {
		return "", &stt.Error{Provider: providerName, Kind: stt.KindProvider, Err: a.err}
	}
	if len(a.transcripts) == 0 || a.transcripts[a.next%len(a.transcripts)] == "" {
		a.next++
		return "", &stt.Error{Provider: providerName, Kind: stt.KindEmpty, Err: stt.ErrEmptyTranscript}
	}

	t := a.transcripts[a.next%len(a.transcripts)]
	a.next++
	return t, nil
}

// Calls returns the number of transcription requests served.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Close implements stt.Adapter.
func (a *Adapter) Close() error {
	return nil
}
