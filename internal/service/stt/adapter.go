// Package stt defines the interface for Speech-to-Text adapters.
package stt

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyAudio is returned when a transcription is requested for no audio.
	ErrEmptyAudio = errors.New("audio is empty")

	// ErrEmptyTranscript is returned when the provider recognised no speech.
	ErrEmptyTranscript = errors.New("transcript is empty")
)

// Error kinds reported by adapters.
const (
	KindInvalidAudio    = "invalid_audio"
	KindUnauthenticated = "unauthenticated"
	KindUnavailable     = "unavailable"
	KindTimeout         = "timeout"
	KindEmpty           = "empty"
	KindProvider        = "provider"
)

// Error wraps a provider failure with the provider name and a coarse kind.
type Error struct {
	Provider string
	Kind     string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("stt %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Adapter transcribes one complete recording (OpenAI Whisper, Google, mock).
type Adapter interface {
	// Transcribe returns the recognised text of audio. It never returns an
	// empty string with a nil error.
	Transcribe(ctx context.Context, audio []byte) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string

	// Close releases provider resources.
	Close() error
}
