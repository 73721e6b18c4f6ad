package pipeline

import (
	"errors"
	"fmt"
)

// Stage names where a run can stop.
const (
	StagePreflight    = "preflight"
	StageTranscribing = "transcribing"
	StageClassifying  = "classifying"
	StageUploading    = "uploading"
)

// ErrorKind classifies run-terminating failures.
type ErrorKind string

const (
	KindConfiguration  ErrorKind = "configuration"
	KindTranscription  ErrorKind = "transcription"
	KindExtractionCall ErrorKind = "extraction_call"
	KindWrite          ErrorKind = "write"
)

// ErrInvalidDestination is returned for an empty destination or the mirror
// roster, which is write-only.
var ErrInvalidDestination = errors.New("destination is not selectable")

// Error is a run-terminating failure. Its message is shown to the user.
type Error struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConfiguration:
		return fmt.Sprintf("configuration error: %v", e.Err)
	case KindTranscription:
		return fmt.Sprintf("transcription failed: %v", e.Err)
	case KindExtractionCall:
		return fmt.Sprintf("classification failed: %v", e.Err)
	case KindWrite:
		return fmt.Sprintf("upload failed: %v", e.Err)
	default:
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}
