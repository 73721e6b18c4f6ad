// Package extraction routes a transcript to the extraction schema selected
// by its destination and validates the language model's answer.
package extraction

import (
	"context"
	"fmt"

	"voice-notes-service/internal/models"
)

// Extractor calls the language model. Each method returns the raw answer,
// which is expected (but not trusted) to contain one JSON object.
type Extractor interface {
	// ExtractStudents asks for {"students": [...], "generalSummary", "generalActions"}.
	ExtractStudents(ctx context.Context, transcript string) (string, error)

	// ExtractGeneralNote asks for {"topic", "priority", "summary", "pendingActions"}.
	ExtractGeneralNote(ctx context.Context, transcript string) (string, error)

	// ExtractLeads asks for {"leads": [...]}.
	ExtractLeads(ctx context.Context, transcript string) (string, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}

// CallError reports that the extraction backend itself failed. No text was
// returned, so there is nothing to repair.
type CallError struct {
	Kind     models.DestinationKind
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("extraction call failed (%s, %s): %v", e.Provider, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}
