// Package models defines the data structures shared by the note pipeline:
// destinations, extracted records, sheet rows and emitted events.
package models

// NoteProcessed is published when a recording completes all required writes.
type NoteProcessed struct {
	EventType       string `json:"eventType"`
	RunID           string `json:"runId"`
	RecordingID     string `json:"recordingId"`
	Destination     string `json:"destination"`
	DestinationKind string `json:"destinationKind"`
	Timestamp       int64  `json:"timestamp"`
	RecordCount     int    `json:"recordCount"`
	RowCount        int    `json:"rowCount"`
	Mirrored        bool   `json:"mirrored"`
	Fallback        bool   `json:"fallback"`
	DurationMs      int64  `json:"durationMs"`
}

// NoteFailed is published when a run ends in the error state.
type NoteFailed struct {
	EventType   string `json:"eventType"`
	RunID       string `json:"runId"`
	RecordingID string `json:"recordingId"`
	Destination string `json:"destination"`
	Timestamp   int64  `json:"timestamp"`
	Stage       string `json:"stage"`
	Kind        string `json:"kind"`
	Message     string `json:"message"`
}

const (
	EventNoteProcessed = "voicenotes.note.processed"
	EventNoteFailed    = "voicenotes.note.failed"
)
