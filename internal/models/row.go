package models

import "time"

// Row is a positional sheet row. Cells are string, int or nil.
type Row []any

// Metadata is the ambient data of a recording that accompanies every row.
type Metadata struct {
	CapturedAt time.Time
	Duration   time.Duration
	Transcript string
}
