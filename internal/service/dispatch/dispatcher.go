// Package dispatch delivers rows to their destination tab and, for leads,
// mirrors the same rows to the students roster.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voice-notes-service/internal/models"
	"voice-notes-service/internal/observability/logging"
	"voice-notes-service/internal/observability/metrics"
)

// Writer appends rows to a named tab. Calls are not idempotent; a retried
// call may duplicate rows.
type Writer interface {
	AppendRows(ctx context.Context, destination string, rows []models.Row) error
}

// Target roles used in logs, metrics and errors.
const (
	TargetPrimary = "primary"
	TargetMirror  = "mirror"
)

// ErrNoRows is returned when Dispatch is called with nothing to write.
var ErrNoRows = errors.New("no rows to dispatch")

// WriteError reports a failed append to one of the targets.
type WriteError struct {
	Destination string
	Target      string
	Err         error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write to %s destination %q failed: %v", e.Target, e.Destination, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Delivery describes the writes of one dispatch.
type Delivery struct {
	Destination string
	Targets     []string
	Rows        int
	Mirrored    bool
}

// Dispatcher writes rows to the primary tab and, for the leads kind, to the
// mirror tab. Writes are sequential.
type Dispatcher struct {
	writer  Writer
	mirror  string
	metrics *metrics.Metrics
}

// New creates a dispatcher mirroring leads to models.MirrorDestination.
func New(writer Writer) *Dispatcher {
	return &Dispatcher{
		writer:  writer,
		mirror:  models.MirrorDestination,
		metrics: metrics.DefaultMetrics,
	}
}

// Targets returns the tabs that must receive rows for dest, in write order.
func (d *Dispatcher) Targets(dest models.Destination) []string {
	if dest.Kind == models.KindLeads {
		return []string{dest.Name, d.mirror}
	}
	return []string{dest.Name}
}

// Dispatch writes rows to every target of dest. The first failure stops the
// dispatch and is returned as a *WriteError; a mirror failure after a
// successful primary write is still a failure.
func (d *Dispatcher) Dispatch(ctx context.Context, dest models.Destination, rows []models.Row) (Delivery, error) {
	delivery := Delivery{Destination: dest.Name, Rows: len(rows)}
	if len(rows) == 0 {
		return delivery, ErrNoRows
	}

	logger := logging.WithDestination(dest.Name, dest.Kind.String()).With().
		Str("component", "dispatch").
		Int("rows", len(rows)).
		Logger()

	for i, target := range d.Targets(dest) {
		role := TargetPrimary
		if i > 0 {
			role = TargetMirror
		}

		start := time.Now()
		err := d.writer.AppendRows(ctx, target, rows)
		d.metrics.RecordWrite(dest.Kind.String(), role, len(rows), err, time.Since(start).Seconds())
		if err != nil {
			logger.Error().
				Err(err).
				Str("target", target).
				Str("role", role).
				Msg("Failed to append rows")
			return delivery, &WriteError{Destination: target, Target: role, Err: err}
		}

		delivery.Targets = append(delivery.Targets, target)
		if role == TargetMirror {
			delivery.Mirrored = true
		}
		logger.Info().
			Str("target", target).
			Str("role", role).
			Dur("latency", time.Since(start)).
			Msg("Rows appended")
	}

	return delivery, nil
}
