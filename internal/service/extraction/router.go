package extraction

import (
	"context"
	"time"

	"voice-notes-service/internal/models"
	"voice-notes-service/internal/observability/logging"
	"voice-notes-service/internal/observability/metrics"
	"voice-notes-service/internal/schema"
)

// Router selects the extraction path for a destination, calls the extractor
// and validates its output.
type Router struct {
	extractor Extractor
	validator *schema.Validator
	metrics   *metrics.Metrics
}

// NewRouter creates a router. A nil validator uses the system clock.
func NewRouter(extractor Extractor, validator *schema.Validator) *Router {
	if validator == nil {
		validator = schema.New()
	}
	return &Router{
		extractor: extractor,
		validator: validator,
		metrics:   metrics.DefaultMetrics,
	}
}

// Route resolves destination once and runs the matching extraction.
// Malformed model output is repaired by the validator; only a failed call
// returns an error, as a *CallError.
func (r *Router) Route(ctx context.Context, destination, transcript string) (models.Extraction, error) {
	dest := models.ResolveDestination(destination)
	logger := logging.WithDestination(dest.Name, dest.Kind.String()).With().
		Str("component", "extraction").
		Str("provider", r.extractor.Name()).
		Logger()

	call := r.extractor.ExtractStudents
	switch dest.Kind {
	case models.KindLeads:
		call = r.extractor.ExtractLeads
	case models.KindGeneral:
		call = r.extractor.ExtractGeneralNote
	}

	start := time.Now()
	raw, err := call(ctx, transcript)
	if err != nil {
		logger.Error().Err(err).Msg("Extraction call failed")
		return models.Extraction{Destination: dest}, &CallError{Kind: dest.Kind, Provider: r.extractor.Name(), Err: err}
	}

	logger.Debug().
		Dur("latency", time.Since(start)).
		Str("raw", raw).
		Msg("Extraction response received")

	out := r.validator.Parse(dest, raw, transcript)
	if out.IsFallback() {
		logger.Warn().
			Str("raw", schema.Excerpt(raw, 500)).
			Msg("Extraction output unusable, using fallback record")
	}
	r.metrics.RecordExtraction(dest.Kind.String(), out.RecordCount(), out.IsFallback())

	logger.Info().
		Int("records", out.RecordCount()).
		Bool("fallback", out.IsFallback()).
		Msg("Extraction validated")

	return out, nil
}
