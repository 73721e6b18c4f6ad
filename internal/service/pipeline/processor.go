// Package pipeline runs one recording through transcription, extraction,
// row mapping and upload, and tracks the single in-flight run.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"voice-notes-service/internal/models"
	"voice-notes-service/internal/observability/logging"
	"voice-notes-service/internal/observability/metrics"
	"voice-notes-service/internal/service/dispatch"
)

// Transcriber turns a finished recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Router extracts validated records for a destination.
type Router interface {
	Route(ctx context.Context, destination, transcript string) (models.Extraction, error)
}

// RowMapper flattens records into sheet rows.
type RowMapper interface {
	Map(ext models.Extraction, meta models.Metadata) []models.Row
}

// Dispatcher writes rows to the destination and its mirror.
type Dispatcher interface {
	Dispatch(ctx context.Context, dest models.Destination, rows []models.Row) (dispatch.Delivery, error)
}

// Publisher emits run outcome events.
type Publisher interface {
	PublishProcessed(ctx context.Context, ev models.NoteProcessed) error
	PublishFailed(ctx context.Context, ev models.NoteFailed) error
}

// RecordingStore removes recordings once their run succeeded.
type RecordingStore interface {
	Delete(id string) error
}

// Config holds the auto-reset delays of the terminal states.
type Config struct {
	SuccessResetDelay time.Duration
	ErrorResetDelay   time.Duration
}

// DefaultConfig returns the delays used by the recorder UI.
func DefaultConfig() Config {
	return Config{
		SuccessResetDelay: 3 * time.Second,
		ErrorResetDelay:   10 * time.Second,
	}
}

// Request describes one processing run.
type Request struct {
	RecordingID string
	Audio       []byte
	Destination string
	Duration    time.Duration
	CapturedAt  time.Time
}

// Result describes a successful run.
type Result struct {
	RunID           string        `json:"runId"`
	RecordingID     string        `json:"recordingId,omitempty"`
	Destination     string        `json:"destination"`
	DestinationKind string        `json:"destinationKind"`
	Transcript      string        `json:"transcript"`
	RecordCount     int           `json:"recordCount"`
	RowCount        int           `json:"rowCount"`
	Targets         []string      `json:"targets"`
	Mirrored        bool          `json:"mirrored"`
	Fallback        bool          `json:"fallback"`
	Elapsed         time.Duration `json:"-"`
}

// Status is the externally visible pipeline state.
type Status struct {
	Snapshot
	RecordingID string `json:"recordingId,omitempty"`
	Destination string `json:"destination,omitempty"`
	Runs        uint64 `json:"runs"`
	Succeeded   uint64 `json:"succeeded"`
	Failed      uint64 `json:"failed"`
	Rejected    uint64 `json:"rejected"`
}

// Processor is the single pipeline instance. At most one run is in flight;
// further calls are rejected with ErrBusy, never queued.
type Processor struct {
	transcriber Transcriber
	router      Router
	mapper      RowMapper
	dispatcher  Dispatcher
	publisher   Publisher
	recordings  RecordingStore
	preflight   func() error
	cfg         Config

	lifecycle *Lifecycle
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
	runSeq    atomic.Uint64

	mu          sync.Mutex
	recordingID string
	destination string
	timers      []*time.Timer
	wg          sync.WaitGroup

	runs, succeeded, failed, rejected atomic.Uint64
}

// Option configures a Processor.
type Option func(*Processor)

// WithPreflight sets the configuration check run before any backend call.
func WithPreflight(check func() error) Option {
	return func(p *Processor) { p.preflight = check }
}

// WithPublisher sets the event publisher.
func WithPublisher(pub Publisher) Option {
	return func(p *Processor) { p.publisher = pub }
}

// WithRecordingStore sets the store that recordings are deleted from after a
// successful run.
func WithRecordingStore(store RecordingStore) Option {
	return func(p *Processor) { p.recordings = store }
}

// WithConfig sets the reset delays.
func WithConfig(cfg Config) Option {
	return func(p *Processor) { p.cfg = cfg }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// NewProcessor wires the pipeline stages.
func NewProcessor(t Transcriber, r Router, m RowMapper, d Dispatcher, opts ...Option) *Processor {
	p := &Processor{
		transcriber: t,
		router:      r,
		mapper:      m,
		dispatcher:  d,
		cfg:         DefaultConfig(),
		lifecycle:   NewLifecycle(),
		metrics:     metrics.DefaultMetrics,
		logger:      logging.WithComponent("pipeline"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs req to a terminal state. The caller's cancellation is not
// propagated: once started, a run always reaches SUCCESS or ERROR.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	if !models.IsSelectable(req.Destination) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidDestination, req.Destination)
	}

	runId := fmt.Sprintf("run-%d", p.runSeq.Add(1))
	gen, err := p.lifecycle.Begin(runId)
	if err != nil {
		p.rejected.Add(1)
		p.metrics.RecordRunRejected()
		rejectLogger := logging.WithRecording(req.RecordingID)
		rejectLogger.Warn().Err(err).Msg("Processing rejected")
		return Result{}, err
	}

	p.mu.Lock()
	p.recordingID = req.RecordingID
	p.destination = req.Destination
	p.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	dest := models.ResolveDestination(req.Destination)
	logger := logging.WithRun(runId, req.RecordingID, dest.Name)
	start := p.now()
	p.runs.Add(1)
	p.metrics.RecordRunStart()

	logger.Info().
		Str("destinationKind", dest.Kind.String()).
		Int("bytes", len(req.Audio)).
		Dur("duration", req.Duration).
		Msg("Run started")

	fail := func(stage string, kind ErrorKind, cause error) (Result, error) {
		runErr := &Error{Stage: stage, Kind: kind, Err: cause}
		p.lifecycle.Fail(runErr.Error())
		p.failed.Add(1)
		p.metrics.RecordRunEnd(false, stage, string(kind), time.Since(start).Seconds())

		logger.Error().
			Err(cause).
			Str("stage", stage).
			Str("kind", string(kind)).
			Msg("Run failed")

		p.publishFailed(ctx, models.NoteFailed{
			EventType:   models.EventNoteFailed,
			RunID:       runId,
			RecordingID: req.RecordingID,
			Destination: dest.Name,
			Timestamp:   p.now().UnixMilli(),
			Stage:       stage,
			Kind:        string(kind),
			Message:     runErr.Error(),
		})
		p.scheduleReset(gen, p.cfg.ErrorResetDelay, "")
		return Result{}, runErr
	}

	if p.preflight != nil {
		if err := p.preflight(); err != nil {
			return fail(StagePreflight, KindConfiguration, err)
		}
	}

	stageStart := time.Now()
	transcript, err := p.transcriber.Transcribe(ctx, req.Audio)
	p.metrics.RecordStage(StageTranscribing, time.Since(stageStart).Seconds())
	if err != nil {
		return fail(StageTranscribing, KindTranscription, err)
	}
	logger.Debug().Int("chars", len(transcript)).Msg("Transcript obtained")

	p.advance(StateClassifying)
	stageStart = time.Now()
	ext, err := p.router.Route(ctx, dest.Name, transcript)
	p.metrics.RecordStage(StageClassifying, time.Since(stageStart).Seconds())
	if err != nil {
		return fail(StageClassifying, KindExtractionCall, err)
	}

	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = start
	}
	rows := p.mapper.Map(ext, models.Metadata{
		CapturedAt: capturedAt,
		Duration:   req.Duration,
		Transcript: transcript,
	})

	p.advance(StateUploading)
	stageStart = time.Now()
	delivery, err := p.dispatcher.Dispatch(ctx, dest, rows)
	p.metrics.RecordStage(StageUploading, time.Since(stageStart).Seconds())
	if err != nil {
		return fail(StageUploading, KindWrite, err)
	}

	p.advance(StateSuccess)
	elapsed := time.Since(start)
	p.succeeded.Add(1)
	p.metrics.RecordRunEnd(true, "", "", elapsed.Seconds())

	res := Result{
		RunID:           runId,
		RecordingID:     req.RecordingID,
		Destination:     dest.Name,
		DestinationKind: dest.Kind.String(),
		Transcript:      transcript,
		RecordCount:     ext.RecordCount(),
		RowCount:        len(rows),
		Targets:         delivery.Targets,
		Mirrored:        delivery.Mirrored,
		Fallback:        ext.IsFallback(),
		Elapsed:         elapsed,
	}

	logger.Info().
		Int("records", res.RecordCount).
		Int("rows", res.RowCount).
		Bool("mirrored", res.Mirrored).
		Bool("fallback", res.Fallback).
		Dur("elapsed", elapsed).
		Msg("Run succeeded")

	p.publishProcessed(ctx, models.NoteProcessed{
		EventType:       models.EventNoteProcessed,
		RunID:           runId,
		RecordingID:     req.RecordingID,
		Destination:     dest.Name,
		DestinationKind: dest.Kind.String(),
		Timestamp:       p.now().UnixMilli(),
		RecordCount:     res.RecordCount,
		RowCount:        res.RowCount,
		Mirrored:        res.Mirrored,
		Fallback:        res.Fallback,
		DurationMs:      elapsed.Milliseconds(),
	})
	p.scheduleReset(gen, p.cfg.SuccessResetDelay, req.RecordingID)
	return res, nil
}

// Status returns the current state and run counters.
func (p *Processor) Status() Status {
	p.mu.Lock()
	recordingID, destination := p.recordingID, p.destination
	p.mu.Unlock()

	snap := p.lifecycle.Snapshot()
	if snap.State == StateIdle {
		recordingID, destination = "", ""
	}
	return Status{
		Snapshot:    snap,
		RecordingID: recordingID,
		Destination: destination,
		Runs:        p.runs.Load(),
		Succeeded:   p.succeeded.Load(),
		Failed:      p.failed.Load(),
		Rejected:    p.rejected.Load(),
	}
}

// Busy reports whether a run is in flight.
func (p *Processor) Busy() bool {
	return p.lifecycle.State().IsBusy()
}

// Close stops pending resets and waits for running reset callbacks.
func (p *Processor) Close() {
	p.mu.Lock()
	for _, t := range p.timers {
		if t.Stop() {
			p.wg.Done()
		}
	}
	p.timers = nil
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Processor) advance(to State) {
	if err := p.lifecycle.Advance(to); err != nil {
		p.logger.Error().Err(err).Msg("Unexpected state transition")
	}
}

// scheduleReset returns the lifecycle to IDLE after delay. When recordingID
// is set the recording is deleted at that time, even if a newer run has
// started meanwhile.
func (p *Processor) scheduleReset(gen uint64, delay time.Duration, recordingID string) {
	reset := func() {
		if p.lifecycle.Reset(gen) {
			p.logger.Debug().Uint64("generation", gen).Msg("Pipeline reset to idle")
		}
		if recordingID != "" && p.recordings != nil {
			if err := p.recordings.Delete(recordingID); err != nil {
				recLogger := logging.WithRecording(recordingID)
				recLogger.Warn().Err(err).Msg("Failed to delete processed recording")
			}
		}
	}

	if delay <= 0 {
		reset()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer p.wg.Done()
		reset()
		p.mu.Lock()
		for i, pending := range p.timers {
			if pending == t {
				p.timers = append(p.timers[:i], p.timers[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
	})
	p.timers = append(p.timers, t)
}

func (p *Processor) publishProcessed(ctx context.Context, ev models.NoteProcessed) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishProcessed(ctx, ev); err != nil {
		runLogger := logging.WithRun(ev.RunID, ev.RecordingID, ev.Destination)
		runLogger.Warn().Err(err).Msg("Failed to publish processed event")
	}
}

func (p *Processor) publishFailed(ctx context.Context, ev models.NoteFailed) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishFailed(ctx, ev); err != nil {
		runLogger := logging.WithRun(ev.RunID, ev.RecordingID, ev.Destination)
		runLogger.Warn().Err(err).Msg("Failed to publish failed event")
	}
}
