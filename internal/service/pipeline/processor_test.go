package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-notes-service/internal/models"
	"voice-notes-service/internal/observability/metrics"
	"voice-notes-service/internal/schema"
	"voice-notes-service/internal/service/dispatch"
	"voice-notes-service/internal/service/extraction"
	"voice-notes-service/internal/service/rows"
)

const pedroLuis = "Pedro y Luis trabajaron excelente en el proyecto de ciencias"

var testMetrics = metrics.NewMetrics(prometheus.NewRegistry())

type fakeTranscriber struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   int
	gate    chan struct{}
	entered chan struct{}
	ctxErr  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.ctxErr = ctx.Err()
	f.mu.Unlock()
	return f.text, f.err
}

func (f *fakeTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type cannedExtractor struct {
	response string
	err      error
}

func (c *cannedExtractor) ExtractStudents(ctx context.Context, transcript string) (string, error) {
	return c.response, c.err
}

func (c *cannedExtractor) ExtractGeneralNote(ctx context.Context, transcript string) (string, error) {
	return c.response, c.err
}

func (c *cannedExtractor) ExtractLeads(ctx context.Context, transcript string) (string, error) {
	return c.response, c.err
}

func (c *cannedExtractor) Name() string { return "canned" }

type sheetWrite struct {
	destination string
	rows        []models.Row
}

type fakeSheet struct {
	mu     sync.Mutex
	writes []sheetWrite
	failOn string
}

func (f *fakeSheet) AppendRows(ctx context.Context, destination string, rs []models.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, sheetWrite{destination, rs})
	if destination == f.failOn {
		return errors.New("quota exceeded")
	}
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	deleted []string
}

func (s *fakeStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

type fakePublisher struct {
	mu            sync.Mutex
	processed     []models.NoteProcessed
	failed        []models.NoteFailed
	failProcessed bool
}

func (p *fakePublisher) PublishProcessed(ctx context.Context, ev models.NoteProcessed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, ev)
	if p.failProcessed {
		return errors.New("broker down")
	}
	return nil
}

func (p *fakePublisher) PublishFailed(ctx context.Context, ev models.NoteFailed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, ev)
	return errors.New("broker down")
}

type harness struct {
	transcriber *fakeTranscriber
	extractor   *cannedExtractor
	sheet       *fakeSheet
	store       *fakeStore
	publisher   *fakePublisher
	processor   *Processor
}

func newHarness(t *testing.T, transcript, response string, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		transcriber: &fakeTranscriber{text: transcript},
		extractor:   &cannedExtractor{response: response},
		sheet:       &fakeSheet{},
		store:       &fakeStore{},
		publisher:   &fakePublisher{},
	}
	validator := schema.NewWithClock(func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) })

	base := []Option{
		WithMetrics(testMetrics),
		WithPublisher(h.publisher),
		WithRecordingStore(h.store),
		WithConfig(Config{SuccessResetDelay: time.Hour, ErrorResetDelay: time.Hour}),
	}
	h.processor = NewProcessor(
		h.transcriber,
		extraction.NewRouter(h.extractor, validator),
		rows.NewMapper(time.UTC),
		dispatch.New(h.sheet),
		append(base, opts...)...,
	)
	t.Cleanup(h.processor.Close)
	return h
}

func request(destination string) Request {
	return Request{
		RecordingID: "rec-1",
		Audio:       []byte("webm"),
		Destination: destination,
		Duration:    8 * time.Second,
		CapturedAt:  time.Date(2025, 5, 6, 9, 30, 0, 0, time.UTC),
	}
}

func TestProcess_StudentsTwoRows(t *testing.T) {
	h := newHarness(t, pedroLuis, `{"students":[
		{"name":"Pedro","category":"Rendimiento","sentiment":"Positivo","summary":"Excelente trabajo","suggestedActions":"Felicitar"},
		{"name":"Luis","category":"Rendimiento","sentiment":"Positivo","summary":"Excelente trabajo","suggestedActions":"Felicitar"}]}`)

	res, err := h.processor.Process(context.Background(), request("Ciencias 1ºA"))

	require.NoError(t, err)
	assert.Equal(t, 2, res.RowCount)
	assert.False(t, res.Mirrored)
	require.Len(t, h.sheet.writes, 1)
	w := h.sheet.writes[0]
	assert.Equal(t, "Ciencias 1ºA", w.destination)
	require.Len(t, w.rows, 2)
	assert.Equal(t, pedroLuis, w.rows[0][3])
	assert.Equal(t, "[Continuación] "+pedroLuis, w.rows[1][3])
	assert.Equal(t, StateSuccess, h.processor.Status().State)
}

func TestProcess_StudentsCarryGeneralSummary(t *testing.T) {
	h := newHarness(t, pedroLuis, "Aquí está:\n"+`{"students":[
		{"name":"Pedro","category":"Rendimiento","sentiment":"Positivo","summary":"Bien","suggestedActions":"Felicitar"}],
		"generalSummary":"Clase buena","generalActions":"Replicar"}`)

	_, err := h.processor.Process(context.Background(), request("Ciencias 1ºA"))

	require.NoError(t, err)
	require.Len(t, h.sheet.writes, 1)
	row := h.sheet.writes[0].rows[0]
	assert.Equal(t, "Pedro", row[4])
	assert.Equal(t, "Bien | General: Clase buena", row[7])
	assert.Equal(t, "Felicitar | General: Replicar", row[8])
}

func TestProcess_NoStudentsUsesGeneralSummary(t *testing.T) {
	h := newHarness(t, "Hoy la clase fue tranquila, sin incidencias.",
		`{"students":[],"generalSummary":"Clase tranquila","generalActions":"Ninguna"}`)

	res, err := h.processor.Process(context.Background(), request("Ciencias 1ºA"))

	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)
	row := h.sheet.writes[0].rows[0]
	assert.Equal(t, rows.UnidentifiedStudent, row[4])
	assert.Equal(t, "Clase tranquila", row[7])
	assert.Equal(t, "Ninguna", row[8])
}

func TestProcess_PublishFailureDoesNotFailRun(t *testing.T) {
	h := newHarness(t, "Preparar la excursión al museo", `{"topic":"Evento","priority":"Alta"}`)
	h.publisher.failProcessed = true

	_, err := h.processor.Process(context.Background(), request(models.GeneralDestination))

	require.NoError(t, err)
	assert.Equal(t, StateSuccess, h.processor.Status().State)
	assert.Len(t, h.publisher.processed, 1)
}

func TestProcess_LeadsNoneExtractedIsMirrored(t *testing.T) {
	transcript := "Ha llamado alguien preguntando por los cursos pero no dejó ningún dato de contacto."
	h := newHarness(t, transcript, `{"leads":[]}`)

	res, err := h.processor.Process(context.Background(), request(models.LeadsDestination))

	require.NoError(t, err)
	assert.True(t, res.Mirrored)
	assert.Equal(t, 1, res.RowCount)
	require.Len(t, h.sheet.writes, 2)
	assert.Equal(t, "Leads", h.sheet.writes[0].destination)
	assert.Equal(t, "Alumnos", h.sheet.writes[1].destination)
	assert.Equal(t, h.sheet.writes[0].rows, h.sheet.writes[1].rows)

	row := h.sheet.writes[0].rows[0]
	for i := 0; i < 6; i++ {
		assert.Nil(t, row[i], "contact column %d", i)
	}
	assert.NotEmpty(t, row[11])
}

func TestProcess_GeneralAlwaysOneRow(t *testing.T) {
	for _, response := range []string{"Sorry, I can't comply", `{"topic":"Evento"}`, `{`} {
		h := newHarness(t, "Preparar la excursión al museo", response)

		res, err := h.processor.Process(context.Background(), request(models.GeneralDestination))

		require.NoError(t, err)
		assert.Equal(t, 1, res.RowCount, response)
		require.Len(t, h.sheet.writes, 1)
		assert.Len(t, h.sheet.writes[0].rows, 1)
	}
}

func TestProcess_MalformedStudentsFallback(t *testing.T) {
	h := newHarness(t, pedroLuis, "Sorry, I can't comply")

	res, err := h.processor.Process(context.Background(), request("Historia"))

	require.NoError(t, err)
	assert.True(t, res.Fallback)
	row := h.sheet.writes[0].rows[0]
	assert.Equal(t, "Estudiante 1", row[4])
	assert.Equal(t, "Otro", row[5])
	assert.Equal(t, "Neutral", row[6])
}

func TestProcess_InvalidDestination(t *testing.T) {
	h := newHarness(t, pedroLuis, `{}`)

	for _, dest := range []string{"", models.MirrorDestination} {
		_, err := h.processor.Process(context.Background(), request(dest))
		assert.ErrorIs(t, err, ErrInvalidDestination)
	}
	assert.Zero(t, h.transcriber.Calls())
	assert.Equal(t, StateIdle, h.processor.Status().State)
}

func TestProcess_PreflightFailsBeforeBackends(t *testing.T) {
	missing := errors.New("missing GOOGLE_SHEET_ID")
	h := newHarness(t, pedroLuis, `{}`, WithPreflight(func() error { return missing }))

	_, err := h.processor.Process(context.Background(), request("Historia"))

	var runErr *Error
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, KindConfiguration, runErr.Kind)
	assert.Equal(t, StagePreflight, runErr.Stage)
	assert.ErrorIs(t, err, missing)
	assert.Zero(t, h.transcriber.Calls())
	assert.Empty(t, h.sheet.writes)

	st := h.processor.Status()
	assert.Equal(t, StateError, st.State)
	assert.Contains(t, st.Message, "GOOGLE_SHEET_ID")
}

func TestProcess_StageFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *harness)
		stage     string
		kind      ErrorKind
		writes    int
		errTarget string
	}{
		{
			name:  "transcription",
			setup: func(h *harness) { h.transcriber.err = errors.New("audio rejected") },
			stage: StageTranscribing,
			kind:  KindTranscription,
		},
		{
			name:  "extraction call",
			setup: func(h *harness) { h.extractor.err = errors.New("401 unauthorized") },
			stage: StageClassifying,
			kind:  KindExtractionCall,
		},
		{
			name:      "primary write",
			setup:     func(h *harness) { h.sheet.failOn = models.LeadsDestination },
			stage:     StageUploading,
			kind:      KindWrite,
			writes:    1,
			errTarget: dispatch.TargetPrimary,
		},
		{
			name:      "mirror write",
			setup:     func(h *harness) { h.sheet.failOn = models.MirrorDestination },
			stage:     StageUploading,
			kind:      KindWrite,
			writes:    2,
			errTarget: dispatch.TargetMirror,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "Llamó Marta, 612345678", `{"leads":[{"nombre":"Marta","telefono":"612345678"}]}`)
			tt.setup(h)

			_, err := h.processor.Process(context.Background(), request(models.LeadsDestination))

			var runErr *Error
			require.ErrorAs(t, err, &runErr)
			assert.Equal(t, tt.stage, runErr.Stage)
			assert.Equal(t, tt.kind, runErr.Kind)
			assert.Len(t, h.sheet.writes, tt.writes)
			if tt.errTarget != "" {
				var writeErr *dispatch.WriteError
				require.ErrorAs(t, err, &writeErr)
				assert.Equal(t, tt.errTarget, writeErr.Target)
			}
			assert.Equal(t, StateError, h.processor.Status().State)

			require.Len(t, h.publisher.failed, 1)
			assert.Equal(t, string(tt.kind), h.publisher.failed[0].Kind)
			assert.Empty(t, h.publisher.processed)
		})
	}
}

func TestProcess_RejectsWhileBusy(t *testing.T) {
	h := newHarness(t, pedroLuis, `{"students":[]}`)
	h.transcriber.gate = make(chan struct{})
	h.transcriber.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := h.processor.Process(context.Background(), request("Historia"))
		done <- err
	}()
	<-h.transcriber.entered

	assert.True(t, h.processor.Busy())
	_, err := h.processor.Process(context.Background(), request("Historia"))
	assert.ErrorIs(t, err, ErrBusy)

	close(h.transcriber.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.transcriber.Calls(), "rejected call is not queued")

	st := h.processor.Status()
	assert.Equal(t, uint64(1), st.Runs)
	assert.Equal(t, uint64(1), st.Rejected)
	assert.Equal(t, uint64(1), st.Succeeded)
}

func TestProcess_IgnoresCallerCancellation(t *testing.T) {
	h := newHarness(t, pedroLuis, `{"students":[]}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.processor.Process(ctx, request("Historia"))

	require.NoError(t, err)
	assert.NoError(t, h.transcriber.ctxErr)
}

func TestProcess_SuccessResetDeletesRecording(t *testing.T) {
	h := newHarness(t, pedroLuis, `{"students":[]}`,
		WithConfig(Config{SuccessResetDelay: 10 * time.Millisecond, ErrorResetDelay: time.Hour}))

	_, err := h.processor.Process(context.Background(), request("Historia"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.processor.Status().State == StateIdle
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(h.store.Deleted()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"rec-1"}, h.store.Deleted())
	require.Len(t, h.publisher.processed, 1)
	assert.Equal(t, models.EventNoteProcessed, h.publisher.processed[0].EventType)
}

func TestProcess_ErrorResetKeepsRecording(t *testing.T) {
	h := newHarness(t, pedroLuis, `{"students":[]}`,
		WithConfig(Config{SuccessResetDelay: time.Hour, ErrorResetDelay: 10 * time.Millisecond}))
	h.transcriber.err = errors.New("backend rejected audio")

	_, err := h.processor.Process(context.Background(), request("Historia"))
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return h.processor.Status().State == StateIdle
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, h.store.Deleted())
}

func TestProcess_RetryAfterError(t *testing.T) {
	h := newHarness(t, pedroLuis, `{"students":[]}`)
	h.transcriber.err = errors.New("temporary")

	_, err := h.processor.Process(context.Background(), request("Historia"))
	require.Error(t, err)
	require.Equal(t, StateError, h.processor.Status().State)

	h.transcriber.err = nil
	_, err = h.processor.Process(context.Background(), request("Historia"))
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, h.processor.Status().State)
}

func TestError_Messages(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindConfiguration, "configuration error"},
		{KindTranscription, "transcription failed"},
		{KindExtractionCall, "classification failed"},
		{KindWrite, "upload failed"},
	}
	for _, tt := range tests {
		msg := (&Error{Kind: tt.kind, Err: cause}).Error()
		assert.True(t, strings.HasPrefix(msg, tt.want), msg)
		assert.Contains(t, msg, "boom")
	}
}
