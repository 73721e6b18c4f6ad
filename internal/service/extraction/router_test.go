package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-notes-service/internal/models"
	"voice-notes-service/internal/schema"
)

// fakeExtractor records which path was called and returns canned text.
type fakeExtractor struct {
	calls    []string
	response string
	err      error
}

func (f *fakeExtractor) ExtractStudents(ctx context.Context, transcript string) (string, error) {
	f.calls = append(f.calls, "students")
	return f.response, f.err
}

func (f *fakeExtractor) ExtractGeneralNote(ctx context.Context, transcript string) (string, error) {
	f.calls = append(f.calls, "general")
	return f.response, f.err
}

func (f *fakeExtractor) ExtractLeads(ctx context.Context, transcript string) (string, error) {
	f.calls = append(f.calls, "leads")
	return f.response, f.err
}

func (f *fakeExtractor) Name() string { return "fake" }

func newTestRouter(f *fakeExtractor) *Router {
	v := schema.NewWithClock(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) })
	return NewRouter(f, v)
}

func TestResolveDestination(t *testing.T) {
	tests := []struct {
		name     string
		expected models.DestinationKind
	}{
		{"Leads", models.KindLeads},
		{"General", models.KindGeneral},
		{"4ºA Matemáticas", models.KindStudents},
		{"leads", models.KindStudents},
		{"general", models.KindStudents},
		{"Alumnos", models.KindStudents},
		{"", models.KindStudents},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := models.ResolveDestination(tt.name)
			assert.Equal(t, tt.expected, dest.Kind)
			assert.Equal(t, tt.name, dest.Name)
		})
	}
}

func TestRouter_SelectsPath(t *testing.T) {
	tests := []struct {
		destination string
		call        string
	}{
		{models.LeadsDestination, "leads"},
		{models.GeneralDestination, "general"},
		{"2ºB Historia", "students"},
	}

	for _, tt := range tests {
		t.Run(tt.destination, func(t *testing.T) {
			f := &fakeExtractor{response: "{}"}
			out, err := newTestRouter(f).Route(context.Background(), tt.destination, "texto")

			require.NoError(t, err)
			assert.Equal(t, []string{tt.call}, f.calls)
			assert.Equal(t, tt.destination, out.Destination.Name)
		})
	}
}

func TestRouter_StudentsTwoEntries(t *testing.T) {
	f := &fakeExtractor{response: `{"students": [
		{"name": "Pedro", "category": "Rendimiento", "sentiment": "Positivo", "summary": "Excelente", "suggestedActions": "Motivar"},
		{"name": "Luis", "category": "Rendimiento", "sentiment": "Positivo", "summary": "Excelente", "suggestedActions": "Motivar"}
	]}`}

	out, err := newTestRouter(f).Route(context.Background(), "Ciencias", "Pedro y Luis trabajaron excelente en el proyecto de ciencias")

	require.NoError(t, err)
	assert.Equal(t, models.KindStudents, out.Destination.Kind)
	assert.Equal(t, 2, out.RecordCount())
	assert.False(t, out.IsFallback())
}

func TestRouter_MalformedOutputIsRecovered(t *testing.T) {
	f := &fakeExtractor{response: "Sorry, I can't comply"}

	out, err := newTestRouter(f).Route(context.Background(), "Ciencias", "Nota sobre la clase")

	require.NoError(t, err)
	assert.True(t, out.IsFallback())
	require.Len(t, out.Students.Students, 1)
	assert.Equal(t, "Estudiante 1", out.Students.Students[0].Name)
}

func TestRouter_GeneralAlwaysOneRecord(t *testing.T) {
	for _, raw := range []string{"", "garbage", `{"topic": "Evento"}`, `{"students": []}`} {
		f := &fakeExtractor{response: raw}
		out, err := newTestRouter(f).Route(context.Background(), models.GeneralDestination, "nota")
		require.NoError(t, err)
		assert.Equal(t, 1, out.RecordCount(), "raw=%q", raw)
	}
}

func TestRouter_CallFailurePropagates(t *testing.T) {
	boom := errors.New("connection reset")
	f := &fakeExtractor{err: boom}

	_, err := newTestRouter(f).Route(context.Background(), models.LeadsDestination, "texto")

	require.Error(t, err)
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, models.KindLeads, callErr.Kind)
	assert.ErrorIs(t, err, boom)
}
