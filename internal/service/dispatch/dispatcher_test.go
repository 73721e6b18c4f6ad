package dispatch

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-notes-service/internal/models"
)

type appendCall struct {
	destination string
	rows        []models.Row
}

// recordingWriter captures every append and can fail a chosen destination.
type recordingWriter struct {
	calls  []appendCall
	failOn string
}

func (w *recordingWriter) AppendRows(ctx context.Context, destination string, rows []models.Row) error {
	w.calls = append(w.calls, appendCall{destination, rows})
	if destination == w.failOn {
		return errors.New("sheets unavailable")
	}
	return nil
}

func leadRow() models.Row {
	return models.Row{nil, nil, nil, nil, nil, nil, "", "", "", "", "", "notas", "", "", "01/01/2025"}
}

func TestTargets(t *testing.T) {
	d := New(&recordingWriter{})

	assert.Equal(t, []string{"Leads", "Alumnos"}, d.Targets(models.ResolveDestination("Leads")))
	assert.Equal(t, []string{"General"}, d.Targets(models.ResolveDestination("General")))
	assert.Equal(t, []string{"1ºA"}, d.Targets(models.ResolveDestination("1ºA")))
}

func TestDispatch_LeadsMirrored(t *testing.T) {
	w := &recordingWriter{}
	d := New(w)
	rows := []models.Row{leadRow()}

	delivery, err := d.Dispatch(context.Background(), models.ResolveDestination(models.LeadsDestination), rows)

	require.NoError(t, err)
	require.Len(t, w.calls, 2)
	assert.Equal(t, "Leads", w.calls[0].destination)
	assert.Equal(t, "Alumnos", w.calls[1].destination)
	assert.Equal(t, rows, w.calls[0].rows)
	assert.Equal(t, w.calls[0].rows, w.calls[1].rows, "mirror receives the identical row set")
	assert.True(t, delivery.Mirrored)
	assert.Equal(t, []string{"Leads", "Alumnos"}, delivery.Targets)
}

func TestDispatch_NoMirrorForOtherKinds(t *testing.T) {
	for _, name := range []string{models.GeneralDestination, "Historia"} {
		w := &recordingWriter{}
		delivery, err := New(w).Dispatch(context.Background(), models.ResolveDestination(name), []models.Row{{"x"}})

		require.NoError(t, err)
		require.Len(t, w.calls, 1)
		assert.Equal(t, name, w.calls[0].destination)
		assert.False(t, delivery.Mirrored)
	}
}

func TestDispatch_MirrorFailureIsFailure(t *testing.T) {
	w := &recordingWriter{failOn: models.MirrorDestination}

	delivery, err := New(w).Dispatch(context.Background(), models.ResolveDestination(models.LeadsDestination), []models.Row{leadRow()})

	require.Error(t, err)
	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, TargetMirror, writeErr.Target)
	assert.Equal(t, models.MirrorDestination, writeErr.Destination)
	assert.Equal(t, []string{"Leads"}, delivery.Targets)
	assert.False(t, delivery.Mirrored)
}

func TestDispatch_PrimaryFailureSkipsMirror(t *testing.T) {
	w := &recordingWriter{failOn: models.LeadsDestination}

	_, err := New(w).Dispatch(context.Background(), models.ResolveDestination(models.LeadsDestination), []models.Row{leadRow()})

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, TargetPrimary, writeErr.Target)
	assert.Len(t, w.calls, 1)
}

func TestDispatch_NoRows(t *testing.T) {
	w := &recordingWriter{}

	_, err := New(w).Dispatch(context.Background(), models.ResolveDestination("Historia"), nil)

	assert.ErrorIs(t, err, ErrNoRows)
	assert.Empty(t, w.calls)
}

func TestDispatch_LogsDestinationContext(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	w := &recordingWriter{failOn: "Alumnos"}
	_, err := New(w).Dispatch(context.Background(), models.ResolveDestination(models.LeadsDestination), []models.Row{leadRow()})
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `"destination":"Leads"`)
	assert.Contains(t, out, `"destinationKind":"leads"`)
	assert.Contains(t, out, `"component":"dispatch"`)
	assert.Contains(t, out, `"target":"Alumnos"`)
}
