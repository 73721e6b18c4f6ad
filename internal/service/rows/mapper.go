// Package rows flattens validated records into positional sheet rows.
// Every mapping returns at least one row.
package rows

import (
	"math"
	"time"

	"voice-notes-service/internal/models"
	"voice-notes-service/internal/schema"
)

// Formats used for the date and time cells.
const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04:05"
)

// ContinuationPrefix marks the transcript cell of every row after the first
// when one transcript yields several students.
const ContinuationPrefix = "[Continuación] "

const generalSeparator = " | General: "

// Values for the student row written when no student was identified.
const (
	UnidentifiedStudent = "No detectado"
)

// Mapper converts an Extraction plus recording metadata into rows.
type Mapper struct {
	loc *time.Location
}

// NewMapper creates a mapper that renders dates in loc (UTC when nil).
func NewMapper(loc *time.Location) *Mapper {
	if loc == nil {
		loc = time.UTC
	}
	return &Mapper{loc: loc}
}

// Map returns the rows for ext in the column order of its destination kind.
func (m *Mapper) Map(ext models.Extraction, meta models.Metadata) []models.Row {
	switch ext.Destination.Kind {
	case models.KindGeneral:
		return m.GeneralRows(ext.General, meta)
	case models.KindLeads:
		return m.LeadRows(ext.Leads.Leads, meta)
	default:
		return m.StudentRows(ext.Students, meta)
	}
}

// StudentRows returns one row per student:
// [date, time, duration, transcript, name, category, sentiment, summary, actions].
// Only the first row carries the verbatim transcript.
func (m *Mapper) StudentRows(batch models.StudentBatch, meta models.Metadata) []models.Row {
	date, clock, secs := m.stamp(meta)

	if len(batch.Students) == 0 {
		summary := batch.GeneralSummary
		if summary == "" {
			summary = schema.Excerpt(meta.Transcript, schema.StudentExcerptLen)
		}
		return []models.Row{{
			date, clock, secs, meta.Transcript,
			UnidentifiedStudent,
			string(models.CategoryOther),
			string(models.SentimentNeutral),
			summary,
			batch.GeneralActions,
		}}
	}

	out := make([]models.Row, 0, len(batch.Students))
	for i, s := range batch.Students {
		transcript := meta.Transcript
		if i > 0 {
			transcript = ContinuationPrefix + meta.Transcript
		}
		out = append(out, models.Row{
			date, clock, secs, transcript,
			s.Name,
			string(s.Category),
			string(s.Sentiment),
			withGeneral(s.Summary, batch.GeneralSummary),
			withGeneral(s.SuggestedActions, batch.GeneralActions),
		})
	}
	return out
}

// GeneralRows returns exactly one row:
// [date, time, duration, transcript, topic, priority, pendingActions, summary].
func (m *Mapper) GeneralRows(rec models.GeneralNoteRecord, meta models.Metadata) []models.Row {
	date, clock, secs := m.stamp(meta)
	return []models.Row{{
		date, clock, secs, meta.Transcript,
		string(rec.Topic),
		string(rec.Priority),
		rec.PendingActions,
		rec.Summary,
	}}
}

// LeadRows returns one row per lead, or a single fallback row when none was
// extracted. Columns follow LeadColumns.
func (m *Mapper) LeadRows(leads []models.LeadRecord, meta models.Metadata) []models.Row {
	date, _, _ := m.stamp(meta)

	if len(leads) == 0 {
		leads = []models.LeadRecord{schema.FallbackLead(meta.Transcript)}
	}

	out := make([]models.Row, 0, len(leads))
	for _, l := range leads {
		out = append(out, models.Row{
			nullable(l.Nombre),
			nullable(l.Apellidos),
			nullable(l.DNI),
			nullable(l.FechaNacimiento),
			nullable(l.Telefono),
			nullable(l.Email),
			l.IDContacto,
			l.SituacionLaboral,
			l.CursoTerminado,
			l.Interes,
			l.Disponibilidad,
			l.Notas,
			l.WhatsApp,
			l.RegistroED,
			date,
		})
	}
	return out
}

func (m *Mapper) stamp(meta models.Metadata) (string, string, int) {
	t := meta.CapturedAt.In(m.loc)
	secs := int(math.Round(meta.Duration.Seconds()))
	return t.Format(DateLayout), t.Format(TimeLayout), secs
}

func withGeneral(s, general string) string {
	if general == "" {
		return s
	}
	return s + generalSeparator + general
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
