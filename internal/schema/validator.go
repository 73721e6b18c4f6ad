// Package schema turns untrusted language-model output into validated
// records. It never fails: unusable output is replaced by a fallback record
// seeded from the transcript so the pipeline always has something to write.
package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"voice-notes-service/internal/models"
)

// Placeholders written when the model leaves a narrative field empty.
const (
	PlaceholderSummary        = "Sin información específica"
	PlaceholderActions        = "Sin acciones específicas"
	PlaceholderPendingActions = "Sin acciones pendientes"
	FallbackActions           = "Revisar nota para más detalles"
	FallbackPendingActions    = "Revisar transcripción manualmente"
)

// Excerpt lengths, in runes, for fallback narrative fields.
const (
	StudentExcerptLen = 100
	GeneralExcerptLen = 200
	LeadExcerptLen    = 200
)

// Validator parses extraction output. The clock is only used to derive a
// lead's age from the birth date.
type Validator struct {
	now func() time.Time
}

// New creates a validator that uses the system clock.
func New() *Validator {
	return &Validator{now: time.Now}
}

// NewWithClock creates a validator with a fixed clock source.
func NewWithClock(now func() time.Time) *Validator {
	return &Validator{now: now}
}

// Parse validates raw against the schema selected by the destination kind.
// Only the field of the returned Extraction matching the kind is populated.
func (v *Validator) Parse(dest models.Destination, raw, transcript string) models.Extraction {
	out := models.Extraction{Destination: dest}
	switch dest.Kind {
	case models.KindLeads:
		out.Leads = v.ParseLeads(raw, transcript)
	case models.KindGeneral:
		out.General = v.ParseGeneral(raw, transcript)
	default:
		out.Students = v.ParseStudents(raw, transcript)
	}
	return out
}

// ParseStudents validates a {"students": [...]} payload.
func (v *Validator) ParseStudents(raw, transcript string) models.StudentBatch {
	batch, fallback := parseOrDefault(raw,
		func(obj gjson.Result) (models.StudentBatch, bool) {
			items := obj.Get("students")
			if !items.IsArray() {
				return models.StudentBatch{}, false
			}
			b := models.StudentBatch{
				Students:       []models.StudentRecord{},
				GeneralSummary: str(obj, "generalSummary"),
				GeneralActions: str(obj, "generalActions"),
			}
			for i, item := range items.Array() {
				b.Students = append(b.Students, normalizeStudent(item, i+1))
			}
			return b, true
		},
		// General fields survive a malformed students collection.
		func(obj gjson.Result) models.StudentBatch {
			return models.StudentBatch{
				Students:       []models.StudentRecord{fallbackStudent(transcript)},
				GeneralSummary: str(obj, "generalSummary"),
				GeneralActions: str(obj, "generalActions"),
			}
		},
	)
	batch.Fallback = fallback
	return batch
}

// ParseGeneral validates a flat general-note object. Exactly one record is
// always returned.
func (v *Validator) ParseGeneral(raw, transcript string) models.GeneralNoteRecord {
	rec, fallback := parseOrDefault(raw,
		func(obj gjson.Result) (models.GeneralNoteRecord, bool) {
			return normalizeGeneral(obj, transcript), true
		},
		func(gjson.Result) models.GeneralNoteRecord {
			return models.GeneralNoteRecord{
				Topic:          models.TopicOther,
				Priority:       models.PriorityMedium,
				Summary:        orDefault(Excerpt(transcript, GeneralExcerptLen), PlaceholderSummary),
				PendingActions: FallbackPendingActions,
			}
		},
	)
	rec.Fallback = fallback
	return rec
}

// ParseLeads validates a {"leads": [...]} payload.
func (v *Validator) ParseLeads(raw, transcript string) models.LeadBatch {
	batch, fallback := parseOrDefault(raw,
		func(obj gjson.Result) (models.LeadBatch, bool) {
			items := obj.Get("leads")
			if !items.IsArray() {
				return models.LeadBatch{}, false
			}
			b := models.LeadBatch{Leads: []models.LeadRecord{}}
			for _, item := range items.Array() {
				b.Leads = append(b.Leads, v.normalizeLead(item))
			}
			return b, true
		},
		func(gjson.Result) models.LeadBatch {
			return models.LeadBatch{Leads: []models.LeadRecord{FallbackLead(transcript)}}
		},
	)
	batch.Fallback = fallback
	return batch
}

// parseOrDefault locates the JSON object in raw (first '{' to last '}') and
// hands it to decode. When no object parses or decode rejects its shape, the
// fallback value is returned and the second result is true. obj passed to
// fallback may be the zero Result.
func parseOrDefault[T any](raw string, decode func(obj gjson.Result) (T, bool), fallback func(obj gjson.Result) T) (T, bool) {
	obj, ok := extractObject(raw)
	if ok {
		if out, ok := decode(obj); ok {
			return out, false
		}
	}
	return fallback(obj), true
}

func extractObject(raw string) (gjson.Result, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return gjson.Result{}, false
	}
	body := raw[start : end+1]
	if !gjson.Valid(body) {
		return gjson.Result{}, false
	}
	obj := gjson.Parse(body)
	if !obj.IsObject() {
		return gjson.Result{}, false
	}
	return obj, true
}

func normalizeStudent(item gjson.Result, n int) models.StudentRecord {
	return models.StudentRecord{
		Name:             orDefault(str(item, "name"), fmt.Sprintf("Estudiante %d", n)),
		Category:         ParseCategory(str(item, "category")),
		Sentiment:        ParseSentiment(str(item, "sentiment")),
		Summary:          orDefault(str(item, "summary"), PlaceholderSummary),
		SuggestedActions: orDefault(str(item, "suggestedActions"), PlaceholderActions),
	}
}

func fallbackStudent(transcript string) models.StudentRecord {
	return models.StudentRecord{
		Name:             "Estudiante 1",
		Category:         models.CategoryOther,
		Sentiment:        models.SentimentNeutral,
		Summary:          orDefault(Excerpt(transcript, StudentExcerptLen), PlaceholderSummary),
		SuggestedActions: FallbackActions,
	}
}

func normalizeGeneral(obj gjson.Result, transcript string) models.GeneralNoteRecord {
	summary := str(obj, "summary")
	if summary == "" {
		summary = orDefault(Excerpt(transcript, GeneralExcerptLen), PlaceholderSummary)
	}
	return models.GeneralNoteRecord{
		Topic:          ParseTopic(str(obj, "topic")),
		Priority:       ParsePriority(str(obj, "priority")),
		Summary:        summary,
		PendingActions: orDefault(str(obj, "pendingActions"), PlaceholderPendingActions),
	}
}

func (v *Validator) normalizeLead(item gjson.Result) models.LeadRecord {
	birth := str(item, "fechaNacimiento")
	age := AgeFromBirthDate(birth, v.now())
	if age == nil {
		age = NormalizeAge(item.Get("edad"))
	}
	return models.LeadRecord{
		Nombre:           str(item, "nombre"),
		Apellidos:        str(item, "apellidos"),
		Telefono:         NormalizePhone(str(item, "telefono")),
		Email:            str(item, "email"),
		DNI:              NormalizeDNI(str(item, "dni")),
		FechaNacimiento:  birth,
		Edad:             age,
		Estado:           ParseLeadStatus(str(item, "estado")),
		Notas:            str(item, "notas"),
		IDContacto:       str(item, "idContacto"),
		SituacionLaboral: str(item, "situacionLaboral"),
		CursoTerminado:   str(item, "cursoTerminado"),
		Interes:          str(item, "interes"),
		Disponibilidad:   str(item, "disponibilidad"),
		WhatsApp:         str(item, "whatsapp"),
		RegistroED:       str(item, "registroED"),
	}
}

// FallbackLead is the synthetic lead used when nothing usable was extracted:
// no contact data and the transcript excerpt as notes.
func FallbackLead(transcript string) models.LeadRecord {
	return models.LeadRecord{
		Estado: models.LeadNew,
		Notas:  orDefault(Excerpt(transcript, LeadExcerptLen), PlaceholderSummary),
	}
}

// str reads a scalar field as trimmed text. Numbers keep their literal form,
// null and nested values read as empty.
func str(obj gjson.Result, key string) string {
	f := obj.Get(key)
	switch f.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return strings.TrimSpace(f.String())
	default:
		return ""
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Excerpt returns s when it fits in max runes, otherwise its prefix followed
// by "..." so that the result is exactly max runes long.
func Excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return strings.TrimSpace(string(r[:max-3])) + "..."
}
