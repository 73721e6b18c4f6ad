package models

// Category classifies a student observation.
type Category string

const (
	CategoryBehaviour     Category = "Comportamiento"
	CategoryPerformance   Category = "Rendimiento"
	CategoryParticipation Category = "Participación"
	CategoryAttendance    Category = "Asistencia"
	CategorySocial        Category = "Social"
	CategoryOther         Category = "Otro"
)

// Categories lists every accepted category.
var Categories = []Category{
	CategoryBehaviour, CategoryPerformance, CategoryParticipation,
	CategoryAttendance, CategorySocial, CategoryOther,
}

// Sentiment is the tone of a student observation.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positivo"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negativo"
)

var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

// Topic classifies a general classroom note.
type Topic string

const (
	TopicMeeting        Topic = "Reunión"
	TopicPlanning       Topic = "Planificación"
	TopicAssessment     Topic = "Evaluación"
	TopicAdministrative Topic = "Administrativo"
	TopicResources      Topic = "Recursos"
	TopicEvent          Topic = "Evento"
	TopicTraining       Topic = "Formación"
	TopicOther          Topic = "Otro"
)

var Topics = []Topic{
	TopicMeeting, TopicPlanning, TopicAssessment, TopicAdministrative,
	TopicResources, TopicEvent, TopicTraining, TopicOther,
}

// Priority of a general note.
type Priority string

const (
	PriorityHigh   Priority = "Alta"
	PriorityMedium Priority = "Media"
	PriorityLow    Priority = "Baja"
)

var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// LeadStatus is the sales funnel state of a lead.
type LeadStatus string

const (
	LeadNew           LeadStatus = "Nuevo"
	LeadContacted     LeadStatus = "Contactado"
	LeadInterested    LeadStatus = "Interesado"
	LeadNotInterested LeadStatus = "No interesado"
	LeadUnsure        LeadStatus = "Dudoso"
)

var LeadStatuses = []LeadStatus{LeadNew, LeadContacted, LeadInterested, LeadNotInterested, LeadUnsure}

// StudentRecord is one student observation extracted from a transcript.
type StudentRecord struct {
	Name             string    `json:"name"`
	Category         Category  `json:"category"`
	Sentiment        Sentiment `json:"sentiment"`
	Summary          string    `json:"summary"`
	SuggestedActions string    `json:"suggestedActions"`
}

// StudentBatch is the result of the students extraction for one transcript.
type StudentBatch struct {
	Students       []StudentRecord `json:"students"`
	GeneralSummary string          `json:"generalSummary,omitempty"`
	GeneralActions string          `json:"generalActions,omitempty"`
	// Fallback is set when the model output could not be used and the
	// batch holds a synthetic record.
	Fallback bool `json:"-"`
}

// GeneralNoteRecord is the single record of a general classroom note.
type GeneralNoteRecord struct {
	Topic          Topic    `json:"topic"`
	Priority       Priority `json:"priority"`
	Summary        string   `json:"summary"`
	PendingActions string   `json:"pendingActions"`
	Fallback       bool     `json:"-"`
}

// LeadRecord holds the contact data of a prospective student.
// Empty contact fields are written as null cells.
type LeadRecord struct {
	Nombre           string     `json:"nombre,omitempty"`
	Apellidos        string     `json:"apellidos,omitempty"`
	Telefono         string     `json:"telefono,omitempty"`
	Email            string     `json:"email,omitempty"`
	DNI              string     `json:"dni,omitempty"`
	FechaNacimiento  string     `json:"fechaNacimiento,omitempty"`
	Edad             *int       `json:"edad,omitempty"`
	Estado           LeadStatus `json:"estado"`
	Notas            string     `json:"notas,omitempty"`
	IDContacto       string     `json:"idContacto,omitempty"`
	SituacionLaboral string     `json:"situacionLaboral,omitempty"`
	CursoTerminado   string     `json:"cursoTerminado,omitempty"`
	Interes          string     `json:"interes,omitempty"`
	Disponibilidad   string     `json:"disponibilidad,omitempty"`
	WhatsApp         string     `json:"whatsapp,omitempty"`
	RegistroED       string     `json:"registroED,omitempty"`
}

// LeadBatch is the result of the leads extraction for one transcript.
type LeadBatch struct {
	Leads    []LeadRecord `json:"leads"`
	Fallback bool         `json:"-"`
}

// Extraction is the validated output of the router for one transcript.
// Only the field matching Destination.Kind is populated.
type Extraction struct {
	Destination Destination
	Students    StudentBatch
	General     GeneralNoteRecord
	Leads       LeadBatch
}

// RecordCount returns the number of extracted records.
func (e Extraction) RecordCount() int {
	switch e.Destination.Kind {
	case KindGeneral:
		return 1
	case KindLeads:
		return len(e.Leads.Leads)
	default:
		return len(e.Students.Students)
	}
}

// IsFallback reports whether the validator had to substitute defaults for
// unusable model output.
func (e Extraction) IsFallback() bool {
	switch e.Destination.Kind {
	case KindGeneral:
		return e.General.Fallback
	case KindLeads:
		return e.Leads.Fallback
	default:
		return e.Students.Fallback
	}
}
