package rows

import "voice-notes-service/internal/models"

// StudentColumns is the header row of a course tab.
var StudentColumns = []string{
	"Fecha", "Hora", "Duración (seg)", "Transcripción",
	"Estudiante", "Categoría", "Sentimiento", "Resumen", "Acciones",
}

// GeneralColumns is the header row of the General tab.
var GeneralColumns = []string{
	"Fecha", "Hora", "Duración (seg)", "Transcripción",
	"Tema", "Prioridad", "Acciones pendientes", "Resumen",
}

// LeadColumns is the header row of the Leads and Alumnos tabs.
var LeadColumns = []string{
	"Nombre", "Apellidos", "DNI", "Fecha de nacimiento", "Teléfono", "Email",
	"ID Contacto", "Situación laboral", "Curso terminado", "Interés",
	"Disponibilidad", "Notas", "WhatsApp", "Registro ED", "Fecha de captura",
}

// Columns returns the header row for a destination kind.
func Columns(kind models.DestinationKind) []string {
	switch kind {
	case models.KindGeneral:
		return GeneralColumns
	case models.KindLeads:
		return LeadColumns
	default:
		return StudentColumns
	}
}

// HeaderFor returns the header row for a tab name. The mirror roster shares
// the lead layout since it receives copies of lead rows.
func HeaderFor(name string) []string {
	if name == models.MirrorDestination {
		return LeadColumns
	}
	return Columns(models.ResolveDestination(name).Kind)
}
