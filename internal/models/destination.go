package models

import "fmt"

// Reserved destination names. Matching is exact and case-sensitive.
const (
	GeneralDestination = "General"
	LeadsDestination   = "Leads"
	// MirrorDestination is the students roster that receives a copy of every
	// Leads write. It is a write target only and never an active destination.
	MirrorDestination = "Alumnos"
)

// DestinationKind selects the extraction schema and the row shape.
type DestinationKind int

const (
	// KindStudents is the default for every course tab.
	KindStudents DestinationKind = iota
	// KindGeneral is the general classroom notes tab.
	KindGeneral
	// KindLeads is the sales-lead contact tab.
	KindLeads
)

// String returns the string representation of the kind.
func (k DestinationKind) String() string {
	switch k {
	case KindStudents:
		return "students"
	case KindGeneral:
		return "general"
	case KindLeads:
		return "leads"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Destination is a spreadsheet tab together with its resolved kind.
type Destination struct {
	Name string
	Kind DestinationKind
}

// ResolveDestination classifies a tab name. Leads is checked before General,
// every other name is a student/course destination.
func ResolveDestination(name string) Destination {
	switch {
	case name == LeadsDestination:
		return Destination{Name: name, Kind: KindLeads}
	case name == GeneralDestination:
		return Destination{Name: name, Kind: KindGeneral}
	default:
		return Destination{Name: name, Kind: KindStudents}
	}
}

// IsSelectable reports whether name may be used as the active destination.
func IsSelectable(name string) bool {
	return name != "" && name != MirrorDestination
}
