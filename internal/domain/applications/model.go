package applications

import "time"

// Status de una solicitud. approved y rejected son terminales.
// @Enum pending, approved, rejected
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Decision es el resultado de una revisión: approved o rejected.
func (s Status) Decision() bool {
	return s == StatusApproved || s == StatusRejected
}

// CascadeNote es la nota que reciben las solicitudes rechazadas en cascada.
const CascadeNote = "pet adopted by another applicant"

// Application es una solicitud de adopción (pet, applicant). Como máximo
// una por par, para siempre.
type Application struct {
	ID          string
	PetID       string
	ApplicantID string

	Status Status

	Reason       string
	Experience   string
	LivingSpace  string
	HasOtherPets bool

	// Metadatos de revisión; congelados una vez revisada.
	ReviewedBy string
	ReviewedAt *time.Time
	AdminNotes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PetSummary y ApplicantSummary se adjuntan en los listados.
type PetSummary struct {
	ID      string
	Name    string
	Species string
	Breed   string
	Status  string
	Images  []string
}

type ApplicantSummary struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// View es una solicitud con sus referencias resueltas. Pet es nil si la
// mascota fue eliminada.
type View struct {
	Application
	Pet       *PetSummary
	Applicant *ApplicantSummary
}
