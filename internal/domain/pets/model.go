package pets

import "time"

// Status es un campo gestionado: lo mueve el workflow de adopción.
// La única escritura directa es el override de administrador.
// @Enum available, pending, adopted
type Status string

const (
	StatusAvailable Status = "available"
	StatusPending   Status = "pending"
	StatusAdopted   Status = "adopted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusPending, StatusAdopted:
		return true
	default:
		return false
	}
}

// Gender define el sexo de la mascota.
// @Enum male, female, unknown
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Size es opcional.
// @Enum small, medium, large
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Pet representa una mascota publicada para adopción.
type Pet struct {
	ID string

	Name    string
	Species string
	Breed   string
	Age     int // años
	Gender  Gender
	Size    Size
	Color   string

	Description string
	Images      []string

	Status Status

	// Quién la publicó. Informativo: cualquier administrador puede editarla.
	CreatedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}
