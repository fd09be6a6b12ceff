package applications

import (
	"context"
	"time"

	"pet-adoption/internal/domain/pets"
	"pet-adoption/internal/platform/httpx"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (Application, error)
	// ListByApplicant devuelve las solicitudes de una cuenta, más recientes primero.
	ListByApplicant(ctx context.Context, applicantID string) ([]Application, error)
	// List devuelve la página pedida y el total que matchea el filtro.
	List(ctx context.Context, filter ListFilter) ([]Application, int, error)

	// InTx ejecuta fn como una unidad atómica. Si fn devuelve error no
	// queda nada escrito.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx son las operaciones disponibles dentro de una unidad del workflow.
type Tx interface {
	// LockPet toma el lock de la mascota hasta el fin de la unidad y
	// devuelve su estado actual. pets.ErrNotFound si no existe.
	LockPet(ctx context.Context, petID string) (pets.Status, error)
	SetPetStatus(ctx context.Context, petID string, status pets.Status, at time.Time) error

	GetApplication(ctx context.Context, id string) (Application, error)
	// Insert falla con ErrAlreadyApplied si ya existe el par (pet, applicant).
	Insert(ctx context.Context, a Application) error
	// UpdateReview persiste status, reviewedBy, reviewedAt, adminNotes y updatedAt.
	UpdateReview(ctx context.Context, a Application) error
	// RejectPendingSiblings rechaza las pendientes de petID salvo exceptID.
	RejectPendingSiblings(ctx context.Context, petID, exceptID, reviewerID string, at time.Time, note string) (int, error)
	CountPending(ctx context.Context, petID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type ListFilter struct {
	Status Status // vacío = todas

	Page  int // 1-indexed
	Limit int
}

func (f ListFilter) Offset() int {
	return httpx.Offset(f.Page, f.Limit)
}
