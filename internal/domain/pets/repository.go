package pets

import (
	"context"
	"time"

	"pet-adoption/internal/platform/httpx"
)

type Repository interface {
	Create(ctx context.Context, p Pet) error
	// Update persiste todo menos Status.
	Update(ctx context.Context, p Pet) error
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Pet, error)
	// List devuelve la página pedida y el total que matchea el filtro.
	List(ctx context.Context, filter ListFilter) ([]Pet, int, error)
}

// ListFilter es el filtro tipado del catálogo. Campos vacíos/nil no filtran.
type ListFilter struct {
	Species string // exacto, case-insensitive
	Breed   string // substring, case-insensitive
	MinAge  *int   // inclusivo
	MaxAge  *int   // inclusivo
	Status  Status
	Search  string // substring en name O breed, case-insensitive

	Page  int // 1-indexed
	Limit int
}

func (f ListFilter) Offset() int {
	return httpx.Offset(f.Page, f.Limit)
}
