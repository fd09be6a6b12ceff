package pets

import (
	"context"
	"strings"
	"time"

	"pet-adoption/internal/platform/apperr"
	"pet-adoption/internal/platform/httpx"
	"pet-adoption/internal/platform/metrics"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = apperr.NotFound("pet not found")
	ErrInvalidStatus = apperr.InvalidArgument("invalid status", apperr.FieldError{
		Field:   "status",
		Message: "status must be one of available, pending, adopted",
	})
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Name        string
	Species     string
	Breed       string
	Age         int
	Gender      Gender
	Size        Size
	Color       string
	Description string
	Images      []string
}

// Create publica una mascota; siempre nace available.
func (s *Service) Create(ctx context.Context, createdBy string, in CreateInput) (Pet, error) {
	if strings.TrimSpace(createdBy) == "" {
		return Pet{}, apperr.InvalidArgument("creator required")
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Species) == "" {
		return Pet{}, apperr.InvalidArgument("name and species are required")
	}
	if in.Age < 0 {
		return Pet{}, apperr.InvalidArgument("age must be >= 0")
	}

	gender := in.Gender
	if gender == "" {
		gender = GenderUnknown
	}

	now := s.now()
	p := Pet{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Species:     strings.ToLower(strings.TrimSpace(in.Species)),
		Breed:       strings.TrimSpace(in.Breed),
		Age:         in.Age,
		Gender:      gender,
		Size:        in.Size,
		Color:       strings.TrimSpace(in.Color),
		Description: strings.TrimSpace(in.Description),
		Images:      cleanImages(in.Images),
		Status:      StatusAvailable,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Pet{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Pet{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

type UpdateInput struct {
	// Punteros: nil = no tocar. Status no se edita por acá.
	Name        *string
	Species     *string
	Breed       *string
	Age         *int
	Gender      *Gender
	Size        *Size
	Color       *string
	Description *string
	Images      *[]string
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Pet, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return Pet{}, err
	}

	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		if v == "" {
			return Pet{}, apperr.InvalidArgument("name cannot be empty")
		}
		p.Name = v
	}
	if in.Species != nil {
		v := strings.ToLower(strings.TrimSpace(*in.Species))
		if v == "" {
			return Pet{}, apperr.InvalidArgument("species cannot be empty")
		}
		p.Species = v
	}
	if in.Breed != nil {
		p.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.Age != nil {
		if *in.Age < 0 {
			return Pet{}, apperr.InvalidArgument("age must be >= 0")
		}
		p.Age = *in.Age
	}
	if in.Gender != nil {
		p.Gender = *in.Gender
	}
	if in.Size != nil {
		p.Size = *in.Size
	}
	if in.Color != nil {
		p.Color = strings.TrimSpace(*in.Color)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Images != nil {
		p.Images = cleanImages(*in.Images)
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return Pet{}, err
	}
	return p, nil
}

// Delete es incondicional: las solicitudes abiertas quedan huérfanas.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

// SetStatus es el override de administrador. Saltea las invariantes del
// workflow: no sincroniza solicitudes.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (Pet, error) {
	status = Status(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return Pet{}, ErrInvalidStatus
	}

	p, err := s.GetByID(ctx, id)
	if err != nil {
		return Pet{}, err
	}

	from := p.Status
	now := s.now()
	if err := s.repo.UpdateStatus(ctx, p.ID, status, now); err != nil {
		return Pet{}, err
	}
	metrics.PetTransition(string(from), string(status))

	p.Status = status
	p.UpdatedAt = now
	return p, nil
}

type ListResult struct {
	Items []Pet
	Total int
	Page  int
	Limit int
	Pages int
}

// List aplica defaults: status=available, page=1, limit=10. Más recientes primero.
func (s *Service) List(ctx context.Context, f ListFilter) (ListResult, error) {
	if f.Status == "" {
		f.Status = StatusAvailable
	} else if !f.Status.Valid() {
		return ListResult{}, ErrInvalidStatus
	}
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.MinAge != nil && f.MaxAge != nil && *f.MinAge > *f.MaxAge {
		return ListResult{}, apperr.InvalidArgument("minAge must be <= maxAge")
	}

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return ListResult{}, err
	}

	return ListResult{
		Items: items,
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
		Pages: httpx.Pages(total, f.Limit),
	}, nil
}

func cleanImages(in []string) []string {
	out := make([]string, 0, len(in))
	for _, img := range in {
		if v := strings.TrimSpace(img); v != "" {
			out = append(out, v)
		}
	}
	return out
}
