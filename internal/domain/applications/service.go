package applications

import (
	"context"
	"strings"
	"time"

	"pet-adoption/internal/domain/accounts"
	"pet-adoption/internal/domain/pets"
	"pet-adoption/internal/platform/apperr"
	"pet-adoption/internal/platform/httpx"
	"pet-adoption/internal/platform/metrics"
	"pet-adoption/internal/ports/auth"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = apperr.NotFound("application not found")
	ErrPetNotAvailable  = apperr.InvalidState("pet not available")
	ErrAlreadyApplied   = apperr.Conflict("already applied")
	ErrAlreadyReviewed  = apperr.InvalidState("already reviewed")
	ErrCannotDelete     = apperr.InvalidState("cannot delete reviewed applications")
	ErrNotOwner         = apperr.Forbidden("not the owner of this application")
	ErrInvalidDecision  = apperr.InvalidArgument("invalid decision", apperr.FieldError{Field: "status", Message: "status must be approved or rejected"})
	ErrInvalidStatusArg = apperr.InvalidArgument("invalid status", apperr.FieldError{Field: "status", Message: "status must be one of pending, approved, rejected"})
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// PetLookup y ApplicantLookup resuelven referencias para los listados.
type PetLookup interface {
	GetByID(ctx context.Context, id string) (pets.Pet, error)
}

type ApplicantLookup interface {
	GetByID(ctx context.Context, id string) (accounts.Account, error)
}

// Service es el motor del workflow de adopción. Todas las escrituras que
// tocan mascota y solicitudes a la vez corren dentro de repo.InTx.
type Service struct {
	repo       Repository
	pets       PetLookup
	applicants ApplicantLookup
	now        func() time.Time
}

func NewService(repo Repository, petLookup PetLookup, applicants ApplicantLookup) *Service {
	return &Service{
		repo:       repo,
		pets:       petLookup,
		applicants: applicants,
		now:        time.Now,
	}
}

type CreateInput struct {
	PetID        string
	Reason       string
	Experience   string
	LivingSpace  string
	HasOtherPets bool
}

// transition acumula lo que se reporta a métricas después del commit.
type transition struct {
	petFrom, petTo pets.Status
	events         map[string]int
}

func (t *transition) event(name string, n int) {
	if t.events == nil {
		t.events = map[string]int{}
	}
	t.events[name] += n
}

func (t *transition) emit() {
	if t.petFrom != "" && t.petTo != "" {
		metrics.PetTransition(string(t.petFrom), string(t.petTo))
	}
	for name, n := range t.events {
		metrics.ApplicationEvent(name, n)
	}
}

// Create inserta la solicitud pendiente y pasa la mascota a pending.
func (s *Service) Create(ctx context.Context, applicantID string, in CreateInput) (Application, error) {
	applicantID = strings.TrimSpace(applicantID)
	petID := strings.TrimSpace(in.PetID)
	if applicantID == "" {
		return Application{}, apperr.InvalidArgument("applicant required")
	}
	if petID == "" {
		return Application{}, apperr.InvalidArgument("pet required", apperr.FieldError{Field: "petId", Message: "petId is required"})
	}

	now := s.now()
	a := Application{
		ID:           uuid.NewString(),
		PetID:        petID,
		ApplicantID:  applicantID,
		Status:       StatusPending,
		Reason:       strings.TrimSpace(in.Reason),
		Experience:   strings.TrimSpace(in.Experience),
		LivingSpace:  strings.TrimSpace(in.LivingSpace),
		HasOtherPets: in.HasOtherPets,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var tr transition
	err := s.repo.InTx(ctx, func(tx Tx) error {
		status, err := tx.LockPet(ctx, petID)
		if err != nil {
			return err
		}
		if status != pets.StatusAvailable {
			return ErrPetNotAvailable
		}
		if err := tx.Insert(ctx, a); err != nil {
			return err
		}
		if err := tx.SetPetStatus(ctx, petID, pets.StatusPending, now); err != nil {
			return err
		}
		tr.petFrom, tr.petTo = status, pets.StatusPending
		tr.event("created", 1)
		return nil
	})
	if err != nil {
		return Application{}, err
	}

	tr.emit()
	return a, nil
}

type ReviewInput struct {
	Decision   Status
	AdminNotes string
}

// Review aprueba o rechaza una solicitud pendiente.
//
// Aprobar: mascota -> adopted y el resto de pendientes se rechaza en
// cascada con CascadeNote. Rechazar: si no quedan pendientes la mascota
// vuelve a available.
//
// Si la mascota ya no existe la revisión se registra igual y se omite la
// sincronización de su estado.
func (s *Service) Review(ctx context.Context, applicationID, reviewerID string, in ReviewInput) (Application, error) {
	decision := Status(strings.ToLower(strings.TrimSpace(string(in.Decision))))
	if !decision.Decision() {
		return Application{}, ErrInvalidDecision
	}
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return Application{}, ErrNotFound
	}

	var (
		out Application
		tr  transition
	)
	err := s.repo.InTx(ctx, func(tx Tx) error {
		a, err := tx.GetApplication(ctx, applicationID)
		if err != nil {
			return err
		}

		petStatus, err := tx.LockPet(ctx, a.PetID)
		petGone := apperr.Is(err, apperr.KindNotFound)
		if err != nil && !petGone {
			return err
		}

		// Releer con el lock tomado: otra revisión pudo ganar la carrera.
		a, err = tx.GetApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if a.Status != StatusPending {
			return ErrAlreadyReviewed
		}

		now := s.now()
		a.Status = decision
		a.ReviewedBy = reviewerID
		a.ReviewedAt = &now
		a.AdminNotes = strings.TrimSpace(in.AdminNotes)
		a.UpdatedAt = now
		if err := tx.UpdateReview(ctx, a); err != nil {
			return err
		}
		out = a

		switch decision {
		case StatusApproved:
			tr.event("approved", 1)

			n, err := tx.RejectPendingSiblings(ctx, a.PetID, a.ID, reviewerID, now, CascadeNote)
			if err != nil {
				return err
			}
			tr.event("cascade_rejected", n)

			if petGone {
				return nil
			}
			if err := tx.SetPetStatus(ctx, a.PetID, pets.StatusAdopted, now); err != nil {
				return err
			}
			tr.petFrom, tr.petTo = petStatus, pets.StatusAdopted

		case StatusRejected:
			tr.event("rejected", 1)
			if petGone {
				return nil
			}
			return s.syncAfterRemoval(ctx, tx, a.PetID, petStatus, now, &tr)
		}
		return nil
	})
	if err != nil {
		return Application{}, err
	}

	tr.emit()
	return out, nil
}

// Delete retira una solicitud propia todavía pendiente.
func (s *Service) Delete(ctx context.Context, applicationID, requesterID string) error {
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return ErrNotFound
	}

	var tr transition
	err := s.repo.InTx(ctx, func(tx Tx) error {
		a, err := tx.GetApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if a.ApplicantID != requesterID {
			return ErrNotOwner
		}

		petStatus, err := tx.LockPet(ctx, a.PetID)
		petGone := apperr.Is(err, apperr.KindNotFound)
		if err != nil && !petGone {
			return err
		}

		a, err = tx.GetApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if a.Status != StatusPending {
			return ErrCannotDelete
		}

		if err := tx.Delete(ctx, a.ID); err != nil {
			return err
		}
		tr.event("deleted", 1)

		if petGone {
			return nil
		}
		return s.syncAfterRemoval(ctx, tx, a.PetID, petStatus, s.now(), &tr)
	})
	if err != nil {
		return err
	}

	tr.emit()
	return nil
}

// syncAfterRemoval devuelve la mascota a available cuando ya no quedan
// pendientes. Una mascota adopted no se toca.
func (s *Service) syncAfterRemoval(ctx context.Context, tx Tx, petID string, current pets.Status, at time.Time, tr *transition) error {
	if current == pets.StatusAdopted {
		return nil
	}
	n, err := tx.CountPending(ctx, petID)
	if err != nil {
		return err
	}
	if n > 0 || current == pets.StatusAvailable {
		return nil
	}
	if err := tx.SetPetStatus(ctx, petID, pets.StatusAvailable, at); err != nil {
		return err
	}
	tr.petFrom, tr.petTo = current, pets.StatusAvailable
	return nil
}

func (s *Service) ListMine(ctx context.Context, accountID string) ([]View, error) {
	items, err := s.repo.ListByApplicant(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, items, false)
}

type ListResult struct {
	Items []View
	Total int
	Page  int
	Limit int
	Pages int
}

// ListAll es el listado de administración, paginado y más recientes primero.
func (s *Service) ListAll(ctx context.Context, f ListFilter) (ListResult, error) {
	if f.Status != "" && !f.Status.Valid() {
		return ListResult{}, ErrInvalidStatusArg
	}
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return ListResult{}, err
	}
	views, err := s.views(ctx, items, true)
	if err != nil {
		return ListResult{}, err
	}

	return ListResult{Items: views, Total: total, Page: f.Page, Limit: f.Limit, Pages: httpx.Pages(total, f.Limit)}, nil
}

// GetOne: solo el dueño o un administrador.
func (s *Service) GetOne(ctx context.Context, applicationID string, requester auth.Identity) (View, error) {
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return View{}, ErrNotFound
	}

	a, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return View{}, err
	}
	if a.ApplicantID != requester.AccountID && requester.Role != auth.RoleAdministrator {
		return View{}, ErrNotOwner
	}

	views, err := s.views(ctx, []Application{a}, true)
	if err != nil {
		return View{}, err
	}
	return views[0], nil
}

func (s *Service) views(ctx context.Context, items []Application, withApplicant bool) ([]View, error) {
	out := make([]View, 0, len(items))
	petCache := map[string]*PetSummary{}
	applicantCache := map[string]*ApplicantSummary{}

	for _, a := range items {
		v := View{Application: a}

		if s.pets != nil {
			ps, ok := petCache[a.PetID]
			if !ok {
				p, err := s.pets.GetByID(ctx, a.PetID)
				switch {
				case err == nil:
					ps = &PetSummary{ID: p.ID, Name: p.Name, Species: p.Species, Breed: p.Breed, Status: string(p.Status), Images: p.Images}
				case !apperr.Is(err, apperr.KindNotFound):
					return nil, err
				}
				petCache[a.PetID] = ps
			}
			v.Pet = ps
		}

		if withApplicant && s.applicants != nil {
			as, ok := applicantCache[a.ApplicantID]
			if !ok {
				acc, err := s.applicants.GetByID(ctx, a.ApplicantID)
				switch {
				case err == nil:
					as = &ApplicantSummary{ID: acc.ID, Name: acc.Name, Email: acc.Email, Phone: acc.Phone}
				case !apperr.Is(err, apperr.KindNotFound):
					return nil, err
				}
				applicantCache[a.ApplicantID] = as
			}
			v.Applicant = as
		}

		out = append(out, v)
	}
	return out, nil
}
