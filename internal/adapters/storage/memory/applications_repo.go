package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"pet-adoption/internal/domain/applications"
	"pet-adoption/internal/domain/pets"
)

type applicationRepo struct {
	s *Store
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (applications.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.apps[id]
	if !ok {
		return applications.Application{}, applications.ErrNotFound
	}
	return a, nil
}

func (r *applicationRepo) ListByApplicant(ctx context.Context, applicantID string) ([]applications.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]applications.Application, 0)
	for _, a := range r.s.apps {
		if a.ApplicantID == applicantID {
			out = append(out, a)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *applicationRepo) List(ctx context.Context, f applications.ListFilter) ([]applications.Application, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]applications.Application, 0)
	for _, a := range r.s.apps {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
	}
	sortNewestFirst(out)
	return page(out, f.Offset(), f.Limit), len(out), nil
}

// InTx toma el lock de escritura del Store durante toda la unidad: eso
// serializa las unidades (LockPet no necesita más). Cada escritura anota
// su inversa; si fn falla se deshacen en orden inverso.
func (r *applicationRepo) InTx(ctx context.Context, fn func(tx applications.Tx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{s: r.s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type memTx struct {
	s    *Store
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) LockPet(ctx context.Context, petID string) (pets.Status, error) {
	p, ok := t.s.pets[petID]
	if !ok {
		return "", pets.ErrNotFound
	}
	return p.Status, nil
}

func (t *memTx) SetPetStatus(ctx context.Context, petID string, status pets.Status, at time.Time) error {
	prev, ok := t.s.pets[petID]
	if !ok {
		return pets.ErrNotFound
	}
	if err := t.s.setPetStatus(petID, status, at); err != nil {
		return err
	}
	t.undo = append(t.undo, func() { t.s.pets[petID] = prev })
	return nil
}

func (t *memTx) GetApplication(ctx context.Context, id string) (applications.Application, error) {
	a, ok := t.s.apps[id]
	if !ok {
		return applications.Application{}, applications.ErrNotFound
	}
	return a, nil
}

func (t *memTx) Insert(ctx context.Context, a applications.Application) error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("application id required")
	}
	key := pairKey(a.PetID, a.ApplicantID)
	if _, taken := t.s.pairs[key]; taken {
		return applications.ErrAlreadyApplied
	}
	if _, exists := t.s.apps[a.ID]; exists {
		return errors.New("application already exists")
	}

	t.s.apps[a.ID] = a
	t.s.pairs[key] = a.ID
	t.undo = append(t.undo, func() {
		delete(t.s.apps, a.ID)
		delete(t.s.pairs, key)
	})
	return nil
}

func (t *memTx) UpdateReview(ctx context.Context, a applications.Application) error {
	prev, ok := t.s.apps[a.ID]
	if !ok {
		return applications.ErrNotFound
	}

	next := prev
	next.Status = a.Status
	next.ReviewedBy = a.ReviewedBy
	next.ReviewedAt = a.ReviewedAt
	next.AdminNotes = a.AdminNotes
	next.UpdatedAt = a.UpdatedAt
	t.s.apps[a.ID] = next

	t.undo = append(t.undo, func() { t.s.apps[a.ID] = prev })
	return nil
}

func (t *memTx) RejectPendingSiblings(ctx context.Context, petID, exceptID, reviewerID string, at time.Time, note string) (int, error) {
	n := 0
	for id, a := range t.s.apps {
		if a.PetID != petID || id == exceptID || a.Status != applications.StatusPending {
			continue
		}
		prev := a

		reviewedAt := at
		a.Status = applications.StatusRejected
		a.ReviewedBy = reviewerID
		a.ReviewedAt = &reviewedAt
		a.AdminNotes = note
		a.UpdatedAt = at
		t.s.apps[id] = a

		t.undo = append(t.undo, func() { t.s.apps[prev.ID] = prev })
		n++
	}
	return n, nil
}

func (t *memTx) CountPending(ctx context.Context, petID string) (int, error) {
	n := 0
	for _, a := range t.s.apps {
		if a.PetID == petID && a.Status == applications.StatusPending {
			n++
		}
	}
	return n, nil
}

// Delete libera también el par (pet, applicant).
func (t *memTx) Delete(ctx context.Context, id string) error {
	prev, ok := t.s.apps[id]
	if !ok {
		return applications.ErrNotFound
	}
	key := pairKey(prev.PetID, prev.ApplicantID)

	delete(t.s.apps, id)
	delete(t.s.pairs, key)
	t.undo = append(t.undo, func() {
		t.s.apps[id] = prev
		t.s.pairs[key] = id
	})
	return nil
}

func sortNewestFirst(items []applications.Application) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
}
