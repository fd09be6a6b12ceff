package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"pet-adoption/internal/domain/pets"
)

type petRepo struct {
	s *Store
}

func (r *petRepo) Create(ctx context.Context, p pets.Pet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		return errors.New("pet id required")
	}
	if _, exists := r.s.pets[p.ID]; exists {
		return errors.New("pet already exists")
	}
	r.s.pets[p.ID] = clonePet(p)
	return nil
}

// Update conserva el status almacenado.
func (r *petRepo) Update(ctx context.Context, p pets.Pet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, exists := r.s.pets[p.ID]
	if !exists {
		return pets.ErrNotFound
	}
	p.Status = cur.Status
	r.s.pets[p.ID] = clonePet(p)
	return nil
}

func (r *petRepo) UpdateStatus(ctx context.Context, id string, status pets.Status, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.setPetStatus(id, status, at)
}

func (r *petRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.pets[id]; !exists {
		return pets.ErrNotFound
	}
	delete(r.s.pets, id)
	return nil
}

func (r *petRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.pets[id]
	if !ok {
		return pets.Pet{}, pets.ErrNotFound
	}
	return clonePet(p), nil
}

func (r *petRepo) List(ctx context.Context, f pets.ListFilter) ([]pets.Pet, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]pets.Pet, 0)
	for _, p := range r.s.pets {
		if f.Matches(p) {
			out = append(out, clonePet(p))
		}
	}

	// Más recientes primero; id como desempate estable.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	return page(out, f.Offset(), f.Limit), len(out), nil
}

// setPetStatus asume el lock de escritura tomado.
func (s *Store) setPetStatus(id string, status pets.Status, at time.Time) error {
	p, ok := s.pets[id]
	if !ok {
		return pets.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = at
	s.pets[id] = p
	return nil
}

func clonePet(p pets.Pet) pets.Pet {
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	return p
}
