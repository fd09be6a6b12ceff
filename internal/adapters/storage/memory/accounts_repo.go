package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	"pet-adoption/internal/domain/accounts"
	"pet-adoption/internal/ports/auth"
)

type accountRepo struct {
	s *Store
}

func (r *accountRepo) Create(ctx context.Context, a accounts.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(a.ID) == "" {
		return errors.New("account id required")
	}
	for _, cur := range r.s.accounts {
		if cur.Email == a.Email {
			return accounts.ErrEmailTaken
		}
	}
	r.s.accounts[a.ID] = a
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (accounts.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return accounts.Account{}, accounts.ErrNotFound
	}
	return a, nil
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (accounts.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return accounts.Account{}, accounts.ErrNotFound
}

func (r *accountRepo) GetByResetTokenHash(ctx context.Context, hash string) (accounts.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if hash == "" {
		return accounts.Account{}, accounts.ErrNotFound
	}
	for _, a := range r.s.accounts {
		if a.ResetTokenHash == hash {
			return a, nil
		}
	}
	return accounts.Account{}, accounts.ErrNotFound
}

func (r *accountRepo) UpdateProfile(ctx context.Context, id string, p accounts.Profile, at time.Time) error {
	return r.modify(id, func(a *accounts.Account) {
		a.Name = p.Name
		a.Phone = p.Phone
		a.Address = p.Address
		a.UpdatedAt = at
	})
}

func (r *accountRepo) SetPasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	return r.modify(id, func(a *accounts.Account) {
		a.PasswordHash = hash
		a.UpdatedAt = at
	})
}

func (r *accountRepo) SetRole(ctx context.Context, id string, role auth.Role, at time.Time) error {
	return r.modify(id, func(a *accounts.Account) {
		a.Role = role
		a.UpdatedAt = at
	})
}

func (r *accountRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt, at time.Time) error {
	return r.modify(id, func(a *accounts.Account) {
		a.ResetTokenHash = tokenHash
		a.ResetTokenExpiresAt = &expiresAt
		a.UpdatedAt = at
	})
}

func (r *accountRepo) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if tokenHash == "" {
		return accounts.ErrNotFound
	}
	for id, a := range r.s.accounts {
		if a.ResetTokenHash != tokenHash {
			continue
		}
		if a.ResetTokenExpiresAt == nil || !now.Before(*a.ResetTokenExpiresAt) {
			return accounts.ErrNotFound
		}
		a.PasswordHash = passwordHash
		a.ResetTokenHash = ""
		a.ResetTokenExpiresAt = nil
		a.UpdatedAt = now
		r.s.accounts[id] = a
		return nil
	}
	return accounts.ErrNotFound
}

// modify aplica fn sobre la cuenta bajo el lock de escritura.
func (r *accountRepo) modify(id string, fn func(a *accounts.Account)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return accounts.ErrNotFound
	}
	fn(&a)
	r.s.accounts[id] = a
	return nil
}
