// Package memory es el storage por defecto cuando no hay DB_DSN. Un único
// Store comparte el lock entre mascotas, cuentas y solicitudes para que
// las unidades del workflow sean atómicas.
package memory

import (
	"sync"

	"pet-adoption/internal/domain/accounts"
	"pet-adoption/internal/domain/applications"
	"pet-adoption/internal/domain/pets"
)

type Store struct {
	mu sync.RWMutex

	accounts map[string]accounts.Account
	pets     map[string]pets.Pet
	apps     map[string]applications.Application

	// pet|applicant -> application id (unicidad del par, para siempre).
	pairs map[string]string
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]accounts.Account),
		pets:     make(map[string]pets.Pet),
		apps:     make(map[string]applications.Application),
		pairs:    make(map[string]string),
	}
}

func (s *Store) Accounts() accounts.Repository         { return &accountRepo{s: s} }
func (s *Store) Pets() pets.Repository                 { return &petRepo{s: s} }
func (s *Store) Applications() applications.Repository { return &applicationRepo{s: s} }

func pairKey(petID, applicantID string) string {
	return petID + "|" + applicantID
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}
