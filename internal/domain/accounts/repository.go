package accounts

import (
	"context"
	"time"

	"pet-adoption/internal/ports/auth"
)

// Profile son los datos que el titular puede editar.
type Profile struct {
	Name    string
	Phone   string
	Address string
}

// Repository no expone un Update de registro completo: cada escritura toca
// solo sus columnas, así dos flujos concurrentes no se pisan.
type Repository interface {
	// Create falla con ErrEmailTaken si el email ya existe.
	Create(ctx context.Context, a Account) error
	GetByID(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByResetTokenHash(ctx context.Context, hash string) (Account, error)

	UpdateProfile(ctx context.Context, id string, p Profile, at time.Time) error
	SetPasswordHash(ctx context.Context, id, hash string, at time.Time) error
	SetRole(ctx context.Context, id string, role auth.Role, at time.Time) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt, at time.Time) error
	// ConsumeResetToken reemplaza el hash de contraseña y borra el token en
	// una sola escritura, solo si tokenHash sigue vigente en now.
	// ErrNotFound si ya se usó, venció o no existe.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) error
}
