package accounts

import (
	"time"

	"pet-adoption/internal/ports/auth"
)

// Account es la identidad registrada. El rol solo cambia fuera de banda.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         auth.Role

	Name    string
	Phone   string
	Address string

	// Credencial de reset de un solo uso (hash sha256 + expiración).
	ResetTokenHash      string
	ResetTokenExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Account) Identity() auth.Identity {
	return auth.Identity{AccountID: a.ID, Email: a.Email, Role: a.Role}
}

// Session es lo que devuelven register/login.
type Session struct {
	Account      Account
	AccessToken  string
	RefreshToken string
}
