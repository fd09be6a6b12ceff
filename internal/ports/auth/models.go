package auth

import "strings"

// Role es el enum cerrado de roles de cuenta.
type Role string

const (
	RoleMember        Role = "member"
	RoleAdministrator Role = "administrator"
)

func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdministrator
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// TokenKind distingue access de refresh; cada uno con su secreto.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Claims representa la información extraída del token.
type Claims struct {
	AccountID string
	Kind      TokenKind
}

// Identity es el llamante autenticado (cuenta ya cargada).
type Identity struct {
	AccountID string
	Email     string
	Role      Role
}
