package auth

import "pet-adoption/internal/platform/apperr"

var ErrForbidden = apperr.Forbidden("insufficient role")

// RoleSet es el conjunto de roles permitidos para una acción.
type RoleSet map[Role]struct{}

func Roles(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

var (
	AnyRole   = Roles(RoleMember, RoleAdministrator)
	AdminOnly = Roles(RoleAdministrator)
)

// Authorize es un chequeo de pertenencia puro: sin jerarquía de roles.
func Authorize(id Identity, allowed RoleSet) error {
	if _, ok := allowed[id.Role]; ok {
		return nil
	}
	return ErrForbidden
}
