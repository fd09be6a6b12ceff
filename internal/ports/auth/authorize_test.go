package auth

import (
	"testing"

	"pet-adoption/internal/platform/apperr"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize_MembershipOnly(t *testing.T) {
	admin := Identity{AccountID: "a", Role: RoleAdministrator}
	member := Identity{AccountID: "m", Role: RoleMember}

	assert.NoError(t, Authorize(admin, AdminOnly))
	assert.NoError(t, Authorize(member, AnyRole))

	err := Authorize(member, AdminOnly)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	// sin jerarquía: admin no satisface un set solo-member
	assert.Error(t, Authorize(admin, Roles(RoleMember)))
}

func TestAuthorize_UnknownRoleNeverPasses(t *testing.T) {
	assert.Error(t, Authorize(Identity{Role: Role("root")}, AnyRole))
	assert.Error(t, Authorize(Identity{}, AnyRole))
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" Administrator ")
	assert.True(t, ok)
	assert.Equal(t, RoleAdministrator, r)

	_, ok = ParseRole("owner")
	assert.False(t, ok)
}
