package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pet-adoption/internal/platform/apperr"
	"pet-adoption/internal/ports/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier map[string]string // token -> account id

func (f fakeVerifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	id, ok := f[token]
	if !ok {
		return auth.Claims{}, errors.New("bad token")
	}
	return auth.Claims{AccountID: id, Kind: auth.TokenAccess}, nil
}

type fakeIdentities struct {
	byID map[string]auth.Identity
	err  error
}

func (f fakeIdentities) LoadIdentity(_ context.Context, id string) (auth.Identity, error) {
	if f.err != nil {
		return auth.Identity{}, f.err
	}
	i, ok := f.byID[id]
	if !ok {
		return auth.Identity{}, apperr.NotFound("account not found")
	}
	return i, nil
}

func newTestGate() *Gate {
	return NewGate(
		fakeVerifier{"tok-admin": "admin-1", "tok-member": "member-1", "tok-ghost": "ghost"},
		fakeIdentities{byID: map[string]auth.Identity{
			"admin-1":  {AccountID: "admin-1", Role: auth.RoleAdministrator},
			"member-1": {AccountID: "member-1", Role: auth.RoleMember},
		}},
	)
}

func TestGate_Authenticate(t *testing.T) {
	g := newTestGate()
	ctx := context.Background()

	id, err := g.Authenticate(ctx, "Bearer tok-admin")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdministrator, id.Role)

	_, err = g.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = g.Authenticate(ctx, "Basic abc")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = g.Authenticate(ctx, "Bearer nope")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = g.Authenticate(ctx, "bearer tok-ghost")
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestGate_StorageFailureIsNotUnauthenticated(t *testing.T) {
	g := NewGate(fakeVerifier{"t": "x"}, fakeIdentities{err: apperr.Unavailable(errors.New("db down"))})

	_, err := g.Authenticate(context.Background(), "Bearer t")
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
}

func TestRequireRoles(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := AuthContext(newTestGate())(RequireRoles(auth.AdminOnly)(ok))

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer tok-ghost", http.StatusUnauthorized},
		{"Bearer tok-member", http.StatusForbidden},
		{"Bearer tok-admin", http.StatusNoContent},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, tc.want, w.Code, "header=%q", tc.header)
	}
}

func TestAuthContext_StorageFailureReturns503(t *testing.T) {
	g := NewGate(fakeVerifier{"t": "x"}, fakeIdentities{err: apperr.Unavailable(errors.New("db down"))})
	h := AuthContext(g)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer t")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
