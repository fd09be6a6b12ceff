package middleware

import (
	"context"
	"net/http"
	"strings"

	"pet-adoption/internal/platform/apperr"
	"pet-adoption/internal/platform/httpx"
	"pet-adoption/internal/ports/auth"
)

type ctxKey string

const identityKey ctxKey = "identity"

var (
	ErrMissingToken  = apperr.Unauthenticated("authentication required")
	ErrInvalidToken  = apperr.Unauthenticated("invalid or expired token")
	ErrAccountExists = apperr.Unauthenticated("account no longer exists")
)

// IdentityLoader resuelve la cuenta de un token verificado.
// Se define acá para no importar el dominio accounts (evita ciclos).
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, accountID string) (auth.Identity, error)
}

// Gate autentica bearer tokens y carga la cuenta.
type Gate struct {
	verifier   auth.AuthVerifier
	identities IdentityLoader
}

func NewGate(verifier auth.AuthVerifier, identities IdentityLoader) *Gate {
	return &Gate{verifier: verifier, identities: identities}
}

// Authenticate recibe el valor crudo del header Authorization.
func (g *Gate) Authenticate(ctx context.Context, authHeader string) (auth.Identity, error) {
	token := bearerToken(authHeader)
	if token == "" {
		return auth.Identity{}, ErrMissingToken
	}

	claims, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return auth.Identity{}, ErrInvalidToken
	}

	id, err := g.identities.LoadIdentity(ctx, claims.AccountID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return auth.Identity{}, ErrAccountExists
		}
		return auth.Identity{}, err
	}
	return id, nil
}

// AuthContext:
// - Si viene Bearer token válido => setea la identidad.
// - Si no, el request sigue igual; RequireRoles decide 401/403.
// - Fallas de storage cortan con 503 para no degradar a anónimo.
func AuthContext(gate *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if strings.TrimSpace(header) == "" || gate == nil {
				next.ServeHTTP(w, r)
				return
			}

			id, err := gate.Authenticate(r.Context(), header)
			if err != nil {
				if apperr.IsServerFault(err) {
					httpx.Error(w, r, err)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles exige identidad (401) y rol dentro del set (403).
func RequireRoles(allowed auth.RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentity(r.Context())
			if !ok {
				httpx.Error(w, r, ErrMissingToken)
				return
			}
			if err := auth.Authorize(id, allowed); err != nil {
				httpx.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetIdentity(ctx context.Context) (auth.Identity, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	if !ok || strings.TrimSpace(id.AccountID) == "" {
		return auth.Identity{}, false
	}
	return id, true
}

func bearerToken(authHeader string) string {
	if strings.TrimSpace(authHeader) == "" {
		return ""
	}
	parts := strings.SplitN(strings.TrimSpace(authHeader), " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
