// Package tokens emite y verifica los bearer tokens (access y refresh).
// No persiste nada: los tokens son stateless y no hay revocación.
package tokens

import (
	"errors"
	"strings"
	"time"

	"pet-adoption/internal/platform/apperr"
	"pet-adoption/internal/platform/config"
	"pet-adoption/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = apperr.Unauthenticated("invalid or expired token")
	ErrNoSecret     = errors.New("tokens: access secret required")
)

type claims struct {
	Kind auth.TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

func NewService(cfg config.TokenConfig) (*Service, error) {
	access := strings.TrimSpace(cfg.AccessSecret)
	if access == "" {
		return nil, ErrNoSecret
	}
	refresh := strings.TrimSpace(cfg.RefreshSecret)
	if refresh == "" {
		refresh = access
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = config.DefaultAccessTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = config.DefaultRefreshTTL
	}

	return &Service{
		accessSecret:  []byte(access),
		refreshSecret: []byte(refresh),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}, nil
}

func (s *Service) IssueAccessToken(accountID string) (string, error) {
	return s.issue(accountID, auth.TokenAccess, s.accessSecret, s.accessTTL)
}

func (s *Service) IssueRefreshToken(accountID string) (string, error) {
	return s.issue(accountID, auth.TokenRefresh, s.refreshSecret, s.refreshTTL)
}

// Verify valida firma, expiración y tipo; devuelve el account id.
func (s *Service) Verify(token string, kind auth.TokenKind) (string, error) {
	secret, ok := s.secretFor(kind)
	if !ok {
		return "", ErrInvalidToken
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	// Con secretos iguales (fallback) la firma no alcanza para distinguir el tipo.
	if c.Kind != kind {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(c.Subject) == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

// Refresh reemite solo el access token; el refresh token se reutiliza.
func (s *Service) Refresh(refreshToken string) (string, error) {
	accountID, err := s.Verify(refreshToken, auth.TokenRefresh)
	if err != nil {
		return "", err
	}
	return s.IssueAccessToken(accountID)
}

func (s *Service) issue(accountID string, kind auth.TokenKind, secret []byte, ttl time.Duration) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", apperr.InvalidArgument("account id required")
	}

	now := s.now()
	c := claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return signed, nil
}

func (s *Service) secretFor(kind auth.TokenKind) ([]byte, bool) {
	switch kind {
	case auth.TokenAccess:
		return s.accessSecret, true
	case auth.TokenRefresh:
		return s.refreshSecret, true
	default:
		return nil, false
	}
}
