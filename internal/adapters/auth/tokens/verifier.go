package tokens

import (
	"context"

	"pet-adoption/internal/ports/auth"
)

// Verifier implementa auth.AuthVerifier para access tokens.
type Verifier struct {
	svc *Service
}

func NewVerifier(svc *Service) *Verifier {
	return &Verifier{svc: svc}
}

func (v *Verifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	if v == nil || v.svc == nil {
		return auth.Claims{}, ErrInvalidToken
	}
	accountID, err := v.svc.Verify(token, auth.TokenAccess)
	if err != nil {
		return auth.Claims{}, err
	}
	return auth.Claims{AccountID: accountID, Kind: auth.TokenAccess}, nil
}
