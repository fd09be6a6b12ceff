package accounts

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"pet-adoption/internal/platform/apperr"
	"pet-adoption/internal/platform/config"
	"pet-adoption/internal/ports/auth"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = apperr.NotFound("account not found")
	ErrEmailTaken         = apperr.Conflict("email already registered")
	ErrInvalidCredentials = apperr.Unauthenticated("invalid credentials")
	ErrWrongPassword      = apperr.InvalidArgument("current password is incorrect")
	ErrInvalidResetToken  = apperr.InvalidArgument("invalid or expired reset token")
	ErrUnknownEmail       = apperr.NotFound("no account with that email")
	ErrPasswordTooLong    = apperr.InvalidArgument("password too long", apperr.FieldError{
		Field:   "password",
		Message: "password must be at most 72 bytes",
	})
)

const (
	minPasswordLen   = 6
	maxPasswordBytes = 72
)

// TokenIssuer es lo que el credential store necesita del servicio de tokens.
type TokenIssuer interface {
	IssueAccessToken(accountID string) (string, error)
	IssueRefreshToken(accountID string) (string, error)
	Refresh(refreshToken string) (string, error)
}

type Service struct {
	repo     Repository
	hasher   PasswordHasher
	tokens   TokenIssuer
	resetTTL time.Duration
	now      func() time.Time
}

func NewService(repo Repository, hasher PasswordHasher, tokens TokenIssuer, cfg config.AuthConfig) *Service {
	ttl := cfg.ResetTokenTTL
	if ttl <= 0 {
		ttl = config.DefaultResetTokenTTL
	}
	return &Service{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		resetTTL: ttl,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

// Register crea siempre cuentas member; no hay auto-elevación.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || strings.TrimSpace(in.Name) == "" {
		return Session{}, apperr.InvalidArgument("name and email are required")
	}
	if err := checkPassword(in.Password); err != nil {
		return Session{}, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}

	now := s.now()
	a := Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleMember,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return Session{}, err
	}
	return s.session(a)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	a, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := s.hasher.Compare(a.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(a)
}

// Refresh delega en el servicio de tokens: no rota el refresh token.
func (s *Service) Refresh(_ context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", apperr.InvalidArgument("refresh token required")
	}
	return s.tokens.Refresh(refreshToken)
}

func (s *Service) GetByID(ctx context.Context, id string) (Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Account{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// LoadIdentity resuelve la cuenta detrás de un token ya verificado.
func (s *Service) LoadIdentity(ctx context.Context, accountID string) (auth.Identity, error) {
	a, err := s.GetByID(ctx, accountID)
	if err != nil {
		return auth.Identity{}, err
	}
	return a.Identity(), nil
}

type ProfileInput struct {
	Name    *string
	Phone   *string
	Address *string
}

func (s *Service) UpdateProfile(ctx context.Context, accountID string, in ProfileInput) (Account, error) {
	a, err := s.GetByID(ctx, accountID)
	if err != nil {
		return Account{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Account{}, apperr.InvalidArgument("name cannot be empty")
		}
		a.Name = name
	}
	if in.Phone != nil {
		a.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		a.Address = strings.TrimSpace(*in.Address)
	}
	a.UpdatedAt = s.now()

	p := Profile{Name: a.Name, Phone: a.Phone, Address: a.Address}
	if err := s.repo.UpdateProfile(ctx, a.ID, p, a.UpdatedAt); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (s *Service) ChangePassword(ctx context.Context, accountID, current, next string) error {
	a, err := s.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(a.PasswordHash, current); err != nil {
		return ErrWrongPassword
	}
	if err := checkPassword(next); err != nil {
		return err
	}

	hash, err := s.hashPassword(next)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, a.ID, hash, s.now())
}

// ForgotPassword genera un token de reset y lo devuelve al llamante
// (no hay envío de email). Solo se guarda el hash.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	a, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return "", ErrUnknownEmail
		}
		return "", err
	}

	raw, err := newResetToken()
	if err != nil {
		return "", apperr.Internal(err)
	}

	now := s.now()
	if err := s.repo.SetResetToken(ctx, a.ID, hashResetToken(raw), now.Add(s.resetTTL), now); err != nil {
		return "", err
	}
	return raw, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	if err := checkPassword(password); err != nil {
		return err
	}

	tokenHash := hashResetToken(token)
	a, err := s.repo.GetByResetTokenHash(ctx, tokenHash)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	now := s.now()
	if a.ResetTokenExpiresAt == nil || !now.Before(*a.ResetTokenExpiresAt) {
		return ErrInvalidResetToken
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}

	// El consumo es condicional: de dos resets concurrentes gana uno.
	err = s.repo.ConsumeResetToken(ctx, tokenHash, hash, now)
	if apperr.Is(err, apperr.KindNotFound) {
		return ErrInvalidResetToken
	}
	return err
}

// EnsureAdministrator es la elevación fuera de banda: crea o promueve la
// cuenta indicada al arrancar el proceso. No hay endpoint equivalente.
func (s *Service) EnsureAdministrator(ctx context.Context, email, password string) (Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return Account{}, apperr.InvalidArgument("admin email required")
	}

	a, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if a.Role == auth.RoleAdministrator {
			return a, nil
		}
		a.Role = auth.RoleAdministrator
		a.UpdatedAt = s.now()
		if err := s.repo.SetRole(ctx, a.ID, a.Role, a.UpdatedAt); err != nil {
			return Account{}, err
		}
		return a, nil
	case !apperr.Is(err, apperr.KindNotFound):
		return Account{}, err
	}

	if err := checkPassword(password); err != nil {
		return Account{}, err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return Account{}, err
	}

	now := s.now()
	a = Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleAdministrator,
		Name:         "Administrator",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (s *Service) session(a Account) (Session, error) {
	access, err := s.tokens.IssueAccessToken(a.ID)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.tokens.IssueRefreshToken(a.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Account: a, AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkPassword mide bytes: bcrypt no acepta más de maxPasswordBytes.
func checkPassword(pw string) error {
	if len(pw) < minPasswordLen {
		return apperr.InvalidArgument("password too short", apperr.FieldError{
			Field:   "password",
			Message: "password must be at least 6 characters",
		})
	}
	if len(pw) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func (s *Service) hashPassword(pw string) (string, error) {
	hash, err := s.hasher.Hash(pw)
	switch {
	case err == nil:
		return hash, nil
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return "", ErrPasswordTooLong
	default:
		return "", apperr.Internal(err)
	}
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
