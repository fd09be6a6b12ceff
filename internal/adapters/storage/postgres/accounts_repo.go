package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-adoption/internal/domain/accounts"
	"pet-adoption/internal/ports/auth"
)

type AccountsRepo struct {
	db *sql.DB
}

func NewAccountsRepo(db *sql.DB) *AccountsRepo {
	return &AccountsRepo{db: db}
}

const accountColumns = `
	id, email, password_hash, role, name, phone, address,
	reset_token_hash, reset_token_expires_at, created_at, updated_at`

func (r *AccountsRepo) Create(ctx context.Context, a accounts.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		a.ID,
		a.Email,
		a.PasswordHash,
		string(a.Role),
		a.Name,
		a.Phone,
		a.Address,
		nullString(a.ResetTokenHash),
		a.ResetTokenExpiresAt,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return accounts.ErrEmailTaken
	}
	return dbErr(err)
}

func (r *AccountsRepo) UpdateProfile(ctx context.Context, id string, p accounts.Profile, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET name = $2, phone = $3, address = $4, updated_at = $5 WHERE id = $1
	`, id, p.Name, p.Phone, p.Address, at)
	return affectedOne(res, err, accounts.ErrNotFound)
}

func (r *AccountsRepo) SetPasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id, hash, at)
	return affectedOne(res, err, accounts.ErrNotFound)
}

func (r *AccountsRepo) SetRole(ctx context.Context, id string, role auth.Role, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET role = $2, updated_at = $3 WHERE id = $1
	`, id, string(role), at)
	return affectedOne(res, err, accounts.ErrNotFound)
}

func (r *AccountsRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = $4 WHERE id = $1
	`, id, tokenHash, expiresAt, at)
	return affectedOne(res, err, accounts.ErrNotFound)
}

// ConsumeResetToken: el WHERE sobre el hash vigente hace que solo un
// UPDATE concurrente afecte la fila.
func (r *AccountsRepo) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) error {
	if tokenHash == "" {
		return accounts.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET password_hash = $2, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = $3
		WHERE reset_token_hash = $1 AND reset_token_expires_at > $3
	`, tokenHash, passwordHash, now)
	return affectedOne(res, err, accounts.ErrNotFound)
}

func (r *AccountsRepo) GetByID(ctx context.Context, id string) (accounts.Account, error) {
	return r.getOne(ctx, "id", strings.TrimSpace(id))
}

func (r *AccountsRepo) GetByEmail(ctx context.Context, email string) (accounts.Account, error) {
	return r.getOne(ctx, "email", strings.TrimSpace(email))
}

func (r *AccountsRepo) GetByResetTokenHash(ctx context.Context, hash string) (accounts.Account, error) {
	return r.getOne(ctx, "reset_token_hash", strings.TrimSpace(hash))
}

// getOne: column siempre es un literal de este archivo.
func (r *AccountsRepo) getOne(ctx context.Context, column, value string) (accounts.Account, error) {
	if value == "" {
		return accounts.Account{}, accounts.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+column+` = $1`, value)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrNotFound
		}
		return accounts.Account{}, dbErr(err)
	}
	return a, nil
}

func scanAccount(row rowScanner) (accounts.Account, error) {
	var (
		a         accounts.Account
		role      string
		resetHash sql.NullString
		resetExp  sql.NullTime
	)
	if err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&role,
		&a.Name,
		&a.Phone,
		&a.Address,
		&resetHash,
		&resetExp,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return accounts.Account{}, err
	}

	parsed, ok := auth.ParseRole(role)
	if !ok {
		return accounts.Account{}, fmt.Errorf("account %s: unknown role %q", a.ID, role)
	}
	a.Role = parsed
	a.ResetTokenHash = resetHash.String
	if resetExp.Valid {
		t := resetExp.Time
		a.ResetTokenExpiresAt = &t
	}
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
