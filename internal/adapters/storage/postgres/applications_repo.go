package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-adoption/internal/domain/applications"
	"pet-adoption/internal/domain/pets"
)

type ApplicationsRepo struct {
	db *sql.DB
}

func NewApplicationsRepo(db *sql.DB) *ApplicationsRepo {
	return &ApplicationsRepo{db: db}
}

const applicationColumns = `
	id, pet_id, applicant_id, status, reason, experience, living_space,
	has_other_pets, reviewed_by, reviewed_at, admin_notes, created_at, updated_at`

func (r *ApplicationsRepo) GetByID(ctx context.Context, id string) (applications.Application, error) {
	return getApplication(ctx, r.db, id)
}

func (r *ApplicationsRepo) ListByApplicant(ctx context.Context, applicantID string) ([]applications.Application, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE applicant_id = $1
		ORDER BY created_at DESC, id DESC
	`, applicantID)
	if err != nil {
		return nil, dbErr(err)
	}
	return scanApplications(rows)
}

func (r *ApplicationsRepo) List(ctx context.Context, f applications.ListFilter) ([]applications.Application, int, error) {
	where := ""
	args := []any{}
	if f.Status != "" {
		where = " WHERE status = $1"
		args = append(args, string(f.Status))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`+where, args...).Scan(&total); err != nil {
		return nil, 0, dbErr(err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, f.Offset())
	q := fmt.Sprintf(`SELECT %s FROM applications%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		applicationColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, dbErr(err)
	}
	items, err := scanApplications(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// InTx abre una transacción READ COMMITTED. El lock por mascota lo da
// LockPet (SELECT ... FOR UPDATE) y se libera en commit/rollback.
func (r *ApplicationsRepo) InTx(ctx context.Context, fn func(tx applications.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&pgTx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return dbErr(err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) LockPet(ctx context.Context, petID string) (pets.Status, error) {
	var status string
	err := t.tx.QueryRowContext(ctx, `SELECT status FROM pets WHERE id = $1 FOR UPDATE`, petID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", pets.ErrNotFound
		}
		return "", dbErr(err)
	}
	return pets.Status(status), nil
}

func (t *pgTx) SetPetStatus(ctx context.Context, petID string, status pets.Status, at time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE pets SET status = $2, updated_at = $3 WHERE id = $1
	`, petID, string(status), at)
	return affectedOne(res, err, pets.ErrNotFound)
}

func (t *pgTx) GetApplication(ctx context.Context, id string) (applications.Application, error) {
	return getApplication(ctx, t.tx, id)
}

func (t *pgTx) Insert(ctx context.Context, a applications.Application) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		a.ID,
		a.PetID,
		a.ApplicantID,
		string(a.Status),
		a.Reason,
		a.Experience,
		a.LivingSpace,
		a.HasOtherPets,
		nullString(a.ReviewedBy),
		a.ReviewedAt,
		a.AdminNotes,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return applications.ErrAlreadyApplied
	}
	return dbErr(err)
}

func (t *pgTx) UpdateReview(ctx context.Context, a applications.Application) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE applications
		SET status = $2, reviewed_by = $3, reviewed_at = $4, admin_notes = $5, updated_at = $6
		WHERE id = $1
	`,
		a.ID,
		string(a.Status),
		nullString(a.ReviewedBy),
		a.ReviewedAt,
		a.AdminNotes,
		a.UpdatedAt,
	)
	return affectedOne(res, err, applications.ErrNotFound)
}

func (t *pgTx) RejectPendingSiblings(ctx context.Context, petID, exceptID, reviewerID string, at time.Time, note string) (int, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE applications
		SET status = 'rejected', reviewed_by = $3, reviewed_at = $4, admin_notes = $5, updated_at = $4
		WHERE pet_id = $1 AND id <> $2 AND status = 'pending'
	`, petID, exceptID, reviewerID, at, note)
	if err != nil {
		return 0, dbErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbErr(err)
	}
	return int(n), nil
}

func (t *pgTx) CountPending(ctx context.Context, petID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM applications WHERE pet_id = $1 AND status = 'pending'
	`, petID).Scan(&n)
	if err != nil {
		return 0, dbErr(err)
	}
	return n, nil
}

func (t *pgTx) Delete(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	return affectedOne(res, err, applications.ErrNotFound)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getApplication(ctx context.Context, q queryRower, id string) (applications.Application, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return applications.Application{}, applications.ErrNotFound
	}

	row := q.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return applications.Application{}, applications.ErrNotFound
		}
		return applications.Application{}, dbErr(err)
	}
	return a, nil
}

func scanApplications(rows *sql.Rows) ([]applications.Application, error) {
	defer rows.Close()

	out := make([]applications.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, dbErr(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

func scanApplication(row rowScanner) (applications.Application, error) {
	var (
		a          applications.Application
		status     string
		reviewedBy sql.NullString
		reviewedAt sql.NullTime
	)
	if err := row.Scan(
		&a.ID,
		&a.PetID,
		&a.ApplicantID,
		&status,
		&a.Reason,
		&a.Experience,
		&a.LivingSpace,
		&a.HasOtherPets,
		&reviewedBy,
		&reviewedAt,
		&a.AdminNotes,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return applications.Application{}, err
	}

	a.Status = applications.Status(status)
	a.ReviewedBy = reviewedBy.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		a.ReviewedAt = &t
	}
	return a, nil
}
