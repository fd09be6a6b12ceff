package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"pet-adoption/internal/domain/accounts"
	"pet-adoption/internal/domain/applications"
	"pet-adoption/internal/domain/pets"
	"pet-adoption/internal/platform/apperr"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

var petCols = []string{
	"id", "name", "species", "breed", "age", "gender", "size", "color",
	"description", "images", "status", "created_by", "created_at", "updated_at",
}

var appCols = []string{
	"id", "pet_id", "applicant_id", "status", "reason", "experience", "living_space",
	"has_other_pets", "reviewed_by", "reviewed_at", "admin_notes", "created_at", "updated_at",
}

func TestMigrate_ExecutesSchema(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
}

func TestDBErr_Mapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind apperr.Kind
	}{
		{"unique", &pgconn.PgError{Code: pgErrUniqueViolation}, apperr.KindConflict},
		{"deadlock", &pgconn.PgError{Code: pgErrDeadlockDetected}, apperr.KindUnavailable},
		{"other pg", &pgconn.PgError{Code: "23514"}, apperr.KindInternal},
		{"bad conn", driver.ErrBadConn, apperr.KindUnavailable},
		{"deadline", context.DeadlineExceeded, apperr.KindUnavailable},
		{"plain", errors.New("boom"), apperr.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := dbErr(tc.err)
			assert.Equal(t, tc.kind, apperr.KindOf(got))
			assert.ErrorIs(t, got, tc.err)
		})
	}

	assert.NoError(t, dbErr(nil))
	assert.Same(t, pets.ErrNotFound, dbErr(pets.ErrNotFound))
}

func TestPetsRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPetsRepo(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM pets WHERE id = \\$1").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(petCols).AddRow(
			"p1", "Luna", "dog", "Mix", 2, "female", "small", "black",
			"friendly", `["https://img/1.jpg"]`, "available", "admin", now, now,
		))

	p, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Luna", p.Name)
	assert.Equal(t, pets.GenderFemale, p.Gender)
	assert.Equal(t, pets.StatusAvailable, p.Status)
	assert.Equal(t, []string{"https://img/1.jpg"}, p.Images)
}

func TestPetsRepo_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPetsRepo(db)

	mock.ExpectQuery("FROM pets WHERE id = \\$1").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(petCols))

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, pets.ErrNotFound)
}

func TestPetsRepo_UpdateDoesNotWriteStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPetsRepo(db)

	mock.ExpectExec("UPDATE pets").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), pets.Pet{ID: "ghost", Status: pets.StatusAdopted})
	assert.ErrorIs(t, err, pets.ErrNotFound)
}

func TestPetsRepo_ListBuildsFilter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPetsRepo(db)
	minAge := 2

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT COUNT(*) FROM pets WHERE lower(species) = lower($1) AND age >= $2 AND status = $3 AND (name ILIKE $4 OR breed ILIKE $4)`)).
		WithArgs("dog", 2, "available", "%go\\_ld%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC LIMIT $5 OFFSET $6`)).
		WithArgs("dog", 2, "available", "%go\\_ld%", 5, 10).
		WillReturnRows(sqlmock.NewRows(petCols))

	items, total, err := repo.List(context.Background(), pets.ListFilter{
		Species: "dog",
		MinAge:  &minAge,
		Status:  pets.StatusAvailable,
		Search:  "go_ld",
		Page:    3,
		Limit:   5,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	assert.Empty(t, items)
}

func TestAccountsRepo_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountsRepo(db)

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "accounts_email_key"})

	err := repo.Create(context.Background(), accounts.Account{ID: "a1", Email: "ana@example.com"})
	assert.ErrorIs(t, err, accounts.ErrEmailTaken)
}

func TestAccountsRepo_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountsRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM accounts WHERE email = \\$1").
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "password_hash", "role", "name", "phone", "address",
			"reset_token_hash", "reset_token_expires_at", "created_at", "updated_at",
		}).AddRow("a1", "ana@example.com", "hash", "member", "Ana", "", "", nil, nil, now, now))

	a, err := repo.GetByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", a.ID)
	assert.Empty(t, a.ResetTokenHash)
	assert.Nil(t, a.ResetTokenExpiresAt)
}

func TestApplicationsRepo_InTxCommits(t *testing.T) {
	db, mock := newMock(t)
	repo := NewApplicationsRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM pets WHERE id = $1 FOR UPDATE`)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("available"))
	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE pets SET status").
		WithArgs("p1", "pending", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InTx(ctx, func(tx applications.Tx) error {
		status, err := tx.LockPet(ctx, "p1")
		if err != nil {
			return err
		}
		assert.Equal(t, pets.StatusAvailable, status)

		if err := tx.Insert(ctx, applications.Application{
			ID: "a1", PetID: "p1", ApplicantID: "m", Status: applications.StatusPending,
			CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		return tx.SetPetStatus(ctx, "p1", pets.StatusPending, now)
	})
	require.NoError(t, err)
}

func TestApplicationsRepo_InTxRollsBackOnDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewApplicationsRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "applications_pet_applicant_key"})
	mock.ExpectRollback()

	err := repo.InTx(ctx, func(tx applications.Tx) error {
		return tx.Insert(ctx, applications.Application{ID: "a2", PetID: "p1", ApplicantID: "m"})
	})
	assert.ErrorIs(t, err, applications.ErrAlreadyApplied)
}

func TestApplicationsRepo_LockPetMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewApplicationsRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	err := repo.InTx(ctx, func(tx applications.Tx) error {
		_, err := tx.LockPet(ctx, "ghost")
		return err
	})
	assert.ErrorIs(t, err, pets.ErrNotFound)
}

func TestApplicationsRepo_RejectSiblingsCount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewApplicationsRepo(db)
	ctx := context.Background()
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications\\s+SET status = 'rejected'").
		WithArgs("p1", "a1", "admin", at, applications.CascadeNote).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	var n int
	err := repo.InTx(ctx, func(tx applications.Tx) error {
		var err error
		n, err = tx.RejectPendingSiblings(ctx, "p1", "a1", "admin", at, applications.CascadeNote)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestApplicationsRepo_ListByStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewApplicationsRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM applications WHERE status = $1`)).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $2 OFFSET $3`)).
		WithArgs("pending", 10, 0).
		WillReturnRows(sqlmock.NewRows(appCols).AddRow(
			"a1", "p1", "m", "pending", "yard", "", "", true, nil, nil, "", now, now,
		))

	items, total, err := repo.List(context.Background(), applications.ListFilter{Status: applications.StatusPending, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.True(t, items[0].HasOtherPets)
	assert.Nil(t, items[0].ReviewedAt)
}

var accountCols = []string{
	"id", "email", "password_hash", "role", "name", "phone", "address",
	"reset_token_hash", "reset_token_expires_at", "created_at", "updated_at",
}

func TestAccountsRepo_UnknownRoleIsInternal(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountsRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM accounts WHERE email = \\$1").
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow("a1", "ana@example.com", "hash", "superuser", "Ana", "", "", nil, nil, now, now))

	_, err := repo.GetByEmail(context.Background(), "ana@example.com")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestAccountsRepo_ConsumeResetTokenIsConditional(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountsRepo(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`WHERE reset_token_hash = $1 AND reset_token_expires_at > $3`)).
		WithArgs("tok", "new-hash", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`WHERE reset_token_hash = $1 AND reset_token_expires_at > $3`)).
		WithArgs("tok", "other-hash", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.ConsumeResetToken(context.Background(), "tok", "new-hash", now))
	assert.ErrorIs(t, repo.ConsumeResetToken(context.Background(), "tok", "other-hash", now), accounts.ErrNotFound)
	assert.ErrorIs(t, repo.ConsumeResetToken(context.Background(), "", "x", now), accounts.ErrNotFound)
}

func TestAccountsRepo_SetResetTokenTouchesOnlyTokenColumns(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountsRepo(db)
	now := time.Now().UTC()
	exp := now.Add(time.Hour)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE accounts SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = $4 WHERE id = $1`)).
		WithArgs("a1", "tok", exp, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetResetToken(context.Background(), "a1", "tok", exp, now))
}

// Review toma el lock de la mascota antes de releer la solicitud.
func TestApplicationsRepo_ReviewLocksBeforeReread(t *testing.T) {
	db, mock := newMock(t)
	svc := applications.NewService(NewApplicationsRepo(db), nil, nil)
	now := time.Now().UTC()
	pending := func() *sqlmock.Rows {
		return sqlmock.NewRows(appCols).AddRow(
			"a1", "p1", "m", "pending", "yard", "", "", false, nil, nil, "", now, now,
		)
	}

	mock.ExpectBegin()
	mock.ExpectQuery("FROM applications WHERE id = \\$1").
		WithArgs("a1").
		WillReturnRows(pending())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM pets WHERE id = $1 FOR UPDATE`)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectQuery("FROM applications WHERE id = \\$1").
		WithArgs("a1").
		WillReturnRows(pending())
	mock.ExpectExec("UPDATE applications\\s+SET status = \\$2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE applications\\s+SET status = 'rejected'").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE pets SET status").
		WithArgs("p1", "adopted", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := svc.Review(context.Background(), "a1", "admin", applications.ReviewInput{Decision: applications.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, applications.StatusApproved, got.Status)
}

// Si otra revisión ganó mientras se esperaba el lock, la relectura lo ve.
func TestApplicationsRepo_ReviewLosesRaceAfterLock(t *testing.T) {
	db, mock := newMock(t)
	svc := applications.NewService(NewApplicationsRepo(db), nil, nil)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM applications WHERE id = \\$1").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(appCols).AddRow(
			"a1", "p1", "m", "pending", "yard", "", "", false, nil, nil, "", now, now,
		))
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("adopted"))
	mock.ExpectQuery("FROM applications WHERE id = \\$1").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(appCols).AddRow(
			"a1", "p1", "m", "rejected", "yard", "", "", false, "admin", now, applications.CascadeNote, now, now,
		))
	mock.ExpectRollback()

	_, err := svc.Review(context.Background(), "a1", "admin", applications.ReviewInput{Decision: applications.StatusApproved})
	assert.ErrorIs(t, err, applications.ErrAlreadyReviewed)
}
