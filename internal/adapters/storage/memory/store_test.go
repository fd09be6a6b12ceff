package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pet-adoption/internal/domain/accounts"
	"pet-adoption/internal/domain/applications"
	"pet-adoption/internal/domain/pets"
	"pet-adoption/internal/ports/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPet(t *testing.T, s *Store, id string, created time.Time) {
	t.Helper()
	require.NoError(t, s.Pets().Create(context.Background(), pets.Pet{
		ID:        id,
		Name:      "Pet " + id,
		Species:   "dog",
		Status:    pets.StatusAvailable,
		CreatedAt: created,
		UpdatedAt: created,
	}))
}

func TestAccounts_UniqueEmailAndLookups(t *testing.T) {
	s := NewStore()
	repo := s.Accounts()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, accounts.Account{ID: "a1", Email: "ana@example.com"}))
	err := repo.Create(ctx, accounts.Account{ID: "a2", Email: "ana@example.com"})
	assert.ErrorIs(t, err, accounts.ErrEmailTaken)

	got, err := repo.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	_, err = repo.GetByResetTokenHash(ctx, "")
	assert.ErrorIs(t, err, accounts.ErrNotFound)

	now := time.Now()
	require.NoError(t, repo.SetResetToken(ctx, "a1", "abc", now.Add(time.Minute), now))
	byHash, err := repo.GetByResetTokenHash(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "a1", byHash.ID)

	assert.ErrorIs(t, repo.SetPasswordHash(ctx, "ghost", "h", now), accounts.ErrNotFound)
	assert.ErrorIs(t, repo.SetRole(ctx, "ghost", auth.RoleAdministrator, now), accounts.ErrNotFound)
}

func TestAccounts_TargetedWritesKeepOtherColumns(t *testing.T) {
	s := NewStore()
	repo := s.Accounts()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, accounts.Account{ID: "a1", Email: "ana@example.com", PasswordHash: "old", Role: auth.RoleMember}))
	require.NoError(t, repo.SetPasswordHash(ctx, "a1", "new", now))
	require.NoError(t, repo.SetResetToken(ctx, "a1", "tok", now.Add(time.Minute), now))
	require.NoError(t, repo.UpdateProfile(ctx, "a1", accounts.Profile{Name: "Ana"}, now))
	require.NoError(t, repo.SetRole(ctx, "a1", auth.RoleAdministrator, now))

	got, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)
	assert.Equal(t, "tok", got.ResetTokenHash)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, auth.RoleAdministrator, got.Role)
}

func TestAccounts_ConsumeResetTokenOnce(t *testing.T) {
	s := NewStore()
	repo := s.Accounts()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, accounts.Account{ID: "a1", Email: "ana@example.com", PasswordHash: "old"}))
	require.NoError(t, repo.SetResetToken(ctx, "a1", "tok", now.Add(time.Minute), now))

	const n = 8
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.ConsumeResetToken(ctx, "tok", fmt.Sprintf("pw-%d", i), now)
			if err == nil {
				wins.Add(1)
				return
			}
			assert.ErrorIs(t, err, accounts.ErrNotFound)
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	got, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, got.ResetTokenHash)
	assert.Nil(t, got.ResetTokenExpiresAt)
	assert.NotEqual(t, "old", got.PasswordHash)
}

func TestAccounts_ConsumeExpiredResetToken(t *testing.T) {
	s := NewStore()
	repo := s.Accounts()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, accounts.Account{ID: "a1", Email: "ana@example.com", PasswordHash: "old"}))
	require.NoError(t, repo.SetResetToken(ctx, "a1", "tok", now, now))

	assert.ErrorIs(t, repo.ConsumeResetToken(ctx, "tok", "new", now), accounts.ErrNotFound)
	got, _ := repo.GetByID(ctx, "a1")
	assert.Equal(t, "old", got.PasswordHash)
}

func TestPets_UpdateKeepsStatus(t *testing.T) {
	s := NewStore()
	repo := s.Pets()
	ctx := context.Background()
	seedPet(t, s, "p1", time.Now())

	require.NoError(t, repo.UpdateStatus(ctx, "p1", pets.StatusPending, time.Now()))

	p, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	p.Name = "Renamed"
	p.Status = pets.StatusAvailable
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, pets.StatusPending, got.Status)
}

func TestPets_ListNewestFirstWithTotal(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"p1", "p2", "p3"} {
		seedPet(t, s, id, base.Add(time.Duration(i)*time.Hour))
	}

	items, total, err := s.Pets().List(context.Background(), pets.ListFilter{Status: pets.StatusAvailable, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "p3", items[0].ID)
	assert.Equal(t, "p2", items[1].ID)

	items, _, err = s.Pets().List(context.Background(), pets.ListFilter{Status: pets.StatusAvailable, Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
}

func TestList_HugePageIsEmpty(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedPet(t, s, "p1", time.Now())

	items, total, err := s.Pets().List(ctx, pets.ListFilter{Status: pets.StatusAvailable, Page: math.MaxInt, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, items)

	res, err := pets.NewService(s.Pets()).List(ctx, pets.ListFilter{Page: math.MaxInt, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 1, res.Pages)

	apps, _, err := s.Applications().List(ctx, applications.ListFilter{Page: math.MaxInt, Limit: math.MaxInt})
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestPage_ClampsOffset(t *testing.T) {
	items := []int{1, 2, 3}
	assert.Equal(t, []int{1, 2}, page(items, -5, 2))
	assert.Empty(t, page(items, 10, 2))
	assert.Equal(t, []int{3}, page(items, 2, math.MaxInt))
}

func TestPets_ReturnsCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Pets().Create(ctx, pets.Pet{ID: "p1", Images: []string{"a"}}))

	p, _ := s.Pets().GetByID(ctx, "p1")
	p.Images[0] = "mutated"

	again, _ := s.Pets().GetByID(ctx, "p1")
	assert.Equal(t, "a", again.Images[0])
}

func TestInTx_RollsBackEveryWrite(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedPet(t, s, "p1", time.Now())
	boom := errors.New("boom")

	err := s.Applications().InTx(ctx, func(tx applications.Tx) error {
		require.NoError(t, tx.Insert(ctx, applications.Application{ID: "a1", PetID: "p1", ApplicantID: "m", Status: applications.StatusPending}))
		require.NoError(t, tx.SetPetStatus(ctx, "p1", pets.StatusPending, time.Now()))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Applications().GetByID(ctx, "a1")
	assert.ErrorIs(t, err, applications.ErrNotFound)

	p, _ := s.Pets().GetByID(ctx, "p1")
	assert.Equal(t, pets.StatusAvailable, p.Status)

	// El par quedó libre tras el rollback.
	err = s.Applications().InTx(ctx, func(tx applications.Tx) error {
		return tx.Insert(ctx, applications.Application{ID: "a2", PetID: "p1", ApplicantID: "m", Status: applications.StatusPending})
	})
	assert.NoError(t, err)
}

func TestInTx_PairUniqueness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	insert := func(id string) error {
		return s.Applications().InTx(ctx, func(tx applications.Tx) error {
			return tx.Insert(ctx, applications.Application{ID: id, PetID: "p1", ApplicantID: "m"})
		})
	}

	require.NoError(t, insert("a1"))
	assert.ErrorIs(t, insert("a2"), applications.ErrAlreadyApplied)
}

func TestInTx_RejectSiblingsAndCount(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	at := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	err := s.Applications().InTx(ctx, func(tx applications.Tx) error {
		for _, a := range []applications.Application{
			{ID: "a1", PetID: "p1", ApplicantID: "m", Status: applications.StatusPending},
			{ID: "a2", PetID: "p1", ApplicantID: "n", Status: applications.StatusPending},
			{ID: "a3", PetID: "p1", ApplicantID: "o", Status: applications.StatusRejected},
			{ID: "a4", PetID: "p2", ApplicantID: "m", Status: applications.StatusPending},
		} {
			if err := tx.Insert(ctx, a); err != nil {
				return err
			}
		}

		n, err := tx.CountPending(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = tx.RejectPendingSiblings(ctx, "p1", "a1", "admin", at, applications.CascadeNote)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return nil
	})
	require.NoError(t, err)

	a2, err := s.Applications().GetByID(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, applications.StatusRejected, a2.Status)
	assert.Equal(t, applications.CascadeNote, a2.AdminNotes)
	assert.Equal(t, "admin", a2.ReviewedBy)
	require.NotNil(t, a2.ReviewedAt)
	assert.True(t, a2.ReviewedAt.Equal(at))

	a4, _ := s.Applications().GetByID(ctx, "a4")
	assert.Equal(t, applications.StatusPending, a4.Status)
}

func TestInTx_CanceledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Applications().InTx(ctx, func(applications.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// Recorrido completo del workflow sobre el Store real.
func TestWorkflowOnStore(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	petSvc := pets.NewService(s.Pets())
	p, err := petSvc.Create(ctx, "admin", pets.CreateInput{Name: "Luna", Species: "dog", Age: 2})
	require.NoError(t, err)

	svc := applications.NewService(s.Applications(), petSvc, s.Accounts())

	a1, err := svc.Create(ctx, "m", applications.CreateInput{PetID: p.ID, Reason: "yard"})
	require.NoError(t, err)

	got, _ := petSvc.GetByID(ctx, p.ID)
	assert.Equal(t, pets.StatusPending, got.Status)

	_, err = svc.Review(ctx, a1.ID, "admin", applications.ReviewInput{Decision: applications.StatusApproved})
	require.NoError(t, err)

	got, _ = petSvc.GetByID(ctx, p.ID)
	assert.Equal(t, pets.StatusAdopted, got.Status)

	mine, err := svc.ListMine(ctx, "m")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Pet)
	assert.Equal(t, "Luna", mine[0].Pet.Name)
}

// Varias aprobaciones concurrentes sobre hermanas: exactamente una gana.
func TestWorkflowOnStore_ConcurrentSiblingApprovals(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	petSvc := pets.NewService(s.Pets())
	p, err := petSvc.Create(ctx, "admin", pets.CreateInput{Name: "Luna", Species: "dog", Age: 2})
	require.NoError(t, err)
	svc := applications.NewService(s.Applications(), petSvc, s.Accounts())

	const n = 6
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		// El override devuelve la mascota a available para sumar hermanas.
		_, err := petSvc.SetStatus(ctx, p.ID, pets.StatusAvailable)
		require.NoError(t, err)
		a, err := svc.Create(ctx, fmt.Sprintf("m%d", i), applications.CreateInput{PetID: p.ID, Reason: "yard"})
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.Review(ctx, id, "admin", applications.ReviewInput{Decision: applications.StatusApproved})
			if err == nil {
				wins.Add(1)
				return
			}
			assert.ErrorIs(t, err, applications.ErrAlreadyReviewed)
		}(id)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())

	got, err := petSvc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, pets.StatusAdopted, got.Status)

	approved, rejected := 0, 0
	for _, id := range ids {
		a, err := s.Applications().GetByID(ctx, id)
		require.NoError(t, err)
		switch a.Status {
		case applications.StatusApproved:
			approved++
		case applications.StatusRejected:
			rejected++
			assert.Equal(t, applications.CascadeNote, a.AdminNotes)
		}
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, n-1, rejected)
}

// Creates concurrentes del mismo par: uno solo entra.
func TestWorkflowOnStore_ConcurrentDuplicateCreates(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	petSvc := pets.NewService(s.Pets())
	p, err := petSvc.Create(ctx, "admin", pets.CreateInput{Name: "Luna", Species: "dog", Age: 2})
	require.NoError(t, err)
	svc := applications.NewService(s.Applications(), petSvc, s.Accounts())

	const n = 8
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, "m", applications.CreateInput{PetID: p.ID, Reason: "yard"})
			if err == nil {
				wins.Add(1)
				return
			}
			// Según quién llegue primero al lock: la mascota ya no está
			// available, o el par ya existe.
			if !errors.Is(err, applications.ErrPetNotAvailable) && !errors.Is(err, applications.ErrAlreadyApplied) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	mine, err := s.Applications().ListByApplicant(ctx, "m")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

// Con la mascota forzada a available, el único freno es la unicidad del par.
func TestInTx_ConcurrentPairInsert(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedPet(t, s, "p1", time.Now())
	repo := s.Applications()

	const n = 8
	var (
		wg        sync.WaitGroup
		wins      atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.InTx(ctx, func(tx applications.Tx) error {
				return tx.Insert(ctx, applications.Application{
					ID:          fmt.Sprintf("a%d", i),
					PetID:       "p1",
					ApplicantID: "m",
					Status:      applications.StatusPending,
				})
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, applications.ErrAlreadyApplied):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, n-1, conflicts.Load())
}
