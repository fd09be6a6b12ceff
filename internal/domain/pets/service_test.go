package pets

import (
	"context"
	"sort"
	"testing"
	"time"

	"pet-adoption/internal/platform/apperr"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Pet
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Pet{}}
}

func (r *testRepo) Create(_ context.Context, p Pet) error {
	r.byID[p.ID] = p
	return nil
}

func (r *testRepo) Update(_ context.Context, p Pet) error {
	cur, ok := r.byID[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.Status = cur.Status
	r.byID[p.ID] = p
	return nil
}

func (r *testRepo) UpdateStatus(_ context.Context, id string, status Status, at time.Time) error {
	p, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = at
	r.byID[id] = p
	return nil
}

func (r *testRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) GetByID(_ context.Context, id string) (Pet, error) {
	p, ok := r.byID[id]
	if !ok {
		return Pet{}, ErrNotFound
	}
	return p, nil
}

func (r *testRepo) List(_ context.Context, f ListFilter) ([]Pet, int, error) {
	all := make([]Pet, 0)
	for _, p := range r.byID {
		if f.Matches(p) {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

// -------------------------
// Helpers
// -------------------------

func newTestService(start time.Time) (*Service, *testRepo) {
	repo := newTestRepo()
	svc := NewService(repo)

	now := start
	svc.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return svc, repo
}

func mustCreate(t *testing.T, svc *Service, in CreateInput) Pet {
	t.Helper()
	p, err := svc.Create(context.Background(), "admin-1", in)
	if err != nil {
		t.Fatalf("create %q: %v", in.Name, err)
	}
	return p
}

func intPtr(v int) *int { return &v }

// -------------------------
// Tests
// -------------------------

func TestCreate_AlwaysAvailable(t *testing.T) {
	svc, _ := newTestService(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	p := mustCreate(t, svc, CreateInput{Name: " Luna ", Species: "Dog", Breed: "Mix", Age: 2})

	if p.Status != StatusAvailable {
		t.Fatalf("expected available, got %s", p.Status)
	}
	if p.Name != "Luna" || p.Species != "dog" {
		t.Fatalf("expected trimmed/lowercased fields, got %q %q", p.Name, p.Species)
	}
	if p.Gender != GenderUnknown {
		t.Fatalf("expected default gender unknown, got %s", p.Gender)
	}
	if p.CreatedBy != "admin-1" {
		t.Fatalf("expected createdBy admin-1, got %s", p.CreatedBy)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(time.Now())

	_, err := svc.Create(context.Background(), "admin-1", CreateInput{Species: "dog"})
	if !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Fatalf("expected invalid argument for missing name, got %v", err)
	}

	_, err = svc.Create(context.Background(), "admin-1", CreateInput{Name: "x", Species: "dog", Age: -1})
	if !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Fatalf("expected invalid argument for negative age, got %v", err)
	}
}

func TestUpdate_DoesNotTouchStatus(t *testing.T) {
	svc, repo := newTestService(time.Now())
	ctx := context.Background()

	p := mustCreate(t, svc, CreateInput{Name: "Milo", Species: "cat", Age: 1})
	if _, err := svc.SetStatus(ctx, p.ID, StatusPending); err != nil {
		t.Fatalf("set status: %v", err)
	}

	name := "Milo II"
	updated, err := svc.Update(ctx, p.ID, UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Milo II" {
		t.Fatalf("expected name updated, got %q", updated.Name)
	}
	if got := repo.byID[p.ID].Status; got != StatusPending {
		t.Fatalf("update must not change status, got %s", got)
	}
}

func TestUpdate_RejectsEmptyName(t *testing.T) {
	svc, _ := newTestService(time.Now())
	p := mustCreate(t, svc, CreateInput{Name: "Milo", Species: "cat"})

	empty := "  "
	_, err := svc.Update(context.Background(), p.ID, UpdateInput{Name: &empty})
	if !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService(time.Now())

	_, err := svc.Update(context.Background(), "missing", UpdateInput{})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetStatus_ValidatesEnum(t *testing.T) {
	svc, _ := newTestService(time.Now())
	p := mustCreate(t, svc, CreateInput{Name: "Rex", Species: "dog"})

	if _, err := svc.SetStatus(context.Background(), p.ID, "sold"); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	got, err := svc.SetStatus(context.Background(), p.ID, " ADOPTED ")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if got.Status != StatusAdopted {
		t.Fatalf("expected adopted, got %s", got.Status)
	}
}

func TestDelete_Unconditional(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()
	p := mustCreate(t, svc, CreateInput{Name: "Rex", Species: "dog"})
	_, _ = svc.SetStatus(ctx, p.ID, StatusPending)

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, p.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := svc.Delete(ctx, p.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestList_DefaultsToAvailable(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()

	a := mustCreate(t, svc, CreateInput{Name: "A", Species: "dog"})
	_ = mustCreate(t, svc, CreateInput{Name: "B", Species: "dog"})
	if _, err := svc.SetStatus(ctx, a.ID, StatusAdopted); err != nil {
		t.Fatalf("set status: %v", err)
	}

	res, err := svc.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 1 || len(res.Items) != 1 || res.Items[0].Name != "B" {
		t.Fatalf("expected only B available, got %+v", res.Items)
	}
	if res.Page != 1 || res.Limit != 10 || res.Pages != 1 {
		t.Fatalf("unexpected paging %+v", res)
	}

	res, err = svc.List(ctx, ListFilter{Status: StatusAdopted})
	if err != nil {
		t.Fatalf("list adopted: %v", err)
	}
	if res.Total != 1 || res.Items[0].ID != a.ID {
		t.Fatalf("expected A adopted, got %+v", res.Items)
	}
}

func TestList_FiltersAndPagination(t *testing.T) {
	svc, _ := newTestService(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	mustCreate(t, svc, CreateInput{Name: "Rocky", Species: "dog", Breed: "Golden Retriever", Age: 3})
	mustCreate(t, svc, CreateInput{Name: "Goldie", Species: "fish", Breed: "Goldfish", Age: 1})
	mustCreate(t, svc, CreateInput{Name: "Max", Species: "Dog", Breed: "Labrador", Age: 7})
	mustCreate(t, svc, CreateInput{Name: "Kitty", Species: "cat", Breed: "Siamese", Age: 4})

	res, err := svc.List(ctx, ListFilter{Species: "DOG"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("expected 2 dogs, got %d", res.Total)
	}

	res, _ = svc.List(ctx, ListFilter{Search: "gold"})
	if res.Total != 2 {
		t.Fatalf("expected search to match name or breed (2), got %d", res.Total)
	}

	res, _ = svc.List(ctx, ListFilter{MinAge: intPtr(3), MaxAge: intPtr(4)})
	if res.Total != 2 {
		t.Fatalf("expected 2 pets aged 3..4, got %d", res.Total)
	}

	res, _ = svc.List(ctx, ListFilter{Breed: "lab"})
	if res.Total != 1 || res.Items[0].Name != "Max" {
		t.Fatalf("expected Max by breed substring, got %+v", res.Items)
	}

	// Más recientes primero: Kitty, Max | Goldie, Rocky
	res, _ = svc.List(ctx, ListFilter{Page: 2, Limit: 2})
	if res.Total != 4 || res.Pages != 2 || len(res.Items) != 2 {
		t.Fatalf("unexpected page 2: %+v", res)
	}
	if res.Items[0].Name != "Goldie" || res.Items[1].Name != "Rocky" {
		t.Fatalf("unexpected order on page 2: %s, %s", res.Items[0].Name, res.Items[1].Name)
	}

	res, _ = svc.List(ctx, ListFilter{Page: 5, Limit: 2})
	if len(res.Items) != 0 || res.Total != 4 {
		t.Fatalf("expected empty page beyond range, got %+v", res)
	}
}

func TestList_RejectsBadInput(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()

	if _, err := svc.List(ctx, ListFilter{Status: "lost"}); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.List(ctx, ListFilter{MinAge: intPtr(5), MaxAge: intPtr(1)}); !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Fatalf("expected invalid argument for minAge > maxAge, got %v", err)
	}
}
