package assignments

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
	"github.com/timeliness-app/assignment-tracker/pkg/storage"
)

var fixedNow = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, kv storage.Interface, classes ...string) *Store {
	t.Helper()

	s, err := NewStore(context.Background(), kv, logger.Discard{}, Options{
		Location: time.UTC,
		Classes:  classes,
		Now:      func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatal(err)
	}

	return s
}

func mustCreate(t *testing.T, s *Store, input Input) Assignment {
	t.Helper()

	a, err := s.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("Create(%+v) failed: %v", input, err)
	}

	return a
}

func TestStore_Create(t *testing.T) {
	kv := storage.NewMemory()
	s := newTestStore(t, kv)

	a := mustCreate(t, s, Input{Title: "Essay", Class: "INLS 992", DueDate: "2025-03-01T09:00", Priority: PriorityHigh})

	all := s.All()
	if len(all) != 1 {
		t.Fatalf("len(All()) = %d, want 1", len(all))
	}
	if all[0] != a {
		t.Errorf("All()[0] = %+v, want %+v", all[0], a)
	}

	if a.ID == "" || a.Completed || !a.CreatedAt.Equal(fixedNow) {
		t.Errorf("unexpected defaults: %+v", a)
	}
	if !a.DueDate.Equal(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("DueDate = %v", a.DueDate)
	}
	if IsOverdue(a, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("assignment should not be overdue on 2025-02-01")
	}

	raw, ok, _ := kv.Get(context.Background(), storage.KeyAssignments)
	if !ok {
		t.Fatal("snapshot was not persisted")
	}
	var persisted []Assignment
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 1 || persisted[0].ID != a.ID {
		t.Errorf("persisted snapshot = %+v", persisted)
	}
}

func TestStore_CreateUniqueIDs(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())

	inputs := make([]Input, 0, 50)
	for i := 0; i < 50; i++ {
		inputs = append(inputs, Input{Title: "Quiz", DueDate: "2025-03-01"})
	}

	created, err := s.CreateBatch(context.Background(), inputs)
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for _, a := range created {
		if seen[a.ID] {
			t.Fatalf("duplicate id %s", a.ID)
		}
		seen[a.ID] = true
	}
}

func TestStore_CreateValidation(t *testing.T) {
	var validationTests = []struct {
		name  string
		input Input
		field string
	}{
		{"empty title", Input{Title: "", DueDate: "2025-03-01"}, "title"},
		{"blank title", Input{Title: "   ", DueDate: "2025-03-01"}, "title"},
		{"missing due date", Input{Title: "Essay"}, "dueDate"},
		{"unparseable due date", Input{Title: "Essay", DueDate: "someday"}, "dueDate"},
		{"unknown priority", Input{Title: "Essay", DueDate: "2025-03-01", Priority: "urgent"}, "priority"},
	}

	for _, tt := range validationTests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, storage.NewMemory())

			_, err := s.Create(context.Background(), tt.input)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}

			var validationError *ValidationError
			if !errors.As(err, &validationError) || validationError.Field != tt.field {
				t.Errorf("expected field %s, got %v", tt.field, err)
			}

			if len(s.All()) != 0 {
				t.Errorf("invalid input must not be stored")
			}
		})
	}
}

func TestStore_DefaultPriority(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())

	a := mustCreate(t, s, Input{Title: "Reading", DueDate: "2025-03-01"})
	if a.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want medium", a.Priority)
	}
}

func TestStore_ClassSet(t *testing.T) {
	s := newTestStore(t, storage.NewMemory(), "INLS 992", "DATA 545")

	if _, err := s.Create(context.Background(), Input{Title: "Essay", Class: "inls 992", DueDate: "2025-03-01"}); !errors.Is(err, ErrValidation) {
		t.Errorf("class outside the set should be rejected, got %v", err)
	}

	a := mustCreate(t, s, Input{Title: "Essay", Class: "INLS 992", DueDate: "2025-03-01"})

	other := "COMP 110"
	if _, err := s.Update(context.Background(), a.ID, Patch{Class: &other}); !errors.Is(err, ErrValidation) {
		t.Errorf("update to class outside the set should be rejected, got %v", err)
	}
}

func TestStore_Update(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	a := mustCreate(t, s, Input{Title: "Essay", Class: "INLS 992", DueDate: "2025-03-01T09:00"})

	title := "Final essay"
	due := "2025-03-05T17:30"
	priority := PriorityLow
	updated, err := s.Update(context.Background(), a.ID, Patch{Title: &title, DueDate: &due, Priority: &priority})
	if err != nil {
		t.Fatal(err)
	}

	if updated.ID != a.ID || !updated.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("id and createdAt must not change")
	}
	if updated.Title != title || updated.Priority != PriorityLow || updated.Class != "INLS 992" {
		t.Errorf("unexpected update result %+v", updated)
	}
	if !updated.DueDate.Equal(time.Date(2025, 3, 5, 17, 30, 0, 0, time.UTC)) {
		t.Errorf("DueDate = %v", updated.DueDate)
	}
	if s.All()[0] != updated {
		t.Errorf("snapshot was not updated")
	}
}

func TestStore_UpdateIgnoresImmutableFields(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	a := mustCreate(t, s, Input{Title: "Essay", DueDate: "2025-03-01"})

	patch := Patch{}
	err := json.Unmarshal([]byte(`{"id":"other","createdAt":"2000-01-01T00:00:00Z","title":"Renamed"}`), &patch)
	if err != nil {
		t.Fatal(err)
	}

	updated, err := s.Update(context.Background(), a.ID, patch)
	if err != nil {
		t.Fatal(err)
	}
	if updated.ID != a.ID || !updated.CreatedAt.Equal(a.CreatedAt) || updated.Title != "Renamed" {
		t.Errorf("unexpected update result %+v", updated)
	}
}

func TestStore_UpdateErrors(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	a := mustCreate(t, s, Input{Title: "Essay", DueDate: "2025-03-01"})

	title := "x"
	if _, err := s.Update(context.Background(), "missing", Patch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	empty := "  "
	if _, err := s.Update(context.Background(), a.ID, Patch{Title: &empty}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for empty title, got %v", err)
	}

	bad := "tomorrow"
	if _, err := s.Update(context.Background(), a.ID, Patch{DueDate: &bad}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for bad date, got %v", err)
	}

	if s.All()[0] != a {
		t.Errorf("failed updates must not change the snapshot")
	}
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	first := mustCreate(t, s, Input{Title: "One", DueDate: "2025-03-01"})
	second := mustCreate(t, s, Input{Title: "Two", DueDate: "2025-03-02"})

	if err := s.Delete(context.Background(), first.ID); err != nil {
		t.Fatal(err)
	}

	all := s.All()
	if len(all) != 1 || all[0].ID != second.ID {
		t.Fatalf("All() = %+v, want only %s", all, second.ID)
	}

	if err := s.Delete(context.Background(), first.ID); err != nil {
		t.Errorf("deleting an absent id should be a no-op, got %v", err)
	}
	if len(s.All()) != 1 {
		t.Errorf("deleting an absent id changed the snapshot")
	}
}

func TestStore_ToggleComplete(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	a := mustCreate(t, s, Input{Title: "Essay", DueDate: "2025-03-01"})

	toggled, err := s.ToggleComplete(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !toggled.Completed {
		t.Errorf("first toggle should complete")
	}

	toggled, err = s.ToggleComplete(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if toggled.Completed != a.Completed {
		t.Errorf("toggling twice should restore completed")
	}

	if _, err := s.ToggleComplete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_AllIsACopy(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	mustCreate(t, s, Input{Title: "Essay", DueDate: "2025-03-01"})

	all := s.All()
	all[0].Title = "changed"

	if s.All()[0].Title != "Essay" {
		t.Errorf("mutating the result of All() changed the store")
	}
}

func TestNewStore_Load(t *testing.T) {
	kv := storage.NewMemory()
	s := newTestStore(t, kv)
	a := mustCreate(t, s, Input{Title: "Essay", Class: "INLS 992", DueDate: "2025-03-01T09:00"})

	reloaded := newTestStore(t, kv)
	all := reloaded.All()
	if len(all) != 1 || all[0].ID != a.ID || !all[0].DueDate.Equal(a.DueDate) {
		t.Errorf("reloaded snapshot = %+v", all)
	}
}

func TestNewStore_UnparseableIsEmpty(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"id": 1}`} {
		kv := storage.NewMemory()
		_ = kv.Set(context.Background(), storage.KeyAssignments, raw)

		s := newTestStore(t, kv)
		if len(s.All()) != 0 {
			t.Errorf("snapshot %q should load as empty", raw)
		}
	}
}

type brokenStorage struct {
	*storage.Memory
}

func (brokenStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func (brokenStorage) Set(context.Context, string, string) error {
	return errors.New("connection refused")
}

func TestNewStore_StorageFailure(t *testing.T) {
	_, err := NewStore(context.Background(), brokenStorage{storage.NewMemory()}, logger.Discard{}, Options{})
	if err == nil {
		t.Fatal("expected error")
	}
}

type readOnlyStorage struct {
	*storage.Memory
}

func (readOnlyStorage) Set(context.Context, string, string) error {
	return errors.New("read only")
}

func TestStore_FailedPersistKeepsSnapshot(t *testing.T) {
	s := newTestStore(t, readOnlyStorage{storage.NewMemory()})

	if _, err := s.Create(context.Background(), Input{Title: "Essay", DueDate: "2025-03-01"}); err == nil {
		t.Fatal("expected persist error")
	}
	if len(s.All()) != 0 {
		t.Errorf("failed persist must not change the snapshot")
	}
}

type recordingObserver struct {
	snapshots [][]Assignment
}

func (r *recordingObserver) OnSnapshotChanged(snapshot []Assignment) {
	r.snapshots = append(r.snapshots, snapshot)
}

func TestStore_Observers(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	observer := &recordingObserver{}
	s.Subscribe(observer)

	a := mustCreate(t, s, Input{Title: "Essay", DueDate: "2025-03-01"})
	_, _ = s.ToggleComplete(context.Background(), a.ID)
	_ = s.Delete(context.Background(), "missing")
	_ = s.Delete(context.Background(), a.ID)

	if len(observer.snapshots) != 3 {
		t.Fatalf("observer was notified %d times, want 3", len(observer.snapshots))
	}
	if len(observer.snapshots[0]) != 1 || !observer.snapshots[1][0].Completed || len(observer.snapshots[2]) != 0 {
		t.Errorf("unexpected snapshots %+v", observer.snapshots)
	}

	s.Unsubscribe(observer)
	s.Unsubscribe(observer)
	mustCreate(t, s, Input{Title: "Essay", DueDate: "2025-03-01"})
	if len(observer.snapshots) != 3 {
		t.Errorf("unsubscribed observer was notified")
	}
}
