package status

import (
	"context"
	"errors"
	"testing"
)

// failStore wraps a MemStore and fails selected operations.
type failStore struct {
	*MemStore
	failInsert bool
	failUpdate bool
}

func (s *failStore) Insert(ctx context.Context, rec *Record) error {
	if s.failInsert {
		return errors.New("insert failed")
	}
	return s.MemStore.Insert(ctx, rec)
}

func (s *failStore) Update(ctx context.Context, rec *Record) error {
	if s.failUpdate {
		return errors.New("update failed")
	}
	return s.MemStore.Update(ctx, rec)
}

func TestCreateRegistersQueuedRecord(t *testing.T) {
	store := NewMemStore()
	tr := NewTracker(store)

	id := tr.Create(context.Background(), "alice", "report.pdf", 2048, "application/pdf")
	if id == "" {
		t.Fatal("expected a record id")
	}
	rec, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if rec.Status != StatusQueued {
		t.Fatalf("expected queued, got %q", rec.Status)
	}
	if rec.OwnerID != "alice" || rec.Filename != "report.pdf" || rec.Size != 2048 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.StartedAt.IsZero() {
		t.Fatal("expected StartedAt to be set")
	}
	if rec.CompletedAt != nil {
		t.Fatal("CompletedAt must be nil for a queued record")
	}
}

func TestCreateReturnsIDWhenPersistenceFails(t *testing.T) {
	store := &failStore{MemStore: NewMemStore(), failInsert: true}
	tr := NewTracker(store)

	id := tr.Create(context.Background(), "alice", "report.pdf", 0, "")
	if id == "" {
		t.Fatal("id must be usable even when the insert fails")
	}
}

func TestLifecycleTransitions(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{StatusQueued, StatusProcessing, true},
		{StatusQueued, StatusCompleted, true},
		{StatusQueued, StatusFailed, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusQueued, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusProcessing, false},
		{StatusFailed, StatusCompleted, false},
	}
	for _, tt := range tests {
		if got := transitionAllowed(tt.from, tt.to); got != tt.allowed {
			t.Errorf("transitionAllowed(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestUpdateAppliesFieldsAndStampsCompletion(t *testing.T) {
	store := NewMemStore()
	tr := NewTracker(store)
	ctx := context.Background()

	id := tr.Create(ctx, "alice", "notes.md", 100, "text/markdown")
	tr.Update(ctx, id, StatusProcessing, Update{})
	tr.Update(ctx, id, StatusCompleted, Update{ChunksCreated: 7, EmbedStored: 7})

	rec, _ := store.Get(ctx, id)
	if rec.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", rec.Status)
	}
	if rec.ChunksCreated != 7 || rec.EmbedStored != 7 {
		t.Fatalf("counters not applied: %+v", rec)
	}
	if rec.CompletedAt == nil {
		t.Fatal("terminal transition must stamp CompletedAt")
	}
}

func TestUpdateIgnoresTransitionOutOfTerminalState(t *testing.T) {
	store := NewMemStore()
	tr := NewTracker(store)
	ctx := context.Background()

	id := tr.Create(ctx, "alice", "notes.md", 100, "text/markdown")
	tr.Update(ctx, id, StatusFailed, Update{ErrorMessage: "extraction failed"})
	tr.Update(ctx, id, StatusCompleted, Update{ChunksCreated: 3})

	rec, _ := store.Get(ctx, id)
	if rec.Status != StatusFailed {
		t.Fatalf("terminal state must be final, got %q", rec.Status)
	}
	if rec.ErrorMessage != "extraction failed" {
		t.Fatalf("error message lost: %q", rec.ErrorMessage)
	}
	if rec.ChunksCreated != 0 {
		t.Fatal("rejected transition must not apply fields")
	}
}

func TestUpdateWithEmptyIDIsNoop(t *testing.T) {
	store := NewMemStore()
	tr := NewTracker(store)
	// must not panic or create records
	tr.Update(context.Background(), "", StatusCompleted, Update{})
	s, err := tr.Summary(context.Background(), "alice")
	if err != nil || s.Total != 0 {
		t.Fatalf("expected empty summary, got %+v, %v", s, err)
	}
}

func TestUpdatePersistenceFailureDoesNotPanic(t *testing.T) {
	store := &failStore{MemStore: NewMemStore()}
	tr := NewTracker(store)
	ctx := context.Background()

	id := tr.Create(ctx, "alice", "a.txt", 1, "text/plain")
	store.failUpdate = true
	tr.Update(ctx, id, StatusProcessing, Update{})

	rec, _ := store.Get(ctx, id)
	if rec.Status != StatusQueued {
		t.Fatalf("failed persist must leave the stored record untouched, got %q", rec.Status)
	}
}

func TestSummaryAggregates(t *testing.T) {
	store := NewMemStore()
	tr := NewTracker(store)
	ctx := context.Background()

	id1 := tr.Create(ctx, "alice", "a.txt", 1, "text/plain")
	tr.Update(ctx, id1, StatusCompleted, Update{ChunksCreated: 4, EmbedStored: 4})
	id2 := tr.Create(ctx, "alice", "b.txt", 1, "text/plain")
	tr.Update(ctx, id2, StatusFailed, Update{ChunksCreated: 2, ErrorMessage: "boom"})
	tr.Create(ctx, "alice", "c.txt", 1, "text/plain")
	tr.Create(ctx, "bob", "d.txt", 1, "text/plain")

	s, err := tr.Summary(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Total != 3 {
		t.Fatalf("expected 3 records for alice, got %d", s.Total)
	}
	if s.ByStatus[StatusCompleted] != 1 || s.ByStatus[StatusFailed] != 1 || s.ByStatus[StatusQueued] != 1 {
		t.Fatalf("unexpected status counts: %+v", s.ByStatus)
	}
	if s.ChunksCreated != 6 || s.EmbedStored != 4 {
		t.Fatalf("unexpected totals: %+v", s)
	}
}
