// Package status records per-upload lifecycle state for user-visible
// feedback. Tracking is best-effort telemetry: a failed status write is
// logged and never aborts document processing.
package status

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"document-chat/internal/helper"
)

// Upload lifecycle states. Transitions are monotonic:
// queued -> processing -> completed | failed.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// allowedTransitions encodes the lifecycle; terminal states have no exits.
var allowedTransitions = map[string][]string{
	StatusQueued:     {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// Record is one uploaded artifact's processing state. Never reused.
type Record struct {
	bun.BaseModel `bun:"table:processing_records,alias:pr"`
	ID            string     `bun:"id,pk"`
	OwnerID       string     `bun:"owner_id,notnull"`
	Filename      string     `bun:"filename,notnull"`
	Size          int64      `bun:"size"`
	MimeType      string     `bun:"mime_type"`
	Status        string     `bun:"status,notnull"`
	ChunksCreated int        `bun:"chunks_created"`
	EmbedStored   int        `bun:"embeddings_stored"`
	ErrorMessage  string     `bun:"error_message"`
	StartedAt     time.Time  `bun:"started_at,notnull"`
	CompletedAt   *time.Time `bun:"completed_at"`
}

// Summary aggregates an owner's records.
type Summary struct {
	Total         int
	ByStatus      map[string]int
	ChunksCreated int
	EmbedStored   int
}

// Store persists records.
type Store interface {
	Insert(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, rec *Record) error
	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)
}

// Update carries the optional fields of a status transition.
type Update struct {
	ChunksCreated int
	EmbedStored   int
	ErrorMessage  string
}

// Tracker enforces the lifecycle over a Store.
type Tracker struct {
	store Store
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// Create registers a new upload as queued and returns its record id. The
// id is valid even when persistence fails.
func (t *Tracker) Create(ctx context.Context, ownerID, filename string, size int64, mimeType string) string {
	id, err := helper.GenerateUUID()
	if err != nil {
		log.Warn().Err(err).Msg("failed to generate record id")
		return ""
	}
	rec := &Record{
		ID:        id,
		OwnerID:   ownerID,
		Filename:  filename,
		Size:      size,
		MimeType:  mimeType,
		Status:    StatusQueued,
		StartedAt: time.Now().UTC(),
	}
	if err := t.store.Insert(ctx, rec); err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("failed to persist processing record")
	}
	return id
}

// Update transitions a record to newStatus, rejecting (with a log line,
// not an error) any transition out of a terminal state.
func (t *Tracker) Update(ctx context.Context, id, newStatus string, upd Update) {
	if id == "" {
		return
	}
	rec, err := t.store.Get(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("record_id", id).Msg("failed to load processing record")
		return
	}
	if !transitionAllowed(rec.Status, newStatus) {
		log.Warn().Str("record_id", id).Str("from", rec.Status).Str("to", newStatus).Msg("ignoring invalid status transition")
		return
	}
	rec.Status = newStatus
	if upd.ChunksCreated > 0 {
		rec.ChunksCreated = upd.ChunksCreated
	}
	if upd.EmbedStored > 0 {
		rec.EmbedStored = upd.EmbedStored
	}
	if upd.ErrorMessage != "" {
		rec.ErrorMessage = upd.ErrorMessage
	}
	if newStatus == StatusCompleted || newStatus == StatusFailed {
		now := time.Now().UTC()
		rec.CompletedAt = &now
	}
	if err := t.store.Update(ctx, rec); err != nil {
		log.Warn().Err(err).Str("record_id", id).Msg("failed to persist status update")
	}
}

// Summary aggregates counts by status plus totals for one owner.
func (t *Tracker) Summary(ctx context.Context, ownerID string) (*Summary, error) {
	recs, err := t.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s := &Summary{ByStatus: make(map[string]int)}
	for _, r := range recs {
		s.Total++
		s.ByStatus[r.Status]++
		s.ChunksCreated += r.ChunksCreated
		s.EmbedStored += r.EmbedStored
	}
	return s, nil
}

func transitionAllowed(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
