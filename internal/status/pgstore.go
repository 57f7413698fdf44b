package status

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"document-chat/internal/models"
)

// PGStore persists processing records in Postgres through bun.
type PGStore struct {
	db *bun.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *bun.DB) *PGStore {
	return &PGStore{db: db}
}

// Init creates the processing_records table.
func (s *PGStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Record)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: creating processing_records table: %v", models.ErrInitialization, err)
	}
	return nil
}

func (s *PGStore) Insert(ctx context.Context, rec *Record) error {
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return fmt.Errorf("%w: inserting record: %v", models.ErrStorage, err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (*Record, error) {
	rec := new(Record)
	if err := s.db.NewSelect().Model(rec).Where("pr.id = ?", id).Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: loading record: %v", models.ErrStorage, err)
	}
	return rec, nil
}

func (s *PGStore) Update(ctx context.Context, rec *Record) error {
	if _, err := s.db.NewUpdate().Model(rec).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("%w: updating record: %v", models.ErrStorage, err)
	}
	return nil
}

func (s *PGStore) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	var recs []Record
	err := s.db.NewSelect().
		Model(&recs).
		Where("pr.owner_id = ?", ownerID).
		Order("started_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing records: %v", models.ErrStorage, err)
	}
	return recs, nil
}
