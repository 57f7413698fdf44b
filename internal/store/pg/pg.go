// Package pg implements the vector store on Supabase/Postgres with the
// pgvector extension.
package pg

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-chat/internal/config"
	"document-chat/internal/models"
	"document-chat/internal/store"
)

// VectorDim is the embedding dimension of the documents table. The
// reference deployment embeds with a 384-dimensional model.
const VectorDim = 384

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string            `bun:"id,pk"`
	OwnerID       string            `bun:"owner_id,notnull"`
	Content       string            `bun:"content,notnull"`
	Source        string            `bun:"source,notnull"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	Embedding     []float32         `bun:"embedding,notnull,type:vector(384)"`
}

type matchRow struct {
	ID       string            `bun:"id"`
	Content  string            `bun:"content"`
	Source   string            `bun:"source"`
	Metadata map[string]string `bun:"metadata"`
	Score    float64           `bun:"score"`
}

// Store is the pgvector-backed VectorStore.
type Store struct {
	db *bun.DB
}

var _ store.VectorStore = (*Store)(nil)

// Connect opens the Supabase Postgres connection.
func Connect(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.URL + "?sslmode=disable"
	// return sql.Open("postgres", dsn)
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Key))), nil
}

// New wraps an open connection in a bun DB and the Store.
func New(sqldb *sql.DB, debug bool) *Store {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db}
}

// Init creates the pgvector extension and the documents table.
func Init(ctx context.Context, s *Store) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("%w: creating vector extension: %v", models.ErrInitialization, err)
	}
	if _, err := s.db.NewCreateTable().Model((*documentRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: creating documents table: %v", models.ErrInitialization, err)
	}
	return nil
}

// DB exposes the bun handle for other tables sharing the connection.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Match(ctx context.Context, ownerID string, embedding []float32, threshold float64, limit int) ([]store.Match, error) {
	var rows []matchRow
	err := s.db.NewSelect().
		Model((*documentRow)(nil)).
		ColumnExpr("d.id, d.content, d.source, d.metadata").
		ColumnExpr("1 - (d.embedding <=> ?) AS score", embedding).
		Where("d.owner_id = ?", ownerID).
		Where("1 - (d.embedding <=> ?) >= ?", embedding, threshold).
		OrderExpr("d.embedding <=> ?", embedding).
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: matching documents: %v", models.ErrRetrieval, err)
	}
	return toMatches(rows), nil
}

func (s *Store) Upsert(ctx context.Context, rows []store.Row) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]documentRow, len(rows))
	for i, r := range rows {
		docs[i] = documentRow{
			ID:        r.ID,
			OwnerID:   r.OwnerID,
			Content:   r.Content,
			Source:    r.Source,
			Metadata:  r.Metadata,
			Embedding: r.Embedding,
		}
	}
	_, err := s.db.NewInsert().
		Model(&docs).
		On("CONFLICT (id) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("metadata = EXCLUDED.metadata").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: upserting documents: %v", models.ErrStorage, err)
	}
	return nil
}

func (s *Store) SearchText(ctx context.Context, ownerID string, terms []string, limit int) ([]store.Match, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	var rows []matchRow
	q := s.db.NewSelect().
		Model((*documentRow)(nil)).
		ColumnExpr("d.id, d.content, d.source, d.metadata").
		ColumnExpr("0 AS score").
		Where("d.owner_id = ?", ownerID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			for _, t := range terms {
				q = q.WhereOr("d.content ILIKE ?", "%"+t+"%")
			}
			return q
		}).
		Limit(limit)
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%w: text search: %v", models.ErrRetrieval, err)
	}
	return toMatches(rows), nil
}

func (s *Store) DeleteByOwner(ctx context.Context, ownerID, source string) error {
	q := s.db.NewDelete().
		Model((*documentRow)(nil)).
		Where("owner_id = ?", ownerID)
	if source != "" {
		q = q.Where("source = ?", source)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("%w: deleting documents: %v", models.ErrStorage, err)
	}
	return nil
}

func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	n, err := s.db.NewSelect().
		Model((*documentRow)(nil)).
		Where("owner_id = ?", ownerID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: counting documents: %v", models.ErrStorage, err)
	}
	return n, nil
}

func toMatches(rows []matchRow) []store.Match {
	matches := make([]store.Match, len(rows))
	for i, r := range rows {
		matches[i] = store.Match{
			ID:       r.ID,
			Content:  r.Content,
			Source:   r.Source,
			Metadata: r.Metadata,
			Score:    r.Score,
		}
	}
	return matches
}
