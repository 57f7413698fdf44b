// Package store defines the tenant-scoped vector store contract shared by
// the Postgres/pgvector and embedded chromem backends.
package store

import "context"

// Row is one stored chunk. ID is globally unique and stable; upserts are
// keyed by it.
type Row struct {
	ID        string
	OwnerID   string
	Content   string
	Source    string
	Metadata  map[string]string
	Embedding []float32
}

// Match is one similarity or lexical search hit.
type Match struct {
	ID       string
	Content  string
	Source   string
	Metadata map[string]string
	Score    float64
}

// VectorStore is the persistence boundary of the pipeline. Every method is
// scoped by ownerID; implementations must never return rows belonging to a
// different owner, independent of any vector math.
type VectorStore interface {
	// Match returns up to limit rows whose similarity to embedding meets
	// threshold, ordered by descending score.
	Match(ctx context.Context, ownerID string, embedding []float32, threshold float64, limit int) ([]Match, error)
	// Upsert inserts or replaces rows by id.
	Upsert(ctx context.Context, rows []Row) error
	// SearchText returns rows whose content contains any of the terms
	// (case-insensitive). Scores are left zero; the caller assigns one.
	SearchText(ctx context.Context, ownerID string, terms []string, limit int) ([]Match, error)
	// DeleteByOwner removes an owner's rows, optionally restricted to one
	// source document.
	DeleteByOwner(ctx context.Context, ownerID, source string) error
	// CountByOwner reports how many rows an owner has stored.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}
