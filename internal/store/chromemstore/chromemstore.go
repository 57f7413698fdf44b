// Package chromemstore implements the vector store on chromem-go, an
// embedded vector database. It backs local mode and tests.
package chromemstore

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"document-chat/internal/models"
	"document-chat/internal/store"
)

type entry struct {
	content  string
	source   string
	metadata map[string]string
}

// Store keeps one chromem collection per owner, so tenant isolation holds
// structurally: a query can only ever touch its own collection. A side
// index of raw contents serves the lexical scan, which chromem itself has
// no API for.
type Store struct {
	db *chromem.DB

	mu       sync.RWMutex
	contents map[string]map[string]entry // ownerID -> chunk id -> entry
}

var _ store.VectorStore = (*Store)(nil)

// New creates an embedded store. With an empty path the store is purely
// in-memory; otherwise collections persist under path.
func New(path string) (*Store, error) {
	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("%w: opening chromem db: %v", models.ErrInitialization, err)
		}
	}
	return &Store{db: db, contents: make(map[string]map[string]entry)}, nil
}

func collectionName(ownerID string) string {
	return "owner-" + ownerID
}

func (s *Store) collection(ownerID string) (*chromem.Collection, error) {
	c, err := s.db.GetOrCreateCollection(collectionName(ownerID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	return c, nil
}

func (s *Store) Match(ctx context.Context, ownerID string, embedding []float32, threshold float64, limit int) ([]store.Match, error) {
	col, err := s.collection(ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRetrieval, err)
	}
	// chromem rejects nResults greater than the collection size.
	n := col.Count()
	if n == 0 {
		return nil, nil
	}
	if limit < n {
		n = limit
	}
	if n <= 0 {
		return nil, nil
	}
	results, err := col.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection: %v", models.ErrRetrieval, err)
	}
	var matches []store.Match
	for _, r := range results {
		if float64(r.Similarity) < threshold {
			continue
		}
		matches = append(matches, store.Match{
			ID:       r.ID,
			Content:  r.Content,
			Source:   r.Metadata["source"],
			Metadata: r.Metadata,
			Score:    float64(r.Similarity),
		})
	}
	return matches, nil
}

func (s *Store) Upsert(ctx context.Context, rows []store.Row) error {
	byOwner := make(map[string][]chromem.Document)
	for _, r := range rows {
		meta := make(map[string]string, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			meta[k] = v
		}
		meta["source"] = r.Source
		byOwner[r.OwnerID] = append(byOwner[r.OwnerID], chromem.Document{
			ID:        r.ID,
			Content:   r.Content,
			Metadata:  meta,
			Embedding: r.Embedding,
		})
	}
	for ownerID, docs := range byOwner {
		col, err := s.collection(ownerID)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrStorage, err)
		}
		if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("%w: adding documents: %v", models.ErrStorage, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		m := s.contents[r.OwnerID]
		if m == nil {
			m = make(map[string]entry)
			s.contents[r.OwnerID] = m
		}
		m[r.ID] = entry{content: r.Content, source: r.Source, metadata: r.Metadata}
	}
	return nil
}

func (s *Store) SearchText(ctx context.Context, ownerID string, terms []string, limit int) ([]store.Match, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []store.Match
	for id, e := range s.contents[ownerID] {
		if len(matches) >= limit {
			break
		}
		content := strings.ToLower(e.content)
		for _, t := range lowered {
			if strings.Contains(content, t) {
				matches = append(matches, store.Match{
					ID:       id,
					Content:  e.content,
					Source:   e.source,
					Metadata: e.metadata,
				})
				break
			}
		}
	}
	return matches, nil
}

func (s *Store) DeleteByOwner(ctx context.Context, ownerID, source string) error {
	col, err := s.collection(ownerID)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	if source == "" {
		if err := s.db.DeleteCollection(collectionName(ownerID)); err != nil {
			return fmt.Errorf("%w: deleting collection: %v", models.ErrStorage, err)
		}
	} else if col.Count() > 0 {
		if err := col.Delete(ctx, map[string]string{"source": source}, nil); err != nil {
			return fmt.Errorf("%w: deleting documents: %v", models.ErrStorage, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if source == "" {
		delete(s.contents, ownerID)
		return nil
	}
	for id, e := range s.contents[ownerID] {
		if e.source == source {
			delete(s.contents[ownerID], id)
		}
	}
	return nil
}

func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	col, err := s.collection(ownerID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return col.Count(), nil
}
