// Package ingest runs the upload path: extract, chunk, embed in bounded
// batches, and upsert into the vector store, with per-file status tracking.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"document-chat/internal/chunker"
	"document-chat/internal/config"
	"document-chat/internal/extract"
	"document-chat/internal/helper"
	"document-chat/internal/models"
	"document-chat/internal/status"
	"document-chat/internal/store"
)

// UploadedFile is the minimal capability the ingestion boundary accepts.
type UploadedFile interface {
	Name() string
	Bytes() ([]byte, error)
}

// DiskFile adapts a filesystem path to UploadedFile for the CLI.
type DiskFile struct {
	Path string
}

func (f DiskFile) Name() string           { return filepath.Base(f.Path) }
func (f DiskFile) Bytes() ([]byte, error) { return os.ReadFile(f.Path) }

// FileResult reports one file's outcome. Files fail independently; one
// bad file never aborts the rest of the batch.
type FileResult struct {
	Filename   string
	RecordID   string
	Chunks     int
	Embeddings int
	Err        error
}

// BatchResult is the outcome of one upload call.
type BatchResult struct {
	Success   bool
	Message   string
	Processed int
	Files     []FileResult
}

// Embedder is the slice of the embedding provider ingestion needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Service wires the upload pipeline.
type Service struct {
	extractor extract.Extractor
	embedder  Embedder
	store     store.VectorStore
	tracker   *status.Tracker
	cfg       config.RAGConfig
}

func NewService(extractor extract.Extractor, embedder Embedder, st store.VectorStore, tracker *status.Tracker, cfg config.RAGConfig) *Service {
	return &Service{extractor: extractor, embedder: embedder, store: st, tracker: tracker, cfg: cfg}
}

// UploadFiles processes files sequentially for one owner. Chunk ids are
// deterministic over (owner, source, position), so re-uploading the same
// document upserts in place instead of duplicating rows.
func (s *Service) UploadFiles(ctx context.Context, ownerID string, files []UploadedFile) *BatchResult {
	if len(files) == 0 {
		return &BatchResult{Success: false, Message: models.NoFilesMessage}
	}

	result := &BatchResult{}
	for _, f := range files {
		fr := s.processFile(ctx, ownerID, f)
		result.Files = append(result.Files, fr)
		if fr.Err == nil {
			result.Processed++
		}
	}
	result.Success = result.Processed > 0
	result.Message = fmt.Sprintf("processed %d of %d files", result.Processed, len(files))
	return result
}

// UploadURL ingests the text behind a URL as a single source document.
func (s *Service) UploadURL(ctx context.Context, ownerID, url string) *BatchResult {
	text, err := s.extractor.ExtractFromURL(ctx, url)
	if err != nil {
		return &BatchResult{
			Success: false,
			Message: fmt.Sprintf("fetching %s failed", url),
			Files:   []FileResult{{Filename: url, Err: err}},
		}
	}
	recordID := s.tracker.Create(ctx, ownerID, url, int64(len(text)), "text/html")
	fr := s.storeTextWithRecord(ctx, ownerID, url, recordID, text)
	res := &BatchResult{Files: []FileResult{fr}}
	if fr.Err == nil {
		res.Success = true
		res.Processed = 1
		res.Message = "processed 1 of 1 files"
	} else {
		res.Message = fmt.Sprintf("processing %s failed", url)
	}
	return res
}

func (s *Service) processFile(ctx context.Context, ownerID string, f UploadedFile) FileResult {
	name := f.Name()
	data, err := f.Bytes()
	if err != nil {
		recordID := s.tracker.Create(ctx, ownerID, name, 0, mimeType(name))
		s.tracker.Update(ctx, recordID, status.StatusFailed, status.Update{ErrorMessage: err.Error()})
		return FileResult{Filename: name, RecordID: recordID, Err: fmt.Errorf("reading %s: %w", name, err)}
	}

	recordID := s.tracker.Create(ctx, ownerID, name, int64(len(data)), mimeType(name))

	text, err := s.extractor.Extract(data, name)
	if err != nil || strings.TrimSpace(text) == "" {
		if err == nil {
			err = fmt.Errorf("no text extracted from %s", name)
		}
		s.tracker.Update(ctx, recordID, status.StatusFailed, status.Update{ErrorMessage: err.Error()})
		return FileResult{Filename: name, RecordID: recordID, Err: err}
	}

	return s.storeTextWithRecord(ctx, ownerID, name, recordID, text)
}

func (s *Service) storeTextWithRecord(ctx context.Context, ownerID, source, recordID, text string) FileResult {
	s.tracker.Update(ctx, recordID, status.StatusProcessing, status.Update{})

	chunks := chunker.SplitAll(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	total := len(chunks)
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(source)), ".")

	stored := 0
	// Embedding and storage run over bounded batches, never the whole
	// document set at once.
	batch := s.cfg.EmbeddingBatchSize
	if batch < 1 {
		batch = 16
	}
	for start := 0; start < total; start += batch {
		end := start + batch
		if end > total {
			end = total
		}
		texts := chunks[start:end]
		vecs, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			s.tracker.Update(ctx, recordID, status.StatusFailed, status.Update{
				ChunksCreated: total,
				EmbedStored:   stored,
				ErrorMessage:  err.Error(),
			})
			return FileResult{Filename: source, RecordID: recordID, Chunks: total, Embeddings: stored, Err: err}
		}

		rows := make([]store.Row, len(texts))
		for i, content := range texts {
			pos := start + i
			rows[i] = store.Row{
				ID:      helper.DeterministicID(ownerID, source, pos),
				OwnerID: ownerID,
				Content: content,
				Source:  source,
				Metadata: map[string]string{
					models.MetaFileType:      fileType,
					models.MetaPositionIndex: strconv.Itoa(pos),
					models.MetaTotalChunks:   strconv.Itoa(total),
				},
				Embedding: vecs[i],
			}
		}
		if err := s.store.Upsert(ctx, rows); err != nil {
			s.tracker.Update(ctx, recordID, status.StatusFailed, status.Update{
				ChunksCreated: total,
				EmbedStored:   stored,
				ErrorMessage:  err.Error(),
			})
			return FileResult{Filename: source, RecordID: recordID, Chunks: total, Embeddings: stored, Err: err}
		}
		stored += len(rows)
	}

	s.tracker.Update(ctx, recordID, status.StatusCompleted, status.Update{
		ChunksCreated: total,
		EmbedStored:   stored,
	})
	log.Info().Str("source", source).Int("chunks", total).Msg("document stored")
	return FileResult{Filename: source, RecordID: recordID, Chunks: total, Embeddings: stored}
}

// DeleteSource removes one source document's chunks for an owner, or all
// of the owner's chunks when source is empty.
func (s *Service) DeleteSource(ctx context.Context, ownerID, source string) error {
	return s.store.DeleteByOwner(ctx, ownerID, source)
}

// DocumentCount reports how many chunks an owner has stored.
func (s *Service) DocumentCount(ctx context.Context, ownerID string) (int, error) {
	return s.store.CountByOwner(ctx, ownerID)
}

func mimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".ods":
		return "application/vnd.oasis.opendocument.spreadsheet"
	case ".html", ".htm":
		return "text/html"
	case ".md", ".markdown":
		return "text/markdown"
	default:
		return "text/plain"
	}
}
