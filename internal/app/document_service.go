package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"agentic-rag/internal/metrics"
	"agentic-rag/internal/model"
	"agentic-rag/internal/pkg/apperr"
	"agentic-rag/internal/pkg/extract"
	"agentic-rag/internal/pkg/logger"
	"agentic-rag/internal/repository"
)

const defaultEmbedBatchSize = 16

type DocumentOptions struct {
	UploadDir      string
	MaxUploadBytes int64
	ChunkSize      int
	EmbedBatchSize int
	// AsyncIngest hands processing to the ingest worker instead of running it inline.
	AsyncIngest bool
}

type DocumentService struct {
	docRepo   *repository.DocumentRepository
	extractor TextExtractor
	embedder  Embedder
	publisher Publisher
	opts      DocumentOptions
}

// NewDocumentService wires ingestion. publisher may be nil, which forces inline processing.
func NewDocumentService(
	docRepo *repository.DocumentRepository,
	extractor TextExtractor,
	embedder Embedder,
	publisher Publisher,
	opts DocumentOptions,
) *DocumentService {
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads"
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = defaultEmbedBatchSize
	}
	return &DocumentService{
		docRepo:   docRepo,
		extractor: extractor,
		embedder:  embedder,
		publisher: publisher,
		opts:      opts,
	}
}

type UploadInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload stores the file and creates its document. Inline processing failures
// remove both again; async jobs leave the document unembedded on failure.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	if input.UserID == 0 || input.Body == nil {
		return nil, ErrInvalidInput
	}
	base := filepath.Base(strings.ReplaceAll(input.Filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return nil, apperr.Validation("filename is required")
	}
	ext := strings.ToLower(filepath.Ext(base))
	if !extract.Supported(ext) {
		return nil, ErrUnsupportedFileType
	}
	if s.opts.MaxUploadBytes > 0 && input.Size > s.opts.MaxUploadBytes {
		return nil, ErrFileTooLarge
	}

	if err := os.MkdirAll(s.opts.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	stored := fmt.Sprintf("%d_%d_%s_%s", input.UserID, time.Now().UnixNano(), uuid.NewString()[:8], base)
	path := filepath.Join(s.opts.UploadDir, stored)
	written, err := s.saveFile(path, input.Body)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		UserID:   input.UserID,
		Filename: base,
		FilePath: path,
		FileType: fileType(input.ContentType, ext),
		FileSize: written,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	ctx = withDocument(ctx, doc)
	ctxzap.Info(ctx, "document uploaded", zap.Int64("size", written))

	if s.opts.AsyncIngest && s.publisher != nil {
		err := s.publisher.Publish(ctx, IngestJob{DocumentID: doc.ID})
		if err == nil {
			return doc, nil
		}
		ctxzap.Extract(ctx).Warn("enqueue ingest job failed, processing inline", zap.Error(err))
	}

	if err := s.Process(ctx, doc.ID); err != nil {
		if _, delErr := s.docRepo.DeleteWithChunks(ctx, doc.ID, doc.UserID); delErr != nil {
			ctxzap.Extract(ctx).Warn("rollback document failed", zap.Error(delErr))
		}
		_ = os.Remove(path)
		return nil, err
	}
	return s.docRepo.GetByID(ctx, doc.ID)
}

func (s *DocumentService) saveFile(path string, body io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create upload file failed: %w", err)
	}
	src := body
	if s.opts.MaxUploadBytes > 0 {
		src = io.LimitReader(body, s.opts.MaxUploadBytes+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("write upload file failed: %w", err)
	}
	if s.opts.MaxUploadBytes > 0 && n > s.opts.MaxUploadBytes {
		_ = os.Remove(path)
		return 0, ErrFileTooLarge
	}
	return n, nil
}

// Process extracts, chunks and embeds a stored document and replaces its
// chunks. Running it again for the same document is safe.
func (s *DocumentService) Process(ctx context.Context, documentID uint) (err error) {
	start := time.Now()
	defer func() {
		metrics.IngestFinished(err == nil)
	}()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	ctx = withDocument(ctx, doc)

	text, err := s.extractor.Extract(doc.FilePath)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			return ErrUnsupportedFileType
		}
		return apperr.Validation("could not extract text from document").WithCause(err)
	}
	pieces := ChunkText(text, s.opts.ChunkSize)
	if len(pieces) == 0 {
		return ErrEmptyDocument
	}

	vectors := make([][]float32, 0, len(pieces))
	for i := 0; i < len(pieces); i += s.opts.EmbedBatchSize {
		end := i + s.opts.EmbedBatchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch, err := s.embedder.EmbedBatch(ctx, pieces[i:end])
		if err != nil {
			return ErrEmbeddingFailed.WithCause(err)
		}
		if len(batch) != end-i {
			return ErrEmbeddingFailed.WithCause(fmt.Errorf("got %d embeddings for %d chunks", len(batch), end-i))
		}
		vectors = append(vectors, batch...)
	}
	for i, v := range vectors {
		if len(v) == 0 || len(v) != len(vectors[0]) {
			return ErrEmbeddingFailed.WithCause(fmt.Errorf("chunk %d has embedding dimension %d, want %d", i, len(v), len(vectors[0])))
		}
	}

	processedAt := time.Now().UTC()
	chunks := make([]model.DocumentChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = model.DocumentChunk{
			DocumentID: doc.ID,
			ChunkIndex: i,
			Text:       piece,
		}
		chunks[i].SetEmbedding(vectors[i])
		chunks[i].SetMetadata(model.ChunkMetadata{
			FilePath:    doc.FilePath,
			ChunkSize:   s.opts.ChunkSize,
			ProcessedAt: processedAt,
		})
	}
	if err := s.docRepo.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return err
	}

	ctxzap.Info(ctx, "document processed",
		zap.Int("chunk_count", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *DocumentService) List(ctx context.Context, userID uint) ([]model.Document, error) {
	return s.docRepo.ListByUserID(ctx, userID)
}

func (s *DocumentService) Get(ctx context.Context, userID, id uint) (*model.Document, error) {
	doc, err := s.docRepo.GetByIDAndUserID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Reprocess rebuilds the chunks of an owned document, queued when async
// ingest is on. Failures leave the document in place.
func (s *DocumentService) Reprocess(ctx context.Context, userID, id uint) (*model.Document, error) {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	ctx = withDocument(ctx, doc)
	if s.opts.AsyncIngest && s.publisher != nil {
		if err := s.publisher.Publish(ctx, IngestJob{DocumentID: doc.ID}); err == nil {
			return doc, nil
		}
		ctxzap.Extract(ctx).Warn("enqueue reprocess job failed, processing inline")
	}
	if err := s.Process(ctx, doc.ID); err != nil {
		return nil, err
	}
	return s.docRepo.GetByID(ctx, doc.ID)
}

// Delete removes the document, its chunks and the stored file. A file that
// cannot be removed is only logged.
func (s *DocumentService) Delete(ctx context.Context, userID, id uint) error {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	deleted, err := s.docRepo.DeleteWithChunks(ctx, doc.ID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrDocumentNotFound
	}
	ctx = withDocument(ctx, doc)
	if err := os.Remove(doc.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		ctxzap.Extract(ctx).Warn("remove document file failed", zap.String("path", doc.FilePath), zap.Error(err))
	}
	ctxzap.Info(ctx, "document deleted")
	return nil
}

func fileType(contentType, ext string) string {
	if ct := strings.TrimSpace(contentType); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return strings.TrimPrefix(ext, ".")
}

func withDocument(ctx context.Context, doc *model.Document) context.Context {
	return logger.AddFields(ctx, zap.Uint("document_id", doc.ID), zap.Uint("user_id", doc.UserID))
}
