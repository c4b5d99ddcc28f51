package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"agentic-rag/internal/app"
)

type DocumentProcessor interface {
	Process(ctx context.Context, documentID uint) error
}

// IngestWorker extracts, chunks and embeds uploaded documents off the request path.
type IngestWorker struct {
	docs DocumentProcessor
}

func NewIngestWorker(docs DocumentProcessor) *IngestWorker {
	return &IngestWorker{docs: docs}
}

func (w *IngestWorker) Handle(ctx context.Context, body []byte) error {
	var job app.IngestJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode ingest job failed: %w", err)
	}
	if job.DocumentID == 0 {
		return fmt.Errorf("ingest job without document id")
	}
	if err := w.docs.Process(ctx, job.DocumentID); err != nil {
		return fmt.Errorf("process document %d failed: %w", job.DocumentID, err)
	}
	ctxzap.Debug(ctx, "ingest job done", zap.Uint("document_id", job.DocumentID))
	return nil
}
