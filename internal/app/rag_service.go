package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"agentic-rag/internal/ai"
	"agentic-rag/internal/model"
	"agentic-rag/internal/repository"
	"agentic-rag/internal/vectorsearch"
)

const (
	defaultTopK      = 5
	sourcePreviewLen = 100

	NoChunksResponse = "No document chunks found for the specified documents."

	documentSystemPrompt = "You are a helpful assistant answering questions based on the provided document context. Only use information from the context to answer. If the answer is not in the context, say you don't know:\n\n"
)

type RAGService struct {
	docRepo   *repository.DocumentRepository
	chunkRepo *repository.ChunkRepository
	embedder  Embedder
	completer Completer
	chat      *ChatService
	topK      int
}

// NewRAGService wires retrieval. chat may be nil when exchanges are not recorded.
func NewRAGService(
	docRepo *repository.DocumentRepository,
	chunkRepo *repository.ChunkRepository,
	embedder Embedder,
	completer Completer,
	chat *ChatService,
) *RAGService {
	return &RAGService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		embedder:  embedder,
		completer: completer,
		chat:      chat,
		topK:      defaultTopK,
	}
}

type QueryInput struct {
	UserID        uint
	Prompt        string
	DocumentIDs   []uint
	ChatHistoryID uint
}

type Source struct {
	Filename  string `json:"filename"`
	ChunkText string `json:"chunk_text"`
}

type QueryResult struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}

// Query answers the prompt from the closest chunks of the caller's documents.
// Unknown or foreign document IDs are ignored; with no chunks left the canned
// response is returned.
func (s *RAGService) Query(ctx context.Context, input QueryInput) (*QueryResult, error) {
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return nil, ErrPromptRequired
	}
	if len(input.DocumentIDs) == 0 {
		return nil, ErrDocumentIDsRequired
	}

	docs, err := s.docRepo.ListByIDsAndUserID(ctx, dedupe(input.DocumentIDs), input.UserID)
	if err != nil {
		return nil, err
	}
	filenames := make(map[uint]string, len(docs))
	ids := make([]uint, 0, len(docs))
	for _, d := range docs {
		filenames[d.ID] = d.Filename
		ids = append(ids, d.ID)
	}

	chunks, err := s.chunkRepo.ListByDocumentIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &QueryResult{Response: NoChunksResponse, Sources: []Source{}}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, prompt)
	if err != nil {
		return nil, ErrEmbeddingFailed.WithCause(err)
	}

	index := vectorsearch.NewFlatIndex(len(chunks))
	byID := make(map[uint]*model.DocumentChunk, len(chunks))
	for i := range chunks {
		index.Add(chunks[i].ID, chunks[i].EmbeddingVector())
		byID[chunks[i].ID] = &chunks[i]
	}
	matches := index.Search(queryVec, s.topK)

	texts := make([]string, 0, len(matches))
	sources := make([]Source, 0, len(matches))
	for _, m := range matches {
		c := byID[m.ID]
		texts = append(texts, c.Text)
		sources = append(sources, Source{
			Filename:  filenames[c.DocumentID],
			ChunkText: preview(c.Text, sourcePreviewLen),
		})
	}

	answer, err := s.completer.Complete(ctx, []ai.ChatMessage{
		{Role: model.MessageRoleSystem, Content: documentSystemPrompt + strings.Join(texts, "\n\n")},
		{Role: model.MessageRoleUser, Content: prompt},
	})
	if err != nil {
		return nil, ErrCompletionFailed.WithCause(err)
	}

	ctxzap.Info(ctx, "document query answered",
		zap.Uint("user_id", input.UserID),
		zap.Int("documents", len(ids)),
		zap.Int("chunks_scanned", len(chunks)),
		zap.Int("sources", len(sources)))

	if s.chat != nil && input.ChatHistoryID != 0 {
		if err := s.chat.RecordExchange(ctx, input.UserID, input.ChatHistoryID, model.AgentTypeDocument, prompt, answer); err != nil {
			ctxzap.Extract(ctx).Warn("record document exchange failed", zap.Uint("chat_history_id", input.ChatHistoryID), zap.Error(err))
		}
	}
	return &QueryResult{Response: answer, Sources: sources}, nil
}

// preview returns the first n runes of s, with "..." appended when s is longer.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
