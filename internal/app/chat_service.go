package app

import (
	"context"
	"strings"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"agentic-rag/internal/model"
	"agentic-rag/internal/repository"
)

type ChatService struct {
	historyRepo  *repository.ChatHistoryRepository
	messageRepo  *repository.MessageRepository
	publisher    Publisher
	historyCache HistoryCache
}

type CreateHistoryInput struct {
	UserID    uint
	AgentType string
	Title     string
}

type AppendMessageInput struct {
	UserID        uint
	ChatHistoryID uint
	Role          string
	Content       string
}

// NewChatService wires the chat log. publisher and historyCache may be nil, in
// which case messages are written directly and reads always hit the database.
func NewChatService(
	historyRepo *repository.ChatHistoryRepository,
	messageRepo *repository.MessageRepository,
	publisher Publisher,
	historyCache HistoryCache,
) *ChatService {
	return &ChatService{
		historyRepo:  historyRepo,
		messageRepo:  messageRepo,
		publisher:    publisher,
		historyCache: historyCache,
	}
}

func (s *ChatService) CreateHistory(ctx context.Context, input CreateHistoryInput) (*model.ChatHistory, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	if !model.ValidAgentType(input.AgentType) {
		return nil, ErrInvalidAgentType
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "New Chat"
	}
	history := &model.ChatHistory{
		UserID:    input.UserID,
		AgentType: input.AgentType,
		Title:     title,
	}
	if err := s.historyRepo.Create(ctx, history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *ChatService) ListHistories(ctx context.Context, userID uint, agentType string) ([]model.ChatHistory, error) {
	if agentType != "" && !model.ValidAgentType(agentType) {
		return nil, ErrInvalidAgentType
	}
	return s.historyRepo.ListByUserID(ctx, userID, agentType)
}

func (s *ChatService) DeleteHistory(ctx context.Context, userID, id uint) error {
	deleted, err := s.historyRepo.DeleteWithMessages(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrChatHistoryNotFound
	}
	if s.historyCache != nil {
		_ = s.historyCache.Invalidate(ctx, id)
	}
	return nil
}

func (s *ChatService) GetMessages(ctx context.Context, userID, historyID uint, limit int) ([]model.Message, error) {
	if _, err := s.ownedHistory(ctx, userID, historyID); err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		if cached, hit, err := s.historyCache.Load(ctx, historyID); err == nil && hit {
			return trimMessages(cached, limit), nil
		}
	}

	messages, err := s.messageRepo.ListByChatHistoryID(ctx, historyID, 0)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		_ = s.historyCache.Store(ctx, historyID, messages)
	}
	return trimMessages(messages, limit), nil
}

func (s *ChatService) AppendMessage(ctx context.Context, input AppendMessageInput) (*model.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}
	role := input.Role
	if role == "" {
		role = model.MessageRoleUser
	}
	if role != model.MessageRoleUser && role != model.MessageRoleAssistant && role != model.MessageRoleSystem {
		return nil, ErrInvalidMessageRole
	}
	if _, err := s.ownedHistory(ctx, input.UserID, input.ChatHistoryID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ChatHistoryID: input.ChatHistoryID,
		UserID:        input.UserID,
		Role:          role,
		Content:       content,
		CreatedAt:     time.Now(),
	}
	if err := s.enqueue(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.historyRepo.Touch(ctx, input.ChatHistoryID); err != nil {
		ctxzap.Extract(ctx).Warn("touch chat history failed", zap.Error(err))
	}
	return msg, nil
}

// RecordExchange appends a question and its answer to a history of the given
// agent type. It is a no-op when historyID is 0.
func (s *ChatService) RecordExchange(ctx context.Context, userID, historyID uint, agentType, question, answer string) error {
	if historyID == 0 {
		return nil
	}
	history, err := s.ownedHistory(ctx, userID, historyID)
	if err != nil {
		return err
	}
	if history.AgentType != agentType {
		return ErrChatHistoryAgentType
	}
	now := time.Now()
	exchange := []*model.Message{
		{ChatHistoryID: historyID, UserID: userID, Role: model.MessageRoleUser, Content: question, CreatedAt: now},
		{ChatHistoryID: historyID, UserID: userID, Role: model.MessageRoleAssistant, Content: answer, CreatedAt: now.Add(time.Millisecond)},
	}
	for _, msg := range exchange {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if err := s.enqueue(ctx, msg); err != nil {
			return err
		}
	}
	return s.historyRepo.Touch(ctx, historyID)
}

// enqueue hands msg to the persist worker, or writes it directly when no
// publisher is wired or publishing fails. A cache write window is opened first.
func (s *ChatService) enqueue(ctx context.Context, msg *model.Message) error {
	if s.historyCache != nil {
		_ = s.historyCache.BeginWrite(ctx, msg.ChatHistoryID)
	}
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, *msg)
		if err == nil {
			return nil
		}
		ctxzap.Extract(ctx).Warn("publish message failed, writing directly",
			zap.Uint("chat_history_id", msg.ChatHistoryID), zap.Error(err))
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.Invalidate(ctx, msg.ChatHistoryID)
	}
	return nil
}

func (s *ChatService) ownedHistory(ctx context.Context, userID, historyID uint) (*model.ChatHistory, error) {
	if userID == 0 || historyID == 0 {
		return nil, ErrChatHistoryNotFound
	}
	history, err := s.historyRepo.GetByIDAndUserID(ctx, historyID, userID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		return nil, ErrChatHistoryNotFound
	}
	return history, nil
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
