package handler

import (
	"github.com/gin-gonic/gin"

	"agentic-rag/internal/app"
	"agentic-rag/internal/transport/http/response"
)

type ChatHandler struct {
	chat *app.ChatService
}

type CreateHistoryRequest struct {
	AgentType string `json:"agent_type"`
	Title     string `json:"title" binding:"max=255"`
}

type AppendMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewChatHandler(chat *app.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) CreateHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateHistoryRequest
	if !bindJSON(c, &req) {
		return
	}
	history, err := h.chat.CreateHistory(c.Request.Context(), app.CreateHistoryInput{
		UserID:    user.ID,
		AgentType: req.AgentType,
		Title:     req.Title,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, history)
}

func (h *ChatHandler) ListHistories(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	histories, err := h.chat.ListHistories(c.Request.Context(), user.ID, c.Query("agent_type"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, histories)
}

func (h *ChatHandler) DeleteHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.chat.DeleteHistory(c.Request.Context(), user.ID, id); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, deleted("chat history deleted"))
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	messages, err := h.chat.GetMessages(c.Request.Context(), user.ID, id, queryInt(c, "limit", 0))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, messages)
}

func (h *ChatHandler) AppendMessage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req AppendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.chat.AppendMessage(c.Request.Context(), app.AppendMessageInput{
		UserID:        user.ID,
		ChatHistoryID: id,
		Role:          req.Role,
		Content:       req.Content,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, msg)
}
