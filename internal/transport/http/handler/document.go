package handler

import (
	"github.com/gin-gonic/gin"

	"agentic-rag/internal/app"
	"agentic-rag/internal/pkg/apperr"
	"agentic-rag/internal/transport/http/response"
)

var errFileRequired = apperr.Validation("file is required")

type DocumentHandler struct {
	docs *app.DocumentService
	rag  *app.RAGService
}

type DocumentQueryRequest struct {
	Prompt        string `json:"prompt"`
	DocumentIDs   []uint `json:"document_ids"`
	ChatHistoryID uint   `json:"chat_history_id"`
}

func NewDocumentHandler(docs *app.DocumentService, rag *app.RAGService) *DocumentHandler {
	return &DocumentHandler{docs: docs, rag: rag}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, errFileRequired.WithCause(err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Fail(c, errFileRequired.WithCause(err))
		return
	}
	defer f.Close()

	doc, err := h.docs.Upload(c.Request.Context(), app.UploadInput{
		UserID:      user.ID,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	docs, err := h.docs.List(c.Request.Context(), user.ID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Reprocess(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.docs.Reprocess(c.Request.Context(), user.ID, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.docs.Delete(c.Request.Context(), user.ID, id); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, deleted("document deleted"))
}

func (h *DocumentHandler) Query(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req DocumentQueryRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.rag.Query(c.Request.Context(), app.QueryInput{
		UserID:        user.ID,
		Prompt:        req.Prompt,
		DocumentIDs:   req.DocumentIDs,
		ChatHistoryID: req.ChatHistoryID,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}
