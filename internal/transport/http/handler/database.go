package handler

import (
	"github.com/gin-gonic/gin"

	"agentic-rag/internal/app"
	"agentic-rag/internal/transport/http/response"
)

type DatabaseHandler struct {
	agent *app.SQLAgentService
}

type ConnectRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	DBType           string `json:"db_type"`
	ConnectionString string `json:"connection_string"`
}

type SQLQueryRequest struct {
	ConnectionID  uint     `json:"connection_id"`
	Question      string   `json:"question"`
	Tables        []string `json:"tables"`
	ChatHistoryID uint     `json:"chat_history_id"`
}

func NewDatabaseHandler(agent *app.SQLAgentService) *DatabaseHandler {
	return &DatabaseHandler{agent: agent}
}

func (h *DatabaseHandler) Connect(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req ConnectRequest
	if !bindJSON(c, &req) {
		return
	}
	conn, err := h.agent.Connect(c.Request.Context(), app.ConnectInput{
		UserID:           user.ID,
		Name:             req.Name,
		Description:      req.Description,
		DBType:           req.DBType,
		ConnectionString: req.ConnectionString,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, conn)
}

func (h *DatabaseHandler) ListConnections(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	conns, err := h.agent.ListConnections(c.Request.Context(), user.ID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, conns)
}

func (h *DatabaseHandler) GetConnection(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	conn, err := h.agent.GetConnection(c.Request.Context(), user.ID, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, conn)
}

func (h *DatabaseHandler) DeleteConnection(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.agent.DeleteConnection(c.Request.Context(), user.ID, id); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, deleted("database connection deleted"))
}

func (h *DatabaseHandler) ListTables(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	connID, ok := parseUintQuery(c, "connection_id")
	if !ok {
		return
	}
	tables, err := h.agent.ListTables(c.Request.Context(), user.ID, connID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"tables": tables})
}

func (h *DatabaseHandler) TableSchema(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	connID, ok := parseUintQuery(c, "connection_id")
	if !ok {
		return
	}
	schema, err := h.agent.TableSchema(c.Request.Context(), user.ID, connID, c.Param("name"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, schema)
}

// Query takes connection_id from the query string or, failing that, the body.
func (h *DatabaseHandler) Query(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req SQLQueryRequest
	if !bindJSON(c, &req) {
		return
	}
	if c.Query("connection_id") != "" || req.ConnectionID == 0 {
		id, ok := parseUintQuery(c, "connection_id")
		if !ok {
			return
		}
		req.ConnectionID = id
	}

	result, err := h.agent.Query(c.Request.Context(), app.SQLQueryInput{
		UserID:        user.ID,
		ConnectionID:  req.ConnectionID,
		Question:      req.Question,
		Tables:        req.Tables,
		ChatHistoryID: req.ChatHistoryID,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

func (h *DatabaseHandler) History(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	entries, err := h.agent.History(c.Request.Context(), user.ID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, entries)
}
