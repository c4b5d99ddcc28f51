package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"agentic-rag/internal/model"
	"agentic-rag/internal/pkg/apperr"
	"agentic-rag/internal/transport/http/middleware"
	"agentic-rag/internal/transport/http/response"
)

var (
	errInvalidPayload  = apperr.Validation("invalid request payload")
	errUnauthenticated = apperr.Authentication("could not validate credentials")
)

func currentUser(c *gin.Context) (*model.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, errUnauthenticated)
		return nil, false
	}
	return user, true
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		response.Fail(c, errInvalidPayload.WithCause(err))
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, bool) {
	return parseID(c, key, c.Param(key))
}

func parseUintQuery(c *gin.Context, key string) (uint, bool) {
	return parseID(c, key, c.Query(key))
}

func parseID(c *gin.Context, key, raw string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, apperr.Validation(fmt.Sprintf("invalid %s", key)))
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func deleted(message string) gin.H {
	return gin.H{"message": message}
}
