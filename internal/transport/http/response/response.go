package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"agentic-rag/internal/pkg/apperr"
)

const (
	CodeOK              = 0
	CodeBadRequest      = 40000
	CodeUnauthorized    = 40100
	CodeForbidden       = 40300
	CodeNotFound        = 40400
	CodeConflict        = 40900
	CodeUnprocessable   = 42200
	CodeTooManyRequests = 42900
	CodeInternalServer  = 50000
	CodeBadGateway      = 50200
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// Fail writes err as an error envelope. Internal causes are logged, never returned.
func Fail(c *gin.Context, err error) {
	e := apperr.As(err)
	status, code := Status(e.Kind)
	message := e.Message

	log := ctxzap.Extract(c.Request.Context())
	switch e.Kind {
	case apperr.KindInternal:
		log.Error("request failed", zap.Error(err))
		message = "internal server error"
	case apperr.KindUpstream:
		log.Warn("upstream dependency failed", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, APIResponse{Code: code, Message: message})
}

// Status maps an error kind to its HTTP status and application code.
func Status(kind apperr.Kind) (int, int) {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest, CodeBadRequest
	case apperr.KindUnprocessable:
		return http.StatusUnprocessableEntity, CodeUnprocessable
	case apperr.KindAuthentication:
		return http.StatusUnauthorized, CodeUnauthorized
	case apperr.KindAuthorization:
		return http.StatusForbidden, CodeForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case apperr.KindConflict:
		return http.StatusBadRequest, CodeConflict
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests, CodeTooManyRequests
	case apperr.KindUpstream:
		return http.StatusBadGateway, CodeBadGateway
	default:
		return http.StatusInternalServerError, CodeInternalServer
	}
}
