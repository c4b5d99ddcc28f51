package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agentic-rag/internal/model"
	"agentic-rag/internal/pkg/apperr"
	"agentic-rag/internal/pkg/jwtutil"
	"agentic-rag/internal/pkg/logger"
	"agentic-rag/internal/transport/http/response"
)

const (
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
)

var (
	errMissingAuth   = apperr.Authentication("missing authorization header")
	errInvalidScheme = apperr.Authentication("invalid authorization scheme")
	errInvalidToken  = apperr.Authentication("could not validate credentials")
	errInactiveUser  = apperr.Authentication("inactive user")
	errNotAdmin      = apperr.Authorization("not authorized to access admin resources")
)

type UserLoader interface {
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, user *model.User) (bool, error)
}

// AuthJWT verifies the bearer token and loads the active user it names.
func AuthJWT(secret string, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Fail(c, errMissingAuth)
			return
		}

		const prefix = "Bearer "
		if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
			response.Fail(c, errInvalidScheme)
			return
		}

		token := strings.TrimSpace(authHeader[len(prefix):])
		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Fail(c, errInvalidToken)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			response.Fail(c, errInvalidToken)
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			response.Fail(c, err)
			return
		}
		if user == nil {
			response.Fail(c, errInvalidToken)
			return
		}
		if !user.IsActive {
			response.Fail(c, errInactiveUser)
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Request = c.Request.WithContext(logger.AddFields(c.Request.Context(), zap.Uint("user_id", user.ID)))
		c.Next()
	}
}

// RequireAdmin must run after AuthJWT.
func RequireAdmin(authz AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Fail(c, errInvalidToken)
			return
		}
		isAdmin, err := authz.IsAdmin(c.Request.Context(), user)
		if err != nil {
			response.Fail(c, err)
			return
		}
		if !isAdmin {
			response.Fail(c, errNotAdmin)
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok && user != nil
}

func CurrentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
