package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"agentic-rag/internal/app"
	"agentic-rag/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type SignupRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required,max=32"`
	Email        string `json:"email" binding:"omitempty,email,max=128"`
	Password     string `json:"password" binding:"required,max=128"`
}

// LoginRequest accepts mobile_number, or username as sent by OAuth2 password clients.
type LoginRequest struct {
	MobileNumber string `json:"mobile_number" form:"mobile_number"`
	Username     string `json:"username" form:"username"`
	Password     string `json:"password" form:"password"`
}

type UpdateMeRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.Signup(c.Request.Context(), app.SignupInput{
		MobileNumber: req.MobileNumber,
		Email:        req.Email,
		Password:     req.Password,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	ctxzap.Info(c.Request.Context(), "user signed up", zap.Uint("user_id", user.ID))
	response.OK(c, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	var err error
	if strings.HasPrefix(c.ContentType(), "application/json") {
		err = c.ShouldBindJSON(&req)
	} else {
		err = c.ShouldBind(&req)
	}
	if err != nil {
		response.Fail(c, errInvalidPayload.WithCause(err))
		return
	}
	mobile := req.MobileNumber
	if mobile == "" {
		mobile = req.Username
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		MobileNumber: mobile,
		Password:     req.Password,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

// Logout is a no-op; tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(c *gin.Context) {
	response.OK(c, gin.H{"message": "logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	response.OK(c, user)
}

func (h *AuthHandler) UpdateMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateMeRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.authService.UpdateMe(c.Request.Context(), user.ID, app.UpdateMeInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, updated)
}
