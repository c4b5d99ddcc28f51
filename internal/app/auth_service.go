package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"agentic-rag/internal/model"
	"agentic-rag/internal/pkg/jwtutil"
	"agentic-rag/internal/repository"
)

const minPasswordLength = 8

type AuthService struct {
	userRepo      *repository.UserRepository
	roleRepo      *repository.RoleRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

type SignupInput struct {
	MobileNumber string
	Email        string
	Password     string
}

type LoginInput struct {
	MobileNumber string
	Password     string
}

type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// UpdateMeInput changes only the fields that are set.
type UpdateMeInput struct {
	Email    *string
	Password *string
}

func NewAuthService(userRepo *repository.UserRepository, roleRepo *repository.RoleRepository, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		roleRepo:      roleRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Signup registers a user with the default role as both primary and assigned role.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*model.User, error) {
	mobile := strings.TrimSpace(input.MobileNumber)
	if mobile == "" {
		return nil, ErrMobileRequired
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	existing, err := s.userRepo.GetByMobile(ctx, mobile)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrMobileExists
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role, err := ensureRole(ctx, s.roleRepo, model.UserRoleName, "Default role for registered users")
	if err != nil {
		return nil, err
	}

	user := &model.User{
		MobileNumber: mobile,
		Email:        optionalString(input.Email),
		PasswordHash: hash,
		RoleID:       &role.ID,
		IsActive:     true,
		Roles:        []model.Role{*role},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*TokenResult, error) {
	mobile := strings.TrimSpace(input.MobileNumber)
	if mobile == "" || input.Password == "" {
		return nil, ErrInvalidCredential
	}

	user, err := s.userRepo.GetByMobile(ctx, mobile)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredential
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.jwtExpiration / time.Second),
	}, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.userRepo.GetByID(ctx, id)
}

func (s *AuthService) UpdateMe(ctx context.Context, userID uint, input UpdateMeInput) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if input.Email != nil {
		user.Email = optionalString(*input.Email)
	}
	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hash, err := hashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password failed: %w", err)
	}
	return string(hash), nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ensureRole returns the named role, creating it when missing.
func ensureRole(ctx context.Context, roles *repository.RoleRepository, name, description string) (*model.Role, error) {
	role, err := roles.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if role != nil {
		return role, nil
	}
	role = &model.Role{Name: name, Description: description}
	if err := roles.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}
