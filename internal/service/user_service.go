package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"
	"unicode"

	"procureflow/internal/model"
	"procureflow/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for request validation

type CreateUserRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	JobTitle  string `json:"job_title"`
	Role      string `json:"role" binding:"required,oneof=Employee ESS Admin"`
	Username  string `json:"username" binding:"required"`
}

type LoginUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token"`
	User         *UserResponse `json:"user,omitempty"`
}

// UserResponse returns User data without exposing the password hash
type UserResponse struct {
	ID                uuid.UUID `json:"id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	JobTitle          string    `json:"job_title"`
	Role              string    `json:"role"`
	Username          string    `json:"username"`
	IsDefaultPassword bool      `json:"is_default_password"`
	CreatedAt         string    `json:"created_at"`
}

// CreatedUserResponse carries the deterministic default password back to the
// admin so it can be communicated out-of-band. It is never stored in plain.
type CreatedUserResponse struct {
	User            UserResponse `json:"user"`
	DefaultPassword string       `json:"default_password"`
}

// UserService defines the credential-store operations
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest, actorID *uuid.UUID) (*CreatedUserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Authenticate(ctx context.Context, username, password string) (*UserResponse, error)
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	SetPassword(ctx context.Context, userID string, newPassword string) error
	ResetPassword(ctx context.Context, userID string, actorID *uuid.UUID) (string, error)
}

type userService struct {
	repo repository.UserRepository
	db   *gorm.DB // audit rows only
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, db *gorm.DB) UserService {
	return &userService{repo: repo, db: db}
}

// GenerateDefaultPassword derives the deterministic initial credential from a
// user's name: LastName + first letter of FirstName, whitespace stripped
// (e.g. "Jackson" + "G" -> "JacksonG"). Falls back to "password" when either
// name is blank.
func GenerateDefaultPassword(firstName, lastName string) string {
	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)
	if first == "" || last == "" {
		return "password"
	}
	pwd := last + string([]rune(first)[0])
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, pwd)
}

func getJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key" // development fallback only
	}
	return []byte(secret)
}

func mapToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:                user.ID,
		FirstName:         user.FirstName,
		LastName:          user.LastName,
		JobTitle:          user.JobTitle,
		Role:              user.Role,
		Username:          user.Username,
		IsDefaultPassword: user.IsDefaultPassword,
		CreatedAt:         user.CreatedAt.Format(time.RFC3339),
	}
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest, actorID *uuid.UUID) (*CreatedUserResponse, error) {
	// Duplicate check is a case-sensitive exact match; only login folds case
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrDuplicateUsername
	}

	defaultPwd := GenerateDefaultPassword(req.FirstName, req.LastName)
	hashed, err := bcrypt.GenerateFromPassword([]byte(defaultPwd), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		JobTitle:          req.JobTitle,
		Role:              req.Role,
		Username:          req.Username,
		Password:          string(hashed),
		IsDefaultPassword: true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := writeAudit(s.db.WithContext(ctx), actorID, model.ActionCreateUser, user.ID.String(), user.Username, map[string]interface{}{
		"role": user.Role,
	}); err != nil {
		return nil, err
	}

	return &CreatedUserResponse{
		User:            *mapToUserResponse(user),
		DefaultPassword: defaultPwd,
	}, nil
}

// Authenticate verifies a username/password pair without issuing tokens.
// The username match is case-insensitive.
func (s *userService) Authenticate(ctx context.Context, username, password string) (*UserResponse, error) {
	user, err := s.repo.GetByUsernameFold(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return mapToUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByUsernameFold(ctx, req.Username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}

	refresh := model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
	if err := s.db.WithContext(ctx).Create(&refresh).Error; err != nil {
		return nil, errors.New("failed to store refresh token")
	}

	return &TokenResponse{
		Token:        accessToken,
		RefreshToken: refresh.Token,
		User:         mapToUserResponse(user),
	}, nil
}

func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	var stored model.RefreshToken
	if err := s.db.WithContext(ctx).Preload("User").First(&stored, "token = ?", req.RefreshToken).Error; err != nil {
		return nil, errors.New("invalid refresh token")
	}
	if time.Now().After(stored.ExpiresAt) {
		s.db.WithContext(ctx).Delete(&stored)
		return nil, errors.New("refresh token expired")
	}

	accessToken, err := s.signAccessToken(&stored.User)
	if err != nil {
		return nil, err
	}

	// Rotate: replace the used refresh token with a fresh one
	next := model.RefreshToken{
		UserID:    stored.UserID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&stored).Error; err != nil {
			return err
		}
		return tx.Create(&next).Error
	})
	if err != nil {
		return nil, errors.New("failed to rotate refresh token")
	}

	return &TokenResponse{
		Token:        accessToken,
		RefreshToken: next.Token,
		User:         mapToUserResponse(&stored.User),
	}, nil
}

func (s *userService) signAccessToken(user *model.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"name": user.DisplayName(),
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(getJWTSecret())
	if err != nil {
		return "", errors.New("failed to generate token")
	}
	return signed, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return mapToUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToUserResponse(&users[i]))
	}

	return responses, total, nil
}

// SetPassword overwrites the user's hash and clears the default-password flag
func (s *userService) SetPassword(ctx context.Context, userID string, newPassword string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash password")
	}

	user.Password = string(hashed)
	user.IsDefaultPassword = false
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	return writeAudit(s.db.WithContext(ctx), &user.ID, model.ActionChangePassword, user.ID.String(), user.Username, nil)
}

// ResetPassword recomputes the deterministic default from the stored name,
// marks the account as carrying a default password again, and returns the
// plaintext so an admin can hand it out.
func (s *userService) ResetPassword(ctx context.Context, userID string, actorID *uuid.UUID) (string, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", ErrUserNotFound
	}

	defaultPwd := GenerateDefaultPassword(user.FirstName, user.LastName)
	hashed, err := bcrypt.GenerateFromPassword([]byte(defaultPwd), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.New("failed to hash password")
	}

	user.Password = string(hashed)
	user.IsDefaultPassword = true
	if err := s.repo.Update(ctx, user); err != nil {
		return "", err
	}

	if err := writeAudit(s.db.WithContext(ctx), actorID, model.ActionResetPassword, user.ID.String(), user.Username, nil); err != nil {
		return "", err
	}

	return defaultPwd, nil
}
