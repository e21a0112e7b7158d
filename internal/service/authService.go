package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brahma/api-tracker/internal/apperrors"
	"github.com/brahma/api-tracker/internal/models"
	"github.com/brahma/api-tracker/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Claims carried by admin tokens
type AdminClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	repo      *repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration
}

func NewAuthService(repo *repository.UserRepository, secret string, expiryHours int) *AuthService {
	if expiryHours <= 0 {
		expiryHours = 24
	}
	return &AuthService{
		repo:      repo,
		jwtSecret: []byte(secret),
		jwtExpiry: time.Duration(expiryHours) * time.Hour,
	}
}

// Creates a new admin user
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewValidation("email is required", nil)
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.NewValidation(fmt.Sprintf("password must be at least %d characters", minPasswordLength), nil)
	}

	existingUser, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewStorage("failed to look up user", err)
	}
	if existingUser != nil {
		return nil, apperrors.NewValidation("user with this email already exists", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         name,
		Role:         "admin",
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperrors.NewStorage("failed to create user", err)
	}
	return user, nil
}

// Authenticates a user and returns a signed token
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", apperrors.NewStorage("failed to look up user", err)
	}
	if user == nil {
		return "", apperrors.NewAuthFailed("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperrors.NewAuthFailed("invalid credentials")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
		},
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// Validates a token and returns its claims
func (s *AuthService) ValidateToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	if err != nil {
		return nil, apperrors.New(apperrors.ErrAuthFailed, "invalid or expired token", err)
	}
	if !token.Valid {
		return nil, apperrors.NewAuthFailed("invalid or expired token")
	}

	return claims, nil
}

// Retrieves a user by ID
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrNotFound, "user not found", nil)
	}

	user, err := s.repo.FindByID(ctx, uid.String())
	if err != nil {
		return nil, apperrors.NewStorage("failed to look up user", err)
	}
	if user == nil {
		return nil, apperrors.New(apperrors.ErrNotFound, "user not found", nil)
	}
	return user, nil
}

// Lists every admin, newest first
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorage("failed to list users", err)
	}
	return users, nil
}

// Removes an admin; tokens already issued to it stop working
func (s *AuthService) DeleteUser(ctx context.Context, email string) error {
	deleted, err := s.repo.DeleteByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return apperrors.NewStorage("failed to delete user", err)
	}
	if deleted == 0 {
		return apperrors.New(apperrors.ErrNotFound, "user not found", nil)
	}
	return nil
}
