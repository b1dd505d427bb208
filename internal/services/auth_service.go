package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lifeshare/internal/auth"
	"lifeshare/internal/config"
	"lifeshare/internal/models"
	"lifeshare/internal/storage"

	"gorm.io/gorm"
)

var (
	ErrUserAlreadyExists  = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("role must be donor or requester")
	ErrMissingFields      = errors.New("full name, email and password are required")
)

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	FullName         string
	Email            string
	Password         string
	Phone            string
	BloodType        string
	OrganizationName string
	Role             models.UserRole
}

// AuthService defines the interface for account and session operations.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (token string, user *models.User, err error)
}

type authService struct {
	userRepo storage.UserRepository
	cfg      config.Config
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(userRepo storage.UserRepository, cfg config.Config) AuthService {
	return &authService{userRepo: userRepo, cfg: cfg}
}

// Register validates the input, hashes the password and creates the account.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.FullName == "" || input.Email == "" || input.Password == "" {
		return nil, ErrMissingFields
	}
	if input.Role != models.RoleDonor && input.Role != models.RoleRequester {
		return nil, ErrInvalidRole
	}

	_, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FullName:         input.FullName,
		Email:            input.Email,
		PasswordHash:     passwordHash,
		Phone:            input.Phone,
		BloodType:        input.BloodType,
		OrganizationName: input.OrganizationName,
		Role:             input.Role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login verifies the credentials and issues a JWT.
func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user, s.cfg.Auth)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, user, nil
}
