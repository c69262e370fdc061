package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/diagnosis/bookfair-stalls/pkg/auth"
	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	"github.com/diagnosis/bookfair-stalls/services/auth/internal/domain"
	"github.com/diagnosis/bookfair-stalls/services/auth/internal/repository"
	"github.com/google/uuid"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

type authService struct {
	userRepo         repository.UserRepository
	jwtSecret        string
	tokenTTL         time.Duration
	hashParams       *argon2id.Params
	allowAdminSignup bool
}

// NewAuthService builds the auth service. Unless allowAdminSignup is set,
// Register refuses the admin role and admins come from EnsureAdmin.
func NewAuthService(userRepo repository.UserRepository, jwtSecret string, tokenTTL time.Duration, allowAdminSignup bool) AuthService {
	return &authService{
		userRepo:         userRepo,
		jwtSecret:        jwtSecret,
		tokenTTL:         tokenTTL,
		hashParams:       argon2id.DefaultParams,
		allowAdminSignup: allowAdminSignup,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	role, ok := auth.ParseRole(req.Role)
	if !ok {
		return nil, fmt.Errorf("%w: invalid role", domain.ErrValidation)
	}
	if role == auth.RoleAdmin && !s.allowAdminSignup {
		return nil, domain.ErrAdminSignupDisabled
	}

	existing, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrUserExists
	}

	user, err := s.create(ctx, req.Email, req.Password, req.Name, role)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "User registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// EnsureAdmin creates the admin account for email if it does not exist yet.
// An existing non-admin account with that email is an error.
func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	req := &domain.CreateUserRequest{Email: email, Password: password, Name: "Administrator", Role: string(auth.RoleAdmin)}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	existing, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		if existing.Role != auth.RoleAdmin {
			return fmt.Errorf("%w: %s is registered as %s", domain.ErrUserExists, req.Email, existing.Role)
		}
		return nil
	}

	user, err := s.create(ctx, req.Email, req.Password, req.Name, auth.RoleAdmin)
	if errors.Is(err, domain.ErrUserExists) {
		// Another replica seeded it first.
		return nil
	}
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Admin account seeded", "user_id", user.ID)
	return nil
}

func (s *authService) create(ctx context.Context, email, password, name string, role auth.Role) (*domain.User, error) {
	passwordHash, err := argon2id.CreateHash(password, s.hashParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Role:         role,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login reports ErrUserNotFound for unknown emails and ErrInvalidCredentials
// for a wrong password.
func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := auth.NewAccessToken(user.ID, user.Email, user.Role, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	return &domain.LoginResponse{
		Token:     token,
		Role:      user.Role,
		ExpiresIn: int64(s.tokenTTL.Seconds()),
		User:      user.ToUserInfo(),
	}, nil
}

func (s *authService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
