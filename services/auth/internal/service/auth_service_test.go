package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/diagnosis/bookfair-stalls/pkg/auth"
	"github.com/diagnosis/bookfair-stalls/services/auth/internal/domain"
	"github.com/diagnosis/bookfair-stalls/services/auth/internal/repository"
)

const testSecret = "test-secret"

func newTestAuthService() AuthService {
	return newTestAuthServiceWith(false)
}

func newTestAuthServiceWith(allowAdminSignup bool) AuthService {
	svc := NewAuthService(repository.NewMemoryUserRepository(), testSecret, time.Hour, allowAdminSignup).(*authService)
	// Cheap parameters keep the suite fast.
	svc.hashParams = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	return svc
}

func register(t *testing.T, svc AuthService, email, password string, role auth.Role) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), &domain.CreateUserRequest{
		Email:    email,
		Password: password,
		Name:     "Acme Books",
		Role:     string(role),
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return user
}

func TestRegister(t *testing.T) {
	svc := newTestAuthService()

	user := register(t, svc, " Pub@X.com ", "correct-horse", "")
	if user.Email != "pub@x.com" {
		t.Errorf("email not normalized: %q", user.Email)
	}
	if user.Role != auth.RolePublisher {
		t.Errorf("expected default publisher role, got %s", user.Role)
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct-horse" {
		t.Error("password was not hashed")
	}
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.CreateUserRequest
		wantErr error
	}{
		{"missing email", domain.CreateUserRequest{Password: "password1", Name: "n"}, domain.ErrValidation},
		{"bad email", domain.CreateUserRequest{Email: "nope", Password: "password1", Name: "n"}, domain.ErrValidation},
		{"short password", domain.CreateUserRequest{Email: "a@x.com", Password: "short", Name: "n"}, domain.ErrValidation},
		{"unknown role", domain.CreateUserRequest{Email: "a@x.com", Password: "password1", Name: "n", Role: "driver"}, domain.ErrValidation},
		{"duplicate", domain.CreateUserRequest{Email: "taken@x.com", Password: "password1", Name: "n"}, domain.ErrUserExists},
	}

	svc := newTestAuthService()
	register(t, svc, "taken@x.com", "password1", auth.RolePublisher)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if _, err := svc.Register(context.Background(), &req); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	svc := newTestAuthServiceWith(true)
	user := register(t, svc, "admin@x.com", "admin-password", auth.RoleAdmin)

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{Email: "ADMIN@x.com", Password: "admin-password"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Role != auth.RoleAdmin || resp.ExpiresIn != 3600 {
		t.Errorf("unexpected response %+v", resp)
	}

	claims, err := auth.Parse(resp.Token, testSecret)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Sub != user.ID || claims.Role != auth.RoleAdmin || claims.Email != "admin@x.com" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestRegister_AdminRole(t *testing.T) {
	req := func() *domain.CreateUserRequest {
		return &domain.CreateUserRequest{Email: "boss@x.com", Password: "password1", Name: "Boss", Role: "admin"}
	}

	_, err := newTestAuthService().Register(context.Background(), req())
	if !errors.Is(err, domain.ErrAdminSignupDisabled) {
		t.Fatalf("expected ErrAdminSignupDisabled, got %v", err)
	}

	user, err := newTestAuthServiceWith(true).Register(context.Background(), req())
	if err != nil {
		t.Fatalf("Register with admin signup enabled: %v", err)
	}
	if user.Role != auth.RoleAdmin {
		t.Errorf("expected admin role, got %s", user.Role)
	}
}

func TestEnsureAdmin(t *testing.T) {
	svc := newTestAuthService()
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "Admin@X.com", "admin-password"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	// Second call is a no-op.
	if err := svc.EnsureAdmin(ctx, "admin@x.com", "other-password"); err != nil {
		t.Fatalf("EnsureAdmin again: %v", err)
	}

	resp, err := svc.Login(ctx, &domain.LoginRequest{Email: "admin@x.com", Password: "admin-password"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Role != auth.RoleAdmin {
		t.Errorf("expected admin role, got %s", resp.Role)
	}

	register(t, svc, "pub@x.com", "password1", auth.RolePublisher)
	if err := svc.EnsureAdmin(ctx, "pub@x.com", "password1"); !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("expected ErrUserExists for publisher email, got %v", err)
	}
}

func TestLogin_UnknownEmailAndWrongPasswordDiffer(t *testing.T) {
	svc := newTestAuthService()
	register(t, svc, "pub@x.com", "right-password", auth.RolePublisher)
	ctx := context.Background()

	_, errUnknown := svc.Login(ctx, &domain.LoginRequest{Email: "nobody@x.com", Password: "right-password"})
	if !errors.Is(errUnknown, domain.ErrUserNotFound) {
		t.Errorf("unknown email: expected ErrUserNotFound, got %v", errUnknown)
	}

	_, errWrong := svc.Login(ctx, &domain.LoginRequest{Email: "pub@x.com", Password: "wrong-password"})
	if !errors.Is(errWrong, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", errWrong)
	}

	if errors.Is(errUnknown, domain.ErrInvalidCredentials) || errors.Is(errWrong, domain.ErrUserNotFound) {
		t.Error("the two login failures must be distinguishable")
	}
}

func TestGetUser(t *testing.T) {
	svc := newTestAuthService()
	user := register(t, svc, "pub@x.com", "right-password", auth.RolePublisher)

	got, err := svc.GetUser(context.Background(), user.ID)
	if err != nil || got.Email != "pub@x.com" {
		t.Fatalf("GetUser = %+v, %v", got, err)
	}
	if _, err := svc.GetUser(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
