package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/dsolution-crm/internal/store"
	"github.com/vovakirdan/dsolution-crm/internal/store/sqlite"
)

func newTestAuthService(t *testing.T, staff ...string) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}

	return NewService(st, jwtConfig, staff)
}

func TestRegister_RejectsInvalidEmail(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "not-an-email", "password123"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(ctx, "   ", "password123"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestRegister_RejectsInvalidPassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "abc@example.com", "12345"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_NormalizesEmailAndCreatesUser(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, " Alice@Example.com ", "password123")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected non-empty token")
	}
	if res.User.Email != "alice@example.com" || res.User.Role != store.RoleCustomer {
		t.Fatalf("unexpected user: %+v", res.User)
	}

	// Should collide because the stored email is normalized.
	if _, err := svc.Register(ctx, "alice@example.com", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestRegister_StaffEmailGetsStaffRole(t *testing.T) {
	svc := newTestAuthService(t, "Desk@DSolution.test")

	res, err := svc.Register(context.Background(), "desk@dsolution.test", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.User.Role != store.RoleStaff {
		t.Fatalf("expected staff role, got %s", res.User.Role)
	}

	claims, err := svc.ValidateToken(res.Token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if !claims.IsStaff() || claims.UserID != res.User.ID {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "bob@example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	res, err := svc.Login(ctx, "BOB@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.User.ID != registered.User.ID {
		t.Fatalf("expected same user, got %s and %s", res.User.ID, registered.User.ID)
	}

	if _, err := svc.Login(ctx, "bob@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "ghost@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestValidateToken_RejectsForeignSecretAndExpiry(t *testing.T) {
	user := &store.User{ID: "u-1", Email: "u@example.com", Role: store.RoleCustomer}
	cfg := &JWTConfig{Secret: []byte("one"), Issuer: "test", Audience: "test", TTL: time.Minute}

	token, err := GenerateToken(cfg, user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ValidateToken(&JWTConfig{Secret: []byte("two"), Issuer: "test", Audience: "test"}, token); err == nil {
		t.Fatalf("expected signature error")
	}
	if _, err := ValidateToken(&JWTConfig{Secret: []byte("one"), Issuer: "other"}, token); err == nil {
		t.Fatalf("expected issuer error")
	}

	expired, err := GenerateToken(&JWTConfig{Secret: []byte("one"), TTL: -time.Minute}, user)
	if err != nil {
		t.Fatalf("generate expired: %v", err)
	}
	if _, err := ValidateToken(cfg, expired); err == nil {
		t.Fatalf("expected expiry error")
	}

	claims, err := ValidateToken(cfg, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "u-1" || claims.Email != "u@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
