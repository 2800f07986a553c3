package services

import (
	"context"
	"errors"
	"testing"

	"ppcp-backend/internal/auth"
	"ppcp-backend/internal/config"
	"ppcp-backend/internal/models"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	hash, err := auth.HashPassword("mk0504")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	cfg := &config.Config{}
	cfg.JWT.Secret = "auth-service-test"
	cfg.JWT.Issuer = "ppcp-test"
	cfg.JWT.ExpirationHours = 1
	return NewAuthService("mikrostamp", hash, auth.NewJWTManager(cfg))
}

func TestAuthService_Login(t *testing.T) {
	svc := newTestAuthService(t)

	resp, err := svc.Login(context.Background(), &models.LoginRequest{Username: "mikrostamp", Password: "mk0504"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Username != "mikrostamp" || resp.Token == "" {
		t.Errorf("response = %+v", resp)
	}

	claims, err := svc.JWT.ValidateToken(resp.Token)
	if err != nil || claims.Username != "mikrostamp" {
		t.Errorf("issued token invalid: %v", err)
	}
}

func TestAuthService_LoginGenericFailure(t *testing.T) {
	svc := newTestAuthService(t)

	cases := []models.LoginRequest{
		{Username: "mikrostamp", Password: "wrong"},
		{Username: "someone", Password: "mk0504"},
		{Username: "", Password: ""},
	}
	for _, req := range cases {
		req := req
		_, err := svc.Login(context.Background(), &req)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%+v: expected ErrInvalidCredentials, got %v", req, err)
		}
		if err != nil && err.Error() != "Credenciais inválidas" {
			t.Errorf("message = %q", err.Error())
		}
	}
}

func TestAuthService_CachedLoginEndsWithPasswordChange(t *testing.T) {
	mr := useCache(t)
	svc := newTestAuthService(t)
	ctx := context.Background()
	old := &models.LoginRequest{Username: "mikrostamp", Password: "mk0504"}

	if _, err := svc.Login(ctx, old); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("keys = %v, want one cached login", mr.Keys())
	}
	if _, err := svc.Login(ctx, old); err != nil {
		t.Fatalf("cached Login failed: %v", err)
	}

	hash, err := auth.HashPassword("nova-senha")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	svc.PasswordHash = hash

	if _, err := svc.Login(ctx, old); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password after change: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, &models.LoginRequest{Username: "mikrostamp", Password: "nova-senha"}); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestAuthService_CachedLoginStillChecksUsername(t *testing.T) {
	useCache(t)
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Login(ctx, &models.LoginRequest{Username: "mikrostamp", Password: "mk0504"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	_, err := svc.Login(ctx, &models.LoginRequest{Username: "someone", Password: "mk0504"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("got %v, want ErrInvalidCredentials", err)
	}
}
