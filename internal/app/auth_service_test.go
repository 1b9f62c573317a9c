package app_test

import (
	"context"
	"testing"
	"time"

	"orangemon/internal/adapter/memory"
	"orangemon/internal/app"
)

func newAuthService(t *testing.T) (*app.AuthService, *memory.SessionRepo) {
	t.Helper()
	repo := memory.NewSessionRepo()
	svc, err := app.NewAuthService("admin", "s3cret", repo)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc, repo
}

func TestLogin_Success(t *testing.T) {
	svc, _ := newAuthService(t)

	token, err := svc.Login(context.Background(), "admin", "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	session, err := svc.ValidateSession(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Username != "admin" {
		t.Fatalf("unexpected session user: %q", session.Username)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newAuthService(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "admin", "nope"},
		{"wrong user", "root", "s3cret"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Login(context.Background(), tc.username, tc.password); err != app.ErrInvalidCredentials {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestValidateSession_Expired(t *testing.T) {
	svc, repo := newAuthService(t)

	if err := repo.Create(context.Background(), "admin", "stale-token", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), "stale-token"); err != app.ErrSessionExpired {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	// Expired sessions are removed on validation.
	if _, err := repo.GetByToken(context.Background(), "stale-token"); err == nil {
		t.Fatal("expected expired session to be deleted")
	}
}

func TestLogout(t *testing.T) {
	svc, _ := newAuthService(t)

	token, err := svc.Login(context.Background(), "admin", "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), token); err != app.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLoginWithUser(t *testing.T) {
	svc, _ := newAuthService(t)

	token, err := svc.LoginWithUser(context.Background(), "sso-user@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	session, err := svc.ValidateSession(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Username != "sso-user@example.com" {
		t.Fatalf("unexpected session user: %q", session.Username)
	}
}
