package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/campuspulse-backend/internal/domain/auth"
	"github.com/yungbote/campuspulse-backend/internal/platform/ctxutil"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

func hashSecret(t *testing.T, secret string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func TestAuthLogin(t *testing.T) {
	creds := []Credential{
		{ID: "uni123", SecretHash: hashSecret(t, "s3cret"), Role: auth.RoleUniversity},
		{ID: "admin123", SecretHash: hashSecret(t, "adm1n"), Role: auth.RoleAdmin},
	}
	svc, err := NewAuthService(logger.NewNop(), creds, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	ctx := context.Background()

	tok, role, err := svc.Login(ctx, "admin123", "adm1n")
	if err != nil || role != auth.RoleAdmin {
		t.Fatalf("Login: role=%s err=%v", role, err)
	}
	authed, err := svc.SetContextFromToken(ctx, tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if rd := ctxutil.GetRequestData(authed); rd == nil || rd.Subject != "admin123" || rd.Role != "admin" {
		t.Fatalf("SetContextFromToken: unexpected %+v", rd)
	}

	for _, tc := range []struct{ id, secret string }{
		{"uni123", "wrong"},
		{"nobody", "s3cret"},
	} {
		if _, _, err := svc.Login(ctx, tc.id, tc.secret); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login(%s): expected ErrInvalidCredentials, got %v", tc.id, err)
		}
	}
	if _, _, err := svc.Login(ctx, "", ""); err == nil {
		t.Fatalf("Login(empty): expected error")
	}
}

func TestAuthRejectsBadConfig(t *testing.T) {
	if _, err := NewAuthService(logger.NewNop(), nil, "", time.Hour); err == nil {
		t.Fatalf("NewAuthService: expected error for empty secret")
	}
	bad := []Credential{{ID: "x", SecretHash: "plaintext", Role: auth.RoleAdmin}}
	if _, err := NewAuthService(logger.NewNop(), bad, "k", time.Hour); err == nil {
		t.Fatalf("NewAuthService: expected error for non-bcrypt secret")
	}
	student := []Credential{{ID: "x", SecretHash: hashSecret(t, "p"), Role: auth.RoleStudent}}
	if _, err := NewAuthService(logger.NewNop(), student, "k", time.Hour); err == nil {
		t.Fatalf("NewAuthService: expected error for student credential")
	}
}

func TestAuthRejectsForeignTokens(t *testing.T) {
	a, _ := NewAuthService(logger.NewNop(), nil, "key-a", time.Hour)
	b, _ := NewAuthService(logger.NewNop(), nil, "key-b", time.Hour)
	tok, err := a.IssueToken("subject", auth.RoleUniversity)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := b.SetContextFromToken(context.Background(), tok); err == nil {
		t.Fatalf("SetContextFromToken: accepted a token signed with another key")
	}
	expired, _ := NewAuthService(logger.NewNop(), nil, "key-a", -time.Minute)
	old, _ := expired.IssueToken("subject", auth.RoleUniversity)
	if _, err := a.SetContextFromToken(context.Background(), old); err == nil {
		t.Fatalf("SetContextFromToken: accepted an expired token")
	}
	if _, err := a.SetContextFromToken(context.Background(), "garbage"); err == nil {
		t.Fatalf("SetContextFromToken: accepted garbage")
	}
}
