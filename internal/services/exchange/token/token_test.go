package token

import (
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager("test-secret", 30*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("  ", 0, 0); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	signed, err := manager.IssueAccess("u1", time.Now())
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	userID, tokenType, err := manager.Parse(signed)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("expected subject u1, got %q", userID)
	}
	if tokenType != TypeAccess {
		t.Fatalf("expected access type, got %q", tokenType)
	}
}

func TestRefreshTokenCarriesType(t *testing.T) {
	manager := newTestManager(t)
	signed, err := manager.IssueRefresh("u1", time.Now())
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	_, tokenType, err := manager.Parse(signed)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if tokenType != TypeRefresh {
		t.Fatalf("expected refresh type, got %q", tokenType)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	manager := newTestManager(t)
	signed, err := manager.IssueAccess("u1", time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, _, err := manager.Parse(signed); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	manager := newTestManager(t)
	other, err := NewManager("other-secret", 30*time.Minute, 0)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	signed, err := other.IssueAccess("u1", time.Now())
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, _, err := manager.Parse(signed); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestNewCodeFormat(t *testing.T) {
	code, err := NewCode()
	if err != nil {
		t.Fatalf("new code: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}
	if strings.Trim(code, "0123456789") != "" {
		t.Fatalf("expected numeric code, got %q", code)
	}
}
