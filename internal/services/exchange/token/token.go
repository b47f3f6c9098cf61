// Package token issues and validates the session tokens used by the API.
package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Manager signs and verifies HMAC session tokens.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

type sessionClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// NewManager builds a token manager from the shared signing secret.
func NewManager(secret string, accessTTL, refreshTTL time.Duration) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

// IssueAccess returns a short-lived access token for the user.
func (m *Manager) IssueAccess(userID string, now time.Time) (string, error) {
	return m.issue(userID, TypeAccess, now, m.accessTTL)
}

// IssueAccessFor returns an access token with a custom lifetime. A
// non-positive ttl falls back to the manager default.
func (m *Manager) IssueAccessFor(userID string, now time.Time, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.accessTTL
	}
	return m.issue(userID, TypeAccess, now, ttl)
}

// IssueRefresh returns a long-lived refresh token for the user.
func (m *Manager) IssueRefresh(userID string, now time.Time) (string, error) {
	return m.issue(userID, TypeRefresh, now, m.refreshTTL)
}

// IssueRefreshFor returns a refresh token with a custom lifetime. A
// non-positive ttl falls back to the manager default.
func (m *Manager) IssueRefreshFor(userID string, now time.Time, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.refreshTTL
	}
	return m.issue(userID, TypeRefresh, now, ttl)
}

func (m *Manager) issue(userID, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user id is required")
	}
	now = now.UTC()
	claims := sessionClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its subject user id and type.
func (m *Manager) Parse(tokenString string) (string, string, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return "", "", fmt.Errorf("token is invalid")
	}
	if claims.Subject == "" {
		return "", "", fmt.Errorf("token subject is missing")
	}
	return claims.Subject, claims.TokenType, nil
}

// NewCode returns a 6-digit numeric confirmation code.
func NewCode() (string, error) {
	max := big.NewInt(1000000)
	value, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", value.Int64()), nil
}
