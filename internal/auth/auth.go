// Package auth provides the operator session gate.
//
// Authentication model:
//   - A single operator account is configured at process start.
//   - Login issues an HMAC-signed session token (HS256 JWT) carrying the
//     username and a 24-hour expiry, delivered as an HTTP-only cookie.
//   - Operator-only routes require a valid session; the pay page and
//     receipt routes are public by design.
//
// The token is signed, not just encoded: tampering with the claims is
// detected cryptographically rather than relying on parse failures.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie the browser carries.
const CookieName = "auth-token"

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("session required")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// Session describes a verified operator session.
type Session struct {
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Manager issues and verifies session tokens for the configured operator.
type Manager struct {
	username string
	password string
	secret   []byte
	ttl      time.Duration
}

// NewManager creates a session manager for the single operator account.
func NewManager(username, password, secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		username: username,
		password: password,
		secret:   []byte(secret),
		ttl:      ttl,
	}
}

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Login checks the credentials in constant time and returns a signed
// session token on success.
func (m *Manager) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) == 1
	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify validates a session token: signature, expiry, and that the
// subject still matches the configured operator.
func (m *Manager) Verify(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, ErrNoSession
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrInvalidSession
	}
	if claims.Subject != m.username {
		return nil, ErrInvalidSession
	}

	return &Session{
		Username:  claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
