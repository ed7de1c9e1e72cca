package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidKey   = errors.New("invalid host key")
	ErrInvalidToken = errors.New("invalid host token")
)

// HostAuthenticator exchanges the shared host key for a signed session token
// and verifies such tokens on websocket upgrade. Participants never
// authenticate, only room owners do.
type HostAuthenticator struct {
	hostKey  []byte
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewHostAuthenticator(hostKey, secret string, tokenTTL time.Duration) *HostAuthenticator {
	return NewHostAuthenticatorWithClock(hostKey, secret, tokenTTL, time.Now)
}

// NewHostAuthenticatorWithClock is test-only for deterministic expiry.
func NewHostAuthenticatorWithClock(hostKey, secret string, tokenTTL time.Duration, now func() time.Time) *HostAuthenticator {
	if tokenTTL <= 0 {
		tokenTTL = 720 * time.Hour
	}
	return &HostAuthenticator{
		hostKey:  []byte(hostKey),
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      now,
	}
}

// IssueToken validates the presented key against the configured host key and
// returns a signed HS256 token.
func (a *HostAuthenticator) IssueToken(key string) (string, error) {
	if len(a.hostKey) == 0 {
		return "", ErrInvalidKey
	}
	if subtle.ConstantTimeCompare([]byte(key), a.hostKey) != 1 {
		return "", ErrInvalidKey
	}

	now := a.now()
	claims := jwt.MapClaims{
		"role": "host",
		"iat":  now.Unix(),
		"exp":  now.Add(a.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify reports whether tokenString is a live host token.
func (a *HostAuthenticator) Verify(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidToken
	}
	if role, _ := claims["role"].(string); role != "host" {
		return ErrInvalidToken
	}
	return nil
}
