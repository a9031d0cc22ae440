package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/oauth2"
)

// DefaultAppJWTTTL is the lifetime of minted app JWTs. GitHub rejects app
// JWTs that live longer than ten minutes.
const DefaultAppJWTTTL = 9 * time.Minute

// clockDrift backdates IssuedAt so a slightly fast local clock does not
// produce a JWT GitHub considers issued in the future.
const clockDrift = 30 * time.Second

// Errors returned when an AppConfig is incomplete.
var (
	// ErrAppIDRequired indicates the GitHub App ID is missing.
	ErrAppIDRequired = errors.New("GitHub App ID is required")

	// ErrPrivateKeyRequired indicates the signing key is missing.
	ErrPrivateKeyRequired = errors.New("GitHub App private key is required")
)

// AppConfig holds GitHub App credentials.
type AppConfig struct {
	// AppID is the numeric GitHub App identifier, as issued on app
	// registration.
	AppID string

	// PrivateKey is the app's RS256 signing key.
	PrivateKey *rsa.PrivateKey

	// TTL is the lifetime of minted JWTs. Defaults to DefaultAppJWTTTL
	// if zero; values above ten minutes are rejected by GitHub.
	TTL time.Duration
}

func (c AppConfig) ttl() time.Duration {
	if c.TTL == 0 {
		return DefaultAppJWTTTL
	}
	return c.TTL
}

// ParsePrivateKey parses a PEM-encoded RSA private key as downloaded from
// the GitHub App settings page.
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse app private key: %w", err)
	}
	return key, nil
}

// GenerateAppJWT mints one app JWT.
func GenerateAppJWT(cfg AppConfig) (string, error) {
	if cfg.AppID == "" {
		return "", ErrAppIDRequired
	}
	if cfg.PrivateKey == nil {
		return "", ErrPrivateKeyRequired
	}

	tokenID, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    cfg.AppID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-clockDrift)),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ttl())),
		ID:        tokenID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(cfg.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("sign app JWT: %w", err)
	}
	return signed, nil
}

// AppTokenSource is an oauth2.TokenSource that mints app JWTs on demand,
// reusing each one until shortly before it expires. Safe for concurrent
// use.
type AppTokenSource struct {
	cfg AppConfig

	mu      sync.Mutex
	current *oauth2.Token
}

// NewAppTokenSource creates a token source for the app.
func NewAppTokenSource(cfg AppConfig) *AppTokenSource {
	return &AppTokenSource{cfg: cfg}
}

// Token implements oauth2.TokenSource.
func (s *AppTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && time.Until(s.current.Expiry) > time.Minute {
		return s.current, nil
	}

	signed, err := GenerateAppJWT(s.cfg)
	if err != nil {
		return nil, err
	}
	s.current = &oauth2.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(s.cfg.ttl()),
	}
	return s.current, nil
}
