// Package statetoken issues and verifies the short-lived signed state tokens
// that correlate the start of a GitHub App installation with its callback.
package statetoken

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	// DefaultTTL is how long an issued state token stays valid.
	DefaultTTL = 300 * time.Second

	// MinSecretLength is the minimum accepted length of the configured secret.
	MinSecretLength = 16

	issuer  = "ghlink/state"
	keyInfo = "ghlink state token v1"
)

// Claims are the signed contents of a state token.
type Claims struct {
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

// Codec signs and verifies state tokens with an HMAC key derived from a
// process-held secret.
type Codec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec derives the signing key from secret with HKDF-SHA256 so the raw
// secret never signs anything directly.
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, MinSecretLength)
	}

	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive state signing key: %w", err)
	}

	c := &Codec{
		key: key,
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// TTL returns the lifetime given to issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue returns a signed token binding accountID to an expiry of now+TTL.
func (c *Codec) Issue(accountID string) (string, error) {
	if accountID == "" {
		return "", ErrEmptyAccountID
	}

	now := c.now()
	claims := Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign state token: %w", err)
	}

	return token, nil
}

// Verify checks the signature and expiry of token and returns its claims.
// Expired tokens yield ErrExpiredToken; every other defect yields
// ErrInvalidToken.
func (c *Codec) Verify(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}

		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.AccountID == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing required claim", ErrInvalidToken)
	}

	return &claims, nil
}
