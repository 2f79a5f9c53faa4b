package githubapp

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// AppCredentialTTL is the lifetime GitHub allows for App JWTs.
	AppCredentialTTL = 10 * time.Minute

	// clockSkew backdates iat so a slightly fast GitHub clock still accepts it.
	clockSkew = 60 * time.Second
)

// ParsePrivateKey decodes a PEM encoded RSA private key as downloaded from the
// App settings page.
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	return key, nil
}

// AppCredential mints a fresh RS256 JWT asserting the App's identity. It is
// never cached.
func (c *Client) AppCredential() (string, error) {
	if c.appID == "" || c.privateKey == nil {
		return "", fmt.Errorf("%w: app id and private key are required", ErrMisconfigured)
	}

	issuedAt := c.now().Add(-clockSkew)
	claims := jwt.RegisteredClaims{
		Issuer:    c.appID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(AppCredentialTTL)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign app credential: %w", err)
	}

	return token, nil
}
