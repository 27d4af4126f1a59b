package cortex

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types sent in X-Snowflake-Authorization-Token-Type.
const (
	TokenTypeKeyPair = "KEYPAIR_JWT"
	TokenTypeOAuth   = "OAUTH"
)

// SPCSTokenPath is where Snowpark Container Services mounts the session token.
const SPCSTokenPath = "/snowflake/session/token"

// TokenSource supplies a bearer token and its Snowflake token type.
type TokenSource interface {
	Token(ctx context.Context) (token, tokenType string, err error)
}

// OAuthFileSource reads an OAuth token from a file on every call. The
// container runtime rotates the file in place.
type OAuthFileSource struct {
	Path string
}

// Token implements TokenSource.
func (s OAuthFileSource) Token(_ context.Context) (string, string, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return "", "", fmt.Errorf("cortex: read oauth token: %w", err)
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", "", fmt.Errorf("cortex: oauth token file %s is empty", s.Path)
	}
	return tok, TokenTypeOAuth, nil
}

// keyPairLifetime is the JWT validity window. Snowflake rejects anything
// longer than an hour.
const keyPairLifetime = time.Hour

// KeyPairSource signs short-lived RS256 JWTs with an RSA private key
// registered on the Snowflake user. Tokens are reused until five minutes
// before they expire.
type KeyPairSource struct {
	account     string
	user        string
	key         *rsa.PrivateKey
	fingerprint string
	now         func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewKeyPairSource builds a source from a PEM encoded PKCS#8 or PKCS#1
// private key.
func NewKeyPairSource(account, user string, pemKey []byte) (*KeyPairSource, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("cortex: private key is not PEM encoded")
	}
	var key *rsa.PrivateKey
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rk, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("cortex: private key is not RSA")
		}
		key = rk
	} else if rk, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		key = rk
	} else {
		return nil, fmt.Errorf("cortex: parse private key: %w", err)
	}

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("cortex: marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)

	return &KeyPairSource{
		account:     strings.ToUpper(account),
		user:        strings.ToUpper(user),
		key:         key,
		fingerprint: "SHA256:" + base64.StdEncoding.EncodeToString(sum[:]),
		now:         time.Now,
	}, nil
}

// LoadKeyPairSource reads the private key from path.
func LoadKeyPairSource(account, user, path string) (*KeyPairSource, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cortex: read private key: %w", err)
	}
	return NewKeyPairSource(account, user, b)
}

// Fingerprint returns the public key fingerprint embedded in the issuer.
func (s *KeyPairSource) Fingerprint() string { return s.fingerprint }

// Token implements TokenSource.
func (s *KeyPairSource) Token(_ context.Context) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expires.Add(-5*time.Minute)) {
		return s.token, TokenTypeKeyPair, nil
	}

	qualified := s.account + "." + s.user
	exp := now.Add(keyPairLifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    qualified + "." + s.fingerprint,
		Subject:   qualified,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", "", fmt.Errorf("cortex: sign jwt: %w", err)
	}
	s.token, s.expires = signed, exp
	return signed, TokenTypeKeyPair, nil
}
