package caesar

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthType represents the authentication method
type AuthType string

const (
	AuthTypeBearer AuthType = "bearer"
	AuthTypeJWT    AuthType = "jwt"
)

// Authenticator adds credentials to an outgoing provider request
type Authenticator interface {
	AddAuthHeaders(req *http.Request) error
}

// BearerAuthenticator sends the API key as a static bearer token
type BearerAuthenticator struct {
	apiKey string
}

func NewBearerAuthenticator(apiKey string) *BearerAuthenticator {
	return &BearerAuthenticator{apiKey: apiKey}
}

func (b *BearerAuthenticator) AddAuthHeaders(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	return nil
}

// JWTAuthenticator signs a short-lived HS256 token per request
type JWTAuthenticator struct {
	keyID  string
	secret []byte
	now    func() time.Time
}

func NewJWTAuthenticator(keyID, secret string) (*JWTAuthenticator, error) {
	if keyID == "" {
		return nil, fmt.Errorf("jwt auth requires a key id")
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	return &JWTAuthenticator{
		keyID:  keyID,
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

func (j *JWTAuthenticator) AddAuthHeaders(req *http.Request) error {
	token, err := j.generateJWT(req.Method, req.URL.Host, req.URL.Path)
	if err != nil {
		return fmt.Errorf("failed to generate JWT: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (j *JWTAuthenticator) generateJWT(method, host, path string) (string, error) {
	nonce, err := generateNonce()
	if err != nil {
		return "", err
	}

	now := j.now()
	claims := jwt.MapClaims{
		"sub":   j.keyID,
		"iss":   "predictdesk",
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(2 * time.Minute).Unix(),
		"uri":   method + " " + host + path,
		"nonce": nonce,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = j.keyID

	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewAuthenticator picks the authenticator for cfg.AuthType. An empty type
// means bearer.
func NewAuthenticator(cfg Config) (Authenticator, error) {
	switch AuthType(cfg.AuthType) {
	case "", AuthTypeBearer:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("bearer auth requires an api key")
		}
		return NewBearerAuthenticator(cfg.APIKey), nil
	case AuthTypeJWT:
		return NewJWTAuthenticator(cfg.KeyID, cfg.JWTSecret)
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.AuthType)
	}
}
