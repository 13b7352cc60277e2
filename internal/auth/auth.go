package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer       = "epicdeals"
	ScopeCompare = "compare"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingToken  = errors.New("missing bearer token")
	ErrAuthDisabled  = errors.New("api tokens are not configured")
	ErrMissingClient = errors.New("client name is required")
)

// Claims identifies the client an API token was issued to.
type Claims struct {
	Client string `json:"client"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

type AuthService struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthService returns a service that signs tokens with secretKey. An empty key disables the gate.
func NewAuthService(secretKey string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &AuthService{
		secretKey: []byte(strings.TrimSpace(secretKey)),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *AuthService) Enabled() bool {
	return s != nil && len(s.secretKey) > 0
}

func (s *AuthService) GenerateToken(client string) (string, error) {
	if !s.Enabled() {
		return "", ErrAuthDisabled
	}
	client = strings.TrimSpace(client)
	if client == "" {
		return "", ErrMissingClient
	}

	now := s.now()
	claims := &Claims{
		Client: client,
		Scope:  ScopeCompare,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   client,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.Scope == ScopeCompare {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
