package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// DefaultTokenTTL is the session lifetime when none is configured.
const DefaultTokenTTL = 10 * time.Hour

// Token verification failures. Callers at the HTTP boundary collapse all of them
// into a single unauthorized response.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
)

// Claims describes the signed payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens. It holds only the
// immutable key and is safe for concurrent use.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService builds a new service.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the service reading time from now.
func (ts *TokenService) WithClock(now func() time.Time) *TokenService {
	cp := *ts
	cp.now = now
	return &cp
}

// TTL returns the configured token lifetime.
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Issue builds and signs a token for the identity.
func (ts *TokenService) Issue(identity string, role domain.Role) (domain.SessionToken, error) {
	issuedAt := ts.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ts.ttl)
	claims := &Claims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ts.secret)
	if err != nil {
		return domain.SessionToken{}, err
	}
	return domain.SessionToken{
		Value:     tokenString,
		Subject:   identity,
		Role:      role,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks the signature first, then decodes the claims. A token is
// still accepted at the exact second it expires and rejected after it.
func (ts *TokenService) Verify(tokenStr string) (domain.Principal, error) {
	if err := ts.verifySignature(tokenStr); err != nil {
		return domain.Principal{}, err
	}

	// Expiry is checked below; jwt's own check rejects at exp itself.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return ts.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return domain.Principal{}, ErrInvalidSignature
		}
		return domain.Principal{}, ErrMalformedToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return domain.Principal{}, ErrMalformedToken
	}
	if ts.now().After(claims.ExpiresAt.Time) {
		return domain.Principal{}, ErrTokenExpired
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Principal{}, ErrMalformedToken
	}
	return domain.Principal{Identity: claims.Subject, Role: role}, nil
}

// verifySignature recomputes the MAC over the raw header and payload text, so an
// altered payload is reported as a signature failure even when it no longer decodes.
func (ts *TokenService) verifySignature(tokenStr string) error {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return ErrMalformedToken
	}
	if _, err := base64.RawURLEncoding.DecodeString(parts[0]); err != nil {
		return ErrMalformedToken
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return ErrMalformedToken
	}

	mac := hmac.New(sha256.New, ts.secret)
	mac.Write([]byte(parts[0] + "." + parts[1]))
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
