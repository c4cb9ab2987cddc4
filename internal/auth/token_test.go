package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const testSecret = "test-secret-key-for-unit-tests-0123456789"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	ts := NewTokenService(testSecret, 0)
	for _, role := range domain.Roles {
		t.Run(role.String(), func(t *testing.T) {
			token, err := ts.Issue("jane@example.com", role)
			require.NoError(t, err)

			principal, err := ts.Verify(token.Value)
			require.NoError(t, err)
			assert.Equal(t, "jane@example.com", principal.Identity)
			assert.Equal(t, role, principal.Role)
		})
	}
}

func TestIssueStampsTenHourExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	ts := NewTokenService(testSecret, 0).WithClock(fixedClock(now))

	token, err := ts.Issue("jane@example.com", domain.RoleAgent)
	require.NoError(t, err)

	assert.Equal(t, now, token.IssuedAt)
	assert.Equal(t, now.Add(10*time.Hour), token.ExpiresAt)
	assert.NotContains(t, token.Value, "+")
	assert.NotContains(t, token.Value, "/")
}

// flipChar swaps the character at i for a different base64url character.
func flipChar(s string, i int) string {
	replacement := byte('A')
	if s[i] == 'A' {
		replacement = 'B'
	}
	return s[:i] + string(replacement) + s[i+1:]
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	ts := NewTokenService(testSecret, 0)
	token, err := ts.Issue("jane@example.com", domain.RoleCustomer)
	require.NoError(t, err)

	parts := strings.Split(token.Value, ".")
	require.Len(t, parts, 3)
	headerLen, payloadLen := len(parts[0]), len(parts[1])

	cases := map[string]int{
		"header":         1,
		"payload start":  headerLen + 1,
		"payload middle": headerLen + 1 + payloadLen/2,
		"payload end":    headerLen + payloadLen,
		"signature":      headerLen + payloadLen + 2,
	}
	for name, idx := range cases {
		t.Run(name, func(t *testing.T) {
			tampered := flipChar(token.Value, idx)
			require.NotEqual(t, token.Value, tampered)

			_, err := ts.Verify(tampered)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestVerifyRejectsRoleEscalation(t *testing.T) {
	ts := NewTokenService(testSecret, 0)
	token, err := ts.Issue("jane@example.com", domain.RoleCustomer)
	require.NoError(t, err)

	forged, err := NewTokenService("some-other-secret", 0).Issue("jane@example.com", domain.RoleAdmin)
	require.NoError(t, err)

	parts := strings.Split(token.Value, ".")
	forgedParts := strings.Split(forged.Value, ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

	_, err = ts.Verify(spliced)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = ts.Verify(forged.Value)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	issuer := NewTokenService(testSecret, 0).WithClock(fixedClock(issuedAt))
	token, err := issuer.Issue("jane@example.com", domain.RoleAgent)
	require.NoError(t, err)

	justBefore := issuer.WithClock(fixedClock(issuedAt.Add(10*time.Hour - time.Second)))
	_, err = justBefore.Verify(token.Value)
	require.NoError(t, err)

	atExpiry := issuer.WithClock(fixedClock(token.ExpiresAt))
	principal, err := atExpiry.Verify(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", principal.Identity)

	after := issuer.WithClock(fixedClock(issuedAt.Add(10*time.Hour + time.Second)))
	_, err = after.Verify(token.Value)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRequiresExpiry(t *testing.T) {
	claims := &Claims{
		Role:             domain.RoleAdmin.String(),
		RegisteredClaims: jwt.RegisteredClaims{Subject: "jane@example.com"},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenService(testSecret, 0).Verify(raw)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	ts := NewTokenService(testSecret, 0)
	for _, raw := range []string{"", "abc", "a.b", "a.b.c", "...", "token.invalido.aqui!"} {
		_, err := ts.Verify(raw)
		assert.ErrorIs(t, err, ErrMalformedToken, "token %q", raw)
	}
}
