package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

type principalCtxKey struct{}

// Credential extraction failures.
var (
	ErrMissingCredential = errors.New("missing authorization header")
	ErrMalformedHeader   = errors.New("invalid authorization header")
)

// TokenVerifier is the part of TokenService the resolver needs.
type TokenVerifier interface {
	Verify(token string) (domain.Principal, error)
}

// PrincipalResolver turns an Authorization header into a verified principal.
type PrincipalResolver struct {
	tokens TokenVerifier
}

// NewPrincipalResolver constructs a resolver.
func NewPrincipalResolver(tokens TokenVerifier) *PrincipalResolver {
	return &PrincipalResolver{tokens: tokens}
}

// Resolve strips the Bearer scheme and verifies the token.
func (r *PrincipalResolver) Resolve(authHeader string) (domain.Principal, error) {
	token, err := BearerToken(authHeader)
	if err != nil {
		return domain.Principal{}, err
	}
	return r.tokens.Verify(token)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(authHeader string) (string, error) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", ErrMissingCredential
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMalformedHeader
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMalformedHeader
	}
	return token, nil
}

// Guard runs identity resolution and the access policy ahead of every handler.
type Guard struct {
	policy   *AccessPolicy
	resolver *PrincipalResolver
	logger   *zap.Logger
}

// NewGuard constructs the guard middleware.
func NewGuard(policy *AccessPolicy, resolver *PrincipalResolver, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{policy: policy, resolver: resolver, logger: logger}
}

// Handle enforces the policy for the current request.
func (g *Guard) Handle(c *fiber.Ctx) error {
	method, path := c.Method(), c.Path()
	if g.policy.IsPublic(method, path) {
		return c.Next()
	}

	var principal *domain.Principal
	resolved, err := g.resolver.Resolve(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		g.logger.Debug("credential rejected", zap.String("path", path), zap.Error(err))
	} else {
		principal = &resolved
	}

	switch err := g.policy.Authorize(method, path, principal); {
	case errors.Is(err, ErrUnauthorized):
		return apperrors.NewUnauthorized("invalid or missing credentials")
	case errors.Is(err, ErrForbidden):
		return apperrors.NewForbidden()
	case err != nil:
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, resolved)
	c.SetUserContext(ContextWithPrincipal(c.UserContext(), resolved))
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller from fiber locals.
func PrincipalFromContext(c *fiber.Ctx) (domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(domain.Principal)
	return principal, ok
}

// ContextWithPrincipal attaches a principal to ctx.
func ContextWithPrincipal(ctx context.Context, principal domain.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, principal)
}

// PrincipalFrom retrieves the principal stored by ContextWithPrincipal.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(principalCtxKey{}).(domain.Principal)
	return principal, ok
}
