package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenService
	limiter    *auth.LoginLimiter
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Tokens   *auth.TokenService
	Limiter  *auth.LoginLimiter
	Logger   *zap.Logger
}

// RegisterInput is the payload of a self-service registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// AuthResult is returned by successful login and registration.
type AuthResult struct {
	User  *domain.User
	Token domain.SessionToken
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.Tokens,
		limiter:    deps.Limiter,
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// Login verifies a credential and issues a token carrying the stored role.
// Unknown identities and wrong secrets are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	if !s.limiter.Allow(ctx, email) {
		return nil, apperrors.NewTooManyRequests("too many login attempts, try again later")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !repository.IsNotFound(err) {
			return nil, apperrors.NewInternalError(err)
		}
		auth.BurnComparison(password)
		s.logger.Debug("login rejected", zap.String("reason", "unknown identity"))
		return nil, apperrors.NewInvalidCredentials()
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Debug("login rejected", zap.String("reason", "secret mismatch"))
		return nil, apperrors.NewInvalidCredentials()
	}
	s.limiter.Reset(ctx, email)

	token, err := s.tokens.Issue(user.Email, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Register creates an account with the requested role and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	// A taken identity wins over every other field problem.
	if err := s.ensureAvailable(ctx, normalizeEmail(input.Email)); err != nil {
		return nil, err
	}
	role, ok := domain.ParseRole(input.Role)
	if !ok {
		return nil, apperrors.NewInvalidRole(input.Role)
	}
	user, err := s.createUser(ctx, input.Name, input.Email, input.Password, role)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.Email, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", role.String()))
	return &AuthResult{User: user, Token: token}, nil
}

// CreateAgent provisions an AGENT account on behalf of an administrator.
func (s *AuthService) CreateAgent(ctx context.Context, name, email, password string) (*domain.User, error) {
	user, err := s.createUser(ctx, name, email, password, domain.RoleAgent)
	if err != nil {
		return nil, err
	}
	s.logger.Info("agent created", zap.String("user_id", user.ID))
	return user, nil
}

// SeedAdmin creates the default administrator when no ADMIN account exists.
// It reports whether an account was created.
func (s *AuthService) SeedAdmin(ctx context.Context, cfg config.SeedConfig) (bool, error) {
	counts, err := s.users.CountByRole(ctx)
	if err != nil {
		return false, err
	}
	if counts[domain.RoleAdmin] > 0 {
		return false, nil
	}
	if strings.TrimSpace(cfg.AdminPassword) == "" {
		return false, errors.New("SEED_ADMIN_PASSWORD is required to seed the default administrator")
	}

	user, err := s.createUser(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword, domain.RoleAdmin)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeDuplicateIdentity) {
			return false, nil
		}
		return false, err
	}
	s.logger.Info("default administrator created", zap.String("email", user.Email))
	return true, nil
}

// CurrentPrincipal resolves a raw token. Every verification failure collapses
// into the same Unauthorized error.
func (s *AuthService) CurrentPrincipal(token string) (domain.Principal, error) {
	principal, err := s.tokens.Verify(token)
	if err != nil {
		return domain.Principal{}, apperrors.NewUnauthorized("invalid or expired token")
	}
	return principal, nil
}

// Me loads the profile behind a raw token.
func (s *AuthService) Me(ctx context.Context, token string) (*domain.User, error) {
	principal, err := s.CurrentPrincipal(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, principal.Identity)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("account no longer exists")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validateAccount(name, email, password); err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewDuplicateIdentity(email)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if exists {
		return apperrors.NewDuplicateIdentity(email)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type accountInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func validateAccount(name, email, password string) error {
	return validateInput("invalid account details", accountInput{Name: name, Email: email, Password: password})
}
