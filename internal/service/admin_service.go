package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// AdminService backs the administrator endpoints.
type AdminService struct {
	users   repository.UserRepository
	tickets repository.TicketRepository
	logger  *zap.Logger
}

// UserPage is one zero-based page of accounts.
type UserPage struct {
	Users       []domain.User
	CurrentPage int
	TotalItems  int
	TotalPages  int
	PageSize    int
}

// SystemStats summarizes accounts and tickets.
type SystemStats struct {
	TotalUsers      int
	TotalTickets    int
	TicketsByStatus map[domain.TicketStatus]int
	UsersByRole     map[domain.Role]int
}

// NewAdminService constructs the service.
func NewAdminService(users repository.UserRepository, tickets repository.TicketRepository, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{users: users, tickets: tickets, logger: logger}
}

// ListUsers returns a page of accounts. Out of range values are clamped.
func (s *AdminService) ListUsers(ctx context.Context, page, size int) (*UserPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	users, total, err := s.users.List(ctx, size, page*size)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return &UserPage{
		Users:       users,
		CurrentPage: page,
		TotalItems:  total,
		TotalPages:  (total + size - 1) / size,
		PageSize:    size,
	}, nil
}

// DeleteUser removes a non-admin account.
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return apperrors.NewInternalError(err)
	}
	if user.Role == domain.RoleAdmin {
		return apperrors.NewValidationError("cannot delete admin user", map[string]any{"id": id})
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("role", user.Role.String()))
	return nil
}

// Stats gathers account and ticket counts.
func (s *AdminService) Stats(ctx context.Context) (*SystemStats, error) {
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	byStatus, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	stats := &SystemStats{TicketsByStatus: byStatus, UsersByRole: byRole}
	for _, n := range byRole {
		stats.TotalUsers += n
	}
	for _, n := range byStatus {
		stats.TotalTickets += n
	}
	return stats, nil
}
