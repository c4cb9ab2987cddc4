package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// LoginRequest payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest payload for POST /auth/register. Role accepts any casing
// and an optional ROLE_ prefix.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateAgentRequest payload for POST /admin/agents.
type CreateAgentRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public view of an account. The password hash never
// leaves the service.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// UserPageResponse is one zero-based page of accounts.
type UserPageResponse struct {
	Users       []UserResponse `json:"users"`
	CurrentPage int            `json:"current_page"`
	TotalItems  int            `json:"total_items"`
	TotalPages  int            `json:"total_pages"`
	PageSize    int            `json:"page_size"`
}

// StatsResponse summarizes accounts and tickets for administrators.
type StatsResponse struct {
	TotalUsers      int                         `json:"total_users"`
	TotalTickets    int                         `json:"total_tickets"`
	TicketsByStatus map[domain.TicketStatus]int `json:"tickets_by_status"`
	UsersByRole     map[domain.Role]int         `json:"users_by_role"`
}

// NewUserResponse maps an account to its public view.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// NewAuthResponse pairs an issued token with the account it was issued for.
func NewAuthResponse(user *domain.User, token domain.SessionToken) AuthResponse {
	return AuthResponse{
		Token:     token.Value,
		TokenType: "Bearer",
		ExpiresAt: token.ExpiresAt,
		User:      NewUserResponse(user),
	}
}
