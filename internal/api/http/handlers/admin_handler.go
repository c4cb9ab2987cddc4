package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AdminHandler serves /admin routes.
type AdminHandler struct {
	admin   *service.AdminService
	auth    *service.AuthService
	metrics *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService, authService *service.AuthService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{admin: admin, auth: authService, metrics: metrics}
}

// CreateAgent handles POST /admin/agents.
func (h *AdminHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	agent, err := h.auth.CreateAgent(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(agent)})
}

// ListUsers handles GET /admin/users?page=&size=. Pages are zero-based.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, err := h.admin.ListUsers(c.UserContext(), parseInt(c.Query("page"), 0), parseInt(c.Query("size"), 0))
	if err != nil {
		return err
	}
	users := make([]dto.UserResponse, 0, len(page.Users))
	for i := range page.Users {
		users = append(users, dto.NewUserResponse(&page.Users[i]))
	}
	return c.JSON(fiber.Map{"data": dto.UserPageResponse{
		Users:       users,
		CurrentPage: page.CurrentPage,
		TotalItems:  page.TotalItems,
		TotalPages:  page.TotalPages,
		PageSize:    page.PageSize,
	}})
}

// DeleteUser handles DELETE /admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.admin.DeleteUser(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats(c.UserContext())
	if err != nil {
		return err
	}
	resp := dto.StatsResponse{
		TotalUsers:      stats.TotalUsers,
		TotalTickets:    stats.TotalTickets,
		TicketsByStatus: make(map[domain.TicketStatus]int, len(domain.TicketStatuses)),
		UsersByRole:     make(map[domain.Role]int, len(domain.Roles)),
	}
	for _, status := range domain.TicketStatuses {
		resp.TicketsByStatus[status] = stats.TicketsByStatus[status]
	}
	for _, role := range domain.Roles {
		resp.UsersByRole[role] = stats.UsersByRole[role]
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Metrics handles GET /admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
