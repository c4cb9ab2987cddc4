package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// TicketsHandler serves the shared /tickets routes plus the customer and
// agent scoped views. Role narrowing happens in the router.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create handles POST /tickets and POST /customer/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), principal, service.TicketCreateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// List handles GET /tickets?status=&limit=&offset=.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter := parseListFilter(c)
	tickets, total, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets), "meta": listMeta(filter, total)})
}

// Queue handles GET /agent/tickets. Without a status filter it shows OPEN and
// IN_PROGRESS tickets.
func (h *TicketsHandler) Queue(c *fiber.Ctx) error {
	filter := parseListFilter(c)
	tickets, total, err := h.service.AgentQueue(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets), "meta": listMeta(filter, total)})
}

// ListMine handles GET /customer/tickets.
func (h *TicketsHandler) ListMine(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListForOwner(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
}

// Get handles GET /tickets/:id and GET /customer/tickets/:id. Customers only
// see their own tickets.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Responses handles GET /tickets/:id/responses.
func (h *TicketsHandler) Responses(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	responses, err := h.service.Responses(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResponseList(responses)})
}

// AddResponse handles POST /tickets/:id/responses.
func (h *TicketsHandler) AddResponse(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.AddResponseRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	respondedBy := h.service.DisplayName(c.UserContext(), principal.Identity)
	ticket, err := h.service.AddResponse(c.UserContext(), id, req.Message, respondedBy)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateStatus handles PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.SetStatus(c.UserContext(), id, req.Status, principal.Identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

func parseListFilter(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{
		Limit:  parseInt(c.Query("limit"), defaultListLimit),
		Offset: parseInt(c.Query("offset"), 0),
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []string{status}
	}
	return filter
}

func listMeta(filter service.TicketListFilter, total int) dto.ListMeta {
	return dto.ListMeta{Total: total, Limit: filter.Limit, Offset: filter.Offset}
}
