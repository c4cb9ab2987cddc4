package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// AddResponseRequest payload for POST /tickets/:id/responses.
type AddResponseRequest struct {
	Message string `json:"message"`
}

// UpdateStatusRequest payload for PATCH /tickets/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// TicketResponse is the full ticket view including its thread.
type TicketResponse struct {
	ID          int64                 `json:"id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedBy   string                `json:"created_by"`
	OwnerID     string                `json:"owner_id,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Responses   []ResponseResponse    `json:"responses"`
}

// ResponseResponse represents one agent reply.
type ResponseResponse struct {
	ID          int64     `json:"id"`
	Message     string    `json:"message"`
	RespondedBy string    `json:"responded_by"`
	RespondedAt time.Time `json:"responded_at"`
}

// ListMeta describes the window of a paged listing.
type ListMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewTicketResponse maps a ticket aggregate to its wire form.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		CreatedBy:   ticket.CreatedBy,
		OwnerID:     ticket.OwnerID,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		Responses:   NewResponseList(ticket.Responses),
	}
}

// NewTicketList maps tickets preserving order.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// NewResponseList maps responses preserving insertion order.
func NewResponseList(responses []domain.Response) []ResponseResponse {
	items := make([]ResponseResponse, 0, len(responses))
	for _, r := range responses {
		items = append(items, ResponseResponse{
			ID:          r.ID,
			Message:     r.Message,
			RespondedBy: r.RespondedBy,
			RespondedAt: r.RespondedAt,
		})
	}
	return items
}
