package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps a fresh event ID.
func NewEvent(eventType EventType, ticketID int64, actor string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketSnapshot is the ticket state a handler sees. It is a copy taken after
// the mutation committed.
type TicketSnapshot struct {
	ID             int64                 `json:"id"`
	Subject        string                `json:"subject"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	CreatedBy      string                `json:"created_by"`
	OwnerID        string                `json:"owner_id,omitempty"`
	UpdatedAt      time.Time             `json:"updated_at"`
	LatestResponse *ResponseSnapshot     `json:"latest_response,omitempty"`
}

// ResponseSnapshot carries the newest reply on a ticket.
type ResponseSnapshot struct {
	Message     string    `json:"message"`
	RespondedBy string    `json:"responded_by"`
	RespondedAt time.Time `json:"responded_at"`
}

// NewTicketSnapshot copies the fields handlers need.
func NewTicketSnapshot(ticket *domain.Ticket) TicketSnapshot {
	snapshot := TicketSnapshot{
		ID:        ticket.ID,
		Subject:   ticket.Subject,
		Status:    ticket.Status,
		Priority:  ticket.Priority,
		CreatedBy: ticket.CreatedBy,
		OwnerID:   ticket.OwnerID,
		UpdatedAt: ticket.UpdatedAt,
	}
	if latest, ok := ticket.LatestResponse(); ok {
		snapshot.LatestResponse = &ResponseSnapshot{
			Message:     latest.Message,
			RespondedBy: latest.RespondedBy,
			RespondedAt: latest.RespondedAt,
		}
	}
	return snapshot
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket TicketSnapshot `json:"ticket"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Ticket    TicketSnapshot      `json:"ticket"`
}
