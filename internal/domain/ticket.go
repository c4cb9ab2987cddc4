package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// ParseTicketStatus accepts only the exact status labels.
func ParseTicketStatus(label string) (TicketStatus, bool) {
	status := TicketStatus(strings.TrimSpace(label))
	for _, candidate := range TicketStatuses {
		if candidate == status {
			return status, true
		}
	}
	return "", false
}

// Terminal reports whether no automatic transition leaves the status.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// ParseTicketPriority validates a priority label.
func ParseTicketPriority(label string) (TicketPriority, bool) {
	switch p := TicketPriority(strings.TrimSpace(label)); p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return p, true
	}
	return "", false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          int64
	Subject     string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	CreatedBy   string
	// OwnerID is the identity (email) of the customer who filed the ticket.
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Responses []Response
}

// Response is an agent reply. Responses are immutable and kept in insertion order.
type Response struct {
	ID          int64
	TicketID    int64
	Message     string
	RespondedBy string
	RespondedAt time.Time
}

// LatestResponse returns the most recently appended response.
func (t *Ticket) LatestResponse() (Response, bool) {
	if len(t.Responses) == 0 {
		return Response{}, false
	}
	return t.Responses[len(t.Responses)-1], true
}

// Clone returns a deep copy so callers never share the response slice.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Responses = append([]Response(nil), t.Responses...)
	return &cp
}
