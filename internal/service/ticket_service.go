package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketService owns the ticket lifecycle. It is the only writer of ticket
// status.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string `json:"subject" validate:"required,min=5,max=100"`
	Description string `json:"description" validate:"required,min=10,max=1000"`
	Priority    string `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH"`
}

type responseInput struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// TicketListFilter describes staff listing filters.
type TicketListFilter struct {
	Statuses []string
	Limit    int
	Offset   int
}

// DefaultQueueStatuses is what the agent queue shows without a filter.
var DefaultQueueStatuses = []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// Create opens a ticket owned by the calling customer.
func (s *TicketService) Create(ctx context.Context, owner domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	input.Subject = strings.TrimSpace(input.Subject)
	input.Description = strings.TrimSpace(input.Description)
	input.Priority = strings.ToUpper(strings.TrimSpace(input.Priority))
	if err := validateInput("invalid ticket", input); err != nil {
		return nil, err
	}
	priority, _ := domain.ParseTicketPriority(input.Priority)

	now := s.timestamp()
	ticket := &domain.Ticket{
		Subject:     input.Subject,
		Description: input.Description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		CreatedBy:   s.DisplayName(ctx, owner.Identity),
		OwnerID:     owner.Identity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, owner.Identity, now,
		events.TicketCreatedPayload{Ticket: events.NewTicketSnapshot(ticket)}))
	return ticket, nil
}

// Get returns a ticket the caller is allowed to read.
func (s *TicketService) Get(ctx context.Context, caller domain.Principal, id int64) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwnership(caller, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Responses returns the ordered responses of a ticket the caller may read.
func (s *TicketService) Responses(ctx context.Context, caller domain.Principal, id int64) ([]domain.Response, error) {
	ticket, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if ticket.Responses == nil {
		return []domain.Response{}, nil
	}
	return ticket.Responses, nil
}

// List pages through all tickets, optionally narrowed by status.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, int, error) {
	statuses, err := parseStatuses(filter.Statuses)
	if err != nil {
		return nil, 0, err
	}
	return s.list(ctx, repository.TicketFilter{Statuses: statuses, Limit: filter.Limit, Offset: filter.Offset})
}

// AgentQueue lists tickets awaiting agent work. Without a filter it shows
// OPEN and IN_PROGRESS tickets.
func (s *TicketService) AgentQueue(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, int, error) {
	statuses, err := parseStatuses(filter.Statuses)
	if err != nil {
		return nil, 0, err
	}
	if len(statuses) == 0 {
		statuses = DefaultQueueStatuses
	}
	return s.list(ctx, repository.TicketFilter{Statuses: statuses, Limit: filter.Limit, Offset: filter.Offset})
}

// ListForOwner returns the caller's own tickets, newest first.
func (s *TicketService) ListForOwner(ctx context.Context, owner domain.Principal) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByOwner(ctx, owner.Identity)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// AddResponse appends a reply. An OPEN ticket moves to IN_PROGRESS; every
// other status is left alone.
func (s *TicketService) AddResponse(ctx context.Context, id int64, message, respondedBy string) (*domain.Ticket, error) {
	message = strings.TrimSpace(message)
	if err := validateInput("invalid response", responseInput{Message: message}); err != nil {
		return nil, err
	}

	var oldStatus domain.TicketStatus
	ticket, err := s.tickets.Mutate(ctx, id, func(t *domain.Ticket) error {
		now := s.timestamp()
		oldStatus = t.Status
		t.Responses = append(t.Responses, domain.Response{
			TicketID:    t.ID,
			Message:     message,
			RespondedBy: respondedBy,
			RespondedAt: now,
		})
		if t.Status == domain.TicketStatusOpen {
			t.Status = domain.TicketStatusInProgress
		}
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.mutationError(id, err)
	}

	s.logger.Info("ticket response added",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("status", string(ticket.Status)))
	s.publishStatusChange(ctx, ticket, oldStatus, respondedBy)
	return ticket, nil
}

// SetStatus overwrites the status with any of the four labels. The ticket is
// looked up before the label is checked, and an invalid label leaves it
// untouched.
func (s *TicketService) SetStatus(ctx context.Context, id int64, label, actor string) (*domain.Ticket, error) {
	var oldStatus domain.TicketStatus
	ticket, err := s.tickets.Mutate(ctx, id, func(t *domain.Ticket) error {
		status, ok := domain.ParseTicketStatus(label)
		if !ok {
			return apperrors.NewInvalidStatus(label)
		}
		oldStatus = t.Status
		t.Status = status
		t.UpdatedAt = s.timestamp()
		return nil
	})
	if err != nil {
		return nil, s.mutationError(id, err)
	}

	s.logger.Info("ticket status changed",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(ticket.Status)))
	if oldStatus.Terminal() && !ticket.Status.Terminal() {
		s.logger.Info("ticket reopened",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("actor", actor))
	}
	s.publishStatusChange(ctx, ticket, oldStatus, actor)
	return ticket, nil
}

// DisplayName resolves the account name for an identity, falling back to the
// identity itself.
func (s *TicketService) DisplayName(ctx context.Context, identity string) string {
	if s.users == nil {
		return identity
	}
	user, err := s.users.GetByEmail(ctx, identity)
	if err != nil || strings.TrimSpace(user.Name) == "" {
		return identity
	}
	return user.Name
}

func (s *TicketService) list(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	total, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return tickets, total, nil
}

func (s *TicketService) load(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewTicketNotFound(id)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return ticket, nil
}

func (s *TicketService) mutationError(id int64, err error) error {
	if repository.IsNotFound(err) {
		return apperrors.NewTicketNotFound(id)
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.NewInternalError(err)
}

func (s *TicketService) publishStatusChange(ctx context.Context, ticket *domain.Ticket, oldStatus domain.TicketStatus, actor string) {
	s.publish(ctx, events.NewEvent(events.EventTicketStatusChanged, ticket.ID, actor, ticket.UpdatedAt,
		events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Ticket:    events.NewTicketSnapshot(ticket),
		}))
}

// publish hands the event to the notifier. Delivery problems never fail the
// mutation that produced the event.
func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("ticket event not delivered",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func (s *TicketService) timestamp() time.Time {
	return s.now().UTC()
}

func checkOwnership(caller domain.Principal, ticket *domain.Ticket) error {
	if caller.Role != domain.RoleCustomer {
		return nil
	}
	if ticket.OwnerID == "" || ticket.OwnerID != caller.Identity {
		return apperrors.NewAccessDenied("you can only access your own tickets")
	}
	return nil
}

func parseStatuses(labels []string) ([]domain.TicketStatus, error) {
	var statuses []domain.TicketStatus
	for _, raw := range labels {
		for _, label := range strings.Split(raw, ",") {
			if strings.TrimSpace(label) == "" {
				continue
			}
			status, ok := domain.ParseTicketStatus(label)
			if !ok {
				return nil, apperrors.NewInvalidStatus(label)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}
