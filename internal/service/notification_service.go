package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Mailer delivers a plain-text email.
type Mailer interface {
	Send(to, subject, body string) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer returns a gomail-backed mailer, or nil when no SMTP host is
// configured.
func NewSMTPMailer(cfg config.NotificationConfig) Mailer {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil
	}
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.EmailFrom,
	}
}

func (m *smtpMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	mailer     Mailer
	redis      *redis.Client
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NotificationDependencies bundles the notifier's collaborators. Mailer and
// Redis are optional.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	UserRepo   repository.UserRepository
	Mailer     Mailer
	Redis      *redis.Client
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(cfg config.NotificationConfig, deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		users:      deps.UserRepo,
		mailer:     deps.Mailer,
		redis:      deps.Redis,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket created event", zap.Int64("ticket_id", event.TicketID))
	return n.broadcast(ctx, event)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("ticket status changed event",
		zap.Int64("ticket_id", event.TicketID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))

	emailErr := n.emailOwner(ctx, payload.Ticket)
	if err := n.broadcast(ctx, event); err != nil {
		return err
	}
	return emailErr
}

// emailOwner tells the ticket owner about the new status.
func (n *NotificationService) emailOwner(ctx context.Context, ticket events.TicketSnapshot) error {
	if ticket.OwnerID == "" {
		return nil
	}
	name := ticket.OwnerID
	if n.users != nil {
		user, err := n.users.GetByEmail(ctx, ticket.OwnerID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil
			}
			return err
		}
		name = user.Name
	}

	subject := "Ticket Status Update"
	body := StatusChangeEmailBody(name, ticket)
	if n.mailer == nil {
		n.logger.Debug("smtp not configured; status email skipped",
			zap.String("from", n.cfg.EmailFrom),
			zap.String("to", ticket.OwnerID),
			zap.Int64("ticket_id", ticket.ID))
		return nil
	}
	if err := n.mailer.Send(ticket.OwnerID, subject, body); err != nil {
		return fmt.Errorf("send status email: %w", err)
	}
	return nil
}

// broadcast publishes the event as JSON on the configured Redis channel.
func (n *NotificationService) broadcast(ctx context.Context, event events.Event) error {
	if n.redis == nil || strings.TrimSpace(n.cfg.RedisChannel) == "" {
		return nil
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.redis.Publish(ctx, n.cfg.RedisChannel, raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// StatusChangeEmailBody renders the text sent to a ticket owner.
func StatusChangeEmailBody(name string, ticket events.TicketSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Your ticket #%d (%s) status has been updated to: %s.", ticket.ID, ticket.Subject, ticket.Status)
	if ticket.LatestResponse != nil {
		fmt.Fprintf(&b, "\n\nLatest Response:\n%s", ticket.LatestResponse.Message)
	}
	b.WriteString("\n\nThank you,\nSupport Team")
	return b.String()
}
