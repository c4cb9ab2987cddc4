package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

const testSecret = "service-test-secret-0123456789abcdef"

var testAuthConfig = config.AuthConfig{BcryptCost: bcrypt.MinCost}

func newAuthService(t *testing.T, users repository.UserRepository, limiter *auth.LoginLimiter) (*AuthService, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService(testSecret, 0)
	return NewAuthService(testAuthConfig, AuthDependencies{
		UserRepo: users,
		Tokens:   tokens,
		Limiter:  limiter,
	}), tokens
}

// recordingDispatcher captures published events synchronously.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return d.err
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event(nil), d.events...)
}

type ticketFixture struct {
	svc        *TicketService
	tickets    *repository.MemoryTicketRepository
	users      *repository.MemoryUserRepository
	dispatcher *recordingDispatcher
	clock      *fakeClock
	logs       *observer.ObservedLogs
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	f := &ticketFixture{
		logs:       logs,
		tickets:    repository.NewMemoryTicketRepository(),
		users:      repository.NewMemoryUserRepository(),
		dispatcher: &recordingDispatcher{},
		clock:      &fakeClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)},
	}
	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, &domain.User{ID: "c1", Name: "Carla Customer", Email: "carla@example.com", Role: domain.RoleCustomer}))
	require.NoError(t, f.users.Create(ctx, &domain.User{ID: "c2", Name: "Bob Customer", Email: "bob@example.com", Role: domain.RoleCustomer}))
	require.NoError(t, f.users.Create(ctx, &domain.User{ID: "a1", Name: "Alex Agent", Email: "alex@example.com", Role: domain.RoleAgent}))

	f.svc = NewTicketService(TicketDependencies{
		TicketRepo: f.tickets,
		UserRepo:   f.users,
		Dispatcher: f.dispatcher,
		Logger:     zap.New(core),
		Clock:      f.clock.Now,
	})
	return f
}

var (
	carla = domain.Principal{Identity: "carla@example.com", Role: domain.RoleCustomer}
	bob   = domain.Principal{Identity: "bob@example.com", Role: domain.RoleCustomer}
	alex  = domain.Principal{Identity: "alex@example.com", Role: domain.RoleAgent}
	admin = domain.Principal{Identity: "admin@system.com", Role: domain.RoleAdmin}
)

func (f *ticketFixture) createTicket(t *testing.T, owner domain.Principal) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), owner, TicketCreateInput{
		Subject:     "Printer jammed",
		Description: "The printer on floor 2 is jammed again.",
		Priority:    "HIGH",
	})
	require.NoError(t, err)
	return ticket
}
