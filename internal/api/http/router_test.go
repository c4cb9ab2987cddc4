package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

const routerSecret = "router-test-secret-0123456789abcdef"

type testServer struct {
	app   *fiber.App
	auth  *service.AuthService
	users *repository.MemoryUserRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	users := repository.NewMemoryUserRepository()
	tickets := repository.NewMemoryTicketRepository()
	tokens := auth.NewTokenService(routerSecret, time.Hour)

	authSvc := service.NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost}, service.AuthDependencies{
		UserRepo: users,
		Tokens:   tokens,
		Logger:   logger,
	})
	ticketSvc := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets,
		UserRepo:   users,
		Dispatcher: events.NewInMemoryDispatcher(logger),
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{CaseSensitive: true, ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("helpdesk-service", "test", nil),
		Auth:    handlers.NewAuthHandler(authSvc),
		Tickets: handlers.NewTicketsHandler(ticketSvc),
		Admin:   handlers.NewAdminHandler(service.NewAdminService(users, tickets, logger), authSvc, metrics),
		Guard:   auth.NewGuard(auth.DefaultPolicy(), auth.NewPrincipalResolver(tokens), logger),
	})
	return &testServer{app: app, auth: authSvc, users: users}
}

type apiResponse struct {
	Status int             `json:"-"`
	Data   json.RawMessage `json:"data"`
	Meta   map[string]any  `json:"meta"`
	Error  struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) apiResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := apiResponse{Status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return out
}

func (s *testServer) register(t *testing.T, name, email, role string) string {
	t.Helper()
	resp := s.do(t, fiber.MethodPost, "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "s3cret-pass", "role": role,
	})
	require.Equal(t, fiber.StatusCreated, resp.Status, resp.Error.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

type ticketBody struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	OwnerID   string `json:"owner_id"`
	Responses []struct {
		Message     string `json:"message"`
		RespondedBy string `json:"responded_by"`
	} `json:"responses"`
}

func decodeTicket(t *testing.T, resp apiResponse) ticketBody {
	t.Helper()
	var ticket ticketBody
	require.NoError(t, json.Unmarshal(resp.Data, &ticket))
	return ticket
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Carla Customer", "carla@example.com", "customer")

	login := s.do(t, fiber.MethodPost, "/auth/login", "", map[string]string{
		"email": "carla@example.com", "password": "s3cret-pass",
	})
	require.Equal(t, fiber.StatusOK, login.Status)

	bad := s.do(t, fiber.MethodPost, "/auth/login", "", map[string]string{
		"email": "carla@example.com", "password": "nope",
	})
	assert.Equal(t, fiber.StatusUnauthorized, bad.Status)
	assert.Equal(t, "INVALID_CREDENTIALS", bad.Error.Code)

	me := s.do(t, fiber.MethodGet, "/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, me.Status)
	var user struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(me.Data, &user))
	assert.Equal(t, "carla@example.com", user.Email)
	assert.Equal(t, "CUSTOMER", user.Role)
	assert.NotContains(t, string(me.Data), "password")

	assert.Equal(t, fiber.StatusUnauthorized, s.do(t, fiber.MethodGet, "/auth/me", "", nil).Status)
	assert.Equal(t, fiber.StatusUnauthorized, s.do(t, fiber.MethodGet, "/auth/me", token+"x", nil).Status)

	dup := s.do(t, fiber.MethodPost, "/auth/register", "", map[string]string{
		"name": "Carla", "email": "CARLA@example.com", "password": "s3cret-pass", "role": "AGENT",
	})
	assert.Equal(t, fiber.StatusConflict, dup.Status)
	assert.Equal(t, "DUPLICATE_IDENTITY", dup.Error.Code)

	role := s.do(t, fiber.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ray", "email": "ray@example.com", "password": "s3cret-pass", "role": "SUPERUSER",
	})
	assert.Equal(t, fiber.StatusBadRequest, role.Status)
	assert.Equal(t, "INVALID_ROLE", role.Error.Code)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	customer := s.register(t, "Carla Customer", "carla@example.com", "CUSTOMER")
	other := s.register(t, "Otto Other", "otto@example.com", "CUSTOMER")
	agent := s.register(t, "Alex Agent", "alex@example.com", "ROLE_AGENT")

	payload := map[string]string{
		"subject": "VPN drops", "description": "The VPN drops every ten minutes.", "priority": "HIGH",
	}
	assert.Equal(t, fiber.StatusForbidden, s.do(t, fiber.MethodPost, "/tickets", agent, payload).Status)

	created := s.do(t, fiber.MethodPost, "/tickets", customer, payload)
	require.Equal(t, fiber.StatusCreated, created.Status)
	ticket := decodeTicket(t, created)
	assert.Equal(t, "OPEN", ticket.Status)
	assert.Equal(t, "carla@example.com", ticket.OwnerID)
	ticketPath := fmt.Sprintf("/tickets/%d", ticket.ID)

	assert.Equal(t, fiber.StatusForbidden, s.do(t, fiber.MethodGet, "/tickets", customer, nil).Status)
	listed := s.do(t, fiber.MethodGet, "/tickets?status=OPEN", agent, nil)
	require.Equal(t, fiber.StatusOK, listed.Status)
	assert.EqualValues(t, 1, listed.Meta["total"])

	replied := s.do(t, fiber.MethodPost, ticketPath+"/responses", agent, map[string]string{"message": "Reinstall the client"})
	require.Equal(t, fiber.StatusCreated, replied.Status)
	ticket = decodeTicket(t, replied)
	assert.Equal(t, "IN_PROGRESS", ticket.Status)
	require.Len(t, ticket.Responses, 1)
	assert.Equal(t, "Alex Agent", ticket.Responses[0].RespondedBy)

	assert.Equal(t, fiber.StatusForbidden,
		s.do(t, fiber.MethodPost, ticketPath+"/responses", customer, map[string]string{"message": "me too"}).Status)

	responses := s.do(t, fiber.MethodGet, ticketPath+"/responses", customer, nil)
	require.Equal(t, fiber.StatusOK, responses.Status)
	var thread []map[string]any
	require.NoError(t, json.Unmarshal(responses.Data, &thread))
	assert.Len(t, thread, 1)

	denied := s.do(t, fiber.MethodGet, ticketPath, other, nil)
	assert.Equal(t, fiber.StatusForbidden, denied.Status)
	assert.Equal(t, "ACCESS_DENIED", denied.Error.Code)

	badStatus := s.do(t, fiber.MethodPatch, ticketPath+"/status", agent, map[string]string{"status": "BOGUS"})
	assert.Equal(t, fiber.StatusBadRequest, badStatus.Status)
	assert.Equal(t, "INVALID_STATUS", badStatus.Error.Code)

	missing := s.do(t, fiber.MethodPatch, "/tickets/999/status", agent, map[string]string{"status": "BOGUS"})
	assert.Equal(t, fiber.StatusNotFound, missing.Status)
	assert.Equal(t, "TICKET_NOT_FOUND", missing.Error.Code)

	closed := s.do(t, fiber.MethodPatch, ticketPath+"/status", agent, map[string]string{"status": "CLOSED"})
	require.Equal(t, fiber.StatusOK, closed.Status)
	assert.Equal(t, "CLOSED", decodeTicket(t, closed).Status)

	malformed := s.do(t, fiber.MethodGet, "/tickets/abc", agent, nil)
	assert.Equal(t, fiber.StatusBadRequest, malformed.Status)
	assert.Equal(t, "VALIDATION_FAILED", malformed.Error.Code)
}

func TestScopedViews(t *testing.T) {
	s := newTestServer(t)
	customer := s.register(t, "Carla Customer", "carla@example.com", "CUSTOMER")
	agent := s.register(t, "Alex Agent", "alex@example.com", "AGENT")

	for i := 0; i < 2; i++ {
		resp := s.do(t, fiber.MethodPost, "/customer/tickets", customer, map[string]string{
			"subject": fmt.Sprintf("Issue number %d", i), "description": "Something is broken again.", "priority": "LOW",
		})
		require.Equal(t, fiber.StatusCreated, resp.Status)
	}

	mine := s.do(t, fiber.MethodGet, "/customer/tickets", customer, nil)
	require.Equal(t, fiber.StatusOK, mine.Status)
	var tickets []ticketBody
	require.NoError(t, json.Unmarshal(mine.Data, &tickets))
	require.Len(t, tickets, 2)
	assert.Greater(t, tickets[0].ID, tickets[1].ID)

	assert.Equal(t, fiber.StatusForbidden, s.do(t, fiber.MethodGet, "/customer/tickets", agent, nil).Status)
	assert.Equal(t, fiber.StatusForbidden, s.do(t, fiber.MethodGet, "/agent/tickets", customer, nil).Status)

	queue := s.do(t, fiber.MethodGet, "/agent/tickets", agent, nil)
	require.Equal(t, fiber.StatusOK, queue.Status)
	assert.EqualValues(t, 2, queue.Meta["total"])

	resolved := s.do(t, fiber.MethodGet, "/agent/tickets?status=RESOLVED", agent, nil)
	require.Equal(t, fiber.StatusOK, resolved.Status)
	assert.EqualValues(t, 0, resolved.Meta["total"])

	oversized := s.do(t, fiber.MethodGet, "/agent/tickets?limit=5000", agent, nil)
	require.Equal(t, fiber.StatusOK, oversized.Status)
	assert.EqualValues(t, 100, oversized.Meta["limit"])
	assert.EqualValues(t, 2, oversized.Meta["total"])

	defaulted := s.do(t, fiber.MethodGet, "/agent/tickets?limit=0", agent, nil)
	assert.EqualValues(t, 20, defaulted.Meta["limit"])
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, err := s.auth.SeedAdmin(context.Background(), config.SeedConfig{
		AdminEmail: "admin@system.com", AdminPassword: "admin-pass", AdminName: "System Administrator",
	})
	require.NoError(t, err)
	login := s.do(t, fiber.MethodPost, "/auth/login", "", map[string]string{"email": "admin@system.com", "password": "admin-pass"})
	require.Equal(t, fiber.StatusOK, login.Status)
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(login.Data, &session))
	admin := session.Token

	customer := s.register(t, "Carla Customer", "carla@example.com", "CUSTOMER")
	assert.Equal(t, fiber.StatusForbidden, s.do(t, fiber.MethodGet, "/admin/stats", customer, nil).Status)
	assert.Equal(t, fiber.StatusUnauthorized, s.do(t, fiber.MethodGet, "/admin/stats", "", nil).Status)

	agent := s.do(t, fiber.MethodPost, "/admin/agents", admin, map[string]string{
		"name": "Alex Agent", "email": "alex@example.com", "password": "agent-pass",
	})
	require.Equal(t, fiber.StatusCreated, agent.Status)

	page := s.do(t, fiber.MethodGet, "/admin/users?page=0&size=2", admin, nil)
	require.Equal(t, fiber.StatusOK, page.Status)
	var users struct {
		Users      []struct{ ID, Role string } `json:"users"`
		TotalItems int                         `json:"total_items"`
		TotalPages int                         `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(page.Data, &users))
	assert.Equal(t, 3, users.TotalItems)
	assert.Equal(t, 2, users.TotalPages)
	require.Len(t, users.Users, 2)

	adminUser, err := s.users.GetByEmail(context.Background(), "admin@system.com")
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, s.do(t, fiber.MethodDelete, "/admin/users/"+adminUser.ID, admin, nil).Status)

	carla, err := s.users.GetByEmail(context.Background(), "carla@example.com")
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, s.do(t, fiber.MethodDelete, "/admin/users/"+carla.ID, admin, nil).Status)
	assert.Equal(t, fiber.StatusNotFound, s.do(t, fiber.MethodDelete, "/admin/users/"+carla.ID, admin, nil).Status)

	stats := s.do(t, fiber.MethodGet, "/admin/stats", admin, nil)
	require.Equal(t, fiber.StatusOK, stats.Status)
	var summary struct {
		TotalUsers  int            `json:"total_users"`
		UsersByRole map[string]int `json:"users_by_role"`
	}
	require.NoError(t, json.Unmarshal(stats.Data, &summary))
	assert.Equal(t, 2, summary.TotalUsers)
	assert.Equal(t, 0, summary.UsersByRole["CUSTOMER"])

	metrics := s.do(t, fiber.MethodGet, "/admin/metrics", admin, nil)
	require.Equal(t, fiber.StatusOK, metrics.Status)
	assert.Contains(t, string(metrics.Data), "/admin/users/:id")
}

func TestPublicAndUnmatchedPaths(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, fiber.StatusOK, s.do(t, fiber.MethodGet, "/health/live", "", nil).Status)
	ready := s.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, ready.Status)

	assert.Equal(t, fiber.StatusUnauthorized, s.do(t, fiber.MethodGet, "/administrator", "", nil).Status)
	assert.Equal(t, fiber.StatusUnauthorized, s.do(t, fiber.MethodGet, "/tickets", "garbage", nil).Status)

	preflight := s.do(t, fiber.MethodOptions, "/admin/users", "", nil)
	assert.NotEqual(t, fiber.StatusUnauthorized, preflight.Status)
	assert.NotEqual(t, fiber.StatusForbidden, preflight.Status)
}

func TestPathCaseDoesNotBypassAccessTable(t *testing.T) {
	s := newTestServer(t)
	customer := s.register(t, "Carla Customer", "carla@example.com", "CUSTOMER")
	agent := s.register(t, "Alex Agent", "alex@example.com", "AGENT")

	cases := []struct {
		method string
		path   string
		token  string
	}{
		{fiber.MethodGet, "/ADMIN/users", customer},
		{fiber.MethodGet, "/Admin/stats", customer},
		{fiber.MethodDelete, "/ADMIN/users/00000000-0000-0000-0000-000000000000", customer},
		{fiber.MethodGet, "/AGENT/tickets", customer},
		{fiber.MethodPost, "/CUSTOMER/tickets", agent},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp := s.do(t, tc.method, tc.path, tc.token, map[string]string{
				"subject": "Cannot log in", "description": "The client rejects my password.", "priority": "LOW",
			})
			assert.Equal(t, fiber.StatusForbidden, resp.Status)
			assert.Equal(t, "FORBIDDEN", resp.Error.Code)
		})
	}

	// Routes are case-sensitive, so a permitted role gets no handler either.
	assert.Equal(t, fiber.StatusNotFound, s.do(t, fiber.MethodGet, "/CUSTOMER/tickets", customer, nil).Status)
}
