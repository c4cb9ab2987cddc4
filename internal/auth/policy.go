package auth

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Policy decisions that reject a request.
var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("not permitted")
)

// Rule grants access to every path under Prefix. An empty Method matches any
// method. Public rules skip identity resolution; a rule with no roles admits
// any authenticated principal.
type Rule struct {
	Method string
	Prefix string
	Public bool
	Roles  []domain.Role
}

// AccessPolicy is an immutable route table evaluated before handlers run.
type AccessPolicy struct {
	rules []Rule
}

// NewAccessPolicy orders rules by specificity: longer prefixes first, then
// method-bound rules before method-agnostic ones. Ties keep declaration order.
func NewAccessPolicy(rules ...Rule) *AccessPolicy {
	ordered := make([]Rule, len(rules))
	for i, rule := range rules {
		rule.Prefix = normalizePrefix(rule.Prefix)
		rule.Method = strings.ToUpper(rule.Method)
		rule.Roles = append([]domain.Role(nil), rule.Roles...)
		ordered[i] = rule
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if len(ordered[i].Prefix) != len(ordered[j].Prefix) {
			return len(ordered[i].Prefix) > len(ordered[j].Prefix)
		}
		return ordered[i].Method != "" && ordered[j].Method == ""
	})
	return &AccessPolicy{rules: ordered}
}

// DefaultPolicy returns the helpdesk route table.
func DefaultPolicy() *AccessPolicy {
	return NewAccessPolicy(
		Rule{Prefix: "/auth", Public: true},
		Rule{Prefix: "/admin", Roles: []domain.Role{domain.RoleAdmin}},
		Rule{Prefix: "/agent", Roles: []domain.Role{domain.RoleAgent}},
		Rule{Prefix: "/customer", Roles: []domain.Role{domain.RoleCustomer}},
		Rule{Prefix: "/tickets", Roles: []domain.Role{domain.RoleAdmin, domain.RoleAgent, domain.RoleCustomer}},
	)
}

// IsPublic reports whether the request needs no identity at all.
func (p *AccessPolicy) IsPublic(method, path string) bool {
	if strings.EqualFold(method, http.MethodOptions) {
		return true
	}
	rule, ok := p.match(method, path)
	return ok && rule.Public
}

// Authorize evaluates the first matching rule. principal is nil when no
// identity could be resolved.
func (p *AccessPolicy) Authorize(method, path string, principal *domain.Principal) error {
	if p.IsPublic(method, path) {
		return nil
	}
	if principal == nil {
		return ErrUnauthorized
	}
	rule, ok := p.match(method, path)
	if !ok || len(rule.Roles) == 0 {
		return nil
	}
	if !principal.HasRole(rule.Roles...) {
		return ErrForbidden
	}
	return nil
}

// Rules returns a copy of the ordered table.
func (p *AccessPolicy) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// match compares paths case-insensitively so a request can never reach a
// handler under a spelling the table does not cover.
func (p *AccessPolicy) match(method, path string) (Rule, bool) {
	method = strings.ToUpper(method)
	path = strings.ToLower(path)
	for _, rule := range p.rules {
		if rule.Method != "" && rule.Method != method {
			continue
		}
		if hasPathPrefix(path, rule.Prefix) {
			return rule, true
		}
	}
	return Rule{}, false
}

// hasPathPrefix matches whole segments: "/admin" covers "/admin" and
// "/admin/users" but not "/administrator".
func hasPathPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(prefix)), "/*")
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if len(prefix) > 1 {
		prefix = strings.TrimSuffix(prefix, "/")
	}
	return prefix
}
