package domain

import "strings"

// Role enumerates the actor roles of the helpdesk.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleAgent    Role = "AGENT"
	RoleCustomer Role = "CUSTOMER"
)

const rolePrefix = "ROLE_"

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleAgent, RoleCustomer}

// ParseRole normalizes a role label. Matching is case-insensitive and tolerates
// the ROLE_ prefix used by older clients ("admin", "ROLE_ADMIN", "ADMIN" are equal).
func ParseRole(label string) (Role, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	normalized = strings.TrimPrefix(normalized, rolePrefix)
	role := Role(normalized)
	if !role.Valid() {
		return "", false
	}
	return role, true
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleCustomer:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
