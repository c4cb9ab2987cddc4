package domain

import "time"

// Principal is the verified identity and role of the caller for one request.
type Principal struct {
	Identity string
	Role     Role
}

// HasRole reports whether the principal holds any of the given roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}

// SessionToken describes an issued bearer token.
type SessionToken struct {
	Value     string
	Subject   string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}
