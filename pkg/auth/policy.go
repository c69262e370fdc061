package auth

import "strings"

// Role is the account type carried in access tokens.
type Role string

const (
	RolePublisher Role = "publisher"
	RoleAdmin     Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RolePublisher:
		return RolePublisher, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	return r == RolePublisher || r == RoleAdmin
}

// Capability names an action a route requires.
type Capability string

const (
	CapViewStalls         Capability = "stalls:read"
	CapReserveStalls      Capability = "stalls:reserve"
	CapManageReservations Capability = "reservations:manage"
)

var grants = map[Role][]Capability{
	RolePublisher: {CapViewStalls, CapReserveStalls},
	RoleAdmin:     {CapViewStalls, CapReserveStalls, CapManageReservations},
}

// Allows reports whether role holds capability.
func Allows(role Role, capability Capability) bool {
	for _, c := range grants[role] {
		if c == capability {
			return true
		}
	}
	return false
}
