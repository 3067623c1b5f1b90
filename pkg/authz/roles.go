// Package authz provides actor identity, role extraction, and the
// per-transition authorization tables used by the governance state machines.
package authz

// Role represents a governance role carried by an authenticated actor.
type Role string

const (
	// RoleAdmin may perform any operation.
	RoleAdmin Role = "ADMIN"

	// RoleAIOwner manages AI systems, artifacts, and change requests it owns.
	RoleAIOwner Role = "AI_OWNER"

	// RoleCompliance is the regulatory control point: the only role that can
	// approve submitted change requests and submitted AI systems.
	RoleCompliance Role = "COMPLIANCE"

	// RoleAuditor has read-only access to everything, including audit logs.
	RoleAuditor Role = "AUDITOR"
)

// ParseRole normalizes a role string. Unknown values return "" so callers
// can deny by default.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleAIOwner, RoleCompliance, RoleAuditor:
		return Role(s)
	}
	return ""
}

// RoleSet is the effective set of roles held by an actor.
type RoleSet []Role

// Has reports whether the set contains the given role.
func (rs RoleSet) Has(role Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

// HasAny reports whether the set contains at least one of the given roles.
func (rs RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if rs.Has(r) {
			return true
		}
	}
	return false
}

// Strings returns the roles as plain strings.
func (rs RoleSet) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}
