package authz

import (
	"github.com/aigovtower/grc-registry/pkg/apierrors"
)

// transitionKey identifies one edge of a state machine.
type transitionKey struct {
	from string
	to   string
}

// TransitionPolicy maps (fromState, toState) pairs to the role set allowed
// to perform them. State machines evaluate the policy themselves rather
// than relying on ad-hoc call-site checks, so the authorization rules are
// independently testable.
type TransitionPolicy struct {
	rules        map[transitionKey]RoleSet
	defaultRoles RoleSet
}

// NewTransitionPolicy creates a policy whose unlisted transitions are gated
// by defaultRoles. An empty defaultRoles denies unlisted transitions to
// everyone.
func NewTransitionPolicy(defaultRoles ...Role) *TransitionPolicy {
	return &TransitionPolicy{
		rules:        make(map[transitionKey]RoleSet),
		defaultRoles: defaultRoles,
	}
}

// Allow registers the roles permitted for the given transition, replacing
// any previous entry.
func (p *TransitionPolicy) Allow(from, to string, roles ...Role) *TransitionPolicy {
	p.rules[transitionKey{from: from, to: to}] = roles
	return p
}

// RequiredRoles returns the role set gating the given transition.
func (p *TransitionPolicy) RequiredRoles(from, to string) RoleSet {
	if roles, ok := p.rules[transitionKey{from: from, to: to}]; ok {
		return roles
	}
	return p.defaultRoles
}

// Authorize checks that the identity may perform the transition. Role lists
// are exhaustive: an edge reserved for COMPLIANCE admits nobody else, ADMIN
// included. Edges where ADMIN is acceptable list it explicitly.
// Returns a Forbidden error naming the accepted roles.
func (p *TransitionPolicy) Authorize(id Identity, from, to string) error {
	required := p.RequiredRoles(from, to)
	if id.Roles.HasAny(required...) {
		return nil
	}
	return apierrors.Forbidden(required.Strings()...)
}

// RequireAny checks that the identity holds at least one of the given roles
// (ADMIN always passes). Used for boundary checks that are not
// transition-shaped, such as activation of artifacts for high-risk systems.
func RequireAny(id Identity, roles ...Role) error {
	if id.Roles.Has(RoleAdmin) {
		return nil
	}
	if id.Roles.HasAny(roles...) {
		return nil
	}
	accepted := append(RoleSet{RoleAdmin}, roles...)
	return apierrors.Forbidden(accepted.Strings()...)
}

// DenyAuditor rejects actors whose only relationship to the registry is the
// read-only AUDITOR role. Auditors may hold other roles; the check only
// fails when AUDITOR is present without any mutating role.
func DenyAuditor(id Identity) error {
	if !id.Roles.Has(RoleAuditor) {
		return nil
	}
	if id.Roles.HasAny(RoleAdmin, RoleAIOwner, RoleCompliance) {
		return nil
	}
	return apierrors.Forbidden(string(RoleAdmin), string(RoleAIOwner), string(RoleCompliance))
}
