package registry

import (
	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/authz"
)

// TransitionRule defines an allowed lifecycle transition.
type TransitionRule struct {
	From LifecycleState
	To   LifecycleState
}

// DefaultTransitions defines the allowed lifecycle state transitions.
// Draft systems must pass through submission and approval before they can
// serve traffic; there is no shortcut from draft to active.
var DefaultTransitions = []TransitionRule{
	{From: StateDraft, To: StateSubmitted},
	{From: StateSubmitted, To: StateDraft},
	{From: StateSubmitted, To: StateApproved},
	{From: StateApproved, To: StateActive},
	{From: StateActive, To: StateDeprecated},
	{From: StateDeprecated, To: StateActive},
	{From: StateDeprecated, To: StateRetired},
}

// DefaultLifecyclePolicy gates each lifecycle edge by role. The
// submitted->approved edge is reserved for COMPLIANCE alone: an ADMIN who
// registered and submitted a system cannot also approve it.
func DefaultLifecyclePolicy() *authz.TransitionPolicy {
	return authz.NewTransitionPolicy(authz.RoleAIOwner, authz.RoleCompliance, authz.RoleAdmin).
		Allow(string(StateSubmitted), string(StateApproved), authz.RoleCompliance)
}

// LifecycleMachine validates lifecycle state transitions against a rule table.
type LifecycleMachine struct {
	transitions []TransitionRule
}

// NewLifecycleMachine creates a machine with the default rule table.
func NewLifecycleMachine() *LifecycleMachine {
	return &LifecycleMachine{transitions: DefaultTransitions}
}

// NewLifecycleMachineWithRules creates a machine with a custom rule table,
// for deployments whose regulatory regime needs a different graph.
func NewLifecycleMachineWithRules(rules []TransitionRule) *LifecycleMachine {
	return &LifecycleMachine{transitions: rules}
}

// ValidateTransition checks whether from->to is an allowed edge. Returns nil
// if allowed, an InvalidTransition error reporting both states if not.
func (m *LifecycleMachine) ValidateTransition(from, to LifecycleState) error {
	for _, t := range m.transitions {
		if t.From == from && t.To == to {
			return nil
		}
	}
	return apierrors.InvalidTransition(string(from), string(to))
}

// AllowedTransitions returns all valid target states from the given state.
func (m *LifecycleMachine) AllowedTransitions(from LifecycleState) []LifecycleState {
	var allowed []LifecycleState
	for _, t := range m.transitions {
		if t.From == from {
			allowed = append(allowed, t.To)
		}
	}
	return allowed
}
