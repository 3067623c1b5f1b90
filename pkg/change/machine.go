package change

import (
	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/authz"
)

// AllowedTransitions is the change-request workflow graph. Rejected and
// implemented are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusDraft:       {StatusSubmitted},
	StatusSubmitted:   {StatusApproved, StatusRejected},
	StatusApproved:    {StatusImplemented},
	StatusRejected:    {},
	StatusImplemented: {},
}

// DefaultWorkflowPolicy gates each workflow edge by role. Owners (or an
// ADMIN acting for them) submit and implement; the submitted->approved edge
// is reserved for COMPLIANCE alone, so the requester side can never approve
// its own change.
func DefaultWorkflowPolicy() *authz.TransitionPolicy {
	return authz.NewTransitionPolicy().
		Allow(string(StatusDraft), string(StatusSubmitted), authz.RoleAIOwner, authz.RoleAdmin).
		Allow(string(StatusSubmitted), string(StatusApproved), authz.RoleCompliance).
		Allow(string(StatusSubmitted), string(StatusRejected), authz.RoleCompliance, authz.RoleAdmin).
		Allow(string(StatusApproved), string(StatusImplemented), authz.RoleAIOwner, authz.RoleAdmin)
}

// ValidateTransition checks whether current->next is an allowed edge.
// Returns nil if allowed, an InvalidTransition error reporting both states
// verbatim if not.
func ValidateTransition(current, next Status) error {
	for _, allowed := range AllowedTransitions[current] {
		if allowed == next {
			return nil
		}
	}
	return apierrors.InvalidTransition(string(current), string(next))
}

// Terminal reports whether no transition leaves the given status.
func Terminal(s Status) bool {
	return len(AllowedTransitions[s]) == 0
}
