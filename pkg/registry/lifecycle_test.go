package registry

import (
	"errors"
	"testing"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/authz"
)

func TestLifecycleMachine_ValidateTransition(t *testing.T) {
	m := NewLifecycleMachine()

	tests := []struct {
		from    LifecycleState
		to      LifecycleState
		allowed bool
	}{
		{StateDraft, StateSubmitted, true},
		{StateSubmitted, StateDraft, true},
		{StateSubmitted, StateApproved, true},
		{StateApproved, StateActive, true},
		{StateActive, StateDeprecated, true},
		{StateDeprecated, StateActive, true},
		{StateDeprecated, StateRetired, true},

		{StateDraft, StateActive, false},
		{StateDraft, StateApproved, false},
		{StateApproved, StateDraft, false},
		{StateActive, StateRetired, false},
		{StateRetired, StateActive, false},
		{StateRetired, StateDraft, false},
	}

	for _, tt := range tests {
		err := m.ValidateTransition(tt.from, tt.to)
		if tt.allowed && err != nil {
			t.Errorf("ValidateTransition(%s, %s) = %v, want allowed", tt.from, tt.to, err)
		}
		if !tt.allowed {
			var ite *apierrors.InvalidTransitionError
			if !errors.As(err, &ite) {
				t.Errorf("ValidateTransition(%s, %s) = %v, want InvalidTransitionError", tt.from, tt.to, err)
				continue
			}
			if ite.Current != string(tt.from) || ite.Requested != string(tt.to) {
				t.Errorf("error states = %s->%s, want %s->%s", ite.Current, ite.Requested, tt.from, tt.to)
			}
		}
	}
}

func TestDefaultLifecyclePolicy(t *testing.T) {
	p := DefaultLifecyclePolicy()

	compliance := authz.Identity{User: "carol", Roles: authz.RoleSet{authz.RoleCompliance}}
	admin := authz.Identity{User: "root", Roles: authz.RoleSet{authz.RoleAdmin}}
	owner := authz.Identity{User: "alice", Roles: authz.RoleSet{authz.RoleAIOwner}}
	auditor := authz.Identity{User: "dana", Roles: authz.RoleSet{authz.RoleAuditor}}

	approval := [2]string{string(StateSubmitted), string(StateApproved)}
	if err := p.Authorize(compliance, approval[0], approval[1]); err != nil {
		t.Errorf("compliance must approve: %v", err)
	}
	// The approval edge lists COMPLIANCE exhaustively; ADMIN does not bypass it.
	var fe *apierrors.ForbiddenError
	if err := p.Authorize(admin, approval[0], approval[1]); !errors.As(err, &fe) {
		t.Errorf("admin approval = %v, want ForbiddenError", err)
	}
	if err := p.Authorize(owner, approval[0], approval[1]); !errors.As(err, &fe) {
		t.Errorf("owner approval = %v, want ForbiddenError", err)
	}

	// Unlisted edges fall back to the mutating roles.
	if err := p.Authorize(owner, string(StateDraft), string(StateSubmitted)); err != nil {
		t.Errorf("owner must submit: %v", err)
	}
	if err := p.Authorize(admin, string(StateApproved), string(StateActive)); err != nil {
		t.Errorf("admin must activate: %v", err)
	}
	if err := p.Authorize(auditor, string(StateDraft), string(StateSubmitted)); !errors.As(err, &fe) {
		t.Errorf("auditor submit = %v, want ForbiddenError", err)
	}
}

func TestLifecycleMachine_AllowedTransitions(t *testing.T) {
	m := NewLifecycleMachine()

	got := m.AllowedTransitions(StateSubmitted)
	want := map[LifecycleState]bool{StateDraft: true, StateApproved: true}
	if len(got) != len(want) {
		t.Fatalf("AllowedTransitions(submitted) = %v, want draft and approved", got)
	}
	for _, s := range got {
		if !want[s] {
			t.Errorf("unexpected target state %s from submitted", s)
		}
	}

	if targets := m.AllowedTransitions(StateRetired); len(targets) != 0 {
		t.Errorf("AllowedTransitions(retired) = %v, retired must be terminal", targets)
	}
}

func TestRiskClassification_IsElevated(t *testing.T) {
	tests := []struct {
		risk     RiskClassification
		elevated bool
	}{
		{RiskLow, false},
		{RiskMedium, false},
		{RiskHigh, true},
		{RiskCritical, true},
	}
	for _, tt := range tests {
		if got := tt.risk.IsElevated(); got != tt.elevated {
			t.Errorf("IsElevated(%s) = %v, want %v", tt.risk, got, tt.elevated)
		}
	}
}
