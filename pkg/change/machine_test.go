package change

import (
	"errors"
	"testing"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		current Status
		next    Status
		allowed bool
	}{
		{StatusDraft, StatusSubmitted, true},
		{StatusSubmitted, StatusApproved, true},
		{StatusSubmitted, StatusRejected, true},
		{StatusApproved, StatusImplemented, true},

		{StatusDraft, StatusApproved, false},
		{StatusDraft, StatusImplemented, false},
		{StatusSubmitted, StatusImplemented, false},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusSubmitted, false},
		{StatusRejected, StatusDraft, false},
		{StatusImplemented, StatusDraft, false},
	}

	for _, tt := range tests {
		err := ValidateTransition(tt.current, tt.next)
		if tt.allowed && err != nil {
			t.Errorf("ValidateTransition(%s, %s) = %v, want allowed", tt.current, tt.next, err)
		}
		if !tt.allowed {
			var ite *apierrors.InvalidTransitionError
			if !errors.As(err, &ite) {
				t.Errorf("ValidateTransition(%s, %s) = %v, want InvalidTransitionError", tt.current, tt.next, err)
			}
		}
	}
}

func TestTerminal(t *testing.T) {
	for status, terminal := range map[Status]bool{
		StatusDraft:       false,
		StatusSubmitted:   false,
		StatusApproved:    false,
		StatusRejected:    true,
		StatusImplemented: true,
	} {
		if got := Terminal(status); got != terminal {
			t.Errorf("Terminal(%s) = %v, want %v", status, got, terminal)
		}
	}
}
