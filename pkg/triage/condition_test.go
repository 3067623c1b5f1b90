package triage

import (
	"errors"
	"testing"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
)

func TestParseCondition_Rejected(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"function call", "len(type) > 3"},
		{"arithmetic", "volatility + 1 > 3"},
		{"dangling operator", "risk =="},
		{"unbalanced tuple", "type in ('a', 'b'"},
		{"statement", "risk = 'high'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCondition(tt.expr)
			if err == nil {
				t.Fatalf("ParseCondition(%q) = nil error, want UnsupportedCondition", tt.expr)
			}
			var unsupported *apierrors.UnsupportedConditionError
			if !errors.As(err, &unsupported) {
				t.Fatalf("ParseCondition(%q) error = %T, want UnsupportedConditionError", tt.expr, err)
			}
		})
	}
}

func TestCondition_Eval(t *testing.T) {
	ctx := Context{
		"risk":                   "high",
		"type":                   "Hallucination",
		"drift_flag":             true,
		"incidents_last_30_days": 4,
		"volatility":             0,
		"severity":               "Low",
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"risk == 'high'", true},
		{`risk == "low"`, false},
		{"risk != 'low'", true},
		{"incidents_last_30_days >= 3", true},
		{"incidents_last_30_days > 4", false},
		{"volatility <= 0", true},
		{"volatility < 0", false},
		{"drift_flag", true},
		{"drift_flag == true", true},
		{"drift_flag == False", false},
		{"type in ('Hallucination', 'Bias / fairness issue')", true},
		{"type not in ('Policy violation',)", true},
		{"type in ('Policy violation',)", false},
		{"risk == 'high' and incidents_last_30_days >= 3", true},
		{"risk == 'low' and incidents_last_30_days >= 3", false},
		{"risk == 'low' or drift_flag", true},
		{"risk == 'low' or volatility > 0", false},
		{"severity == 'Low' and risk in ('high', 'critical')", true},
		// Missing variables never match.
		{"unknown_var == 'x'", false},
		{"unknown_var", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			cond, err := ParseCondition(tt.expr)
			if err != nil {
				t.Fatalf("ParseCondition(%q) failed: %v", tt.expr, err)
			}
			got, err := cond.Eval(ctx)
			if err != nil {
				t.Fatalf("Eval(%q) failed: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCondition_EvalTypeMismatchFailsClosed(t *testing.T) {
	tests := []string{
		"risk > 3",               // string ordered against number
		"type in 'Hallucination'", // membership against non-tuple
	}

	ctx := Context{"risk": "high", "type": "Hallucination"}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			cond, err := ParseCondition(expr)
			if err != nil {
				t.Fatalf("ParseCondition(%q) failed: %v", expr, err)
			}
			if _, err := cond.Eval(ctx); err == nil {
				t.Fatalf("Eval(%q) = nil error, want UnsupportedCondition", expr)
			}
		})
	}
}
