package triage

import "fmt"

// Severity values on the fixed ordinal escalation scale.
const (
	SeverityLow    = "Low"
	SeverityMedium = "Medium"
	SeverityHigh   = "High"
)

// severityOrder is the escalation scale; escalation clamps at the top.
var severityOrder = []string{SeverityLow, SeverityMedium, SeverityHigh}

// RootCauseUnclassified is the sentinel replaced by the root-cause lookup
// stage when no earlier rule assigned a cause.
const RootCauseUnclassified = "Unclassified"

// Context variable names the engine and its callers agree on.
const (
	VarRisk            = "risk"
	VarType            = "type"
	VarDriftFlag       = "drift_flag"
	VarIncidentsLast30 = "incidents_last_30_days"
	VarVolatility      = "volatility"
	VarSeverity        = "severity"
)

// Suggestion is the engine's triage recommendation for a new incident.
type Suggestion struct {
	Severity             string `json:"severity"`
	OwnerRole            string `json:"ownerRole"`
	RootCause            string `json:"rootCause"`
	Reason               string `json:"reason"`
	RootCauseExplanation string `json:"rootCauseExplanation,omitempty"`
}

// Engine evaluates a compiled rule set and root-cause map. It holds no
// mutable state: identical inputs always produce identical suggestions.
type Engine struct {
	rules     *RuleSet
	rootCause RootCauseMap
}

// NewEngine creates an engine over a compiled rule set. The rule set must
// have been compiled (LoadRuleSet compiles; in-memory rule sets need
// Compile called first).
func NewEngine(rules *RuleSet, rootCause RootCauseMap) *Engine {
	if rules == nil {
		rules = &RuleSet{}
	}
	if rootCause == nil {
		rootCause = RootCauseMap{}
	}
	return &Engine{rules: rules, rootCause: rootCause}
}

// Suggest runs the four triage stages against ctx:
//
//  1. severity rules, first match wins, documented default otherwise
//  2. escalation rules, cumulative, severity re-read between rules
//  3. drift rules, each match overwrites only the fields it specifies
//  4. root-cause lookup for the Unclassified sentinel
//
// ctx must carry risk, type, drift_flag, incidents_last_30_days, and
// volatility. The severity key is managed by the engine itself.
func (e *Engine) Suggest(ctx Context) (Suggestion, error) {
	suggestion := Suggestion{
		Severity:  SeverityMedium,
		OwnerRole: "AI_OWNER",
		RootCause: RootCauseUnclassified,
		Reason:    "Default rule applied",
	}

	for _, rule := range e.rules.SeverityRules {
		matched, err := rule.cond.Eval(ctx)
		if err != nil {
			return Suggestion{}, err
		}
		if matched {
			suggestion = Suggestion{
				Severity:  valueOr(rule.SuggestedSeverity, SeverityMedium),
				OwnerRole: valueOr(rule.OwnerRole, "AI_OWNER"),
				RootCause: valueOr(rule.RootCause, RootCauseUnclassified),
				Reason:    valueOr(rule.Reason, "Rule matched"),
			}
			break
		}
	}

	// Later escalation rules must see the severity left by earlier ones.
	ctx[VarSeverity] = suggestion.Severity

	for _, rule := range e.rules.EscalationRules {
		matched, err := rule.cond.Eval(ctx)
		if err != nil {
			return Suggestion{}, err
		}
		if matched {
			suggestion.Severity = Escalate(suggestion.Severity, rule.EscalateBy)
			suggestion.Reason += fmt.Sprintf(" | Escalation: %s", valueOr(rule.Reason, "rule"))
			ctx[VarSeverity] = suggestion.Severity
		}
	}

	for _, rule := range e.rules.DriftRules {
		matched, err := rule.cond.Eval(ctx)
		if err != nil {
			return Suggestion{}, err
		}
		if matched {
			if rule.SuggestedSeverity != "" {
				suggestion.Severity = rule.SuggestedSeverity
			}
			if rule.OwnerRole != "" {
				suggestion.OwnerRole = rule.OwnerRole
			}
			if rule.RootCause != "" {
				suggestion.RootCause = rule.RootCause
			}
			suggestion.Reason += fmt.Sprintf(" | Drift rule: %s", valueOr(rule.Reason, "rule"))
			ctx[VarSeverity] = suggestion.Severity
		}
	}

	incidentType, _ := ctx[VarType].(string)
	category, explanation := e.lookupRootCause(incidentType)
	if suggestion.RootCause == RootCauseUnclassified {
		suggestion.RootCause = category
	}
	// The explanation is attached regardless, for operator visibility.
	suggestion.RootCauseExplanation = explanation

	return suggestion, nil
}

// lookupRootCause returns the first candidate for the incident type.
func (e *Engine) lookupRootCause(incidentType string) (string, string) {
	candidates := e.rootCause[incidentType]
	if len(candidates) == 0 {
		return RootCauseUnclassified, "No root cause mapping available."
	}
	first := candidates[0]
	return valueOr(first.Category, RootCauseUnclassified),
		valueOr(first.Explanation, "No explanation provided.")
}

// Escalate raises severity by the given number of steps along the ordinal
// scale, clamping at High. Unknown severities pass through unchanged.
func Escalate(severity string, levels int) string {
	idx := -1
	for i, s := range severityOrder {
		if s == severity {
			idx = i
			break
		}
	}
	if idx < 0 {
		return severity
	}
	idx += levels
	if idx >= len(severityOrder) {
		idx = len(severityOrder) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return severityOrder[idx]
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
