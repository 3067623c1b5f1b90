package triage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeverityRule suggests severity, owner, and root cause. The first rule
// whose condition matches wins.
type SeverityRule struct {
	Condition         string `yaml:"condition" json:"condition"`
	SuggestedSeverity string `yaml:"suggested_severity" json:"suggestedSeverity"`
	OwnerRole         string `yaml:"owner_role" json:"ownerRole"`
	RootCause         string `yaml:"root_cause" json:"rootCause"`
	Reason            string `yaml:"reason" json:"reason"`

	cond *Condition
}

// EscalationRule raises the suggested severity by N steps. Every matching
// rule applies, and each sees the severity left by the previous one.
type EscalationRule struct {
	Condition  string `yaml:"condition" json:"condition"`
	EscalateBy int    `yaml:"escalate_by" json:"escalateBy"`
	Reason     string `yaml:"reason" json:"reason"`

	cond *Condition
}

// DriftRule overrides severity, owner, or root cause when change-velocity
// signals fire. Empty fields leave the current suggestion untouched.
type DriftRule struct {
	Condition         string `yaml:"condition" json:"condition"`
	SuggestedSeverity string `yaml:"suggested_severity" json:"suggestedSeverity,omitempty"`
	OwnerRole         string `yaml:"owner_role" json:"ownerRole,omitempty"`
	RootCause         string `yaml:"root_cause" json:"rootCause,omitempty"`
	Reason            string `yaml:"reason" json:"reason"`

	cond *Condition
}

// RuleSet is the declarative rule table the engine evaluates. Rule order is
// significant within each stage.
type RuleSet struct {
	SeverityRules   []SeverityRule   `yaml:"severity_rules" json:"severityRules"`
	EscalationRules []EscalationRule `yaml:"escalation_rules" json:"escalationRules"`
	DriftRules      []DriftRule      `yaml:"drift_rules" json:"driftRules"`
}

// Compile parses every condition in the rule set. Any rule outside the
// closed grammar fails the whole load with UnsupportedCondition; the engine
// rejects malformed rules rather than skipping them.
func (rs *RuleSet) Compile() error {
	for i := range rs.SeverityRules {
		cond, err := ParseCondition(rs.SeverityRules[i].Condition)
		if err != nil {
			return fmt.Errorf("severity rule %d: %w", i, err)
		}
		rs.SeverityRules[i].cond = cond
	}
	for i := range rs.EscalationRules {
		cond, err := ParseCondition(rs.EscalationRules[i].Condition)
		if err != nil {
			return fmt.Errorf("escalation rule %d: %w", i, err)
		}
		rs.EscalationRules[i].cond = cond
	}
	for i := range rs.DriftRules {
		cond, err := ParseCondition(rs.DriftRules[i].Condition)
		if err != nil {
			return fmt.Errorf("drift rule %d: %w", i, err)
		}
		rs.DriftRules[i].cond = cond
	}
	return nil
}

// LoadRuleSet loads and compiles a rule table from a YAML file.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read triage rules: %w", err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse triage rules: %w", err)
	}
	if err := rs.Compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// RootCauseCandidate is one entry of the incident-type to root-cause map.
type RootCauseCandidate struct {
	Category    string `yaml:"category" json:"category"`
	Explanation string `yaml:"explanation" json:"explanation"`
}

// RootCauseMap maps incident types to ordered root-cause candidates.
type RootCauseMap map[string][]RootCauseCandidate

// LoadRootCauseMap loads the root-cause lookup table from a YAML file.
func LoadRootCauseMap(path string) (RootCauseMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read root cause map: %w", err)
	}

	var m RootCauseMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse root cause map: %w", err)
	}
	if m == nil {
		m = RootCauseMap{}
	}
	return m, nil
}
