// Package incident manages reported AI incidents: intake with synchronous
// triage suggestion, human confirmation or override, investigation, and
// corrective-action linkage back to the change workflow.
package incident

import "time"

// Type classifies what went wrong.
type Type string

const (
	TypeHallucination        Type = "Hallucination"
	TypeIncorrectOutput      Type = "Incorrect factual output"
	TypePolicyViolation      Type = "Policy violation"
	TypeBias                 Type = "Bias / fairness issue"
	TypeUnsafeRecommendation Type = "Unsafe recommendation"
)

// ValidType reports whether t is a known incident type.
func ValidType(t Type) bool {
	switch t {
	case TypeHallucination, TypeIncorrectOutput, TypePolicyViolation, TypeBias, TypeUnsafeRecommendation:
		return true
	}
	return false
}

// ImpactArea names the domain an incident harms.
type ImpactArea string

const (
	ImpactRegulatory   ImpactArea = "Regulatory compliance"
	ImpactCustomer     ImpactArea = "Customer impact"
	ImpactPatient      ImpactArea = "Patient safety"
	ImpactFinancial    ImpactArea = "Financial risk"
	ImpactReputational ImpactArea = "Reputational risk"
)

// ValidImpactArea reports whether a is a known impact area.
func ValidImpactArea(a ImpactArea) bool {
	switch a {
	case ImpactRegulatory, ImpactCustomer, ImpactPatient, ImpactFinancial, ImpactReputational:
		return true
	}
	return false
}

// Status tracks an incident's handling. The machine is forward-only:
// OPEN -> UNDER_INVESTIGATION -> RESOLVED -> CLOSED.
type Status string

const (
	StatusOpen               Status = "OPEN"
	StatusUnderInvestigation Status = "UNDER_INVESTIGATION"
	StatusResolved           Status = "RESOLVED"
	StatusClosed             Status = "CLOSED"
)

// RootCauseCategory is the confirmed classification of why an incident
// happened.
type RootCauseCategory string

const (
	RootCausePromptDesign    RootCauseCategory = "Prompt design"
	RootCauseRAGDataIssue    RootCauseCategory = "RAG data issue"
	RootCauseModelLimitation RootCauseCategory = "Model limitation"
	RootCauseUserMisuse      RootCauseCategory = "User misuse"
	RootCauseUnknown         RootCauseCategory = "Unknown"
)

// ValidRootCauseCategory reports whether c is a known category.
func ValidRootCauseCategory(c RootCauseCategory) bool {
	switch c {
	case RootCausePromptDesign, RootCauseRAGDataIssue, RootCauseModelLimitation, RootCauseUserMisuse, RootCauseUnknown:
		return true
	}
	return false
}

// TriageStatus tracks whether the machine suggestion has been reviewed.
type TriageStatus string

const (
	TriageSuggested  TriageStatus = "SUGGESTED"
	TriageConfirmed  TriageStatus = "CONFIRMED"
	TriageOverridden TriageStatus = "OVERRIDDEN"
)

// AIIncident is a reported incident against a governed AI system.
type AIIncident struct {
	ID                         string            `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	AISystemID                 string            `gorm:"column:ai_system_id;type:varchar(36);not null;index" json:"ai_system_id"`
	IncidentType               Type              `gorm:"column:incident_type;not null" json:"incident_type"`
	Description                string            `gorm:"column:description;type:text;not null" json:"description"`
	ContainsPersonalData       bool              `gorm:"column:contains_personal_data;not null;default:false" json:"contains_personal_data"`
	Severity                   string            `gorm:"column:severity;not null" json:"severity"`
	ImpactArea                 ImpactArea        `gorm:"column:impact_area;not null" json:"impact_area"`
	DetectedBy                 string            `gorm:"column:detected_by;not null" json:"detected_by"`
	DetectionDate              time.Time         `gorm:"column:detection_date;autoCreateTime" json:"detection_date"`
	Status                     Status            `gorm:"column:status;not null;default:OPEN" json:"status"`
	RootCauseCategory          RootCauseCategory `gorm:"column:root_cause_category" json:"root_cause_category,omitempty"`
	RootCauseDescription       string            `gorm:"column:root_cause_description;type:text" json:"root_cause_description,omitempty"`
	CorrectiveChangeRequestID  string            `gorm:"column:corrective_change_request_id;type:varchar(36)" json:"corrective_change_request_id,omitempty"`
	TriageSuggestedSeverity    string            `gorm:"column:triage_suggested_severity" json:"triage_suggested_severity,omitempty"`
	TriageSuggestedOwnerRole   string            `gorm:"column:triage_suggested_owner_role" json:"triage_suggested_owner_role,omitempty"`
	TriageSuggestedRootCause   string            `gorm:"column:triage_suggested_root_cause_category" json:"triage_suggested_root_cause_category,omitempty"`
	TriageSuggestionReason     string            `gorm:"column:triage_suggestion_reason;type:text" json:"triage_suggestion_reason,omitempty"`
	TriageStatus               TriageStatus      `gorm:"column:triage_status" json:"triage_status,omitempty"`
	TriageConfirmedBy          string            `gorm:"column:triage_confirmed_by" json:"triage_confirmed_by,omitempty"`
	TriageConfirmedAt          *time.Time        `gorm:"column:triage_confirmed_at" json:"triage_confirmed_at,omitempty"`
	TriageOverrideReason       string            `gorm:"column:triage_override_reason;type:text" json:"triage_override_reason,omitempty"`
	AssignedToRole             string            `gorm:"column:assigned_to_role;index" json:"assigned_to_role,omitempty"`
	AssignedToUser             string            `gorm:"column:assigned_to_user" json:"assigned_to_user,omitempty"`
	AssignedAt                 *time.Time        `gorm:"column:assigned_at" json:"assigned_at,omitempty"`
	CreatedAt                  time.Time         `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	CreatedBy                  string            `gorm:"column:created_by;not null" json:"created_by"`
}

// TableName specifies the database table name.
func (AIIncident) TableName() string {
	return "ai_incidents"
}
