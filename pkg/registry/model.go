// Package registry manages the inventory of governed AI systems: their
// registration records, risk classification, and lifecycle state machine.
package registry

import "time"

// RiskClassification grades the regulatory exposure of an AI system.
type RiskClassification string

const (
	RiskLow      RiskClassification = "low"
	RiskMedium   RiskClassification = "medium"
	RiskHigh     RiskClassification = "high"
	RiskCritical RiskClassification = "critical"
)

// ValidRiskClassification reports whether r is a known risk grade.
func ValidRiskClassification(r RiskClassification) bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// IsElevated reports whether the grade requires compliance involvement on
// activation and incident ownership.
func (r RiskClassification) IsElevated() bool {
	return r == RiskHigh || r == RiskCritical
}

// LifecycleState is a stage in an AI system's governance lifecycle.
type LifecycleState string

const (
	StateDraft      LifecycleState = "draft"
	StateSubmitted  LifecycleState = "submitted"
	StateApproved   LifecycleState = "approved"
	StateActive     LifecycleState = "active"
	StateDeprecated LifecycleState = "deprecated"
	StateRetired    LifecycleState = "retired"
)

// AISystem is the registration record for a governed AI system.
type AISystem struct {
	ID                  string             `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Name                string             `gorm:"column:name;uniqueIndex;not null" json:"name"`
	BusinessPurpose     string             `gorm:"column:business_purpose;type:text;not null" json:"business_purpose"`
	IntendedUsers       string             `gorm:"column:intended_users;type:text;not null" json:"intended_users"`
	RiskClassification  RiskClassification `gorm:"column:risk_classification;not null" json:"risk_classification"`
	Owner               string             `gorm:"column:owner;not null" json:"owner"`
	LifecycleStatus     LifecycleState     `gorm:"column:lifecycle_status;not null;default:draft" json:"lifecycle_status"`
	LastChangeRequestID string             `gorm:"column:last_change_request_id;type:varchar(36)" json:"last_change_request_id,omitempty"`
	LastChangedAt       *time.Time         `gorm:"column:last_changed_at" json:"last_changed_at,omitempty"`
	CreatedAt           time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	CreatedBy           string             `gorm:"column:created_by;not null" json:"created_by"`
}

// TableName specifies the database table name.
func (AISystem) TableName() string {
	return "ai_systems"
}
