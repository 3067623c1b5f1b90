// Package change implements the change-request approval workflow: every
// modification to a governed AI system is proposed, reviewed, and implemented
// through a ChangeRequest moving along a fixed state machine.
package change

import "time"

// ChangeType classifies what part of the system a request modifies.
type ChangeType string

const (
	TypeModel     ChangeType = "model"
	TypePrompt    ChangeType = "prompt"
	TypeRAGSource ChangeType = "rag_source"
	TypeConfig    ChangeType = "config"
)

// ValidChangeType reports whether t is a known change type.
func ValidChangeType(t ChangeType) bool {
	switch t {
	case TypeModel, TypePrompt, TypeRAGSource, TypeConfig:
		return true
	}
	return false
}

// Status is a change request's position in the approval workflow.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusImplemented Status = "implemented"
)

// ChangeRequest is a proposed modification to an AI system.
type ChangeRequest struct {
	ID                    string     `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	AISystemID            string     `gorm:"column:ai_system_id;type:varchar(36);not null;index" json:"ai_system_id"`
	ChangeType            ChangeType `gorm:"column:change_type;not null" json:"change_type"`
	Description           string     `gorm:"column:description;type:text;not null" json:"description"`
	BusinessJustification string     `gorm:"column:business_justification;type:text;not null" json:"business_justification"`
	ImpactAssessment      string     `gorm:"column:impact_assessment;type:text;not null" json:"impact_assessment"`
	RollbackPlan          string     `gorm:"column:rollback_plan;type:text;not null" json:"rollback_plan"`
	ContainsPersonalData  bool       `gorm:"column:contains_personal_data;not null;default:false" json:"contains_personal_data"`
	Status                Status     `gorm:"column:status;not null;default:draft" json:"status"`
	RequestedBy           string     `gorm:"column:requested_by;not null" json:"requested_by"`
	ApprovedBy            string     `gorm:"column:approved_by" json:"approved_by,omitempty"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	ApprovedAt            *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
}

// TableName specifies the database table name.
func (ChangeRequest) TableName() string {
	return "change_requests"
}
