// Package audit provides the tamper-evident audit trail: an append-only log
// of governance actions with canonical payload hashes and state-transition
// hashes, written by handlers after their business transaction commits.
package audit

import (
	"time"

	"github.com/aigovtower/grc-registry/pkg/db"
)

// LogRecord is one immutable audit trail entry.
type LogRecord struct {
	ID          string     `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Timestamp   time.Time  `gorm:"column:timestamp;not null;index" json:"timestamp"`
	Actor       string     `gorm:"column:actor;not null;index" json:"actor"`
	Action      string     `gorm:"column:action;not null;index" json:"action"`
	EntityType  string     `gorm:"column:entity_type;index" json:"entity_type,omitempty"`
	EntityID    string     `gorm:"column:entity_id;index" json:"entity_id,omitempty"`
	PayloadHash string     `gorm:"column:payload_hash;not null" json:"payload_hash"`
	PrevState   string     `gorm:"column:prev_state" json:"prev_state,omitempty"`
	NewState    string     `gorm:"column:new_state" json:"new_state,omitempty"`
	StateHash   string     `gorm:"column:state_hash" json:"state_hash,omitempty"`
	Metadata    db.JSONAny `gorm:"column:metadata;type:text" json:"metadata,omitempty"`
}

// TableName specifies the database table name.
func (LogRecord) TableName() string {
	return "audit_logs"
}
