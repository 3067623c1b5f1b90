// Package artifact manages the versioned governance artifacts an AI system
// runs on: prompt templates and RAG sources, their immutable numbered
// versions, and the activation bindings that tie an approved version to a
// system.
package artifact

import (
	"time"

	"github.com/aigovtower/grc-registry/pkg/db"
)

// VersionStatus is an artifact version's position in its lifecycle.
type VersionStatus string

const (
	VersionDraft     VersionStatus = "DRAFT"
	VersionSubmitted VersionStatus = "SUBMITTED"
	VersionActive    VersionStatus = "ACTIVE"
	VersionRetired   VersionStatus = "RETIRED"
)

// PromptTemplate is a named family of prompt versions.
type PromptTemplate struct {
	ID          string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Name        string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"column:description;type:text;not null" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	CreatedBy   string    `gorm:"column:created_by;not null" json:"created_by"`
}

// TableName specifies the database table name.
func (PromptTemplate) TableName() string {
	return "prompt_templates"
}

// PromptVersion is one immutable numbered revision of a prompt template.
// Version numbers are assigned sequentially per template.
type PromptVersion struct {
	ID               string        `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	TemplateID       string        `gorm:"column:prompt_template_id;type:varchar(36);not null;uniqueIndex:idx_prompt_template_version,priority:1" json:"prompt_template_id"`
	Version          int           `gorm:"column:version;not null;uniqueIndex:idx_prompt_template_version,priority:2" json:"version"`
	Status           VersionStatus `gorm:"column:status;not null;default:DRAFT" json:"status"`
	PromptText       string        `gorm:"column:prompt_text;type:text;not null" json:"prompt_text"`
	ParametersSchema db.JSONAny    `gorm:"column:parameters_schema;type:text" json:"parameters_schema,omitempty"`
	ContentHash      string        `gorm:"column:content_hash;not null" json:"content_hash"`
	DiffFromPrev     string        `gorm:"column:diff_from_prev;type:text" json:"diff_from_prev"`
	ChangeRequestID  string        `gorm:"column:change_request_id;type:varchar(36)" json:"change_request_id,omitempty"`
	CreatedAt        time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	CreatedBy        string        `gorm:"column:created_by;not null" json:"created_by"`
}

// TableName specifies the database table name.
func (PromptVersion) TableName() string {
	return "prompt_versions"
}

// RAGSourceType identifies where a retrieval corpus lives.
type RAGSourceType string

const (
	RAGSourceSharePoint RAGSourceType = "SharePoint"
	RAGSourceBlob       RAGSourceType = "Blob"
	RAGSourceWeb        RAGSourceType = "Web"
	RAGSourceConfluence RAGSourceType = "Confluence"
	RAGSourceFile       RAGSourceType = "File"
)

// ValidRAGSourceType reports whether t is a known source type.
func ValidRAGSourceType(t RAGSourceType) bool {
	switch t {
	case RAGSourceSharePoint, RAGSourceBlob, RAGSourceWeb, RAGSourceConfluence, RAGSourceFile:
		return true
	}
	return false
}

// RAGSource is a named family of retrieval-corpus configurations.
type RAGSource struct {
	ID          string        `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Name        string        `gorm:"column:name;uniqueIndex;not null" json:"name"`
	Description string        `gorm:"column:description;type:text;not null" json:"description"`
	SourceType  RAGSourceType `gorm:"column:source_type;not null" json:"source_type"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	CreatedBy   string        `gorm:"column:created_by;not null" json:"created_by"`
}

// TableName specifies the database table name.
func (RAGSource) TableName() string {
	return "rag_sources"
}

// RAGSourceVersion is one immutable numbered revision of a RAG source's
// retrieval configuration.
type RAGSourceVersion struct {
	ID              string        `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	SourceID        string        `gorm:"column:rag_source_id;type:varchar(36);not null;uniqueIndex:idx_rag_source_version,priority:1" json:"rag_source_id"`
	Version         int           `gorm:"column:version;not null;uniqueIndex:idx_rag_source_version,priority:2" json:"version"`
	Status          VersionStatus `gorm:"column:status;not null;default:DRAFT" json:"status"`
	URI             string        `gorm:"column:uri;type:text;not null" json:"uri"`
	IngestionConfig db.JSONAny    `gorm:"column:ingestion_config;type:text;not null" json:"ingestion_config"`
	EmbeddingConfig db.JSONAny    `gorm:"column:embedding_config;type:text;not null" json:"embedding_config"`
	ContentHash     string        `gorm:"column:content_hash;not null" json:"content_hash"`
	DiffFromPrev    string        `gorm:"column:diff_from_prev;type:text" json:"diff_from_prev"`
	ChangeRequestID string        `gorm:"column:change_request_id;type:varchar(36)" json:"change_request_id,omitempty"`
	CreatedAt       time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	CreatedBy       string        `gorm:"column:created_by;not null" json:"created_by"`
}

// TableName specifies the database table name.
func (RAGSourceVersion) TableName() string {
	return "rag_source_versions"
}

// PromptBinding records which prompt version an AI system ran between
// ActiveFrom and ActiveTo. An open binding has ActiveTo nil; at most one
// binding per system is open at a time.
type PromptBinding struct {
	ID              string     `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	AISystemID      string     `gorm:"column:ai_system_id;type:varchar(36);not null;index" json:"ai_system_id"`
	PromptVersionID string     `gorm:"column:prompt_version_id;type:varchar(36);not null" json:"prompt_version_id"`
	ActiveFrom      time.Time  `gorm:"column:active_from;not null" json:"active_from"`
	ActiveTo        *time.Time `gorm:"column:active_to" json:"active_to,omitempty"`
	ActivatedBy     string     `gorm:"column:activated_by;not null" json:"activated_by"`
	ChangeRequestID string     `gorm:"column:change_request_id;type:varchar(36);not null" json:"change_request_id"`
}

// TableName specifies the database table name.
func (PromptBinding) TableName() string {
	return "ai_system_prompt_bindings"
}

// RAGBinding records which RAG source version an AI system ran between
// ActiveFrom and ActiveTo. Same open-binding invariant as PromptBinding.
type RAGBinding struct {
	ID                 string     `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	AISystemID         string     `gorm:"column:ai_system_id;type:varchar(36);not null;index" json:"ai_system_id"`
	RAGSourceVersionID string     `gorm:"column:rag_source_version_id;type:varchar(36);not null" json:"rag_source_version_id"`
	ActiveFrom         time.Time  `gorm:"column:active_from;not null" json:"active_from"`
	ActiveTo           *time.Time `gorm:"column:active_to" json:"active_to,omitempty"`
	ActivatedBy        string     `gorm:"column:activated_by;not null" json:"activated_by"`
	ChangeRequestID    string     `gorm:"column:change_request_id;type:varchar(36);not null" json:"change_request_id"`
}

// TableName specifies the database table name.
func (RAGBinding) TableName() string {
	return "ai_system_rag_bindings"
}
