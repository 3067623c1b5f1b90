package audit

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Store provides append-only operations for audit log records. There is no
// update or delete path; the trail only grows.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new audit Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the audit_logs table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&LogRecord{}); err != nil {
		return fmt.Errorf("auto-migrate audit_logs: %w", err)
	}
	return nil
}

// Append creates a new immutable audit log record.
func (s *Store) Append(record *LogRecord) error {
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// ListFilter narrows ListAll results. Zero values mean no filtering.
type ListFilter struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   string
}

// ListAll returns paginated audit log records, newest first. pageToken is an
// RFC3339Nano timestamp; records with timestamp < pageToken are returned.
func (s *Store) ListAll(filter ListFilter, pageSize int, pageToken string) ([]LogRecord, string, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := s.db.Model(&LogRecord{}).Order("timestamp DESC").Limit(pageSize + 1)
	if filter.Actor != "" {
		query = query.Where("actor = ?", filter.Actor)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("timestamp < ?", t)
	}

	var records []LogRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", fmt.Errorf("list audit logs: %w", err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].Timestamp.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}

	return records, nextToken, nil
}

// ListByEntity returns all audit records for one entity, oldest first, so an
// auditor can replay the entity's history in order.
func (s *Store) ListByEntity(entityType, entityID string) ([]LogRecord, error) {
	var records []LogRecord
	err := s.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("timestamp ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list audit logs by entity: %w", err)
	}
	return records, nil
}
