package artifact

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
)

// RAGStore provides CRUD and versioning operations for RAG sources.
type RAGStore struct {
	db *gorm.DB
}

// NewRAGStore creates a new RAGStore.
func NewRAGStore(db *gorm.DB) *RAGStore {
	return &RAGStore{db: db}
}

// AutoMigrate creates or updates the RAG source tables.
func (s *RAGStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&RAGSource{}); err != nil {
		return fmt.Errorf("auto-migrate rag_sources: %w", err)
	}
	if err := s.db.AutoMigrate(&RAGSourceVersion{}); err != nil {
		return fmt.Errorf("auto-migrate rag_source_versions: %w", err)
	}
	return nil
}

// CreateSource registers a new RAG source family.
func (s *RAGStore) CreateSource(name, description string, sourceType RAGSourceType, actor string) (*RAGSource, error) {
	if name == "" {
		return nil, apierrors.Validation("name", "must not be empty")
	}
	if !ValidRAGSourceType(sourceType) {
		return nil, apierrors.Validation("source_type", fmt.Sprintf("unknown value %q", sourceType))
	}
	source := &RAGSource{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		SourceType:  sourceType,
		CreatedBy:   actor,
	}
	if err := s.db.Create(source).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apierrors.Conflict(fmt.Sprintf("rag source name %q already exists", name))
		}
		return nil, fmt.Errorf("create rag source: %w", err)
	}
	return source, nil
}

// GetSource retrieves a RAG source by ID.
func (s *RAGStore) GetSource(id string) (*RAGSource, error) {
	var source RAGSource
	err := s.db.Where("id = ?", id).First(&source).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("rag source", id)
		}
		return nil, fmt.Errorf("get rag source: %w", err)
	}
	return &source, nil
}

// ListSources returns all RAG sources ordered by creation time.
func (s *RAGStore) ListSources() ([]RAGSource, error) {
	var sources []RAGSource
	if err := s.db.Order("created_at ASC, id ASC").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("list rag sources: %w", err)
	}
	return sources, nil
}

// CreateVersion appends a new draft version to a RAG source. Same numbering
// discipline as prompt versions: row lock on the source plus a unique index
// on (source, version).
func (s *RAGStore) CreateVersion(sourceID string, content RAGContent, actor string) (*RAGSourceVersion, error) {
	if content.URI == "" {
		return nil, apierrors.Validation("uri", "must not be empty")
	}

	var version *RAGSourceVersion
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var source RAGSource
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", sourceID).First(&source).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.NotFound("rag source", sourceID)
			}
			return fmt.Errorf("get rag source: %w", err)
		}

		var prev RAGSourceVersion
		hasPrev := true
		err = tx.Where("rag_source_id = ?", sourceID).
			Order("version DESC").First(&prev).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("get latest rag source version: %w", err)
			}
			hasPrev = false
		}

		nextNumber := 1
		prevCanonical := ""
		if hasPrev {
			nextNumber = prev.Version + 1
			prevCanonical, err = RAGKind.Canonicalize(RAGContent{
				URI:             prev.URI,
				IngestionConfig: prev.IngestionConfig,
				EmbeddingConfig: prev.EmbeddingConfig,
			})
			if err != nil {
				return err
			}
		}

		canonical, err := RAGKind.Canonicalize(content)
		if err != nil {
			return err
		}
		diff, err := unifiedDiff(prevCanonical, canonical, hasPrev)
		if err != nil {
			return err
		}

		version = &RAGSourceVersion{
			ID:              uuid.New().String(),
			SourceID:        sourceID,
			Version:         nextNumber,
			Status:          VersionDraft,
			URI:             content.URI,
			IngestionConfig: content.IngestionConfig,
			EmbeddingConfig: content.EmbeddingConfig,
			ContentHash:     contentHash(canonical),
			DiffFromPrev:    diff,
			CreatedBy:       actor,
		}
		if err := tx.Create(version).Error; err != nil {
			if isUniqueViolation(err) {
				return apierrors.Conflict(fmt.Sprintf("version %d already exists for rag source %s", nextNumber, sourceID))
			}
			return fmt.Errorf("create rag source version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// ListVersions returns a RAG source's versions in ascending version order.
func (s *RAGStore) ListVersions(sourceID string) ([]RAGSourceVersion, error) {
	var versions []RAGSourceVersion
	err := s.db.Where("rag_source_id = ?", sourceID).
		Order("version ASC").Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("list rag source versions: %w", err)
	}
	return versions, nil
}

// GetVersion retrieves a RAG source version by ID.
func (s *RAGStore) GetVersion(id string) (*RAGSourceVersion, error) {
	var version RAGSourceVersion
	err := s.db.Where("id = ?", id).First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("rag source version", id)
		}
		return nil, fmt.Errorf("get rag source version: %w", err)
	}
	return &version, nil
}

// SubmitVersion links a draft version to a submitted change request and moves
// it to SUBMITTED.
func (s *RAGStore) SubmitVersion(versionID, changeRequestID string) (*RAGSourceVersion, error) {
	var version *RAGSourceVersion
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var v RAGSourceVersion
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", versionID).First(&v).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.NotFound("rag source version", versionID)
			}
			return fmt.Errorf("get rag source version: %w", err)
		}

		if err := checkSubmittable(tx, v.Status, v.ChangeRequestID, changeRequestID); err != nil {
			return err
		}

		err = tx.Model(&v).Updates(map[string]any{
			"status":            VersionSubmitted,
			"change_request_id": changeRequestID,
		}).Error
		if err != nil {
			return fmt.Errorf("submit rag source version: %w", err)
		}

		v.Status = VersionSubmitted
		v.ChangeRequestID = changeRequestID
		version = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}
