package artifact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/change"
)

// PromptStore provides CRUD and versioning operations for prompt templates.
type PromptStore struct {
	db *gorm.DB
}

// NewPromptStore creates a new PromptStore.
func NewPromptStore(db *gorm.DB) *PromptStore {
	return &PromptStore{db: db}
}

// AutoMigrate creates or updates the prompt tables.
func (s *PromptStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&PromptTemplate{}); err != nil {
		return fmt.Errorf("auto-migrate prompt_templates: %w", err)
	}
	if err := s.db.AutoMigrate(&PromptVersion{}); err != nil {
		return fmt.Errorf("auto-migrate prompt_versions: %w", err)
	}
	return nil
}

// CreateTemplate registers a new prompt template family.
func (s *PromptStore) CreateTemplate(name, description, actor string) (*PromptTemplate, error) {
	if name == "" {
		return nil, apierrors.Validation("name", "must not be empty")
	}
	template := &PromptTemplate{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedBy:   actor,
	}
	if err := s.db.Create(template).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apierrors.Conflict(fmt.Sprintf("prompt template name %q already exists", name))
		}
		return nil, fmt.Errorf("create prompt template: %w", err)
	}
	return template, nil
}

// GetTemplate retrieves a prompt template by ID.
func (s *PromptStore) GetTemplate(id string) (*PromptTemplate, error) {
	var template PromptTemplate
	err := s.db.Where("id = ?", id).First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("prompt template", id)
		}
		return nil, fmt.Errorf("get prompt template: %w", err)
	}
	return &template, nil
}

// ListTemplates returns all prompt templates ordered by creation time.
func (s *PromptStore) ListTemplates() ([]PromptTemplate, error) {
	var templates []PromptTemplate
	if err := s.db.Order("created_at ASC, id ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list prompt templates: %w", err)
	}
	return templates, nil
}

// CreateVersion appends a new draft version to a template. Version numbers
// are assigned sequentially under a row lock on the template; the unique
// index on (template, version) turns any residual race into a Conflict.
func (s *PromptStore) CreateVersion(templateID string, content PromptContent, actor string) (*PromptVersion, error) {
	if content.PromptText == "" {
		return nil, apierrors.Validation("prompt_text", "must not be empty")
	}

	var version *PromptVersion
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var template PromptTemplate
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", templateID).First(&template).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.NotFound("prompt template", templateID)
			}
			return fmt.Errorf("get prompt template: %w", err)
		}

		var prev PromptVersion
		hasPrev := true
		err = tx.Where("prompt_template_id = ?", templateID).
			Order("version DESC").First(&prev).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("get latest prompt version: %w", err)
			}
			hasPrev = false
		}

		nextNumber := 1
		prevCanonical := ""
		if hasPrev {
			nextNumber = prev.Version + 1
			prevCanonical, err = PromptKind.Canonicalize(PromptContent{
				PromptText:       prev.PromptText,
				ParametersSchema: prev.ParametersSchema,
			})
			if err != nil {
				return err
			}
		}

		canonical, err := PromptKind.Canonicalize(content)
		if err != nil {
			return err
		}
		diff, err := unifiedDiff(prevCanonical, canonical, hasPrev)
		if err != nil {
			return err
		}

		version = &PromptVersion{
			ID:               uuid.New().String(),
			TemplateID:       templateID,
			Version:          nextNumber,
			Status:           VersionDraft,
			PromptText:       content.PromptText,
			ParametersSchema: content.ParametersSchema,
			ContentHash:      contentHash(canonical),
			DiffFromPrev:     diff,
			CreatedBy:        actor,
		}
		if err := tx.Create(version).Error; err != nil {
			if isUniqueViolation(err) {
				return apierrors.Conflict(fmt.Sprintf("version %d already exists for template %s", nextNumber, templateID))
			}
			return fmt.Errorf("create prompt version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// ListVersions returns a template's versions in ascending version order.
func (s *PromptStore) ListVersions(templateID string) ([]PromptVersion, error) {
	var versions []PromptVersion
	err := s.db.Where("prompt_template_id = ?", templateID).
		Order("version ASC").Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("list prompt versions: %w", err)
	}
	return versions, nil
}

// GetVersion retrieves a prompt version by ID.
func (s *PromptStore) GetVersion(id string) (*PromptVersion, error) {
	var version PromptVersion
	err := s.db.Where("id = ?", id).First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("prompt version", id)
		}
		return nil, fmt.Errorf("get prompt version: %w", err)
	}
	return &version, nil
}

// SubmitVersion links a draft version to a submitted change request and moves
// it to SUBMITTED. A version already linked to a different request conflicts.
func (s *PromptStore) SubmitVersion(versionID, changeRequestID string) (*PromptVersion, error) {
	var version *PromptVersion
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var v PromptVersion
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", versionID).First(&v).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.NotFound("prompt version", versionID)
			}
			return fmt.Errorf("get prompt version: %w", err)
		}

		if err := checkSubmittable(tx, v.Status, v.ChangeRequestID, changeRequestID); err != nil {
			return err
		}

		err = tx.Model(&v).Updates(map[string]any{
			"status":            VersionSubmitted,
			"change_request_id": changeRequestID,
		}).Error
		if err != nil {
			return fmt.Errorf("submit prompt version: %w", err)
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

// checkSubmittable enforces the shared preconditions for linking an artifact
// version to a change request.
func checkSubmittable(tx *gorm.DB, status VersionStatus, linkedCR, requestedCR string) error {
	if status != VersionDraft {
		return apierrors.InvalidTransition(string(status), string(VersionSubmitted))
	}
	if linkedCR != "" && linkedCR != requestedCR {
		return apierrors.Conflict("version already linked to another change request")
	}

	var cr change.ChangeRequest
	err := tx.Where("id = ?", requestedCR).First(&cr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierrors.NotFound("change request", requestedCR)
		}
		return fmt.Errorf("get change request: %w", err)
	}
	if cr.Status != change.StatusSubmitted {
		return apierrors.Conflict(fmt.Sprintf("change request must be submitted before linking, got %s", cr.Status))
	}
	return nil
}

// isUniqueViolation sniffs driver-specific unique constraint errors.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "constraint failed")
}
