package artifact

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/authz"
	"github.com/aigovtower/grc-registry/pkg/change"
	"github.com/aigovtower/grc-registry/pkg/registry"
)

// Binder activates approved artifact versions on AI systems. Activation is
// the only path by which a version reaches ACTIVE, and it maintains the
// invariant that a system has at most one open binding per artifact kind.
type Binder struct {
	db *gorm.DB
}

// NewBinder creates a new Binder.
func NewBinder(db *gorm.DB) *Binder {
	return &Binder{db: db}
}

// AutoMigrate creates or updates the binding tables.
func (b *Binder) AutoMigrate() error {
	if err := b.db.AutoMigrate(&PromptBinding{}); err != nil {
		return fmt.Errorf("auto-migrate ai_system_prompt_bindings: %w", err)
	}
	if err := b.db.AutoMigrate(&RAGBinding{}); err != nil {
		return fmt.Errorf("auto-migrate ai_system_rag_bindings: %w", err)
	}
	return nil
}

// Activation reports a committed activation.
type Activation struct {
	AISystemID      string    `json:"ai_system_id"`
	Kind            string    `json:"kind"`
	VersionID       string    `json:"version_id"`
	ChangeRequestID string    `json:"change_request_id"`
	ActivatedBy     string    `json:"activated_by"`
	ActiveFrom      time.Time `json:"active_from"`
}

// kindAdapter gives the shared activation flow the kind-specific version and
// binding operations.
type kindAdapter interface {
	kind() Kind
	versionState(tx *gorm.DB, versionID string) (status VersionStatus, linkedCR string, err error)
	setVersionActive(tx *gorm.DB, versionID string) error
	closeOpenBindings(tx *gorm.DB, systemID string, at time.Time) error
	insertBinding(tx *gorm.DB, systemID, versionID, changeRequestID, actor string, at time.Time) error
}

// ActivatePrompt binds a submitted prompt version to an AI system.
func (b *Binder) ActivatePrompt(systemID, versionID, changeRequestID string, id authz.Identity) (*Activation, error) {
	return b.activate(promptAdapter{}, systemID, versionID, changeRequestID, id)
}

// ActivateRAG binds a submitted RAG source version to an AI system.
func (b *Binder) ActivateRAG(systemID, versionID, changeRequestID string, id authz.Identity) (*Activation, error) {
	return b.activate(ragAdapter{}, systemID, versionID, changeRequestID, id)
}

// activate runs the precondition chain and the close-then-insert swap in one
// transaction. The AI system row is locked first so concurrent activations
// against the same system serialize.
func (b *Binder) activate(a kindAdapter, systemID, versionID, changeRequestID string, id authz.Identity) (*Activation, error) {
	var activation *Activation
	err := b.db.Transaction(func(tx *gorm.DB) error {
		var system registry.AISystem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", systemID).First(&system).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.NotFound("AI system", systemID)
			}
			return fmt.Errorf("get ai system: %w", err)
		}

		if system.RiskClassification.IsElevated() &&
			!id.Roles.HasAny(authz.RoleCompliance, authz.RoleAdmin) {
			return apierrors.Forbidden(string(authz.RoleCompliance), string(authz.RoleAdmin))
		}

		status, linkedCR, err := a.versionState(tx, versionID)
		if err != nil {
			return err
		}

		var cr change.ChangeRequest
		err = tx.Where("id = ?", changeRequestID).First(&cr).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.NotFound("change request", changeRequestID)
			}
			return fmt.Errorf("get change request: %w", err)
		}
		if cr.Status != change.StatusApproved {
			return apierrors.Conflict(fmt.Sprintf("change request must be approved before activation, got %s", cr.Status))
		}
		if linkedCR != changeRequestID {
			return apierrors.Conflict("version not linked to this change request")
		}
		if status != VersionSubmitted {
			return apierrors.InvalidTransition(string(status), string(VersionActive))
		}

		now := time.Now().UTC()
		if err := a.closeOpenBindings(tx, systemID, now); err != nil {
			return err
		}
		if err := a.insertBinding(tx, systemID, versionID, changeRequestID, id.User, now); err != nil {
			return err
		}
		if err := a.setVersionActive(tx, versionID); err != nil {
			return err
		}

		activation = &Activation{
			AISystemID:      systemID,
			Kind:            a.kind().Label(),
			VersionID:       versionID,
			ChangeRequestID: changeRequestID,
			ActivatedBy:     id.User,
			ActiveFrom:      now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activation, nil
}

type promptAdapter struct{}

func (promptAdapter) kind() Kind { return PromptKind }

func (promptAdapter) versionState(tx *gorm.DB, versionID string) (VersionStatus, string, error) {
	var v PromptVersion
	err := tx.Where("id = ?", versionID).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", apierrors.NotFound("prompt version", versionID)
		}
		return "", "", fmt.Errorf("get prompt version: %w", err)
	}
	return v.Status, v.ChangeRequestID, nil
}

func (promptAdapter) setVersionActive(tx *gorm.DB, versionID string) error {
	err := tx.Model(&PromptVersion{}).Where("id = ?", versionID).
		Update("status", VersionActive).Error
	if err != nil {
		return fmt.Errorf("activate prompt version: %w", err)
	}
	return nil
}

func (promptAdapter) closeOpenBindings(tx *gorm.DB, systemID string, at time.Time) error {
	err := tx.Model(&PromptBinding{}).
		Where("ai_system_id = ? AND active_to IS NULL", systemID).
		Update("active_to", at).Error
	if err != nil {
		return fmt.Errorf("close open prompt bindings: %w", err)
	}
	return nil
}

func (promptAdapter) insertBinding(tx *gorm.DB, systemID, versionID, changeRequestID, actor string, at time.Time) error {
	binding := &PromptBinding{
		ID:              uuid.New().String(),
		AISystemID:      systemID,
		PromptVersionID: versionID,
		ActiveFrom:      at,
		ActivatedBy:     actor,
		ChangeRequestID: changeRequestID,
	}
	if err := tx.Create(binding).Error; err != nil {
		return fmt.Errorf("create prompt binding: %w", err)
	}
	return nil
}

type ragAdapter struct{}

func (ragAdapter) kind() Kind { return RAGKind }

func (ragAdapter) versionState(tx *gorm.DB, versionID string) (VersionStatus, string, error) {
	var v RAGSourceVersion
	err := tx.Where("id = ?", versionID).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", apierrors.NotFound("rag source version", versionID)
		}
		return "", "", fmt.Errorf("get rag source version: %w", err)
	}
	return v.Status, v.ChangeRequestID, nil
}

func (ragAdapter) setVersionActive(tx *gorm.DB, versionID string) error {
	err := tx.Model(&RAGSourceVersion{}).Where("id = ?", versionID).
		Update("status", VersionActive).Error
	if err != nil {
		return fmt.Errorf("activate rag source version: %w", err)
	}
	return nil
}

func (ragAdapter) closeOpenBindings(tx *gorm.DB, systemID string, at time.Time) error {
	err := tx.Model(&RAGBinding{}).
		Where("ai_system_id = ? AND active_to IS NULL", systemID).
		Update("active_to", at).Error
	if err != nil {
		return fmt.Errorf("close open rag bindings: %w", err)
	}
	return nil
}

func (ragAdapter) insertBinding(tx *gorm.DB, systemID, versionID, changeRequestID, actor string, at time.Time) error {
	binding := &RAGBinding{
		ID:                 uuid.New().String(),
		AISystemID:         systemID,
		RAGSourceVersionID: versionID,
		ActiveFrom:         at,
		ActivatedBy:        actor,
		ChangeRequestID:    changeRequestID,
	}
	if err := tx.Create(binding).Error; err != nil {
		return fmt.Errorf("create rag binding: %w", err)
	}
	return nil
}

// OpenPromptBinding returns a system's currently open prompt binding, or nil
// if none exists.
func (b *Binder) OpenPromptBinding(systemID string) (*PromptBinding, error) {
	var binding PromptBinding
	err := b.db.Where("ai_system_id = ? AND active_to IS NULL", systemID).First(&binding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get open prompt binding: %w", err)
	}
	return &binding, nil
}

// OpenRAGBinding returns a system's currently open RAG binding, or nil if
// none exists.
func (b *Binder) OpenRAGBinding(systemID string) (*RAGBinding, error) {
	var binding RAGBinding
	err := b.db.Where("ai_system_id = ? AND active_to IS NULL", systemID).First(&binding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get open rag binding: %w", err)
	}
	return &binding, nil
}
