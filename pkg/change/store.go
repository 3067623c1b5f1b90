package change

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/authz"
	"github.com/aigovtower/grc-registry/pkg/registry"
)

// Store provides CRUD and workflow operations for change requests.
type Store struct {
	db     *gorm.DB
	policy *authz.TransitionPolicy
}

// NewStore creates a new change-request Store with the default workflow policy.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, policy: DefaultWorkflowPolicy()}
}

// AutoMigrate creates or updates the change_requests table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&ChangeRequest{}); err != nil {
		return fmt.Errorf("auto-migrate change_requests: %w", err)
	}
	return nil
}

// CreateInput carries the caller-supplied fields for a new change request.
type CreateInput struct {
	ChangeType            ChangeType `json:"change_type"`
	Description           string     `json:"description"`
	BusinessJustification string     `json:"business_justification"`
	ImpactAssessment      string     `json:"impact_assessment"`
	RollbackPlan          string     `json:"rollback_plan"`
	ContainsPersonalData  bool       `json:"contains_personal_data"`
}

// Create opens a draft change request against an existing AI system.
func (s *Store) Create(systemID string, in CreateInput, actor string) (*ChangeRequest, error) {
	if !ValidChangeType(in.ChangeType) {
		return nil, apierrors.Validation("change_type", fmt.Sprintf("unknown value %q", in.ChangeType))
	}
	if in.Description == "" {
		return nil, apierrors.Validation("description", "must not be empty")
	}

	var system registry.AISystem
	if err := s.db.Where("id = ?", systemID).First(&system).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("AI system", systemID)
		}
		return nil, fmt.Errorf("get ai system: %w", err)
	}

	cr := &ChangeRequest{
		ID:                    uuid.New().String(),
		AISystemID:            systemID,
		ChangeType:            in.ChangeType,
		Description:           in.Description,
		BusinessJustification: in.BusinessJustification,
		ImpactAssessment:      in.ImpactAssessment,
		RollbackPlan:          in.RollbackPlan,
		ContainsPersonalData:  in.ContainsPersonalData,
		Status:                StatusDraft,
		RequestedBy:           actor,
	}
	if err := s.db.Create(cr).Error; err != nil {
		return nil, fmt.Errorf("create change request: %w", err)
	}
	return cr, nil
}

// Get retrieves a change request by ID.
func (s *Store) Get(id string) (*ChangeRequest, error) {
	var cr ChangeRequest
	err := s.db.Where("id = ?", id).First(&cr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("change request", id)
		}
		return nil, fmt.Errorf("get change request: %w", err)
	}
	return &cr, nil
}

// List returns all change requests, newest first.
func (s *Store) List() ([]ChangeRequest, error) {
	var crs []ChangeRequest
	if err := s.db.Order("created_at DESC, id ASC").Find(&crs).Error; err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return crs, nil
}

// ListBySystem returns all change requests for one AI system, newest first.
func (s *Store) ListBySystem(systemID string) ([]ChangeRequest, error) {
	var crs []ChangeRequest
	err := s.db.Where("ai_system_id = ?", systemID).
		Order("created_at DESC, id ASC").Find(&crs).Error
	if err != nil {
		return nil, fmt.Errorf("list change requests by system: %w", err)
	}
	return crs, nil
}

// TransitionResult reports a committed workflow transition.
type TransitionResult struct {
	ID        string     `json:"id"`
	OldStatus Status     `json:"old_status"`
	NewStatus Status     `json:"new_status"`
	Actor     string     `json:"actor"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// Submit moves a draft request into review. Any approver fields left from a
// previous cycle are cleared so the review starts clean.
func (s *Store) Submit(id string, identity authz.Identity) (*TransitionResult, error) {
	return s.transition(id, StatusSubmitted, identity, func(tx *gorm.DB, cr *ChangeRequest) error {
		return tx.Model(cr).Updates(map[string]any{
			"status":      StatusSubmitted,
			"approved_by": "",
			"approved_at": nil,
		}).Error
	}, nil)
}

// Approve moves a submitted request to approved. The workflow policy reserves
// this edge for the COMPLIANCE role; ADMIN alone is not sufficient.
func (s *Store) Approve(id string, identity authz.Identity) (*TransitionResult, error) {
	now := time.Now().UTC()
	return s.transition(id, StatusApproved, identity, func(tx *gorm.DB, cr *ChangeRequest) error {
		return tx.Model(cr).Updates(map[string]any{
			"status":      StatusApproved,
			"approved_by": identity.User,
			"approved_at": now,
		}).Error
	}, &now)
}

// Reject moves a submitted request to the terminal rejected state.
func (s *Store) Reject(id string, identity authz.Identity) (*TransitionResult, error) {
	now := time.Now().UTC()
	return s.transition(id, StatusRejected, identity, func(tx *gorm.DB, cr *ChangeRequest) error {
		return tx.Model(cr).Updates(map[string]any{
			"status":      StatusRejected,
			"approved_by": identity.User,
			"approved_at": now,
		}).Error
	}, &now)
}

// Implement marks an approved request as carried out and stamps the owning
// AI system's last-change fields in the same transaction.
func (s *Store) Implement(id string, identity authz.Identity) (*TransitionResult, error) {
	now := time.Now().UTC()
	return s.transition(id, StatusImplemented, identity, func(tx *gorm.DB, cr *ChangeRequest) error {
		err := tx.Model(cr).Updates(map[string]any{
			"status":      StatusImplemented,
			"approved_by": identity.User,
			"approved_at": now,
		}).Error
		if err != nil {
			return err
		}
		return registry.StampChange(tx, cr.AISystemID, cr.ID, now)
	}, &now)
}

// transition loads and row-locks the request, validates the edge against the
// workflow graph and the transition policy, and runs the mutation inside one
// transaction.
func (s *Store) transition(id string, next Status, identity authz.Identity, mutate func(tx *gorm.DB, cr *ChangeRequest) error, decidedAt *time.Time) (*TransitionResult, error) {
	var result *TransitionResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var cr ChangeRequest
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&cr).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.NotFound("change request", id)
			}
			return fmt.Errorf("get change request: %w", err)
		}

		current := cr.Status
		if err := ValidateTransition(current, next); err != nil {
			return err
		}
		if err := s.policy.Authorize(identity, string(current), string(next)); err != nil {
			return err
		}
		if err := mutate(tx, &cr); err != nil {
			return fmt.Errorf("update change request: %w", err)
		}

		result = &TransitionResult{
			ID:        cr.ID,
			OldStatus: current,
			NewStatus: next,
			Actor:     identity.User,
			DecidedAt: decidedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
