package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/authz"
)

// SystemStore provides CRUD and lifecycle operations for AI system records.
type SystemStore struct {
	db      *gorm.DB
	machine *LifecycleMachine
	policy  *authz.TransitionPolicy
}

// NewSystemStore creates a new SystemStore with the default lifecycle machine
// and transition policy.
func NewSystemStore(db *gorm.DB) *SystemStore {
	return &SystemStore{db: db, machine: NewLifecycleMachine(), policy: DefaultLifecyclePolicy()}
}

// NewSystemStoreWithMachine creates a SystemStore with a custom lifecycle
// machine and transition policy.
func NewSystemStoreWithMachine(db *gorm.DB, machine *LifecycleMachine, policy *authz.TransitionPolicy) *SystemStore {
	return &SystemStore{db: db, machine: machine, policy: policy}
}

// AutoMigrate creates or updates the ai_systems table.
func (s *SystemStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&AISystem{}); err != nil {
		return fmt.Errorf("auto-migrate ai_systems: %w", err)
	}
	return nil
}

// Machine returns the lifecycle machine the store validates transitions with.
func (s *SystemStore) Machine() *LifecycleMachine {
	return s.machine
}

// CreateInput carries the caller-supplied fields for a new AI system.
type CreateInput struct {
	Name               string             `json:"name"`
	BusinessPurpose    string             `json:"business_purpose"`
	IntendedUsers      string             `json:"intended_users"`
	RiskClassification RiskClassification `json:"risk_classification"`
	Owner              string             `json:"owner"`
}

// Create registers a new AI system in the draft state.
func (s *SystemStore) Create(in CreateInput, actor string) (*AISystem, error) {
	if in.Name == "" {
		return nil, apierrors.Validation("name", "must not be empty")
	}
	if !ValidRiskClassification(in.RiskClassification) {
		return nil, apierrors.Validation("risk_classification", fmt.Sprintf("unknown value %q", in.RiskClassification))
	}

	system := &AISystem{
		ID:                 uuid.New().String(),
		Name:               in.Name,
		BusinessPurpose:    in.BusinessPurpose,
		IntendedUsers:      in.IntendedUsers,
		RiskClassification: in.RiskClassification,
		Owner:              in.Owner,
		LifecycleStatus:    StateDraft,
		CreatedBy:          actor,
	}

	if err := s.db.Create(system).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return nil, apierrors.Conflict(fmt.Sprintf("AI system name %q already exists", in.Name))
		}
		return nil, fmt.Errorf("create ai system: %w", err)
	}
	return system, nil
}

// Get retrieves an AI system by ID.
func (s *SystemStore) Get(id string) (*AISystem, error) {
	var system AISystem
	err := s.db.Where("id = ?", id).First(&system).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("AI system", id)
		}
		return nil, fmt.Errorf("get ai system: %w", err)
	}
	return &system, nil
}

// List returns all registered AI systems ordered by creation time.
func (s *SystemStore) List() ([]AISystem, error) {
	var systems []AISystem
	if err := s.db.Order("created_at ASC, id ASC").Find(&systems).Error; err != nil {
		return nil, fmt.Errorf("list ai systems: %w", err)
	}
	return systems, nil
}

// TransitionResult reports a committed lifecycle transition.
type TransitionResult struct {
	ID       string         `json:"id"`
	OldState LifecycleState `json:"old_state"`
	NewState LifecycleState `json:"new_state"`
}

// Transition moves an AI system to a new lifecycle state. The edge must exist
// in the machine's rule table and the actor must hold a role the transition
// policy accepts for it. The row is locked for the duration of the check so
// concurrent transitions serialize.
func (s *SystemStore) Transition(systemID string, to LifecycleState, id authz.Identity) (*TransitionResult, error) {
	var result *TransitionResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var system AISystem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", systemID).First(&system).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.NotFound("AI system", systemID)
			}
			return fmt.Errorf("get ai system: %w", err)
		}

		from := system.LifecycleStatus
		if err := s.machine.ValidateTransition(from, to); err != nil {
			return err
		}
		if err := s.policy.Authorize(id, string(from), string(to)); err != nil {
			return err
		}

		if err := tx.Model(&AISystem{}).Where("id = ?", systemID).
			Update("lifecycle_status", to).Error; err != nil {
			return fmt.Errorf("update lifecycle status: %w", err)
		}

		result = &TransitionResult{ID: systemID, OldState: from, NewState: to}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StampChange records that a change request was implemented against the
// system. Called by the change-request store inside its own transaction.
func StampChange(tx *gorm.DB, systemID, changeRequestID string, at time.Time) error {
	err := tx.Model(&AISystem{}).Where("id = ?", systemID).Updates(map[string]any{
		"last_change_request_id": changeRequestID,
		"last_changed_at":        at,
	}).Error
	if err != nil {
		return fmt.Errorf("stamp last change: %w", err)
	}
	return nil
}

// isUniqueViolation sniffs driver-specific unique constraint errors that GORM
// does not translate (sqlite and postgres report differently).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "constraint failed")
}
