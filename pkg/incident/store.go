package incident

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/change"
	"github.com/aigovtower/grc-registry/pkg/registry"
	"github.com/aigovtower/grc-registry/pkg/triage"
)

// TriageSignals supplies the cross-aggregate risk signals the triage context
// needs. The risk metrics service implements it; tests may stub it.
type TriageSignals interface {
	// DriftFlag reports whether the system shows prompt drift, RAG drift,
	// or reactive change behavior.
	DriftFlag(systemID string) (bool, error)
	// ChangesLast30Days counts the system's change requests opened in the
	// last 30 days.
	ChangesLast30Days(systemID string) (int, error)
}

// Store provides incident intake and handling operations.
type Store struct {
	db      *gorm.DB
	engine  *triage.Engine
	signals TriageSignals
}

// NewStore creates an incident Store. engine drives the triage suggestion on
// intake; signals feeds its context.
func NewStore(db *gorm.DB, engine *triage.Engine, signals TriageSignals) *Store {
	return &Store{db: db, engine: engine, signals: signals}
}

// AutoMigrate creates or updates the ai_incidents table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&AIIncident{}); err != nil {
		return fmt.Errorf("auto-migrate ai_incidents: %w", err)
	}
	return nil
}

// CreateInput carries the caller-supplied fields for a new incident.
type CreateInput struct {
	IncidentType         Type       `json:"incident_type"`
	Severity             string     `json:"severity"`
	ImpactArea           ImpactArea `json:"impact_area"`
	Description          string     `json:"description"`
	ContainsPersonalData bool       `json:"contains_personal_data"`
}

// Create reports an incident. Triage runs synchronously: the suggestion
// fields are persisted with the incident and ownership is assigned, with a
// compliance override for incidents on elevated-risk systems.
func (s *Store) Create(systemID string, in CreateInput, actor string) (*AIIncident, error) {
	if !ValidType(in.IncidentType) {
		return nil, apierrors.Validation("incident_type", fmt.Sprintf("unknown value %q", in.IncidentType))
	}
	if !ValidImpactArea(in.ImpactArea) {
		return nil, apierrors.Validation("impact_area", fmt.Sprintf("unknown value %q", in.ImpactArea))
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

	ctx, err := s.buildTriageContext(&system, in.IncidentType)
	if err != nil {
		return nil, err
	}
	suggestion, err := s.engine.Suggest(ctx)
	if err != nil {
		return nil, err
	}

	reason := suggestion.Reason
	if suggestion.RootCauseExplanation != "" {
		reason = fmt.Sprintf("%s | RCA: %s", reason, suggestion.RootCauseExplanation)
	}

	now := time.Now().UTC()
	inc := &AIIncident{
		ID:                       uuid.New().String(),
		AISystemID:               systemID,
		IncidentType:             in.IncidentType,
		Description:              in.Description,
		ContainsPersonalData:     in.ContainsPersonalData,
		Severity:                 in.Severity,
		ImpactArea:               in.ImpactArea,
		DetectedBy:               actor,
		Status:                   StatusOpen,
		TriageSuggestedSeverity:  suggestion.Severity,
		TriageSuggestedOwnerRole: suggestion.OwnerRole,
		TriageSuggestedRootCause: suggestion.RootCause,
		TriageSuggestionReason:   reason,
		TriageStatus:             TriageSuggested,
		AssignedToRole:           suggestion.OwnerRole,
		AssignedAt:               &now,
		CreatedBy:                actor,
	}

	if system.RiskClassification.IsElevated() {
		inc.AssignedToRole = "COMPLIANCE"
		inc.TriageSuggestionReason += " | Auto-escalated due to high-risk system"
	}

	if err := s.db.Create(inc).Error; err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	return inc, nil
}

// buildTriageContext assembles the rule-engine context from the system record
// and the cross-aggregate signals.
func (s *Store) buildTriageContext(system *registry.AISystem, incidentType Type) (triage.Context, error) {
	drift, err := s.signals.DriftFlag(system.ID)
	if err != nil {
		return nil, fmt.Errorf("compute drift flag: %w", err)
	}
	volatility, err := s.signals.ChangesLast30Days(system.ID)
	if err != nil {
		return nil, fmt.Errorf("compute change volatility: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	var recentIncidents int64
	err = s.db.Model(&AIIncident{}).
		Where("ai_system_id = ? AND created_at >= ?", system.ID, cutoff).
		Count(&recentIncidents).Error
	if err != nil {
		return nil, fmt.Errorf("count recent incidents: %w", err)
	}

	return triage.Context{
		triage.VarRisk:            string(system.RiskClassification),
		triage.VarType:            string(incidentType),
		triage.VarDriftFlag:       drift,
		triage.VarIncidentsLast30: int(recentIncidents),
		triage.VarVolatility:      volatility,
	}, nil
}

// Get retrieves an incident by ID.
func (s *Store) Get(id string) (*AIIncident, error) {
	var inc AIIncident
	err := s.db.Where("id = ?", id).First(&inc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("incident", id)
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return &inc, nil
}

// List returns all incidents, newest first.
func (s *Store) List() ([]AIIncident, error) {
	var incs []AIIncident
	if err := s.db.Order("created_at DESC, id ASC").Find(&incs).Error; err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return incs, nil
}

// Queue returns the incidents assigned to a role, newest first. Only the
// AI_OWNER and COMPLIANCE queues exist.
func (s *Store) Queue(role string) ([]AIIncident, error) {
	if role != "AI_OWNER" && role != "COMPLIANCE" {
		return nil, apierrors.Validation("role", "must be AI_OWNER or COMPLIANCE")
	}
	var incs []AIIncident
	err := s.db.Where("assigned_to_role = ?", role).
		Order("created_at DESC, id ASC").Find(&incs).Error
	if err != nil {
		return nil, fmt.Errorf("list incident queue: %w", err)
	}
	return incs, nil
}

// ConfirmInput carries a triage confirmation or override.
type ConfirmInput struct {
	ConfirmedSeverity  string            `json:"confirmed_severity"`
	ConfirmedOwnerRole string            `json:"confirmed_owner_role"`
	ConfirmedRootCause RootCauseCategory `json:"confirmed_root_cause_category"`
	OverrideReason     string            `json:"override_reason"`
}

// ConfirmTriage records a human decision on the machine suggestion. Any
// deviation from the suggested severity, owner role, or root cause is an
// override and requires a reason.
func (s *Store) ConfirmTriage(id string, in ConfirmInput, actor string) (*AIIncident, error) {
	if !ValidRootCauseCategory(in.ConfirmedRootCause) {
		return nil, apierrors.Validation("confirmed_root_cause_category", fmt.Sprintf("unknown value %q", in.ConfirmedRootCause))
	}

	var inc *AIIncident
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rec AIIncident
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&rec).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.NotFound("incident", id)
			}
			return fmt.Errorf("get incident: %w", err)
		}

		override := false
		if rec.TriageSuggestedSeverity != "" && in.ConfirmedSeverity != rec.TriageSuggestedSeverity {
			override = true
		}
		if rec.TriageSuggestedOwnerRole != "" && in.ConfirmedOwnerRole != rec.TriageSuggestedOwnerRole {
			override = true
		}
		if rec.TriageSuggestedRootCause != "" && string(in.ConfirmedRootCause) != rec.TriageSuggestedRootCause {
			override = true
		}
		if override && in.OverrideReason == "" {
			return apierrors.Validation("override_reason", "required when changing the triage suggestion")
		}

		now := time.Now().UTC()
		status := TriageConfirmed
		if override {
			status = TriageOverridden
		}

		err = tx.Model(&rec).Updates(map[string]any{
			"triage_status":          status,
			"triage_confirmed_by":    actor,
			"triage_confirmed_at":    now,
			"triage_override_reason": in.OverrideReason,
			"severity":               in.ConfirmedSeverity,
			"root_cause_category":    in.ConfirmedRootCause,
		}).Error
		if err != nil {
			return fmt.Errorf("confirm triage: %w", err)
		}

		rec.TriageStatus = status
		rec.TriageConfirmedBy = actor
		rec.TriageConfirmedAt = &now
		rec.TriageOverrideReason = in.OverrideReason
		rec.Severity = in.ConfirmedSeverity
		rec.RootCauseCategory = in.ConfirmedRootCause
		inc = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inc, nil
}

// InvestigateInput carries the investigation findings.
type InvestigateInput struct {
	RootCauseCategory    RootCauseCategory `json:"root_cause_category"`
	RootCauseDescription string            `json:"root_cause_description"`
}

// Investigate records root-cause findings and moves the incident from OPEN to
// UNDER_INVESTIGATION.
func (s *Store) Investigate(id string, in InvestigateInput) (*AIIncident, error) {
	if !ValidRootCauseCategory(in.RootCauseCategory) {
		return nil, apierrors.Validation("root_cause_category", fmt.Sprintf("unknown value %q", in.RootCauseCategory))
	}
	return s.updateStatus(id, StatusUnderInvestigation, []Status{StatusOpen}, map[string]any{
		"root_cause_category":    in.RootCauseCategory,
		"root_cause_description": in.RootCauseDescription,
		"status":                 StatusUnderInvestigation,
	})
}

// LinkCorrectiveAction ties an incident to the change request that fixes it
// and marks the incident RESOLVED. Only prompt, rag_source, and config
// changes qualify as corrective actions.
func (s *Store) LinkCorrectiveAction(id, changeRequestID string) (*AIIncident, error) {
	var cr change.ChangeRequest
	if err := s.db.Where("id = ?", changeRequestID).First(&cr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound("change request", changeRequestID)
		}
		return nil, fmt.Errorf("get change request: %w", err)
	}
	switch cr.ChangeType {
	case change.TypePrompt, change.TypeRAGSource, change.TypeConfig:
	default:
		return nil, apierrors.Validation("change_request_id", fmt.Sprintf("change type %s cannot be a corrective action", cr.ChangeType))
	}

	return s.updateStatus(id, StatusResolved, []Status{StatusOpen, StatusUnderInvestigation}, map[string]any{
		"corrective_change_request_id": changeRequestID,
		"status":                       StatusResolved,
	})
}

// Close moves a RESOLVED incident to the terminal CLOSED state.
func (s *Store) Close(id string) (*AIIncident, error) {
	return s.updateStatus(id, StatusClosed, []Status{StatusResolved}, map[string]any{
		"status": StatusClosed,
	})
}

// updateStatus applies updates to an incident after checking that its current
// status is one of allowedFrom. The incident machine is forward-only.
func (s *Store) updateStatus(id string, next Status, allowedFrom []Status, updates map[string]any) (*AIIncident, error) {
	var inc *AIIncident
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rec AIIncident
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&rec).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.NotFound("incident", id)
			}
			return fmt.Errorf("get incident: %w", err)
		}

		allowed := false
		for _, from := range allowedFrom {
			if rec.Status == from {
				allowed = true
				break
			}
		}
		if !allowed {
			return apierrors.InvalidTransition(string(rec.Status), string(next))
		}

		if err := tx.Model(&rec).Updates(updates).Error; err != nil {
			return fmt.Errorf("update incident: %w", err)
		}

		err = tx.Where("id = ?", id).First(&rec).Error
		if err != nil {
			return fmt.Errorf("reload incident: %w", err)
		}
		inc = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inc, nil
}
