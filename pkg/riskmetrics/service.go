// Package riskmetrics computes read-side risk signals over the registry's
// incidents, change requests, and activation bindings: severity counts,
// hallucination rates, change volatility, drift flags, and reactive-change
// detection.
package riskmetrics

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aigovtower/grc-registry/pkg/artifact"
	"github.com/aigovtower/grc-registry/pkg/change"
	"github.com/aigovtower/grc-registry/pkg/incident"
	"github.com/aigovtower/grc-registry/pkg/registry"
)

// driftThreshold is the number of activations in 30 days at which a system
// is flagged as drifting.
const driftThreshold = 3

// Service computes risk metrics. All methods are read-only.
type Service struct {
	db *gorm.DB
}

// NewService creates a new risk metrics Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CountIncidentsBySeverity returns the incident count per severity level
// across all systems.
func (s *Service) CountIncidentsBySeverity() (map[string]int, error) {
	type row struct {
		Severity string
		Count    int
	}
	var rows []row
	err := s.db.Model(&incident.AIIncident{}).
		Select("severity, count(id) as count").
		Group("severity").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count incidents by severity: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Severity] = r.Count
	}
	return counts, nil
}

// HallucinationRate describes one system's hallucination incident share.
type HallucinationRate struct {
	SystemName         string  `json:"system_name"`
	HallucinationRate  float64 `json:"hallucination_rate"`
	HallucinationCount int     `json:"hallucination_count"`
	TotalIncidents     int     `json:"total_incidents"`
}

// HallucinationRatePerSystem returns, for every registered system, the share
// of its incidents typed Hallucination. Systems with no incidents report a
// rate of zero.
func (s *Service) HallucinationRatePerSystem() (map[string]HallucinationRate, error) {
	var systems []registry.AISystem
	if err := s.db.Find(&systems).Error; err != nil {
		return nil, fmt.Errorf("list ai systems: %w", err)
	}

	output := make(map[string]HallucinationRate, len(systems))
	for _, system := range systems {
		var total, hallucinations int64
		err := s.db.Model(&incident.AIIncident{}).
			Where("ai_system_id = ?", system.ID).Count(&total).Error
		if err != nil {
			return nil, fmt.Errorf("count incidents: %w", err)
		}
		err = s.db.Model(&incident.AIIncident{}).
			Where("ai_system_id = ? AND incident_type = ?", system.ID, incident.TypeHallucination).
			Count(&hallucinations).Error
		if err != nil {
			return nil, fmt.Errorf("count hallucinations: %w", err)
		}

		rate := 0.0
		if total > 0 {
			rate = float64(hallucinations) / float64(total)
		}
		output[system.ID] = HallucinationRate{
			SystemName:         system.Name,
			HallucinationRate:  rate,
			HallucinationCount: int(hallucinations),
			TotalIncidents:     int(total),
		}
	}
	return output, nil
}

// ChangeCountsLast30Days returns the number of change requests opened in the
// last 30 days, grouped by system.
func (s *Service) ChangeCountsLast30Days() (map[string]int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	type row struct {
		AISystemID string
		Count      int
	}
	var rows []row
	err := s.db.Model(&change.ChangeRequest{}).
		Select("ai_system_id, count(id) as count").
		Where("created_at >= ?", cutoff).
		Group("ai_system_id").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count changes last 30 days: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.AISystemID] = r.Count
	}
	return counts, nil
}

// ChangesLast30Days counts one system's change requests opened in the last
// 30 days. Together with DriftFlag it satisfies the incident package's
// TriageSignals interface.
func (s *Service) ChangesLast30Days(systemID string) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	var count int64
	err := s.db.Model(&change.ChangeRequest{}).
		Where("ai_system_id = ? AND created_at >= ?", systemID, cutoff).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count changes last 30 days: %w", err)
	}
	return int(count), nil
}

// HallucinationsLastWeek counts hallucination incidents reported in the last
// 7 days across all systems.
func (s *Service) HallucinationsLastWeek() (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -7)
	var count int64
	err := s.db.Model(&incident.AIIncident{}).
		Where("incident_type = ? AND created_at >= ?", incident.TypeHallucination, cutoff).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count hallucinations last week: %w", err)
	}
	return int(count), nil
}

// SeverityTrend returns the per-day incident count by severity over the last
// `days` days. Keys are ISO dates. Day bucketing happens in Go so the query
// stays portable across sqlite and postgres.
func (s *Service) SeverityTrend(days int) (map[string]map[string]int, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	var incidents []incident.AIIncident
	err := s.db.Where("created_at >= ?", cutoff).
		Order("created_at ASC").Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("list incidents for trend: %w", err)
	}

	trend := make(map[string]map[string]int)
	for _, inc := range incidents {
		day := inc.CreatedAt.UTC().Format("2006-01-02")
		if trend[day] == nil {
			trend[day] = make(map[string]int)
		}
		trend[day][inc.Severity]++
	}
	return trend, nil
}

// RepeatedIncidents returns the systems with more than 3 incidents in total.
func (s *Service) RepeatedIncidents() (map[string]int, error) {
	type row struct {
		AISystemID string
		Count      int
	}
	var rows []row
	err := s.db.Model(&incident.AIIncident{}).
		Select("ai_system_id, count(id) as count").
		Group("ai_system_id").
		Having("count(id) > ?", 3).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count repeated incidents: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.AISystemID] = r.Count
	}
	return counts, nil
}

// DriftStat describes one system's activation churn for an artifact kind.
type DriftStat struct {
	Changes30d int  `json:"changes_30d"`
	DriftFlag  bool `json:"drift_flag"`
}

// PromptDrift flags systems whose prompt bindings were activated 3 or more
// times in the last 30 days.
func (s *Service) PromptDrift() (map[string]DriftStat, error) {
	return s.bindingDrift(&artifact.PromptBinding{})
}

// RAGDrift flags systems whose RAG bindings were activated 3 or more times
// in the last 30 days.
func (s *Service) RAGDrift() (map[string]DriftStat, error) {
	return s.bindingDrift(&artifact.RAGBinding{})
}

// bindingDrift counts binding activations per system in the 30-day window.
// Activation time is the binding's active_from, so re-activations of an old
// version still count as churn.
func (s *Service) bindingDrift(model any) (map[string]DriftStat, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	type row struct {
		AISystemID string
		Count      int
	}
	var rows []row
	err := s.db.Model(model).
		Select("ai_system_id, count(id) as count").
		Where("active_from >= ?", cutoff).
		Group("ai_system_id").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count binding activations: %w", err)
	}

	drift := make(map[string]DriftStat, len(rows))
	for _, r := range rows {
		drift[r.AISystemID] = DriftStat{
			Changes30d: r.Count,
			DriftFlag:  r.Count >= driftThreshold,
		}
	}
	return drift, nil
}

// ReactiveChange pairs an incident with a change request opened on the same
// system within 7 days after it.
type ReactiveChange struct {
	IncidentID        string `json:"incident_id"`
	ChangeID          string `json:"change_id"`
	DaysAfterIncident int    `json:"days_after_incident"`
}

// ChangeAfterIncident finds change requests opened within 0-7 days after an
// incident on the same system, grouped by system.
func (s *Service) ChangeAfterIncident() (map[string][]ReactiveChange, error) {
	var incidents []incident.AIIncident
	if err := s.db.Find(&incidents).Error; err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	var changes []change.ChangeRequest
	if err := s.db.Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}

	output := make(map[string][]ReactiveChange)
	for _, inc := range incidents {
		for _, ch := range changes {
			if ch.AISystemID != inc.AISystemID {
				continue
			}
			// Truncation toward zero would otherwise count a change made
			// shortly before the incident as day 0.
			if ch.CreatedAt.Before(inc.CreatedAt) {
				continue
			}
			diff := int(ch.CreatedAt.Sub(inc.CreatedAt).Hours() / 24)
			if diff <= 7 {
				output[inc.AISystemID] = append(output[inc.AISystemID], ReactiveChange{
					IncidentID:        inc.ID,
					ChangeID:          ch.ID,
					DaysAfterIncident: diff,
				})
			}
		}
	}
	return output, nil
}

// DriftFlag reports whether a system shows prompt drift, RAG drift, or
// reactive change behavior. Satisfies the incident package's TriageSignals
// interface.
func (s *Service) DriftFlag(systemID string) (bool, error) {
	promptDrift, err := s.PromptDrift()
	if err != nil {
		return false, err
	}
	if promptDrift[systemID].DriftFlag {
		return true, nil
	}

	ragDrift, err := s.RAGDrift()
	if err != nil {
		return false, err
	}
	if ragDrift[systemID].DriftFlag {
		return true, nil
	}

	reactive, err := s.ChangeAfterIncident()
	if err != nil {
		return false, err
	}
	return len(reactive[systemID]) > 0, nil
}
