package riskmetrics

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aigovtower/grc-registry/pkg/artifact"
	"github.com/aigovtower/grc-registry/pkg/change"
	"github.com/aigovtower/grc-registry/pkg/incident"
	"github.com/aigovtower/grc-registry/pkg/registry"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&registry.AISystem{},
		&change.ChangeRequest{},
		&incident.AIIncident{},
		&artifact.PromptBinding{},
		&artifact.RAGBinding{},
	))
	return NewService(db), db
}

func addSystem(t *testing.T, db *gorm.DB, name string) string {
	t.Helper()
	sys := &registry.AISystem{
		ID:                 uuid.New().String(),
		Name:               name,
		BusinessPurpose:    "testing",
		IntendedUsers:      "staff",
		RiskClassification: registry.RiskLow,
		Owner:              "alice",
		LifecycleStatus:    registry.StateActive,
		CreatedBy:          "alice",
	}
	require.NoError(t, db.Create(sys).Error)
	return sys.ID
}

// daysAgo pins created_at in the past; gorm's autoCreateTime leaves non-zero
// timestamps alone.
func addIncident(t *testing.T, db *gorm.DB, systemID string, incType incident.Type, severity string, daysAgo int) *incident.AIIncident {
	t.Helper()
	inc := &incident.AIIncident{
		ID:           uuid.New().String(),
		AISystemID:   systemID,
		IncidentType: incType,
		Description:  "test incident",
		Severity:     severity,
		ImpactArea:   incident.ImpactCustomer,
		DetectedBy:   "bob",
		Status:       incident.StatusOpen,
		CreatedAt:    time.Now().UTC().AddDate(0, 0, -daysAgo),
		CreatedBy:    "bob",
	}
	require.NoError(t, db.Create(inc).Error)
	return inc
}

func addChange(t *testing.T, db *gorm.DB, systemID string, daysAgo int) *change.ChangeRequest {
	return addChangeAt(t, db, systemID, time.Now().UTC().AddDate(0, 0, -daysAgo))
}

func addChangeAt(t *testing.T, db *gorm.DB, systemID string, at time.Time) *change.ChangeRequest {
	t.Helper()
	cr := &change.ChangeRequest{
		ID:          uuid.New().String(),
		AISystemID:  systemID,
		ChangeType:  change.TypePrompt,
		Description: "test change",
		Status:      change.StatusDraft,
		RequestedBy: "alice",
		CreatedAt:   at,
	}
	require.NoError(t, db.Create(cr).Error)
	return cr
}

func addPromptBinding(t *testing.T, db *gorm.DB, systemID string, daysAgo int) {
	t.Helper()
	b := &artifact.PromptBinding{
		ID:              uuid.New().String(),
		AISystemID:      systemID,
		PromptVersionID: uuid.New().String(),
		ActiveFrom:      time.Now().UTC().AddDate(0, 0, -daysAgo),
		ActivatedBy:     "alice",
		ChangeRequestID: uuid.New().String(),
	}
	require.NoError(t, db.Create(b).Error)
}

func addRAGBinding(t *testing.T, db *gorm.DB, systemID string, daysAgo int) {
	t.Helper()
	b := &artifact.RAGBinding{
		ID:                 uuid.New().String(),
		AISystemID:         systemID,
		RAGSourceVersionID: uuid.New().String(),
		ActiveFrom:         time.Now().UTC().AddDate(0, 0, -daysAgo),
		ActivatedBy:        "alice",
		ChangeRequestID:    uuid.New().String(),
	}
	require.NoError(t, db.Create(b).Error)
}

func TestCountIncidentsBySeverity(t *testing.T) {
	svc, db := newTestService(t)
	systemID := addSystem(t, db, "support-bot")

	addIncident(t, db, systemID, incident.TypeHallucination, "High", 1)
	addIncident(t, db, systemID, incident.TypeBias, "High", 2)
	addIncident(t, db, systemID, incident.TypePolicyViolation, "Medium", 3)

	counts, err := svc.CountIncidentsBySeverity()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"High": 2, "Medium": 1}, counts)
}

func TestHallucinationRatePerSystem(t *testing.T) {
	svc, db := newTestService(t)
	busy := addSystem(t, db, "support-bot")
	quiet := addSystem(t, db, "forecasting")

	addIncident(t, db, busy, incident.TypeHallucination, "Medium", 1)
	addIncident(t, db, busy, incident.TypeBias, "Medium", 2)
	addIncident(t, db, busy, incident.TypePolicyViolation, "High", 3)
	addIncident(t, db, busy, incident.TypeIncorrectOutput, "Low", 4)

	rates, err := svc.HallucinationRatePerSystem()
	require.NoError(t, err)
	require.Contains(t, rates, busy)
	require.Contains(t, rates, quiet)

	assert.Equal(t, "support-bot", rates[busy].SystemName)
	assert.InDelta(t, 0.25, rates[busy].HallucinationRate, 1e-9)
	assert.Equal(t, 1, rates[busy].HallucinationCount)
	assert.Equal(t, 4, rates[busy].TotalIncidents)

	assert.Zero(t, rates[quiet].HallucinationRate)
	assert.Zero(t, rates[quiet].TotalIncidents)
}

func TestChangesLast30Days(t *testing.T) {
	svc, db := newTestService(t)
	systemID := addSystem(t, db, "support-bot")
	other := addSystem(t, db, "forecasting")

	addChange(t, db, systemID, 5)
	addChange(t, db, systemID, 20)
	addChange(t, db, systemID, 40) // outside the window

	count, err := svc.ChangesLast30Days(systemID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = svc.ChangesLast30Days(other)
	require.NoError(t, err)
	assert.Zero(t, count)

	counts, err := svc.ChangeCountsLast30Days()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{systemID: 2}, counts)
}

func TestHallucinationsLastWeek(t *testing.T) {
	svc, db := newTestService(t)
	systemID := addSystem(t, db, "support-bot")

	addIncident(t, db, systemID, incident.TypeHallucination, "Medium", 2)
	addIncident(t, db, systemID, incident.TypeHallucination, "Medium", 10)
	addIncident(t, db, systemID, incident.TypeBias, "Medium", 1)

	count, err := svc.HallucinationsLastWeek()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSeverityTrend(t *testing.T) {
	svc, db := newTestService(t)
	systemID := addSystem(t, db, "support-bot")

	a := addIncident(t, db, systemID, incident.TypeHallucination, "High", 1)
	addIncident(t, db, systemID, incident.TypeBias, "High", 1)
	b := addIncident(t, db, systemID, incident.TypePolicyViolation, "Medium", 2)
	addIncident(t, db, systemID, incident.TypeBias, "Low", 45) // outside the window

	trend, err := svc.SeverityTrend(30)
	require.NoError(t, err)

	dayA := a.CreatedAt.UTC().Format("2006-01-02")
	dayB := b.CreatedAt.UTC().Format("2006-01-02")
	require.Contains(t, trend, dayA)
	require.Contains(t, trend, dayB)
	assert.Equal(t, 2, trend[dayA]["High"])
	assert.Equal(t, 1, trend[dayB]["Medium"])
	assert.Len(t, trend, 2)
}

func TestRepeatedIncidents(t *testing.T) {
	svc, db := newTestService(t)
	noisy := addSystem(t, db, "support-bot")
	calm := addSystem(t, db, "forecasting")

	for i := 0; i < 4; i++ {
		addIncident(t, db, noisy, incident.TypeHallucination, "Medium", i+1)
	}
	for i := 0; i < 3; i++ {
		addIncident(t, db, calm, incident.TypeBias, "Low", i+1)
	}

	repeated, err := svc.RepeatedIncidents()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{noisy: 4}, repeated)
}

func TestPromptDrift(t *testing.T) {
	svc, db := newTestService(t)
	churning := addSystem(t, db, "support-bot")
	stable := addSystem(t, db, "forecasting")

	addPromptBinding(t, db, churning, 1)
	addPromptBinding(t, db, churning, 10)
	addPromptBinding(t, db, churning, 25)
	addPromptBinding(t, db, churning, 40) // outside the window
	addPromptBinding(t, db, stable, 5)
	addPromptBinding(t, db, stable, 15)

	drift, err := svc.PromptDrift()
	require.NoError(t, err)
	assert.Equal(t, DriftStat{Changes30d: 3, DriftFlag: true}, drift[churning])
	assert.Equal(t, DriftStat{Changes30d: 2, DriftFlag: false}, drift[stable])

	flagged, err := svc.DriftFlag(churning)
	require.NoError(t, err)
	assert.True(t, flagged)

	flagged, err = svc.DriftFlag(stable)
	require.NoError(t, err)
	assert.False(t, flagged)
}

func TestRAGDrift(t *testing.T) {
	svc, db := newTestService(t)
	systemID := addSystem(t, db, "support-bot")

	addRAGBinding(t, db, systemID, 2)
	addRAGBinding(t, db, systemID, 12)
	addRAGBinding(t, db, systemID, 22)

	drift, err := svc.RAGDrift()
	require.NoError(t, err)
	assert.Equal(t, DriftStat{Changes30d: 3, DriftFlag: true}, drift[systemID])

	flagged, err := svc.DriftFlag(systemID)
	require.NoError(t, err)
	assert.True(t, flagged)
}

func TestChangeAfterIncident(t *testing.T) {
	svc, db := newTestService(t)
	systemID := addSystem(t, db, "support-bot")
	other := addSystem(t, db, "forecasting")

	inc := addIncident(t, db, systemID, incident.TypeHallucination, "Medium", 10)
	reactive := addChange(t, db, systemID, 5)  // 5 days after the incident
	addChange(t, db, systemID, 12)             // before the incident
	addChange(t, db, other, 5)                 // different system

	pairs, err := svc.ChangeAfterIncident()
	require.NoError(t, err)
	require.Len(t, pairs[systemID], 1)
	assert.Equal(t, inc.ID, pairs[systemID][0].IncidentID)
	assert.Equal(t, reactive.ID, pairs[systemID][0].ChangeID)
	assert.Equal(t, 5, pairs[systemID][0].DaysAfterIncident)
	assert.Empty(t, pairs[other])

	// A reactive change alone trips the drift flag even without binding churn.
	flagged, err := svc.DriftFlag(systemID)
	require.NoError(t, err)
	assert.True(t, flagged)
}

// A change opened hours before an incident must not be paired with it: integer
// division of a small negative duration yields day 0 otherwise.
func TestChangeAfterIncidentExcludesPriorChanges(t *testing.T) {
	svc, db := newTestService(t)
	systemID := addSystem(t, db, "support-bot")

	incidentAt := time.Now().UTC().AddDate(0, 0, -10)
	inc := addIncident(t, db, systemID, incident.TypeHallucination, "Medium", 10)
	require.NoError(t, db.Model(inc).Update("created_at", incidentAt).Error)

	addChangeAt(t, db, systemID, incidentAt.Add(-6*time.Hour))            // just before
	sameDay := addChangeAt(t, db, systemID, incidentAt.Add(6*time.Hour))  // day 0
	lastDay := addChangeAt(t, db, systemID, incidentAt.Add(7*24*time.Hour+time.Hour)) // day 7
	addChangeAt(t, db, systemID, incidentAt.AddDate(0, 0, 8))             // too late

	pairs, err := svc.ChangeAfterIncident()
	require.NoError(t, err)
	require.Len(t, pairs[systemID], 2)
	assert.Equal(t, sameDay.ID, pairs[systemID][0].ChangeID)
	assert.Equal(t, 0, pairs[systemID][0].DaysAfterIncident)
	assert.Equal(t, lastDay.ID, pairs[systemID][1].ChangeID)
	assert.Equal(t, 7, pairs[systemID][1].DaysAfterIncident)
}
