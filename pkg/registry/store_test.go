package registry

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/authz"
)

// newTestStore creates a SystemStore over an in-memory SQLite DB.
func newTestStore(t *testing.T) *SystemStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := NewSystemStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func ownerIdentity() authz.Identity {
	return authz.Identity{User: "alice", Roles: authz.RoleSet{authz.RoleAIOwner}}
}

func complianceIdentity() authz.Identity {
	return authz.Identity{User: "carol", Roles: authz.RoleSet{authz.RoleCompliance}}
}

func TestSystemStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)

	system, err := store.Create(CreateInput{
		Name:               "support-copilot",
		BusinessPurpose:    "Answer customer support tickets",
		IntendedUsers:      "Support agents",
		RiskClassification: RiskMedium,
		Owner:              "support-platform",
	}, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, system.ID)
	assert.Equal(t, StateDraft, system.LifecycleStatus)
	assert.Equal(t, "alice", system.CreatedBy)

	got, err := store.Get(system.ID)
	require.NoError(t, err)
	assert.Equal(t, "support-copilot", got.Name)
	assert.Equal(t, RiskMedium, got.RiskClassification)
}

func TestSystemStore_CreateValidation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(CreateInput{RiskClassification: RiskLow}, "alice")
	var ve *apierrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)

	_, err = store.Create(CreateInput{Name: "x", RiskClassification: "extreme"}, "alice")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "risk_classification", ve.Field)
}

func TestSystemStore_DuplicateNameConflicts(t *testing.T) {
	store := newTestStore(t)

	in := CreateInput{Name: "support-copilot", BusinessPurpose: "p", IntendedUsers: "u", RiskClassification: RiskLow}
	_, err := store.Create(in, "alice")
	require.NoError(t, err)

	_, err = store.Create(in, "bob")
	var ce *apierrors.ConflictError
	require.ErrorAs(t, err, &ce)
}

func TestSystemStore_GetUnknown(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("no-such-id")
	var nf *apierrors.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestSystemStore_TransitionHappyPath(t *testing.T) {
	store := newTestStore(t)

	system, err := store.Create(CreateInput{Name: "s", BusinessPurpose: "p", IntendedUsers: "u", RiskClassification: RiskLow}, "alice")
	require.NoError(t, err)

	steps := []struct {
		to LifecycleState
		id authz.Identity
	}{
		{StateSubmitted, ownerIdentity()},
		{StateApproved, complianceIdentity()},
		{StateActive, ownerIdentity()},
		{StateDeprecated, ownerIdentity()},
		{StateRetired, ownerIdentity()},
	}

	prev := StateDraft
	for _, step := range steps {
		result, err := store.Transition(system.ID, step.to, step.id)
		require.NoError(t, err, "transition %s -> %s", prev, step.to)
		assert.Equal(t, prev, result.OldState)
		assert.Equal(t, step.to, result.NewState)
		prev = step.to
	}

	got, err := store.Get(system.ID)
	require.NoError(t, err)
	assert.Equal(t, StateRetired, got.LifecycleStatus)
}

func TestSystemStore_TransitionApprovalNeedsCompliance(t *testing.T) {
	store := newTestStore(t)

	system, err := store.Create(CreateInput{Name: "s", BusinessPurpose: "p", IntendedUsers: "u", RiskClassification: RiskLow}, "alice")
	require.NoError(t, err)

	_, err = store.Transition(system.ID, StateSubmitted, ownerIdentity())
	require.NoError(t, err)

	_, err = store.Transition(system.ID, StateApproved, ownerIdentity())
	var fe *apierrors.ForbiddenError
	require.ErrorAs(t, err, &fe)

	// Rejected transition must leave the state untouched.
	got, err := store.Get(system.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, got.LifecycleStatus)

	// ADMIN alone cannot take the approval edge either: whoever registered
	// and submitted the system must not also be able to approve it.
	admin := authz.Identity{User: "root", Roles: authz.RoleSet{authz.RoleAdmin}}
	_, err = store.Transition(system.ID, StateApproved, admin)
	require.ErrorAs(t, err, &fe)

	got, err = store.Get(system.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, got.LifecycleStatus)

	_, err = store.Transition(system.ID, StateApproved, complianceIdentity())
	require.NoError(t, err)
}

func TestSystemStore_TransitionRejectsUnknownEdge(t *testing.T) {
	store := newTestStore(t)

	system, err := store.Create(CreateInput{Name: "s", BusinessPurpose: "p", IntendedUsers: "u", RiskClassification: RiskLow}, "alice")
	require.NoError(t, err)

	_, err = store.Transition(system.ID, StateActive, ownerIdentity())
	var ite *apierrors.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, string(StateDraft), ite.Current)
	assert.Equal(t, string(StateActive), ite.Requested)
}
