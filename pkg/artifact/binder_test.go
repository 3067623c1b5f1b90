package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/authz"
	"github.com/aigovtower/grc-registry/pkg/db"
	"github.com/aigovtower/grc-registry/pkg/registry"
)

func owner() authz.Identity {
	return authz.Identity{User: "alice", Roles: authz.RoleSet{authz.RoleAIOwner}}
}

func compliance() authz.Identity {
	return authz.Identity{User: "carol", Roles: authz.RoleSet{authz.RoleCompliance}}
}

// newActivatableVersion creates a prompt version submitted under an approved
// change request, ready to activate on the given system.
func (e *testEnv) newActivatableVersion(t *testing.T, systemID, templateName string) (versionID, changeRequestID string) {
	t.Helper()

	template, err := e.prompts.CreateTemplate(templateName, "", "alice")
	require.NoError(t, err)
	v, err := e.prompts.CreateVersion(template.ID, PromptContent{PromptText: "text for " + templateName}, "alice")
	require.NoError(t, err)

	cr := e.newSubmittedChange(t, systemID)
	_, err = e.prompts.SubmitVersion(v.ID, cr.ID)
	require.NoError(t, err)
	_, err = e.changes.Approve(cr.ID, compliance())
	require.NoError(t, err)

	return v.ID, cr.ID
}

func TestBinder_ActivatePrompt(t *testing.T) {
	env := newTestEnv(t)
	system := env.newSystem(t, "s", registry.RiskLow)
	versionID, crID := env.newActivatableVersion(t, system.ID, "tpl")

	activation, err := env.binder.ActivatePrompt(system.ID, versionID, crID, owner())
	require.NoError(t, err)
	assert.Equal(t, "prompt", activation.Kind)
	assert.Equal(t, versionID, activation.VersionID)
	assert.Equal(t, "alice", activation.ActivatedBy)

	v, err := env.prompts.GetVersion(versionID)
	require.NoError(t, err)
	assert.Equal(t, VersionActive, v.Status)

	binding, err := env.binder.OpenPromptBinding(system.ID)
	require.NoError(t, err)
	require.NotNil(t, binding)
	assert.Equal(t, versionID, binding.PromptVersionID)
	assert.Nil(t, binding.ActiveTo)
}

func TestBinder_SwapClosesPreviousBinding(t *testing.T) {
	env := newTestEnv(t)
	system := env.newSystem(t, "s", registry.RiskLow)

	firstVersion, firstCR := env.newActivatableVersion(t, system.ID, "tpl-1")
	_, err := env.binder.ActivatePrompt(system.ID, firstVersion, firstCR, owner())
	require.NoError(t, err)

	secondVersion, secondCR := env.newActivatableVersion(t, system.ID, "tpl-2")
	_, err = env.binder.ActivatePrompt(system.ID, secondVersion, secondCR, owner())
	require.NoError(t, err)

	// Exactly one open binding: the second activation closed the first.
	open, err := env.binder.OpenPromptBinding(system.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, secondVersion, open.PromptVersionID)

	var all []PromptBinding
	require.NoError(t, env.db.Where("ai_system_id = ?", system.ID).Order("active_from ASC").Find(&all).Error)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].ActiveTo)
	assert.Nil(t, all[1].ActiveTo)
}

func TestBinder_PreconditionFailures(t *testing.T) {
	env := newTestEnv(t)
	system := env.newSystem(t, "s", registry.RiskLow)

	template, err := env.prompts.CreateTemplate("tpl", "", "alice")
	require.NoError(t, err)
	draft, err := env.prompts.CreateVersion(template.ID, PromptContent{PromptText: "text"}, "alice")
	require.NoError(t, err)

	cr := env.newSubmittedChange(t, system.ID)

	var nf *apierrors.NotFoundError
	var ce *apierrors.ConflictError
	var ite *apierrors.InvalidTransitionError

	// Unknown system.
	_, err = env.binder.ActivatePrompt("no-such-system", draft.ID, cr.ID, owner())
	require.ErrorAs(t, err, &nf)

	// Unknown version.
	_, err = env.binder.ActivatePrompt(system.ID, "no-such-version", cr.ID, owner())
	require.ErrorAs(t, err, &nf)

	// Unknown change request.
	_, err = env.binder.ActivatePrompt(system.ID, draft.ID, "no-such-cr", owner())
	require.ErrorAs(t, err, &nf)

	// Change request not yet approved.
	_, err = env.binder.ActivatePrompt(system.ID, draft.ID, cr.ID, owner())
	require.ErrorAs(t, err, &ce)

	// Approved, but the version is not linked to this change request.
	_, err = env.changes.Approve(cr.ID, compliance())
	require.NoError(t, err)
	_, err = env.binder.ActivatePrompt(system.ID, draft.ID, cr.ID, owner())
	require.ErrorAs(t, err, &ce)

	// Linked draft version that never went through submission is rejected.
	otherCR := env.newSubmittedChange(t, system.ID)
	_, err = env.prompts.SubmitVersion(draft.ID, otherCR.ID)
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&PromptVersion{}).Where("id = ?", draft.ID).
		Update("status", VersionDraft).Error)
	_, err = env.changes.Approve(otherCR.ID, compliance())
	require.NoError(t, err)
	_, err = env.binder.ActivatePrompt(system.ID, draft.ID, otherCR.ID, owner())
	require.ErrorAs(t, err, &ite)
}

func TestBinder_ElevatedRiskRequiresCompliance(t *testing.T) {
	env := newTestEnv(t)
	system := env.newSystem(t, "fraud-detector", registry.RiskHigh)
	versionID, crID := env.newActivatableVersion(t, system.ID, "tpl")

	var fe *apierrors.ForbiddenError
	_, err := env.binder.ActivatePrompt(system.ID, versionID, crID, owner())
	require.ErrorAs(t, err, &fe)

	// No binding and no status change on the refused activation.
	open, err := env.binder.OpenPromptBinding(system.ID)
	require.NoError(t, err)
	assert.Nil(t, open)
	v, err := env.prompts.GetVersion(versionID)
	require.NoError(t, err)
	assert.Equal(t, VersionSubmitted, v.Status)

	_, err = env.binder.ActivatePrompt(system.ID, versionID, crID, compliance())
	require.NoError(t, err)
}

func TestBinder_ActivateRAG(t *testing.T) {
	env := newTestEnv(t)
	system := env.newSystem(t, "s", registry.RiskLow)

	source, err := env.rag.CreateSource("kb", "knowledge base", RAGSourceWeb, "alice")
	require.NoError(t, err)
	v, err := env.rag.CreateVersion(source.ID, RAGContent{
		URI:             "https://kb.example.com",
		IngestionConfig: db.JSONAny{"chunk_size": "512"},
		EmbeddingConfig: db.JSONAny{"model": "text-embedding-3-small"},
	}, "alice")
	require.NoError(t, err)

	cr := env.newSubmittedChange(t, system.ID)
	_, err = env.rag.SubmitVersion(v.ID, cr.ID)
	require.NoError(t, err)
	_, err = env.changes.Approve(cr.ID, compliance())
	require.NoError(t, err)

	activation, err := env.binder.ActivateRAG(system.ID, v.ID, cr.ID, owner())
	require.NoError(t, err)
	assert.Equal(t, "rag_source", activation.Kind)

	binding, err := env.binder.OpenRAGBinding(system.ID)
	require.NoError(t, err)
	require.NotNil(t, binding)
	assert.Equal(t, v.ID, binding.RAGSourceVersionID)

	got, err := env.rag.GetVersion(v.ID)
	require.NoError(t, err)
	assert.Equal(t, VersionActive, got.Status)
}
