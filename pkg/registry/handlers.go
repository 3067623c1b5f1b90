package registry

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/audit"
	"github.com/aigovtower/grc-registry/pkg/authz"
)

// NewRouter creates a chi router with the AI system API routes. Nested
// resources (change requests, activations) are mounted by the server so this
// package stays free of upward dependencies.
func NewRouter(store *SystemStore, recorder *audit.Recorder) chi.Router {
	r := chi.NewRouter()
	r.Post("/", createSystemHandler(store, recorder))
	r.Get("/", listSystemsHandler(store))
	r.Get("/{systemID}", getSystemHandler(store))
	r.Patch("/{systemID}/lifecycle", lifecycleHandler(store, recorder))
	return r
}

func createSystemHandler(store *SystemStore, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := authz.RequireAny(id, authz.RoleAdmin, authz.RoleAIOwner); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var in CreateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}

		system, err := store.Create(in, id.User)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "AI_SYSTEM_CREATED",
			EntityType: "AI_SYSTEM",
			EntityID:   system.ID,
			Payload:    system,
		})
		apierrors.WriteJSON(w, http.StatusCreated, system)
	}
}

func listSystemsHandler(store *SystemStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		systems, err := store.List()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, systems)
	}
}

func getSystemHandler(store *SystemStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		system, err := store.Get(chi.URLParam(r, "systemID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, system)
	}
}

type lifecycleUpdateRequest struct {
	NewState LifecycleState `json:"new_state"`
}

func lifecycleHandler(store *SystemStore, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := authz.RequireAny(id, authz.RoleAdmin, authz.RoleAIOwner, authz.RoleCompliance); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var req lifecycleUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}
		if req.NewState == "" {
			apierrors.WriteError(w, apierrors.Validation("new_state", "must not be empty"))
			return
		}

		result, err := store.Transition(chi.URLParam(r, "systemID"), req.NewState, id)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "LIFECYCLE_STATE_CHANGED",
			EntityType: "AI_SYSTEM",
			EntityID:   result.ID,
			Payload:    result,
			PrevState:  string(result.OldState),
			NewState:   string(result.NewState),
		})
		apierrors.WriteJSON(w, http.StatusOK, result)
	}
}
