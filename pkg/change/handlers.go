package change

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/audit"
	"github.com/aigovtower/grc-registry/pkg/authz"
)

// NewRouter creates a chi router with the change-request API routes that are
// not nested under an AI system.
func NewRouter(store *Store, recorder *audit.Recorder) chi.Router {
	r := chi.NewRouter()
	r.Get("/", listChangesHandler(store))
	r.Get("/{changeID}", getChangeHandler(store))
	r.Post("/{changeID}/submit", submitChangeHandler(store, recorder))
	r.Post("/{changeID}/approve", approveChangeHandler(store, recorder))
	r.Post("/{changeID}/reject", rejectChangeHandler(store, recorder))
	r.Post("/{changeID}/implement", implementChangeHandler(store, recorder))
	return r
}

// CreateHandler handles POST /ai-systems/{systemID}/changes; the registry
// router mounts it so the route can live under the system resource.
func CreateHandler(store *Store, recorder *audit.Recorder) http.HandlerFunc {
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

		cr, err := store.Create(chi.URLParam(r, "systemID"), in, id.User)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "CHANGE_REQUEST_CREATED",
			EntityType: "CHANGE_REQUEST",
			EntityID:   cr.ID,
			Payload:    cr,
		})
		apierrors.WriteJSON(w, http.StatusCreated, cr)
	}
}

func listChangesHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		crs, err := store.List()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, crs)
	}
}

func getChangeHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cr, err := store.Get(chi.URLParam(r, "changeID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, cr)
	}
}

func submitChangeHandler(store *Store, recorder *audit.Recorder) http.HandlerFunc {
	return transitionHandler(recorder, "CHANGE_REQUEST_SUBMITTED", store.Submit)
}

func approveChangeHandler(store *Store, recorder *audit.Recorder) http.HandlerFunc {
	return transitionHandler(recorder, "CHANGE_REQUEST_APPROVED", store.Approve)
}

func rejectChangeHandler(store *Store, recorder *audit.Recorder) http.HandlerFunc {
	return transitionHandler(recorder, "CHANGE_REQUEST_REJECTED", store.Reject)
}

func implementChangeHandler(store *Store, recorder *audit.Recorder) http.HandlerFunc {
	return transitionHandler(recorder, "CHANGE_REQUEST_IMPLEMENTED", store.Implement)
}

// transitionHandler wraps a workflow transition with the shared error-mapping
// and audit plumbing. Role gating happens in the store, which evaluates the
// workflow policy per edge.
func transitionHandler(recorder *audit.Recorder, action string, op func(changeID string, id authz.Identity) (*TransitionResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		changeID := chi.URLParam(r, "changeID")
		result, err := op(changeID, id)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     action,
			EntityType: "CHANGE_REQUEST",
			EntityID:   result.ID,
			Payload:    result,
			PrevState:  string(result.OldStatus),
			NewState:   string(result.NewStatus),
		})
		apierrors.WriteJSON(w, http.StatusOK, result)
	}
}
