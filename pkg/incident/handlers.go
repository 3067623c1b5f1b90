package incident

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/audit"
	"github.com/aigovtower/grc-registry/pkg/authz"
	"github.com/aigovtower/grc-registry/pkg/db"
)

// NewRouter creates a chi router with the incident API routes. Incident
// creation is nested under the AI system resource and mounted by the server.
func NewRouter(store *Store, recorder *audit.Recorder) chi.Router {
	r := chi.NewRouter()
	r.Get("/", listIncidentsHandler(store))
	r.Get("/queue", queueHandler(store))
	r.Get("/{incidentID}", getIncidentHandler(store))
	r.Post("/{incidentID}/triage/confirm", confirmTriageHandler(store, recorder))
	r.Post("/{incidentID}/investigate", investigateHandler(store, recorder))
	r.Post("/{incidentID}/corrective-action", correctiveActionHandler(store, recorder))
	r.Post("/{incidentID}/close", closeHandler(store, recorder))
	return r
}

// CreateHandler handles POST /ai-systems/{systemID}/incidents.
func CreateHandler(store *Store, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := authz.DenyAuditor(id); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var in CreateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}

		inc, err := store.Create(chi.URLParam(r, "systemID"), in, id.User)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "AI_INCIDENT_REPORTED",
			EntityType: "AI_INCIDENT",
			EntityID:   inc.ID,
			Payload:    inc,
			Metadata: db.JSONAny{
				"ai_system_id":     inc.AISystemID,
				"assigned_to_role": inc.AssignedToRole,
				"triage_status":    string(inc.TriageStatus),
			},
		})
		apierrors.WriteJSON(w, http.StatusCreated, inc)
	}
}

func listIncidentsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		incs, err := store.List()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, incs)
	}
}

func queueHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := strings.ToUpper(r.URL.Query().Get("role"))
		incs, err := store.Queue(role)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, incs)
	}
}

func getIncidentHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inc, err := store.Get(chi.URLParam(r, "incidentID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, inc)
	}
}

// requireHandler gates the incident handling routes: COMPLIANCE or AI_OWNER
// (ADMIN passes everywhere AUDITOR does not).
func requireHandler(id authz.Identity) error {
	if err := authz.DenyAuditor(id); err != nil {
		return err
	}
	return authz.RequireAny(id, authz.RoleCompliance, authz.RoleAIOwner, authz.RoleAdmin)
}

func confirmTriageHandler(store *Store, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := requireHandler(id); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var in ConfirmInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}

		inc, err := store.ConfirmTriage(chi.URLParam(r, "incidentID"), in, id.User)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "AI_INCIDENT_TRIAGE_CONFIRMED",
			EntityType: "AI_INCIDENT",
			EntityID:   inc.ID,
			Payload:    inc,
			Metadata: db.JSONAny{
				"triage_status":   string(inc.TriageStatus),
				"override_reason": inc.TriageOverrideReason,
			},
		})
		apierrors.WriteJSON(w, http.StatusOK, inc)
	}
}

func investigateHandler(store *Store, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := requireHandler(id); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var in InvestigateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}

		inc, err := store.Investigate(chi.URLParam(r, "incidentID"), in)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "AI_INCIDENT_INVESTIGATED",
			EntityType: "AI_INCIDENT",
			EntityID:   inc.ID,
			Payload:    inc,
			PrevState:  string(StatusOpen),
			NewState:   string(StatusUnderInvestigation),
		})
		apierrors.WriteJSON(w, http.StatusOK, inc)
	}
}

type correctiveActionRequest struct {
	ChangeRequestID string `json:"change_request_id"`
}

func correctiveActionHandler(store *Store, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := requireHandler(id); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var req correctiveActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}
		if req.ChangeRequestID == "" {
			apierrors.WriteError(w, apierrors.Validation("change_request_id", "must not be empty"))
			return
		}

		inc, err := store.LinkCorrectiveAction(chi.URLParam(r, "incidentID"), req.ChangeRequestID)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "AI_INCIDENT_RESOLVED",
			EntityType: "AI_INCIDENT",
			EntityID:   inc.ID,
			Payload:    inc,
			NewState:   string(StatusResolved),
			Metadata: db.JSONAny{
				"corrective_change_request_id": inc.CorrectiveChangeRequestID,
			},
		})
		apierrors.WriteJSON(w, http.StatusOK, inc)
	}
}

func closeHandler(store *Store, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := requireHandler(id); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		inc, err := store.Close(chi.URLParam(r, "incidentID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "AI_INCIDENT_CLOSED",
			EntityType: "AI_INCIDENT",
			EntityID:   inc.ID,
			Payload:    inc,
			PrevState:  string(StatusResolved),
			NewState:   string(StatusClosed),
		})
		apierrors.WriteJSON(w, http.StatusOK, inc)
	}
}
