package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/authz"
)

// NewRouter creates a chi router exposing the audit trail read API. Listing
// is restricted to AUDITOR, COMPLIANCE, and ADMIN.
func NewRouter(store *Store) chi.Router {
	r := chi.NewRouter()
	r.Get("/", listAuditLogsHandler(store))
	r.Get("/entities/{entityType}/{entityID}", listEntityTrailHandler(store))
	return r
}

type auditListResponse struct {
	Items         []LogRecord `json:"items"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

func listAuditLogsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := authz.RequireAny(id, authz.RoleAuditor, authz.RoleCompliance, authz.RoleAdmin); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
		filter := ListFilter{
			Actor:      r.URL.Query().Get("actor"),
			Action:     r.URL.Query().Get("action"),
			EntityType: r.URL.Query().Get("entity_type"),
			EntityID:   r.URL.Query().Get("entity_id"),
		}

		records, nextToken, err := store.ListAll(filter, pageSize, r.URL.Query().Get("page_token"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, auditListResponse{Items: records, NextPageToken: nextToken})
	}
}

func listEntityTrailHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := authz.RequireAny(id, authz.RoleAuditor, authz.RoleCompliance, authz.RoleAdmin); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		records, err := store.ListByEntity(chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, auditListResponse{Items: records})
	}
}
