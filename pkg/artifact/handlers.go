package artifact

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
	"github.com/aigovtower/grc-registry/pkg/audit"
	"github.com/aigovtower/grc-registry/pkg/authz"
)

// NewPromptRouter creates a chi router with the prompt governance routes.
func NewPromptRouter(store *PromptStore, recorder *audit.Recorder) chi.Router {
	r := chi.NewRouter()
	r.Post("/templates", createTemplateHandler(store, recorder))
	r.Get("/templates", listTemplatesHandler(store))
	r.Get("/templates/{templateID}", getTemplateHandler(store))
	r.Post("/templates/{templateID}/versions", createPromptVersionHandler(store, recorder))
	r.Get("/templates/{templateID}/versions", listPromptVersionsHandler(store))
	r.Get("/versions/{versionID}", getPromptVersionHandler(store))
	r.Get("/versions/{versionID}/diff", getPromptDiffHandler(store))
	r.Post("/versions/{versionID}/submit", submitPromptVersionHandler(store, recorder))
	return r
}

// NewRAGRouter creates a chi router with the RAG governance routes.
func NewRAGRouter(store *RAGStore, recorder *audit.Recorder) chi.Router {
	r := chi.NewRouter()
	r.Post("/sources", createSourceHandler(store, recorder))
	r.Get("/sources", listSourcesHandler(store))
	r.Get("/sources/{sourceID}", getSourceHandler(store))
	r.Post("/sources/{sourceID}/versions", createRAGVersionHandler(store, recorder))
	r.Get("/sources/{sourceID}/versions", listRAGVersionsHandler(store))
	r.Get("/versions/{versionID}", getRAGVersionHandler(store))
	r.Get("/versions/{versionID}/diff", getRAGDiffHandler(store))
	r.Post("/versions/{versionID}/submit", submitRAGVersionHandler(store, recorder))
	return r
}

// requireEditor gates the mutating artifact routes: ADMIN or AI_OWNER, and
// never AUDITOR.
func requireEditor(id authz.Identity) error {
	if err := authz.DenyAuditor(id); err != nil {
		return err
	}
	return authz.RequireAny(id, authz.RoleAdmin, authz.RoleAIOwner)
}

type createTemplateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func createTemplateHandler(store *PromptStore, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := requireEditor(id); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var req createTemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}

		template, err := store.CreateTemplate(req.Name, req.Description, id.User)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "PROMPT_TEMPLATE_CREATED",
			EntityType: "PROMPT_TEMPLATE",
			EntityID:   template.ID,
			Payload:    template,
		})
		apierrors.WriteJSON(w, http.StatusCreated, template)
	}
}

func listTemplatesHandler(store *PromptStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templates, err := store.ListTemplates()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, templates)
	}
}

func getTemplateHandler(store *PromptStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		template, err := store.GetTemplate(chi.URLParam(r, "templateID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, template)
	}
}

func createPromptVersionHandler(store *PromptStore, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := requireEditor(id); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var content PromptContent
		if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}

		version, err := store.CreateVersion(chi.URLParam(r, "templateID"), content, id.User)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "PROMPT_VERSION_CREATED",
			EntityType: "PROMPT_VERSION",
			EntityID:   version.ID,
			Payload:    version,
		})
		apierrors.WriteJSON(w, http.StatusCreated, version)
	}
}

func listPromptVersionsHandler(store *PromptStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versions, err := store.ListVersions(chi.URLParam(r, "templateID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, versions)
	}
}

func getPromptVersionHandler(store *PromptStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version, err := store.GetVersion(chi.URLParam(r, "versionID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, version)
	}
}

type diffResponse struct {
	Diff string `json:"diff"`
}

func getPromptDiffHandler(store *PromptStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version, err := store.GetVersion(chi.URLParam(r, "versionID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, diffResponse{Diff: version.DiffFromPrev})
	}
}

type versionSubmitRequest struct {
	ChangeRequestID string `json:"change_request_id"`
}

func submitPromptVersionHandler(store *PromptStore, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := requireEditor(id); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var req versionSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}
		if req.ChangeRequestID == "" {
			apierrors.WriteError(w, apierrors.Validation("change_request_id", "must not be empty"))
			return
		}

		version, err := store.SubmitVersion(chi.URLParam(r, "versionID"), req.ChangeRequestID)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "PROMPT_VERSION_SUBMITTED",
			EntityType: "PROMPT_VERSION",
			EntityID:   version.ID,
			Payload:    version,
			PrevState:  string(VersionDraft),
			NewState:   string(VersionSubmitted),
		})
		apierrors.WriteJSON(w, http.StatusOK, version)
	}
}

type createSourceRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	SourceType  RAGSourceType `json:"source_type"`
}

func createSourceHandler(store *RAGStore, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := requireEditor(id); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var req createSourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}

		source, err := store.CreateSource(req.Name, req.Description, req.SourceType, id.User)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "RAG_SOURCE_CREATED",
			EntityType: "RAG_SOURCE",
			EntityID:   source.ID,
			Payload:    source,
		})
		apierrors.WriteJSON(w, http.StatusCreated, source)
	}
}

func listSourcesHandler(store *RAGStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := store.ListSources()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, sources)
	}
}

func getSourceHandler(store *RAGStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source, err := store.GetSource(chi.URLParam(r, "sourceID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, source)
	}
}

func createRAGVersionHandler(store *RAGStore, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := requireEditor(id); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var content RAGContent
		if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}

		version, err := store.CreateVersion(chi.URLParam(r, "sourceID"), content, id.User)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "RAG_VERSION_CREATED",
			EntityType: "RAG_SOURCE_VERSION",
			EntityID:   version.ID,
			Payload:    version,
		})
		apierrors.WriteJSON(w, http.StatusCreated, version)
	}
}

func listRAGVersionsHandler(store *RAGStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versions, err := store.ListVersions(chi.URLParam(r, "sourceID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, versions)
	}
}

func getRAGVersionHandler(store *RAGStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version, err := store.GetVersion(chi.URLParam(r, "versionID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, version)
	}
}

func getRAGDiffHandler(store *RAGStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version, err := store.GetVersion(chi.URLParam(r, "versionID"))
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, diffResponse{Diff: version.DiffFromPrev})
	}
}

func submitRAGVersionHandler(store *RAGStore, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := requireEditor(id); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var req versionSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}
		if req.ChangeRequestID == "" {
			apierrors.WriteError(w, apierrors.Validation("change_request_id", "must not be empty"))
			return
		}

		version, err := store.SubmitVersion(chi.URLParam(r, "versionID"), req.ChangeRequestID)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "RAG_VERSION_SUBMITTED",
			EntityType: "RAG_SOURCE_VERSION",
			EntityID:   version.ID,
			Payload:    version,
			PrevState:  string(VersionDraft),
			NewState:   string(VersionSubmitted),
		})
		apierrors.WriteJSON(w, http.StatusOK, version)
	}
}

type promptActivationRequest struct {
	PromptVersionID string `json:"prompt_version_id"`
	ChangeRequestID string `json:"change_request_id"`
}

// ActivatePromptHandler handles POST /ai-systems/{systemID}/prompts/activate;
// the server mounts it alongside the registry routes.
func ActivatePromptHandler(binder *Binder, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := authz.RequireAny(id, authz.RoleAdmin, authz.RoleAIOwner, authz.RoleCompliance); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var req promptActivationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}

		activation, err := binder.ActivatePrompt(chi.URLParam(r, "systemID"), req.PromptVersionID, req.ChangeRequestID, id)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "PROMPT_VERSION_ACTIVATED",
			EntityType: "PROMPT_VERSION",
			EntityID:   req.PromptVersionID,
			Payload:    activation,
			PrevState:  string(VersionSubmitted),
			NewState:   string(VersionActive),
		})
		apierrors.WriteJSON(w, http.StatusOK, activation)
	}
}

type ragActivationRequest struct {
	RAGSourceVersionID string `json:"rag_source_version_id"`
	ChangeRequestID    string `json:"change_request_id"`
}

// ActivateRAGHandler handles POST /ai-systems/{systemID}/rag/activate.
func ActivateRAGHandler(binder *Binder, recorder *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		if err := authz.RequireAny(id, authz.RoleAdmin, authz.RoleAIOwner, authz.RoleCompliance); err != nil {
			apierrors.WriteError(w, err)
			return
		}

		var req ragActivationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.WriteError(w, apierrors.Validation("body", "invalid JSON"))
			return
		}

		activation, err := binder.ActivateRAG(chi.URLParam(r, "systemID"), req.RAGSourceVersionID, req.ChangeRequestID, id)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		recorder.Record(audit.Entry{
			Actor:      id.User,
			Action:     "RAG_VERSION_ACTIVATED",
			EntityType: "RAG_SOURCE_VERSION",
			EntityID:   req.RAGSourceVersionID,
			Payload:    activation,
			PrevState:  string(VersionSubmitted),
			NewState:   string(VersionActive),
		})
		apierrors.WriteJSON(w, http.StatusOK, activation)
	}
}
