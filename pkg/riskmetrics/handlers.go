package riskmetrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aigovtower/grc-registry/pkg/apierrors"
)

// highHallucinationRate is the rate above which a system is flagged in the
// risk reports.
const highHallucinationRate = 0.2

// highVolatilityChanges is the 30-day change count above which a system is
// flagged as volatile.
const highVolatilityChanges = 10

// NewRouter creates a chi router with the read-only risk reporting routes.
func NewRouter(service *Service) chi.Router {
	r := chi.NewRouter()
	r.Get("/summary", summaryHandler(service))
	r.Get("/ai-systems/{systemID}", systemRiskHandler(service))
	r.Get("/trends/hallucinations", hallucinationTrendHandler(service))
	r.Get("/trends/severity", severityTrendHandler(service))
	r.Get("/trends/repeated-incidents", repeatedIncidentsHandler(service))
	r.Get("/drift", driftHandler(service))
	r.Get("/reactive-changes", reactiveChangesHandler(service))
	return r
}

func summaryHandler(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		severityCounts, err := service.CountIncidentsBySeverity()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		rates, err := service.HallucinationRatePerSystem()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		changes, err := service.ChangeCountsLast30Days()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		highRisk := false
		for _, rate := range rates {
			if rate.HallucinationRate > highHallucinationRate {
				highRisk = true
				break
			}
		}

		apierrors.WriteJSON(w, http.StatusOK, map[string]any{
			"incident_severity_counts": severityCounts,
			"hallucination_rates":      rates,
			"changes_last_30_days":     changes,
			"flags": map[string]any{
				"high_risk": highRisk,
			},
		})
	}
}

func systemRiskHandler(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		systemID := chi.URLParam(r, "systemID")

		rates, err := service.HallucinationRatePerSystem()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		changes, err := service.ChangesLast30Days(systemID)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}

		rate := rates[systemID]
		apierrors.WriteJSON(w, http.StatusOK, map[string]any{
			"system_id":            systemID,
			"hallucination_data":   rate,
			"changes_last_30_days": changes,
			"flags": map[string]any{
				"high_hallucination_rate": rate.HallucinationRate > highHallucinationRate,
				"high_volatility":         changes > highVolatilityChanges,
			},
		})
	}
}

func hallucinationTrendHandler(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := service.HallucinationsLastWeek()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, map[string]int{"hallucinations_last_7_days": count})
	}
}

func severityTrendHandler(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, _ := strconv.Atoi(r.URL.Query().Get("days"))
		trend, err := service.SeverityTrend(days)
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, trend)
	}
}

func repeatedIncidentsHandler(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := service.RepeatedIncidents()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, counts)
	}
}

func driftHandler(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promptDrift, err := service.PromptDrift()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		ragDrift, err := service.RAGDrift()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, map[string]any{
			"prompt_drift": promptDrift,
			"rag_drift":    ragDrift,
		})
	}
}

func reactiveChangesHandler(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reactive, err := service.ChangeAfterIncident()
		if err != nil {
			apierrors.WriteError(w, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, reactive)
	}
}
