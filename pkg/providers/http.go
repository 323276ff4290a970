package providers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/carebridge-health/platform/pkg/common/logger"
	"github.com/carebridge-health/platform/pkg/common/models"
	"github.com/carebridge-health/platform/pkg/match"
	"github.com/carebridge-health/platform/pkg/observability/metrics"
	"github.com/carebridge-health/platform/pkg/patients"
	"github.com/gorilla/mux"
)

type Handler struct {
	service   *Service
	matcher   *match.Matcher
	patients  *patients.Repository
	rankLimit int
}

func NewHandler(service *Service, matcher *match.Matcher, patientRepo *patients.Repository, rankLimit int) *Handler {
	if rankLimit <= 0 {
		rankLimit = 10
	}
	return &Handler{service: service, matcher: matcher, patients: patientRepo, rankLimit: rankLimit}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/providers", h.handleUpsertProvider).Methods(http.MethodPost)
	r.HandleFunc("/providers", h.handleListProviders).Methods(http.MethodGet)
	r.HandleFunc("/providers/{id}", h.handleGetProvider).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/providers", h.handleRankProviders).Methods(http.MethodGet)
}

func (h *Handler) handleUpsertProvider(w http.ResponseWriter, r *http.Request) {
	var provider models.Provider
	if err := json.NewDecoder(r.Body).Decode(&provider); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if provider.ID == "" || provider.Name == "" {
		http.Error(w, "id and name are required", http.StatusBadRequest)
		return
	}
	if provider.Rating < 0 || provider.Rating > 5 {
		http.Error(w, "rating must be between 0 and 5", http.StatusBadRequest)
		return
	}
	if err := h.service.Upsert(r.Context(), provider); err != nil {
		logger.Log.WithError(err).Error("failed to store provider")
		http.Error(w, "failed to store provider", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"provider": provider})
}

func (h *Handler) handleListProviders(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.service.Snapshot(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to load provider snapshot")
		http.Error(w, "failed to load providers", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	filtered := Filter(candidates, query.Get("specialty"), query.Get("insurance"))
	if limit := parsePositiveInt(query.Get("limit")); limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": filtered})
}

func (h *Handler) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	provider, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			http.Error(w, "provider not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get provider")
		http.Error(w, "failed to get provider", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"provider": provider})
}

func (h *Handler) handleRankProviders(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.patients.GetSnapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get patient snapshot")
		http.Error(w, "failed to get patient", http.StatusInternalServerError)
		return
	}

	candidates, err := h.service.Snapshot(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to load provider snapshot")
		http.Error(w, "failed to load providers", http.StatusInternalServerError)
		return
	}

	opts := parseRankOptions(r, h.rankLimit)
	ranked := h.matcher.RankProviders(candidates, snapshot, opts)
	metrics.ObserveRankingServed()
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": ranked})
}

func parseRankOptions(r *http.Request, defaultLimit int) models.RankOptions {
	opts := models.RankOptions{Limit: defaultLimit}
	query := r.URL.Query()

	if raw := query.Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			opts.Limit = v
		}
	}
	if raw := query.Get("max_distance_km"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			opts.MaxDistanceKm = &v
		}
	}
	if raw := query.Get("min_rating"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 {
			opts.MinRating = &v
		}
	}
	return opts
}

func parsePositiveInt(raw string) int {
	if raw == "" {
		return 0
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
