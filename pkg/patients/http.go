package patients

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carebridge-health/platform/pkg/common/logger"
	"github.com/carebridge-health/platform/pkg/observability/metrics"
	"github.com/carebridge-health/platform/pkg/risk"
	"github.com/gorilla/mux"
)

type Handler struct {
	normalizer *Normalizer
	repo       *Repository
	scorer     *risk.Scorer
}

func NewHandler(normalizer *Normalizer, repo *Repository, scorer *risk.Scorer) *Handler {
	return &Handler{normalizer: normalizer, repo: repo, scorer: scorer}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/patients", h.handleUpsertPatient).Methods(http.MethodPost)
	r.HandleFunc("/patients/{id}", h.handleGetPatient).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/risk", h.handleGetRisk).Methods(http.MethodGet)
}

func (h *Handler) handleUpsertPatient(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	snapshot, err := h.normalizer.Normalize(raw)
	if err != nil {
		if errors.Is(err, ErrInvalidPatient) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to normalize patient")
		http.Error(w, "failed to normalize patient", http.StatusInternalServerError)
		return
	}
	if err := h.repo.Upsert(r.Context(), snapshot, raw); err != nil {
		logger.Log.WithError(err).Error("failed to store patient snapshot")
		http.Error(w, "failed to store patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"patient": snapshot})
}

func (h *Handler) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.repo.GetSnapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get patient snapshot")
		http.Error(w, "failed to get patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patient": snapshot})
}

func (h *Handler) handleGetRisk(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.repo.GetSnapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get patient snapshot")
		http.Error(w, "failed to get patient", http.StatusInternalServerError)
		return
	}

	result, err := h.scorer.ComputeRisk(snapshot)
	if err != nil {
		if errors.Is(err, risk.ErrValidation) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		logger.Log.WithError(err).Error("failed to compute risk")
		http.Error(w, "failed to compute risk", http.StatusInternalServerError)
		return
	}
	metrics.ObserveRiskLevel(string(result.Level))
	writeJSON(w, http.StatusOK, map[string]interface{}{"risk": result})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
