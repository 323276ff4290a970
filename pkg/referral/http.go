package referral

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/carebridge-health/platform/pkg/common/logger"
	"github.com/carebridge-health/platform/pkg/common/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/referrals", h.handleCreateReferral).Methods(http.MethodPost)
	r.HandleFunc("/referrals/{id}", h.handleGetReferral).Methods(http.MethodGet)
	r.HandleFunc("/referrals/{id}/history", h.handleGetHistory).Methods(http.MethodGet)
	r.HandleFunc("/referrals/{id}/schedule", h.handleScheduleReferral).Methods(http.MethodPost)
	r.HandleFunc("/referrals/{id}/complete", h.handleCompleteReferral).Methods(http.MethodPost)
	r.HandleFunc("/referrals/{id}/cancel", h.handleCancelReferral).Methods(http.MethodPost)
	r.HandleFunc("/patients/{id}/referrals", h.handleListPatientReferrals).Methods(http.MethodGet)
}

func (h *Handler) handleCreateReferral(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	referral, err := h.service.CreateReferral(r.Context(), req, actorFrom(r))
	if err != nil {
		writeError(w, err, "failed to create referral")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"referral": referral})
}

func (h *Handler) handleGetReferral(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid referral id", http.StatusBadRequest)
		return
	}
	referral, err := h.service.GetReferral(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to get referral")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"referral": referral})
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid referral id", http.StatusBadRequest)
		return
	}
	history, err := h.service.GetHistory(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to get referral history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": history})
}

func (h *Handler) handleScheduleReferral(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid referral id", http.StatusBadRequest)
		return
	}
	var req models.ScheduleReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	referral, err := h.service.ScheduleReferral(r.Context(), id, req, actorFrom(r))
	if err != nil {
		writeError(w, err, "failed to schedule referral")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"referral": referral})
}

func (h *Handler) handleCompleteReferral(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.CompleteReferral, "failed to complete referral")
}

func (h *Handler) handleCancelReferral(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.CancelReferral, "failed to cancel referral")
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID, req models.TransitionRequest, actor string) (models.Referral, error), message string) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid referral id", http.StatusBadRequest)
		return
	}
	var req models.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	referral, err := op(r.Context(), id, req, actorFrom(r))
	if err != nil {
		writeError(w, err, message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"referral": referral})
}

func (h *Handler) handleListPatientReferrals(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]
	if patientID == "" {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	limit := parseLimit(r, 25)
	referrals, err := h.service.ListByPatient(r.Context(), patientID, limit)
	if err != nil {
		writeError(w, err, "failed to list referrals")
		return
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := models.ParseReferralStatus(raw)
		if !ok {
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
		filtered := make([]models.Referral, 0, len(referrals))
		for _, referral := range referrals {
			if referral.Status == status {
				filtered = append(filtered, referral)
			}
		}
		referrals = filtered
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": referrals})
}

func writeError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "referral not found", http.StatusNotFound)
	case errors.Is(err, ErrActiveReferralExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrVersionConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		logger.Log.WithError(err).Error(message)
		http.Error(w, message, http.StatusInternalServerError)
	}
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return fallback
}

func actorFrom(r *http.Request) string {
	if r == nil {
		return "system"
	}
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "system"
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
