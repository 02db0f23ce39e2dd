package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/quote-harvester/internal/delivery/http/response"
	"github.com/user/quote-harvester/internal/usecase"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

type Handler struct {
	status usecase.StatusService
}

func NewHandler(status usecase.StatusService) *Handler {
	return &Handler{
		status: status,
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := response.HealthResponse{Status: "ok", Checks: map[string]string{}}
	code := http.StatusOK
	for name, err := range h.status.Health(r.Context()) {
		if err != nil {
			slog.Warn("Health check failed", "dependency", name, "error", err)
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	h.writeJSON(w, code, resp)
}

func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.status.Stats(r.Context())
	if err != nil {
		slog.Error("Failed to get store stats", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewStatsResponse(stats))
}

func (h *Handler) HandleGetRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.status.RecentRuns(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to get recent runs", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.RunsResponse{Runs: runs})
}

func (h *Handler) HandleResetCheckpoint(w http.ResponseWriter, r *http.Request) {
	siteKey := chi.URLParam(r, "siteKey")
	if err := h.status.ResetCheckpoint(r.Context(), siteKey); err != nil {
		if errors.Is(err, usecase.ErrUnknownSite) {
			h.writeJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to reset checkpoint", "site", siteKey, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.ResetResponse{
		Status:  "success",
		Message: "Checkpoint reset, next crawl starts from the first page",
		SiteKey: siteKey,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
