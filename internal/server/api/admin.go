package api

import (
	"net/http"

	"github.com/greenpanipat/plantation-tracker/internal/server/services"
	"github.com/greenpanipat/plantation-tracker/pkg/models"
)

type StatsHandler struct {
	statsService *services.StatsService
}

func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// Leaderboard handles GET /api/leaderboard (public).
func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.statsService.Leaderboard(r.Context())
	if err != nil {
		respondAppError(w, err)
		return
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// AdminStats handles GET /api/admin/stats.
func (h *StatsHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.AdminStats(r.Context())
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Chart handles GET /api/admin/chart.
func (h *StatsHandler) Chart(w http.ResponseWriter, r *http.Request) {
	series, err := h.statsService.WeeklySeries(r.Context())
	if err != nil {
		respondAppError(w, err)
		return
	}
	if series == nil {
		series = []models.WeeklyBucket{}
	}
	respondJSON(w, http.StatusOK, series)
}
