package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/forecast-league/middleware"
	"github.com/Dosada05/forecast-league/services"
)

var errInvalidLimit = errors.New("limit must be between 1 and 100")

type StatsHandler struct {
	statsService services.StatsService
}

func NewStatsHandler(statsService services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// MyStatsHandler обрабатывает GET /users/me/stats
func (h *StatsHandler) MyStatsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	stats, err := h.statsService.GetUserStats(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{
		"stats":      stats,
		"accuracy":   stats.Accuracy(),
		"mean_error": stats.MeanError(),
	}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// LeaderboardHandler обрабатывает GET /leaderboard?limit=10
func (h *StatsHandler) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 100 {
			badRequestResponse(w, r, errInvalidLimit)
			return
		}
		limit = parsed
	}

	leaderboard, err := h.statsService.Leaderboard(r.Context(), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": leaderboard}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CurrentSeasonHandler обрабатывает GET /seasons/current
func (h *StatsHandler) CurrentSeasonHandler(w http.ResponseWriter, r *http.Request) {
	season, err := h.statsService.CurrentSeason(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"season": season}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SeasonHandler обрабатывает GET /seasons/{seasonNumber}
func (h *StatsHandler) SeasonHandler(w http.ResponseWriter, r *http.Request) {
	number, err := getIDFromURL(r, "seasonNumber")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	season, err := h.statsService.Season(r.Context(), number)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"season": season}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
