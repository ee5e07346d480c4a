package handlers

import (
	"net/http"

	"github.com/Dosada05/forecast-league/middleware"
	"github.com/Dosada05/forecast-league/services"
)

type ForecastHandler struct {
	forecastService services.ForecastService
}

func NewForecastHandler(forecastService services.ForecastService) *ForecastHandler {
	return &ForecastHandler{forecastService: forecastService}
}

// SubmitHandler обрабатывает PUT /tournaments/{tournamentID}/forecast.
// Повторная отправка заменяет существующий прогноз пользователя.
func (h *ForecastHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to submit a forecast")
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Picks []int `json:"picks"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	forecast, err := h.forecastService.Submit(r.Context(), userID, tournamentID, input.Picks)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"forecast": forecast}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetOwnHandler обрабатывает GET /tournaments/{tournamentID}/forecast
func (h *ForecastHandler) GetOwnHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	forecast, err := h.forecastService.GetOwn(r.Context(), userID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"forecast": forecast}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// WithdrawHandler обрабатывает DELETE /tournaments/{tournamentID}/forecast
func (h *ForecastHandler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.forecastService.Withdraw(r.Context(), userID, tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListByTournamentHandler обрабатывает GET /tournaments/{tournamentID}/forecasts
func (h *ForecastHandler) ListByTournamentHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	forecasts, err := h.forecastService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"forecasts": forecasts}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
