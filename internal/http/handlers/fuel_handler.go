package handlers

import (
	"net/http"

	"voltlog/internal/service"
)

// NewFuelEventsHandler returns GET /api/fuel-events handler.
func NewFuelEventsHandler(svc *service.HistoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := svc.FuelEvents(r.Context(), listLimit(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch fuel events")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"fuel_events": events,
		})
	}
}
