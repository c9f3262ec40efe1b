package handlers

import (
	"net/http"

	"voltlog/internal/service"
)

// NewChargingSessionsHandler returns GET /api/charging-sessions handler.
func NewChargingSessionsHandler(svc *service.HistoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := svc.ChargingSessions(r.Context(), listLimit(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch charging sessions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"charging_sessions": sessions,
		})
	}
}

// NewBatteryHealthHandler returns GET /api/battery/health handler.
func NewBatteryHealthHandler(svc *service.HistoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health, err := svc.Battery(r.Context(), listLimit(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to compute battery health")
			return
		}
		writeJSON(w, http.StatusOK, health)
	}
}
