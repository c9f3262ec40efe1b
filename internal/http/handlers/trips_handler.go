package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"voltlog/internal/service"
)

// NewTripsHandler returns GET /api/trips handler.
func NewTripsHandler(svc *service.HistoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trips, err := svc.Trips(r.Context(), listLimit(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch trips")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"trips": trips,
		})
	}
}

// NewTripDeleteHandler returns DELETE /api/trips/{id} handler.
func NewTripDeleteHandler(svc *service.HistoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.TrimPrefix(r.URL.Path, "/api/trips/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid trip id")
			return
		}

		deleted, err := svc.DeleteTrip(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to delete trip")
			return
		}
		if !deleted {
			writeError(w, http.StatusNotFound, "trip not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"deleted": id,
		})
	}
}
