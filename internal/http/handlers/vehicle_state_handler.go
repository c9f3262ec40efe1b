package handlers

import (
	"context"
	"net/http"

	"voltlog/internal/models"
)

// LatestStateReader reads the cached latest vehicle state.
type LatestStateReader interface {
	Latest(ctx context.Context) (*models.TelemetrySample, error)
}

// NewVehicleStateHandler returns GET /api/vehicle/state handler.
func NewVehicleStateHandler(state LatestStateReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sample, err := state.Latest(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch vehicle state")
			return
		}
		if sample == nil {
			writeError(w, http.StatusNotFound, "no state recorded yet")
			return
		}
		writeJSON(w, http.StatusOK, sample)
	}
}
