package httpserver

import "net/http"

// Routes groups handlers. The ingest and health endpoints are open; the /api
// routes are wrapped by the auth middleware and the trips route dispatches
// DELETE for the /api/trips/{id} form.
type Routes struct {
	Ingest           http.HandlerFunc
	Health           http.HandlerFunc
	Trips            http.HandlerFunc
	TripDelete       http.HandlerFunc
	ChargingSessions http.HandlerFunc
	FuelEvents       http.HandlerFunc
	BatteryHealth    http.HandlerFunc
	VehicleState     http.HandlerFunc
	Live             http.HandlerFunc
}

// NewRouter registers endpoints.
func NewRouter(routes Routes, auth func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	if routes.Ingest != nil {
		mux.Handle("/ingest", method(http.MethodPost, routes.Ingest))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.Trips != nil {
		mux.Handle("/api/trips", protect(auth, method(http.MethodGet, routes.Trips)))
	}
	if routes.TripDelete != nil {
		mux.Handle("/api/trips/", protect(auth, method(http.MethodDelete, routes.TripDelete)))
	}
	if routes.ChargingSessions != nil {
		mux.Handle("/api/charging-sessions", protect(auth, method(http.MethodGet, routes.ChargingSessions)))
	}
	if routes.FuelEvents != nil {
		mux.Handle("/api/fuel-events", protect(auth, method(http.MethodGet, routes.FuelEvents)))
	}
	if routes.BatteryHealth != nil {
		mux.Handle("/api/battery/health", protect(auth, method(http.MethodGet, routes.BatteryHealth)))
	}
	if routes.VehicleState != nil {
		mux.Handle("/api/vehicle/state", protect(auth, method(http.MethodGet, routes.VehicleState)))
	}
	if routes.Live != nil {
		mux.Handle("/ws/live", method(http.MethodGet, routes.Live))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}

func protect(auth func(http.Handler) http.Handler, handler http.Handler) http.Handler {
	if auth == nil {
		return handler
	}
	return auth(handler)
}
