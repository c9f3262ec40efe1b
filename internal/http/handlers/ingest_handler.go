package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voltlog/internal/service"
	"voltlog/internal/telemetry"
)

// Acknowledgement expected by the uploader firmware. Anything else makes the
// device queue and resend, so every ingest path answers with this literal.
const ingestAck = "OK!"

// IngestHandler accepts raw device samples.
type IngestHandler struct {
	validator *telemetry.Validator
	ingest    *service.IngestService
	logger    *zap.Logger
}

// NewIngestHandler builds the handler.
func NewIngestHandler(validator *telemetry.Validator, ingest *service.IngestService, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		validator: validator,
		ingest:    ingest,
		logger:    logger,
	}
}

// Handle processes POST /ingest. Processing failures are logged with a
// correlation id and swallowed; the device always gets the acknowledgement.
func (h *IngestHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ingestID := uuid.NewString()

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("ingest form parse failed",
			zap.String("ingest_id", ingestID),
			zap.Error(err),
		)
		writeAck(w)
		return
	}

	sample := h.validator.Normalize(r.Form)
	if err := h.ingest.Ingest(r.Context(), sample); err != nil {
		h.logger.Error("ingest pipeline failed",
			zap.String("ingest_id", ingestID),
			zap.String("session_id", sample.SessionID),
			zap.Error(err),
		)
	}
	writeAck(w)
}

func writeAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ingestAck))
}
