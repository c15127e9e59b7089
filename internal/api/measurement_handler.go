package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/measure-api/internal/api/shared"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/platform/logger"
	"github.com/phrazzld/measure-api/internal/service"
)

// MeasurementResponse is a measurement with its display value.
type MeasurementResponse struct {
	*domain.Measurement
	FormattedValue string `json:"formatted_value"`
}

func newMeasurementResponse(m *domain.Measurement) MeasurementResponse {
	return MeasurementResponse{Measurement: m, FormattedValue: m.FormattedValue()}
}

// MeasurementHandler handles measurement-related HTTP requests.
type MeasurementHandler struct {
	measurementService service.MeasurementService
	logger             *slog.Logger
}

// NewMeasurementHandler creates a new MeasurementHandler.
func NewMeasurementHandler(measurementService service.MeasurementService, logger *slog.Logger) *MeasurementHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MeasurementHandler{
		measurementService: measurementService,
		logger:             logger.With("component", "measurement_handler"),
	}
}

// Submit handles POST /api/tasks/{taskID}/photos/{photoID}/measurements
func (h *MeasurementHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "taskID", "photoID")
	if !ok {
		return
	}

	var submission service.Submission
	if err := shared.DecodeJSON(r, &submission); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	result, err := h.measurementService.Submit(r.Context(), ids[0], ids[1], submission)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record measurement")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("measurement submitted",
		"measurement_id", result.Measurement.ID)

	shared.RespondWithJSON(w, r, http.StatusCreated, MeasurementResponse{
		Measurement:    result.Measurement,
		FormattedValue: result.FormattedValue,
	})
}

// Get handles GET /api/measurements/{id}
func (h *MeasurementHandler) Get(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}

	measurement, err := h.measurementService.Get(r.Context(), ids[0])
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get measurement")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newMeasurementResponse(measurement))
}

// Revise handles PUT /api/measurements/{id}
func (h *MeasurementHandler) Revise(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}

	var revision service.Revision
	if err := shared.DecodeJSON(r, &revision); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	measurement, err := h.measurementService.Revise(r.Context(), ids[0], revision)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update measurement")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, newMeasurementResponse(measurement))
}

// Delete handles DELETE /api/measurements/{id}
func (h *MeasurementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathUUIDs(w, r, "id")
	if !ok {
		return
	}

	if err := h.measurementService.Delete(r.Context(), ids[0]); err != nil {
		HandleAPIError(w, r, err, "Failed to delete measurement")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
