package get_org_status

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/service/status"
)

const (
	msgInvalidOrgID = "некорректный ID организации"
	msgNotFound     = "организация не найдена"
)

type Handler struct {
	service StatusService
	logger  Logger
}

func NewHandler(service StatusService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/organizations/{orgId}/status
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orgID, err := strconv.ParseInt(vars["orgId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /organizations/{id}/status - Invalid organization ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidOrgID)
		return
	}

	result, err := h.service.GetOrganizationStatus(r.Context(), orgID)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrOrganizationNotFound):
			h.logger.Warn("GET /organizations/{id}/status - Organization not found: org_id=%d", orgID)
			handlers.RespondNotFound(w, msgNotFound)

		default:
			h.logger.Error("GET /organizations/{id}/status - Failed to get status: org_id=%d, error=%v",
				orgID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /organizations/{id}/status - Status retrieved: org_id=%d, occupied=%d/%d",
		orgID, result.OccupiedSlots, result.TotalSlots)
	handlers.RespondJSON(w, http.StatusOK, result)
}
