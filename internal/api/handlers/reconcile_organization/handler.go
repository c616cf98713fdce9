package reconcile_organization

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/usecase/reconcile"
)

const (
	msgInvalidOrgID = "некорректный ID организации"
	msgNotFound     = "организация не найдена"
)

type Handler struct {
	useCase ReconcileUseCase
	logger  Logger
}

func NewHandler(useCase ReconcileUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/admin/organizations/{orgId}/reconcile
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orgID, err := strconv.ParseInt(vars["orgId"], 10, 64)
	if err != nil {
		h.logger.Warn("POST /admin/organizations/{id}/reconcile - Invalid organization ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidOrgID)
		return
	}

	result, err := h.useCase.Reconcile(r.Context(), orgID)
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrOrganizationNotFound):
			h.logger.Warn("POST /admin/organizations/{id}/reconcile - Organization not found: org_id=%d", orgID)
			handlers.RespondNotFound(w, msgNotFound)

		default:
			h.logger.Error("POST /admin/organizations/{id}/reconcile - Failed: org_id=%d, error=%v", orgID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /admin/organizations/{id}/reconcile - Done: org_id=%d, delta=%d", orgID, result.Delta)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResult(result))
}
