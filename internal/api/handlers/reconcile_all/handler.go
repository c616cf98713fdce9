package reconcile_all

import (
	"net/http"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
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

// Handle POST /api/v1/admin/reconcile
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	result, err := h.useCase.ReconcileAll(r.Context())
	if err != nil {
		h.logger.Error("POST /admin/reconcile - Failed: %v", err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("POST /admin/reconcile - Done: organizations=%d, corrected=%d, failed=%d",
		len(result.Results), result.CorrectedCount(), len(result.Failed))
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResult(result))
}
