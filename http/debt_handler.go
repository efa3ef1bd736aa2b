package http

import (
	"net/http"

	"go.uber.org/zap"

	"reward-advisor/service"
)

type DebtHandler struct {
	advisor *service.AdvisorService
	logger  *zap.Logger
}

func NewDebtHandler(advisor *service.AdvisorService, logger *zap.Logger) *DebtHandler {
	return &DebtHandler{advisor: advisor, logger: logger}
}

// PlanDebts handles POST /debts/plan.
func (h *DebtHandler) PlanDebts(w http.ResponseWriter, r *http.Request) {
	var req service.DebtRequest
	if !decodePOST(w, r, &req) {
		return
	}

	advice, err := h.advisor.PlanDebts(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}
