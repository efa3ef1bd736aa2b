package http

import (
	"net/http"

	"go.uber.org/zap"

	"reward-advisor/service"
)

type SpendingHandler struct {
	advisor *service.AdvisorService
	logger  *zap.Logger
}

func NewSpendingHandler(advisor *service.AdvisorService, logger *zap.Logger) *SpendingHandler {
	return &SpendingHandler{advisor: advisor, logger: logger}
}

// AnalyzeSpending handles POST /spending/analyze.
func (h *SpendingHandler) AnalyzeSpending(w http.ResponseWriter, r *http.Request) {
	var req service.SpendingRequest
	if !decodePOST(w, r, &req) {
		return
	}

	analysis, err := h.advisor.AnalyzeSpending(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}
