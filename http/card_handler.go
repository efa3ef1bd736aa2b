package http

import (
	"net/http"

	"go.uber.org/zap"

	"reward-advisor/service"
)

type CardHandler struct {
	advisor *service.AdvisorService
	logger  *zap.Logger
}

func NewCardHandler(advisor *service.AdvisorService, logger *zap.Logger) *CardHandler {
	return &CardHandler{advisor: advisor, logger: logger}
}

// OptimizeCard handles POST /cards/optimize.
func (h *CardHandler) OptimizeCard(w http.ResponseWriter, r *http.Request) {
	var req service.CardRequest
	if !decodePOST(w, r, &req) {
		return
	}

	advice, err := h.advisor.OptimizeCard(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}
