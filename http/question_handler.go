package http

import (
	"net/http"

	"go.uber.org/zap"

	"reward-advisor/service"
)

type QuestionHandler struct {
	advisor *service.AdvisorService
	logger  *zap.Logger
}

func NewQuestionHandler(advisor *service.AdvisorService, logger *zap.Logger) *QuestionHandler {
	return &QuestionHandler{advisor: advisor, logger: logger}
}

// Ask handles POST /advisor/ask.
func (h *QuestionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req service.QuestionRequest
	if !decodePOST(w, r, &req) {
		return
	}

	answer, err := h.advisor.Ask(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}
