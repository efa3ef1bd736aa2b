package http

import (
	"net/http"

	"go.uber.org/zap"

	"reward-advisor/domain"
	"reward-advisor/service"
)

type RecommendationHandler struct {
	advisor *service.AdvisorService
	logger  *zap.Logger
}

func NewRecommendationHandler(advisor *service.AdvisorService, logger *zap.Logger) *RecommendationHandler {
	return &RecommendationHandler{advisor: advisor, logger: logger}
}

// Generate handles POST /recommendations/generate. The user id always comes
// from the X-User-ID header, never from the body.
func (h *RecommendationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req service.RecommendationRequest
	if !decodePOST(w, r, &req) {
		return
	}
	req.UserID = userID(r)
	if req.UserID == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + userIDHeader})
		return
	}

	result, err := h.advisor.GenerateRecommendations(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type currentResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
}

// Current handles GET /recommendations.
func (h *RecommendationHandler) Current(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := userID(r)
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + userIDHeader})
		return
	}

	recs, err := h.advisor.CurrentRecommendations(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	writeJSON(w, http.StatusOK, currentResponse{Recommendations: recs})
}
