package http

import (
	"net/http"

	"go.uber.org/zap"

	"reward-advisor/service"
)

// NewRouter mounts every endpoint behind the rate limiter.
func NewRouter(advisor *service.AdvisorService, limiter *RateLimiter, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cards := NewCardHandler(advisor, logger)
	debts := NewDebtHandler(advisor, logger)
	spending := NewSpendingHandler(advisor, logger)
	recs := NewRecommendationHandler(advisor, logger)
	questions := NewQuestionHandler(advisor, logger)

	limited := func(h http.HandlerFunc) http.Handler {
		return RateLimitMiddleware(limiter, logger, h)
	}

	mux := http.NewServeMux()
	mux.Handle("/cards/optimize", limited(cards.OptimizeCard))
	mux.Handle("/debts/plan", limited(debts.PlanDebts))
	mux.Handle("/spending/analyze", limited(spending.AnalyzeSpending))
	mux.Handle("/recommendations/generate", limited(recs.Generate))
	mux.Handle("/recommendations", limited(recs.Current))
	mux.Handle("/advisor/ask", limited(questions.Ask))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
