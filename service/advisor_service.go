package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reward-advisor/domain"
	"reward-advisor/repository"
)

type AdvisorConfig struct {
	OracleTimeout  time.Duration
	PlanCacheTTL   time.Duration
	WindowDays     int
	MaxRecommended int
	AnnualTxns     int
}

func DefaultAdvisorConfig() AdvisorConfig {
	return AdvisorConfig{
		OracleTimeout:  DefaultOracleTimeout,
		PlanCacheTTL:   time.Hour,
		WindowDays:     DefaultWindowDays,
		MaxRecommended: DefaultMaxRecommendations,
		AnnualTxns:     DefaultAnnualTransactionCount,
	}
}

// AdvisorDeps wires the engines and their collaborators. Nil collaborators
// get in-memory or disabled defaults.
type AdvisorDeps struct {
	Rewards    *RewardsEngine
	Planner    *DebtPayoffPlanner
	Spending   *SpendingAnalyzer
	Aggregator *RecommendationAggregator
	Validator  *OracleResultValidator
	Oracle     ExplanationSource
	Cache      repository.CacheRepository
	Repo       repository.RecommendationRepository
	Logger     *zap.Logger
	Now        func() time.Time
}

// AdvisorService computes deterministic results first and only then asks the
// oracle for prose, so an oracle failure never costs the caller the numbers.
type AdvisorService struct {
	rewards    *RewardsEngine
	planner    *DebtPayoffPlanner
	spending   *SpendingAnalyzer
	aggregator *RecommendationAggregator
	validator  *OracleResultValidator
	oracle     ExplanationSource
	cache      repository.CacheRepository
	repo       repository.RecommendationRepository
	logger     *zap.Logger
	now        func() time.Time
	cfg        AdvisorConfig
}

func NewAdvisorService(deps AdvisorDeps, cfg AdvisorConfig) *AdvisorService {
	def := DefaultAdvisorConfig()
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = def.OracleTimeout
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = def.WindowDays
	}
	if cfg.MaxRecommended <= 0 {
		cfg.MaxRecommended = def.MaxRecommended
	}
	if cfg.AnnualTxns <= 0 {
		cfg.AnnualTxns = def.AnnualTxns
	}

	s := &AdvisorService{
		rewards:    deps.Rewards,
		planner:    deps.Planner,
		spending:   deps.Spending,
		aggregator: deps.Aggregator,
		validator:  deps.Validator,
		oracle:     deps.Oracle,
		cache:      deps.Cache,
		repo:       deps.Repo,
		logger:     deps.Logger,
		now:        deps.Now,
		cfg:        cfg,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rewards == nil {
		s.rewards = NewRewardsEngine(cfg.AnnualTxns)
	}
	if s.planner == nil {
		s.planner = NewDebtPayoffPlanner(DefaultPlannerConfig())
	}
	if s.spending == nil {
		s.spending = NewSpendingAnalyzer(nil, DefaultMinSampleSize)
	}
	if s.aggregator == nil {
		ac := DefaultAggregatorConfig()
		ac.Now = s.now
		s.aggregator = NewRecommendationAggregator(ac)
	}
	if s.validator == nil {
		s.validator = NewOracleResultValidator(s.logger)
	}
	if s.oracle == nil {
		s.oracle = DisabledSource{}
	}
	if s.cache == nil {
		s.cache = repository.NewMemoryCache()
	}
	if s.repo == nil {
		s.repo = repository.NewRecommendationRepositoryMemory()
	}
	return s
}

// SetRules swaps the categorization rules used by every later request.
func (s *AdvisorService) SetRules(rules *RuleSet) {
	s.spending.SetRules(rules)
}

// OracleReport says whether oracle prose was used and what was repaired.
type OracleReport struct {
	Source      string              `json:"source"`
	Outcome     domain.Outcome      `json:"outcome,omitempty"`
	Annotations []domain.Annotation `json:"annotations,omitempty"`
	Error       string              `json:"error,omitempty"`
}

func (s *AdvisorService) oracleEnabled() bool {
	_, disabled := s.oracle.(DisabledSource)
	return !disabled
}

// ask calls the oracle under the configured timeout.
func (s *AdvisorService) ask(ctx context.Context, kind, prompt string) (string, error) {
	if !s.oracleEnabled() {
		return "", ErrOracleDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OracleTimeout)
	defer cancel()

	start := time.Now()
	raw, err := s.oracle.Explain(ctx, prompt)
	if err != nil {
		s.logger.Warn("oracle unavailable, using fallback",
			zap.String("source", s.oracle.Name()),
			zap.String("kind", kind),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}
	s.logger.Debug("oracle responded",
		zap.String("source", s.oracle.Name()),
		zap.String("kind", kind),
		zap.Int("bytes", len(raw)),
		zap.Duration("elapsed", time.Since(start)))
	return raw, nil
}

func report[T any](source string, v domain.Validated[T]) OracleReport {
	r := OracleReport{Source: source, Outcome: v.Outcome, Annotations: v.Annotations}
	if v.Err != nil {
		r.Error = v.Err.Error()
	}
	return r
}

func failedReport(source string, err error) OracleReport {
	r := OracleReport{Source: source}
	if err != nil && !errors.Is(err, ErrOracleDisabled) {
		r.Outcome = domain.OutcomeRejected
		r.Error = err.Error()
	}
	return r
}

type CardRequest struct {
	Transaction                 domain.Transaction
	Cards                       []domain.CreditCard
	CurrentCardID               string
	EstimatedAnnualTransactions int
	PriorCategorySpend          map[string]float64
}

type CardAdvice struct {
	Categorization       domain.Categorization
	Best                 domain.RewardCalculation
	Calculations         []domain.RewardCalculation
	SavingsVsCurrentCard *float64 `json:",omitempty"`
	Explanation          string
	Oracle               OracleReport
}

// OptimizeCard ranks the user's cards for one purchase.
func (s *AdvisorService) OptimizeCard(ctx context.Context, req CardRequest) (CardAdvice, error) {
	txn := req.Transaction
	var cat domain.Categorization
	if s.oracleEnabled() {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.OracleTimeout)
		cat = s.spending.CategorizeWithOracle(cctx, txn, OracleClassifier{Source: s.oracle}, s.validator)
		cancel()
	} else {
		cat = s.spending.Categorize(txn)
	}
	if txn.Category == nil {
		txn = txn.WithResolved(cat.Category)
	}

	calcs, err := s.rewards.Evaluate(txn, req.Cards, EvaluateOptions{
		EstimatedAnnualTransactions: req.EstimatedAnnualTransactions,
		PriorCategorySpend:          req.PriorCategorySpend,
	})
	if err != nil {
		return CardAdvice{}, err
	}

	advice := CardAdvice{
		Categorization: cat,
		Best:           calcs[0],
		Calculations:   calcs,
		Explanation:    fallbackCardExplanation(calcs),
	}
	if savings, ok := SavingsVersus(calcs, req.CurrentCardID); ok {
		advice.SavingsVsCurrentCard = &savings
	}

	raw, err := s.ask(ctx, "card_advice", cardAdvicePrompt(txn, req.Cards, calcs))
	if err != nil {
		advice.Oracle = failedReport(s.oracle.Name(), err)
		return advice, nil
	}

	known := domain.NewKnownEntities()
	for _, c := range req.Cards {
		known.CardIDs[c.ID] = struct{}{}
	}
	v := s.validator.ValidateCardAdvice(raw, CardAdviceCheck{
		Known:         known,
		Calculations:  calcs,
		CurrentCardID: req.CurrentCardID,
	})
	advice.Oracle = report(s.oracle.Name(), v)
	if v.Usable() && v.Value.Reasoning != "" {
		advice.Explanation = v.Value.Reasoning
	}
	return advice, nil
}

type DebtRequest struct {
	Debts               []domain.Debt
	ExtraMonthlyPayment float64
	Strategy            domain.Strategy
}

type DebtAdvice struct {
	Plan   domain.PayoffPlan
	Cached bool
	Oracle OracleReport
}

// PlanDebts simulates the payoff plan off the calling goroutine and explains it.
func (s *AdvisorService) PlanDebts(ctx context.Context, req DebtRequest) (DebtAdvice, error) {
	plan, cached, err := s.plan(ctx, req.Debts, req.ExtraMonthlyPayment, req.Strategy)
	if err != nil {
		return DebtAdvice{}, err
	}
	advice := DebtAdvice{Plan: plan, Cached: cached}
	advice.Plan.Explanation = fallbackDebtExplanation(plan)

	raw, err := s.ask(ctx, "debt_advice", debtAdvicePrompt(req.Debts, req.ExtraMonthlyPayment, plan))
	if err != nil {
		advice.Oracle = failedReport(s.oracle.Name(), err)
		return advice, nil
	}

	known := domain.NewKnownEntities()
	for _, d := range req.Debts {
		known.DebtNames[d.Name] = struct{}{}
	}
	v := s.validator.ValidateDebtAdvice(raw, known, plan)
	advice.Oracle = report(s.oracle.Name(), v)
	if v.Usable() && v.Value.Reasoning != "" {
		advice.Plan.Explanation = v.Value.Reasoning
	}
	return advice, nil
}

// plan returns a cached plan or runs the simulation on its own goroutine.
func (s *AdvisorService) plan(
	ctx context.Context,
	debts []domain.Debt,
	extra float64,
	strategy domain.Strategy,
) (domain.PayoffPlan, bool, error) {
	if strategy == "" {
		strategy = domain.StrategyHybrid
	}
	key := planCacheKey(s.planner.Config(), debts, extra, strategy)
	if cached, ok := s.cache.Get(ctx, key); ok {
		var plan domain.PayoffPlan
		if err := json.Unmarshal([]byte(cached), &plan); err == nil {
			s.logger.Debug("payoff plan cache hit", zap.String("key", key))
			return plan, true, nil
		}
		s.logger.Warn("discarding unreadable cached plan", zap.String("key", key))
	}

	var (
		g    errgroup.Group
		plan domain.PayoffPlan
	)
	g.Go(func() error {
		var err error
		plan, err = s.planner.Plan(debts, extra, strategy)
		return err
	})
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case <-ctx.Done():
		return domain.PayoffPlan{}, false, ctx.Err()
	case err := <-done:
		if err != nil {
			return domain.PayoffPlan{}, false, err
		}
	}

	if data, err := json.Marshal(plan); err == nil {
		if err := s.cache.Set(ctx, key, string(data), s.cfg.PlanCacheTTL); err != nil {
			s.logger.Warn("failed to cache payoff plan", zap.String("key", key), zap.Error(err))
		}
	}
	return plan, false, nil
}

type SpendingRequest struct {
	Transactions []domain.Transaction
	WindowEnd    time.Time // zero means now
	WindowDays   int
}

func (s *AdvisorService) window(end time.Time, days int) domain.Window {
	if end.IsZero() {
		end = s.now()
	}
	if days <= 0 {
		days = s.cfg.WindowDays
	}
	return domain.TrailingWindow(end, days)
}

func (s *AdvisorService) AnalyzeSpending(_ context.Context, req SpendingRequest) (domain.SpendingAnalysis, error) {
	return s.spending.Analyze(req.Transactions, s.window(req.WindowEnd, req.WindowDays))
}

type RecommendationRequest struct {
	UserID              string
	Cards               []domain.CreditCard
	Transactions        []domain.Transaction
	Debts               []domain.Debt
	ExtraMonthlyPayment float64
	Strategy            domain.Strategy
	WindowEnd           time.Time
	WindowDays          int
	MaxCount            int
}

type RecommendationResult struct {
	Recommendations []domain.Recommendation
	Summary         string
	Warnings        []string `json:",omitempty"`
	Oracle          OracleReport
}

// GenerateRecommendations runs the engines in parallel, aggregates, attaches
// validated rationale when the oracle cooperates, and persists the result.
func (s *AdvisorService) GenerateRecommendations(ctx context.Context, req RecommendationRequest) (RecommendationResult, error) {
	if req.UserID == "" {
		return RecommendationResult{}, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	window := s.window(req.WindowEnd, req.WindowDays)

	var (
		mu       sync.Mutex
		warnings []string
		outcomes []RewardOutcome
		plan     *domain.PayoffPlan
		analysis *domain.SpendingAnalysis
	)
	warn := func(msg string) {
		mu.Lock()
		warnings = append(warnings, msg)
		mu.Unlock()
	}

	eg, egCtx := errgroup.WithContext(ctx)

	if len(req.Cards) > 0 && len(req.Transactions) > 0 {
		eg.Go(func() error {
			out, err := s.rewardOutcomes(req.Transactions, req.Cards, window)
			if errors.Is(err, domain.ErrNoEligibleCards) {
				warn("no active cards to compare")
				return nil
			}
			outcomes = out
			return err
		})
	}

	if len(req.Debts) > 0 {
		eg.Go(func() error {
			p, _, err := s.plan(egCtx, req.Debts, req.ExtraMonthlyPayment, req.Strategy)
			if errors.Is(err, domain.ErrPlanDoesNotConverge) {
				warn("debt plan does not converge with the current payments")
				return nil
			}
			if err != nil {
				return err
			}
			plan = &p
			return nil
		})
	}

	if len(req.Transactions) > 0 {
		eg.Go(func() error {
			a, err := s.spending.Analyze(req.Transactions, window)
			if err != nil {
				return err
			}
			analysis = &a
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return RecommendationResult{}, err
	}

	recs := s.aggregator.Aggregate(AggregateInput{
		UserID:     req.UserID,
		Rewards:    outcomes,
		Cards:      req.Cards,
		Plan:       plan,
		Debts:      req.Debts,
		Spending:   analysis,
		WindowDays: window.Days(),
	}, firstPositive(req.MaxCount, s.cfg.MaxRecommended))

	result := RecommendationResult{
		Recommendations: recs,
		Summary:         fallbackSummary(recs),
		Warnings:        warnings,
	}

	if len(recs) > 0 {
		raw, err := s.ask(ctx, "explanations", explanationsPrompt(recs))
		if err != nil {
			result.Oracle = failedReport(s.oracle.Name(), err)
		} else {
			v := s.validator.ValidateExplanations(raw, recs)
			result.Oracle = report(s.oracle.Name(), v)
			if v.Usable() {
				attachRationale(result.Recommendations, v.Value)
				if v.Value.Summary != "" {
					result.Summary = v.Value.Summary
				}
			}
		}
	}

	if err := s.repo.Replace(ctx, req.UserID, result.Recommendations); err != nil {
		return RecommendationResult{}, fmt.Errorf("saving recommendations: %w", err)
	}
	s.logger.Info("recommendations generated",
		zap.String("user_id", req.UserID),
		zap.Int("count", len(result.Recommendations)),
		zap.String("oracle_outcome", string(result.Oracle.Outcome)))
	return result, nil
}

// rewardOutcomes evaluates every purchase inside window against cards.
func (s *AdvisorService) rewardOutcomes(
	txns []domain.Transaction,
	cards []domain.CreditCard,
	window domain.Window,
) ([]RewardOutcome, error) {

	var out []RewardOutcome
	for _, txn := range txns {
		if !txn.IsSpend() || !window.Contains(txn.Date) {
			continue
		}
		cat := s.spending.Categorize(txn)
		if txn.Category == nil {
			txn = txn.WithResolved(cat.Category)
		}
		calcs, err := s.rewards.Evaluate(txn, cards, EvaluateOptions{})
		if err != nil {
			return nil, err
		}
		out = append(out, RewardOutcome{
			Transaction:  txn,
			Calculations: calcs,
			UsedCardID:   txn.CardID,
			Confidence:   cat.Confidence,
		})
	}
	return out, nil
}

func attachRationale(recs []domain.Recommendation, payload domain.ExplanationPayload) {
	byID := make(map[string]string, len(payload.Explanations))
	for _, e := range payload.Explanations {
		if e.Text != "" {
			byID[e.RecommendationID] = e.Text
		}
	}
	for i := range recs {
		if text, ok := byID[recs[i].ID]; ok {
			recs[i].Rationale = text
		}
	}
}

func fallbackSummary(recs []domain.Recommendation) string {
	if len(recs) == 0 {
		return "No recommendations right now."
	}
	total := 0.0
	for _, r := range recs {
		total += r.ExpectedBenefit
	}
	return fmt.Sprintf("%d recommendations worth about $%.2f a year. Start with: %s.", len(recs), roundTo2Decimals(total), recs[0].Title)
}

// CurrentRecommendations returns the user's unexpired recommendations.
func (s *AdvisorService) CurrentRecommendations(ctx context.Context, userID string) ([]domain.Recommendation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	return s.repo.ListCurrent(ctx, userID, s.now())
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
