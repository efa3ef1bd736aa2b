package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reward-advisor/config"
	"reward-advisor/logging"
	"reward-advisor/repository"
	"reward-advisor/service"
)

var (
	flagConfig  string
	flagVerbose bool
	flagJSON    bool
	flagInput   string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "reward-advisor",
	Short: "Credit card rewards, debt payoff and spending recommendations",
	Long: `reward-advisor computes which card earns the most for a purchase, plans debt
payoff with avalanche, snowball or hybrid ordering, flags unusual spending, and
ranks recommendations. An optional language model adds prose; every number it
returns is checked against the engines before it is shown.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, flagVerbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/reward-advisor/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
}

// addInputFlags registers the flags shared by the one-shot commands.
func addInputFlags(c *cobra.Command) {
	c.Flags().StringVarP(&flagInput, "file", "f", "-", "JSON request file, - for stdin")
	c.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
}

func readInput(dst any) error {
	return decodeInput(flagInput, dst)
}

// decodeInput decodes JSON from path, or stdin when path is empty or "-".
func decodeInput(path string, dst any) error {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return fmt.Errorf("decoding input: %w", err)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// buildAdvisor wires the engines from cfg. persistent selects the configured
// recommendation store; otherwise an in-memory one is used.
func buildAdvisor(ctx context.Context, persistent bool) (*service.AdvisorService, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	rules := service.DefaultRuleSet()
	if cfg.Spending.RulesFile != "" {
		loaded, err := service.LoadRuleSet(cfg.Spending.RulesFile)
		if err != nil {
			return nil, cleanup, err
		}
		rules = loaded
	}

	oracle, err := service.NewExplanationSource(ctx, service.OracleSettings{
		Provider:         cfg.Oracle.Provider,
		APIKey:           cfg.Oracle.APIKey,
		Model:            cfg.Oracle.Model,
		BaseURL:          cfg.Oracle.BaseURL,
		MaxResponseBytes: cfg.Oracle.MaxResponseBytes,
		MaxTokens:        cfg.Oracle.MaxTokens,
	})
	if err != nil {
		return nil, cleanup, err
	}
	if _, disabled := oracle.(service.DisabledSource); disabled {
		logger.Info("oracle disabled, explanations use local text")
	}

	var cache repository.CacheRepository = repository.NewMemoryCache()
	if cfg.Cache.Driver == "redis" {
		rc := repository.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.Prefix)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, using memory cache", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
			_ = rc.Close()
		} else {
			cache = rc
			closers = append(closers, func() { _ = rc.Close() })
		}
	}

	var repo repository.RecommendationRepository = repository.NewRecommendationRepositoryMemory()
	if persistent && cfg.Store.Driver == "sqlite" {
		store, err := repository.OpenSQLite(cfg.Store.Path)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		repo = store
		closers = append(closers, func() { _ = store.Close() })
	}

	aggCfg := service.DefaultAggregatorConfig()
	aggCfg.MaxCount = cfg.Recommendations.MaxCount
	aggCfg.HighImpactThreshold = cfg.Recommendations.HighImpactThreshold
	aggCfg.TTL = config.Duration(cfg.Recommendations.TTL, service.DefaultRecommendationTTL)

	advisor := service.NewAdvisorService(service.AdvisorDeps{
		Rewards: service.NewRewardsEngine(cfg.Rewards.AnnualTransactions),
		Planner: service.NewDebtPayoffPlanner(service.PlannerConfig{
			MaxMonths:            cfg.Planner.MaxMonths,
			HybridMonthThreshold: cfg.Planner.HybridMonthThreshold,
			HybridQuickWinMonths: cfg.Planner.HybridQuickWinMonths,
		}),
		Spending:   service.NewSpendingAnalyzer(rules, cfg.Spending.MinSampleSize),
		Aggregator: service.NewRecommendationAggregator(aggCfg),
		Validator:  service.NewOracleResultValidator(logger),
		Oracle:     oracle,
		Cache:      cache,
		Repo:       repo,
		Logger:     logger,
	}, service.AdvisorConfig{
		OracleTimeout:  config.Duration(cfg.Oracle.Timeout, service.DefaultOracleTimeout),
		PlanCacheTTL:   config.Duration(cfg.Planner.CacheTTL, time.Hour),
		WindowDays:     cfg.Spending.WindowDays,
		MaxRecommended: cfg.Recommendations.MaxCount,
		AnnualTxns:     cfg.Rewards.AnnualTransactions,
	})
	return advisor, cleanup, nil
}
