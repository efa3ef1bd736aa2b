package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"reward-advisor/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE:  runConfigInit,
}

var flagForce bool

func init() {
	configInitCmd.Flags().BoolVar(&flagForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.ConfigPath()
}

func runConfig(_ *cobra.Command, _ []string) error {
	path := configPath()
	fmt.Printf("  Config file: %s\n", path)
	if config.Exists(path) {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address:     %s\n", cfg.Server.Addr)
	fmt.Printf("    Rate limit:  %d per %s\n", cfg.RateLimit.Capacity, cfg.RateLimit.Refill)
	fmt.Println()

	fmt.Println("  [Oracle]")
	fmt.Printf("    Provider:    %s\n", cfg.Oracle.Provider)
	if cfg.Oracle.APIKey != "" {
		fmt.Printf("    API key:     %s\n", maskAPIKey(cfg.Oracle.APIKey))
	} else {
		fmt.Println("    API key:     not configured (explanations use local text)")
	}
	fmt.Printf("    Timeout:     %s\n", cfg.Oracle.Timeout)
	fmt.Println()

	fmt.Println("  [Engines]")
	fmt.Printf("    Fee spread over:     %d purchases/yr\n", cfg.Rewards.AnnualTransactions)
	fmt.Printf("    Planner cap:         %d months\n", cfg.Planner.MaxMonths)
	fmt.Printf("    Spending window:     %d days (min sample %d)\n", cfg.Spending.WindowDays, cfg.Spending.MinSampleSize)
	if cfg.Spending.RulesFile != "" {
		fmt.Printf("    Category rules:      %s (watch %v)\n", cfg.Spending.RulesFile, cfg.Spending.WatchRules)
	} else {
		fmt.Println("    Category rules:      built-in")
	}
	fmt.Println()

	fmt.Println("  [Storage]")
	fmt.Printf("    Store:       %s %s\n", cfg.Store.Driver, cfg.Store.Path)
	if cfg.Cache.Driver == "redis" {
		fmt.Printf("    Cache:       redis %s\n", cfg.Cache.RedisAddr)
	} else {
		fmt.Printf("    Cache:       %s\n", cfg.Cache.Driver)
	}
	fmt.Println()

	fmt.Println("  Run `reward-advisor config init` to write a config file.")
	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path := configPath()
	if config.Exists(path) && !flagForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	def := config.DefaultConfig()
	if err := config.Save(def, path); err != nil {
		return err
	}
	fmt.Printf("  Wrote %s\n", path)
	return nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
