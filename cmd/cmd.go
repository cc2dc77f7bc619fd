// Package cmd defines the command-line interface for safeupdate.
package cmd

import (
	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagAliases maps legacy flag spellings to their current names.
var flagAliases = map[string]string{
	"cooldown": "cooldown-days",
}

// normalizeFlagName resolves flag aliases for every command in the tree.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if canonical, ok := flagAliases[name]; ok {
		name = canonical
	}
	return pflag.NormalizedName(name)
}

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringP("project-path", "C", ".", "Path to the Bundler project")
	rootCmd.PersistentFlags().Int("cooldown-days", contract.DefaultCooldownDays, "Minimum age in days of a candidate version (alias: --cooldown)")
	rootCmd.PersistentFlags().StringSlice("ignore-packages", nil, "Gems that skip the cooldown check")
	rootCmd.PersistentFlags().StringSlice("ignore-prefixes", nil, "Gem name prefixes that skip the cooldown check")
	rootCmd.PersistentFlags().StringSlice("trusted-sources", nil, "Gem sources that skip the cooldown check (e.g. https://gems.example.com)")
	rootCmd.PersistentFlags().StringSlice("trusted-owners", nil, "Registry owners whose gems skip the cooldown check")
	rootCmd.PersistentFlags().Int("max-threads", contract.DefaultMaxThreads, "Number of concurrent registry lookups")
	rootCmd.PersistentFlags().Bool("no-audit", false, "Skip the bundler-audit vulnerability check")
	rootCmd.PersistentFlags().Bool("no-risk", false, "Skip the risk signal evaluation")
	rootCmd.PersistentFlags().Bool("risk-exempt-trusted", false, "Do not evaluate risk signals for trusted (source or owner) gems")
	rootCmd.PersistentFlags().String("registry-url", contract.DefaultRegistryURL, "Base URL of the gem registry API")
	rootCmd.PersistentFlags().Duration("registry-timeout", contract.DefaultRegistryTimeout, "Timeout of a single registry request")
	rootCmd.PersistentFlags().Float64("registry-rate-limit", 0, "Maximum registry requests per second (0 = unlimited)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Print progress messages to stderr")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or json")
	rootCmd.PersistentFlags().Bool("json", false, "Shorthand for --output json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().String("color", "auto", "Enable colored labels in output (auto/yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.FileBackend), "Owner cache backend: file or sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", string(schema.NoneBackend), "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for run history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of checkCmd to Viper
	checkCmd.Flags().Bool("update", false, "Update the allowed gems after the check")
	checkCmd.Flags().Bool("lock-only", false, "Update Gemfile.lock only (implies --update)")
	checkCmd.Flags().Bool("warn-only", false, "Report violations but always exit 0")
	checkCmd.Flags().Bool("dry-run", false, "Print the effective configuration and exit")
	checkCmd.Flags().Bool("refresh-cache", false, "Rebuild the owner baselines without reporting ownership changes")
	if err := viper.BindPFlags(checkCmd.Flags()); err != nil {
		contract.LogFatal("Error binding check flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
