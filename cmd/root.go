package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/internal/iocache"
	"github.com/huangsam/safeupdate/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = contract.DefaultConfig()

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// cacheManager is the global persistence manager instance.
var cacheManager contract.CacheManager

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "safeupdate",
	Short: "Gate Bundler dependency upgrades behind a release cooldown and risk checks.",
	Long: `Safeupdate checks every outdated gem of a Bundler project before it is upgraded.

A candidate version must be older than the cooldown window unless the gem is
ignored or comes from a trusted source or owner. Risk signals and bundler-audit
results are reported alongside, and only allowed gems are ever updated.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig sets up environment variables and defaults.
func initConfig() {
	viper.SetConfigType("yaml")

	// Set environment variable prefix
	viper.SetEnvPrefix("SAFEUPDATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("project-path", ".")
	viper.SetDefault("cooldown-days", contract.DefaultCooldownDays)
	viper.SetDefault("max-threads", contract.DefaultMaxThreads)
	viper.SetDefault("audit", true)
	viper.SetDefault("risk", true)
	viper.SetDefault("registry-url", contract.DefaultRegistryURL)
	viper.SetDefault("registry-timeout", contract.DefaultRegistryTimeout)
	viper.SetDefault("registry-rate-limit", 0)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "auto")
	viper.SetDefault("cache-backend", schema.FileBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("history-backend", schema.NoneBackend)
	viper.SetDefault("history-db-connect", "")
}

// configFiles returns the config files to merge, lowest precedence first.
func configFiles() []string {
	var files []string
	if global := contract.GetGlobalConfigPath(); global != "" {
		files = append(files, global)
	}
	files = append(files, filepath.Join(viper.GetString("project-path"), contract.ConfigFileName))
	return files
}

// loadConfigFiles merges the home, project and --config files into Viper.
// Missing implicit files are skipped and a malformed file only produces a warning.
func loadConfigFiles() error {
	for _, path := range configFiles() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		mergeConfigFile(path)
	}

	if explicit := viper.GetString("config"); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		mergeConfigFile(explicit)
	}
	return nil
}

// mergeConfigFile merges one YAML file over the values loaded so far.
func mergeConfigFile(path string) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	if err := viper.MergeInConfig(); err != nil {
		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			contract.LogWarn(fmt.Sprintf("Ignoring malformed config file %s", path), err)
			return
		}
		contract.LogWarn(fmt.Sprintf("Cannot read config file %s", path), err)
	}
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	// 1. Merge config files. Env and flags still win over them.
	if err := loadConfigFiles(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	input.Packages = args

	// 4. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	info, err := os.Stat(cfg.ProjectPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("project path %s is not a directory", cfg.ProjectPath)
	}
	contract.LogInfo(cfg, "Configuration loaded for %s", cfg.ProjectPath)

	// A dry run never touches the stores
	if cfg.DryRun {
		return nil
	}

	// 5. Initialize persistence layer with validated config
	if err := iocache.InitStores(cfg.CacheBackend, iocache.OwnerStoreConnection(cfg), cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	cacheManager = iocache.Manager

	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetCacheManager sets the global cache manager.
func SetCacheManager(mgr contract.CacheManager) {
	cacheManager = mgr
}
