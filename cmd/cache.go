package cmd

import (
	"fmt"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/internal/iocache"
	"github.com/huangsam/safeupdate/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	if err := loadConfigFiles(); err != nil {
		return err
	}

	// Get cache-related config values
	backend := schema.DatabaseBackend(viper.GetString("cache-backend"))
	connStr := viper.GetString("cache-db-connect")
	if _, ok := schema.ValidCacheBackends[backend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be file, sqlite, mysql, postgresql, none", backend)
	}

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.ProjectPath = viper.GetString("project-path")
	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheClearPath returns the file removed by a clear for file-based backends.
func cacheClearPath() string {
	if cfg.CacheBackend == schema.FileBackend {
		return cfg.CacheFilePath()
	}
	if cfg.CacheDBConnect != "" {
		return cfg.CacheDBConnect
	}
	return contract.GetCacheDBFilePath()
}

// cacheCmd focused on owner cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by the check command.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the owner baseline cache",
	Long: `Manage the cache of gem owners used to detect ownership changes.

Every run compares the current owners of a gem with the baseline stored here and
reports a new_owner signal when they differ. The baseline is updated afterwards.

Supported backends: file (default, .bundle/safeupdate-cache.yml), SQLite, MySQL, PostgreSQL, or None

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all owner baselines

Examples:
  # Check cache status
  safeupdate cache status

  # Forget every baseline
  safeupdate cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all owner baselines",
	Long: `Delete all owner baselines from the configured backend.

The next check records fresh baselines and reports no ownership change.
Prefer 'safeupdate check --refresh-cache' to rebuild the baselines in one step.

For file and SQLite: Deletes the file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  # Clear the project cache file (default)
  safeupdate cache clear

  # Clear MySQL cache (set connection string via env variable)
  SAFEUPDATE_CACHE_BACKEND=mysql SAFEUPDATE_CACHE_DB_CONNECT="..." safeupdate cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearCache(cfg.CacheBackend, cacheClearPath(), cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the owner baseline cache.

Displays:
- Backend type and connection status
- Number of gems with a baseline
- Last update timestamp
- Storage size

Examples:
  # Check cache status
  safeupdate cache status`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store, err := iocache.NewOwnerStore(cfg.CacheBackend, iocache.OwnerStoreConnection(cfg))
		if err != nil {
			contract.LogFatal("Failed to open cache", err)
		}
		defer func() { _ = store.Close() }()

		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(status)
	},
}
