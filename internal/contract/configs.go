package contract

import (
	"fmt"
	"maps"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/safeupdate/schema"
)

// Default values for configuration.
const (
	DefaultCooldownDays    = 14
	DefaultMaxThreads      = 8
	DefaultRegistryURL     = "https://rubygems.org"
	DefaultRegistryTimeout = 30 * time.Second
)

// ConfigFileName is the base name of the YAML config file in the home and project directories.
const ConfigFileName = ".safeupdate.yml"

// CacheFileName is the owner cache file written under the project's .bundle directory.
const CacheFileName = "safeupdate-cache.yml"

// SignalConfig is the resolved configuration of one risk signal.
type SignalConfig struct {
	Mode      schema.SignalMode
	Threshold float64
}

// SignalRawInput holds the raw settings for a single risk signal from the YAML config file.
// Use pointers so that absent fields keep their defaults.
type SignalRawInput struct {
	Mode           *string  `mapstructure:"mode"`
	Threshold      *float64 `mapstructure:"threshold"`
	ThresholdYears *float64 `mapstructure:"threshold_years"`
}

// RiskSignalsRawInput holds every risk signal definition from the YAML config file.
type RiskSignalsRawInput struct {
	LowDownloads *SignalRawInput `mapstructure:"low_downloads"`
	StaleGem     *SignalRawInput `mapstructure:"stale_gem"`
	NewOwner     *SignalRawInput `mapstructure:"new_owner"`
	VersionJump  *SignalRawInput `mapstructure:"version_jump"`
}

// Config holds the runtime configuration for a gate run.
// This struct remains the "final, validated" config.
type Config struct {
	ProjectPath string
	Packages    []string // restricts discovery when non-empty

	CooldownDays   int
	IgnorePackages []string
	IgnorePrefixes []string
	TrustedSources []string
	TrustedOwners  []string
	MaxThreads     int

	Audit             bool
	Risk              bool
	RiskExemptTrusted bool
	RiskSignals       map[schema.SignalType]SignalConfig

	RegistryURL       string
	RegistryTimeout   time.Duration
	RegistryRateLimit float64 // requests per second, 0 disables throttling

	Update       bool
	LockOnly     bool
	WarnOnly     bool
	DryRun       bool
	RefreshCache bool
	Verbose      bool

	Output     schema.OutputMode
	OutputFile string
	UseColors  bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	Packages []string

	// --- Policy ---
	CooldownDays   int      `mapstructure:"cooldown-days"`
	IgnorePackages []string `mapstructure:"ignore-packages"`
	IgnorePrefixes []string `mapstructure:"ignore-prefixes"`
	TrustedSources []string `mapstructure:"trusted-sources"`
	TrustedOwners  []string `mapstructure:"trusted-owners"`
	MaxThreads     int      `mapstructure:"max-threads"`

	// --- Features ---
	Audit             bool `mapstructure:"audit"`
	NoAudit           bool `mapstructure:"no-audit"`
	Risk              bool `mapstructure:"risk"`
	NoRisk            bool `mapstructure:"no-risk"`
	RiskExemptTrusted bool `mapstructure:"risk-exempt-trusted"`

	// --- Registry ---
	RegistryURL       string        `mapstructure:"registry-url"`
	RegistryTimeout   time.Duration `mapstructure:"registry-timeout"`
	RegistryRateLimit float64       `mapstructure:"registry-rate-limit"`

	// --- Run mode ---
	ProjectPath  string `mapstructure:"project-path"`
	Update       bool   `mapstructure:"update"`
	LockOnly     bool   `mapstructure:"lock-only"`
	WarnOnly     bool   `mapstructure:"warn-only"`
	DryRun       bool   `mapstructure:"dry-run"`
	RefreshCache bool   `mapstructure:"refresh-cache"`
	Verbose      bool   `mapstructure:"verbose"`

	// --- Output ---
	Output     string `mapstructure:"output"`
	JSON       bool   `mapstructure:"json"`
	OutputFile string `mapstructure:"output-file"`
	Color      string `mapstructure:"color"`

	// --- Storage ---
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Risk signals from config file ---
	RiskSignals RiskSignalsRawInput `mapstructure:"risk-signals"`
}

// DefaultSignals returns the signal settings used when nothing is configured.
func DefaultSignals() map[schema.SignalType]SignalConfig {
	signals := make(map[schema.SignalType]SignalConfig, len(schema.AllSignalTypes))
	for _, t := range schema.AllSignalTypes {
		signals[t] = SignalConfig{Mode: schema.WarnMode, Threshold: schema.DefaultSignalThresholds[t]}
	}
	return signals
}

// DefaultConfig returns a config populated with every default value.
func DefaultConfig() *Config {
	return &Config{
		ProjectPath:     ".",
		CooldownDays:    DefaultCooldownDays,
		MaxThreads:      DefaultMaxThreads,
		Audit:           true,
		Risk:            true,
		RiskSignals:     DefaultSignals(),
		RegistryURL:     DefaultRegistryURL,
		RegistryTimeout: DefaultRegistryTimeout,
		Output:          schema.TextOut,
		UseColors:       true,
		CacheBackend:    schema.FileBackend,
		HistoryBackend:  schema.NoneBackend,
	}
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Packages = slices.Clone(c.Packages)
	clone.IgnorePackages = slices.Clone(c.IgnorePackages)
	clone.IgnorePrefixes = slices.Clone(c.IgnorePrefixes)
	clone.TrustedSources = slices.Clone(c.TrustedSources)
	clone.TrustedOwners = slices.Clone(c.TrustedOwners)
	if c.RiskSignals != nil {
		clone.RiskSignals = make(map[schema.SignalType]SignalConfig, len(c.RiskSignals))
		maps.Copy(clone.RiskSignals, c.RiskSignals)
	}
	return &clone
}

// IsIgnored reports whether name is ignored by exact match or by prefix.
func (c *Config) IsIgnored(name string) bool {
	if slices.Contains(c.IgnorePackages, name) {
		return true
	}
	for _, prefix := range c.IgnorePrefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// IsTrustedSource reports whether source contains any trusted source pattern.
func (c *Config) IsTrustedSource(source string) bool {
	if source == "" {
		return false
	}
	for _, pattern := range c.TrustedSources {
		if pattern != "" && strings.Contains(source, pattern) {
			return true
		}
	}
	return false
}

// HasTrustedOwner reports whether any of owners is a trusted owner.
func (c *Config) HasTrustedOwner(owners []string) bool {
	for _, owner := range owners {
		if slices.Contains(c.TrustedOwners, owner) {
			return true
		}
	}
	return false
}

// SignalMode returns the configured mode of a signal, defaulting to warn.
func (c *Config) SignalMode(t schema.SignalType) schema.SignalMode {
	if sc, ok := c.RiskSignals[t]; ok && sc.Mode != "" {
		return sc.Mode
	}
	return schema.WarnMode
}

// SignalEnabled reports whether a signal is evaluated at all.
func (c *Config) SignalEnabled(t schema.SignalType) bool {
	return c.SignalMode(t) != schema.OffMode
}

// SignalThreshold returns the configured threshold of a signal or its default.
func (c *Config) SignalThreshold(t schema.SignalType) float64 {
	if sc, ok := c.RiskSignals[t]; ok && sc.Threshold > 0 {
		return sc.Threshold
	}
	return schema.DefaultSignalThresholds[t]
}

// RegistryHost returns the host of the configured registry, e.g. "rubygems.org".
func (c *Config) RegistryHost() string {
	u, err := url.Parse(c.RegistryURL)
	if err != nil || u.Host == "" {
		return "rubygems.org"
	}
	return u.Hostname()
}

// IsDefaultRegistrySource reports whether a lockfile source points at the public registry.
// An unknown source is treated as the public registry.
func (c *Config) IsDefaultRegistrySource(source string) bool {
	return source == "" || strings.Contains(source, c.RegistryHost())
}

// CacheFilePath returns the location of the owner cache file for the file backend.
func (c *Config) CacheFilePath() string {
	if c.CacheDBConnect != "" {
		return c.CacheDBConnect
	}
	return filepath.Join(c.ProjectPath, ".bundle", CacheFileName)
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validatePolicyInputs(cfg, input); err != nil {
		return err
	}
	if err := validateRegistryInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	processRiskSignals(cfg, input)
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.FileBackend, schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs transfers run-mode and output fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.ProjectPath = input.ProjectPath
	if cfg.ProjectPath == "" {
		cfg.ProjectPath = "."
	}
	cfg.Packages = cleanList(input.Packages)
	cfg.Update = input.Update || input.LockOnly
	cfg.LockOnly = input.LockOnly
	cfg.WarnOnly = input.WarnOnly
	cfg.DryRun = input.DryRun
	cfg.RefreshCache = input.RefreshCache
	cfg.Verbose = input.Verbose
	cfg.OutputFile = input.OutputFile
	cfg.Audit = input.Audit && !input.NoAudit
	cfg.Risk = input.Risk && !input.NoRisk
	cfg.RiskExemptTrusted = input.RiskExemptTrusted

	colors, err := ResolveColor(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	output := strings.ToLower(input.Output)
	if output == "" {
		output = string(schema.TextOut)
	}
	if input.JSON {
		output = string(schema.JSONOut)
	}
	cfg.Output = schema.OutputMode(output)
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, json", input.Output)
	}
	return nil
}

// validatePolicyInputs checks the cooldown and trust settings.
func validatePolicyInputs(cfg *Config, input *ConfigRawInput) error {
	if input.CooldownDays < 0 {
		return fmt.Errorf("cooldown-days cannot be negative (received %d)", input.CooldownDays)
	}
	cfg.CooldownDays = input.CooldownDays

	if input.MaxThreads <= 0 {
		return fmt.Errorf("max-threads must be greater than 0 (received %d)", input.MaxThreads)
	}
	cfg.MaxThreads = input.MaxThreads

	cfg.IgnorePackages = cleanList(input.IgnorePackages)
	cfg.IgnorePrefixes = cleanList(input.IgnorePrefixes)
	cfg.TrustedSources = cleanList(input.TrustedSources)
	cfg.TrustedOwners = cleanList(input.TrustedOwners)
	return nil
}

// validateRegistryInputs checks the registry endpoint and client limits.
func validateRegistryInputs(cfg *Config, input *ConfigRawInput) error {
	raw := strings.TrimRight(strings.TrimSpace(input.RegistryURL), "/")
	if raw == "" {
		raw = DefaultRegistryURL
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid registry-url '%s'. must be an http(s) URL", input.RegistryURL)
	}
	cfg.RegistryURL = raw

	if input.RegistryTimeout < 0 {
		return fmt.Errorf("registry-timeout cannot be negative (received %s)", input.RegistryTimeout)
	}
	cfg.RegistryTimeout = input.RegistryTimeout
	if cfg.RegistryTimeout == 0 {
		cfg.RegistryTimeout = DefaultRegistryTimeout
	}

	if input.RegistryRateLimit < 0 {
		return fmt.Errorf("registry-rate-limit cannot be negative (received %.2f)", input.RegistryRateLimit)
	}
	cfg.RegistryRateLimit = input.RegistryRateLimit
	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.FileBackend
	}
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be file, sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		cfg.HistoryBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidHistoryBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Both stores keep their own tables, but two SQLite stores must not share a file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if cachePath == historyPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}

// processRiskSignals merges configured signal settings over the defaults.
// An unknown mode is reported and the default is kept.
func processRiskSignals(cfg *Config, input *ConfigRawInput) {
	signals := DefaultSignals()
	raw := map[schema.SignalType]*SignalRawInput{
		schema.LowDownloadsSignal: input.RiskSignals.LowDownloads,
		schema.StaleGemSignal:     input.RiskSignals.StaleGem,
		schema.NewOwnerSignal:     input.RiskSignals.NewOwner,
		schema.VersionJumpSignal:  input.RiskSignals.VersionJump,
	}

	for _, t := range schema.AllSignalTypes {
		in := raw[t]
		if in == nil {
			continue
		}
		sc := signals[t]
		if in.Mode != nil {
			mode := schema.SignalMode(strings.ToLower(strings.TrimSpace(*in.Mode)))
			if _, ok := schema.ValidSignalModes[mode]; ok {
				sc.Mode = mode
			} else {
				LogWarn("Ignoring risk signal setting", fmt.Errorf("invalid mode %q for %s. must be warn, block, off", *in.Mode, t))
			}
		}
		threshold := in.Threshold
		if threshold == nil {
			threshold = in.ThresholdYears
		}
		if threshold != nil {
			if *threshold > 0 {
				sc.Threshold = *threshold
			} else {
				LogWarn("Ignoring risk signal setting", fmt.Errorf("threshold for %s must be positive (received %.2f)", t, *threshold))
			}
		}
		signals[t] = sc
	}
	cfg.RiskSignals = signals
}

// cleanList trims entries and drops empty ones.
func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ConfigParams returns the subset of the config recorded with each history run.
func (c *Config) ConfigParams() map[string]any {
	return map[string]any{
		"cooldown_days":   c.CooldownDays,
		"ignore_packages": c.IgnorePackages,
		"ignore_prefixes": c.IgnorePrefixes,
		"trusted_sources": c.TrustedSources,
		"trusted_owners":  c.TrustedOwners,
		"max_threads":     c.MaxThreads,
		"audit":           c.Audit,
		"risk":            c.Risk,
		"warn_only":       c.WarnOnly,
		"project_path":    c.ProjectPath,
	}
}
