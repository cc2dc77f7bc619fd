package contract

import (
	"time"

	"github.com/huangsam/safeupdate/schema"
)

// ConfigBuilder assembles a Config starting from the defaults.
// It is used by tests and by callers that do not go through flag parsing.
type ConfigBuilder struct {
	cfg *Config
}

// NewConfigBuilder returns a builder seeded with DefaultConfig.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{cfg: DefaultConfig()}
}

// FromConfig returns a builder seeded with a copy of an existing config.
func FromConfig(cfg *Config) *ConfigBuilder {
	return &ConfigBuilder{cfg: cfg.Clone()}
}

// WithProjectPath sets the project directory.
func (b *ConfigBuilder) WithProjectPath(path string) *ConfigBuilder {
	b.cfg.ProjectPath = path
	return b
}

// WithPackages restricts discovery to the given names.
func (b *ConfigBuilder) WithPackages(names ...string) *ConfigBuilder {
	b.cfg.Packages = names
	return b
}

// WithCooldownDays sets the minimum release age.
func (b *ConfigBuilder) WithCooldownDays(days int) *ConfigBuilder {
	b.cfg.CooldownDays = days
	return b
}

// WithIgnorePackages sets the exact names that skip every check.
func (b *ConfigBuilder) WithIgnorePackages(names ...string) *ConfigBuilder {
	b.cfg.IgnorePackages = names
	return b
}

// WithIgnorePrefixes sets the name prefixes that skip every check.
func (b *ConfigBuilder) WithIgnorePrefixes(prefixes ...string) *ConfigBuilder {
	b.cfg.IgnorePrefixes = prefixes
	return b
}

// WithTrustedSources sets the source substrings that bypass the cooldown.
func (b *ConfigBuilder) WithTrustedSources(sources ...string) *ConfigBuilder {
	b.cfg.TrustedSources = sources
	return b
}

// WithTrustedOwners sets the publisher handles that bypass the cooldown.
func (b *ConfigBuilder) WithTrustedOwners(owners ...string) *ConfigBuilder {
	b.cfg.TrustedOwners = owners
	return b
}

// WithMaxThreads sets the worker pool capacity.
func (b *ConfigBuilder) WithMaxThreads(n int) *ConfigBuilder {
	b.cfg.MaxThreads = n
	return b
}

// WithAudit toggles the vulnerability audit.
func (b *ConfigBuilder) WithAudit(enabled bool) *ConfigBuilder {
	b.cfg.Audit = enabled
	return b
}

// WithRisk toggles risk signal evaluation.
func (b *ConfigBuilder) WithRisk(enabled bool) *ConfigBuilder {
	b.cfg.Risk = enabled
	return b
}

// WithRiskExemptTrusted makes trusted packages skip risk signals.
func (b *ConfigBuilder) WithRiskExemptTrusted(exempt bool) *ConfigBuilder {
	b.cfg.RiskExemptTrusted = exempt
	return b
}

// WithSignalMode sets the mode of one risk signal.
func (b *ConfigBuilder) WithSignalMode(t schema.SignalType, mode schema.SignalMode) *ConfigBuilder {
	sc := b.cfg.RiskSignals[t]
	sc.Mode = mode
	b.cfg.RiskSignals[t] = sc
	return b
}

// WithSignalThreshold sets the threshold of one risk signal.
func (b *ConfigBuilder) WithSignalThreshold(t schema.SignalType, threshold float64) *ConfigBuilder {
	sc := b.cfg.RiskSignals[t]
	sc.Threshold = threshold
	b.cfg.RiskSignals[t] = sc
	return b
}

// WithRegistry sets the registry endpoint and client timeout.
func (b *ConfigBuilder) WithRegistry(url string, timeout time.Duration) *ConfigBuilder {
	b.cfg.RegistryURL = url
	b.cfg.RegistryTimeout = timeout
	return b
}

// WithUpdate enables the update step, optionally only rewriting the lockfile.
func (b *ConfigBuilder) WithUpdate(update, lockOnly bool) *ConfigBuilder {
	b.cfg.Update = update || lockOnly
	b.cfg.LockOnly = lockOnly
	return b
}

// WithWarnOnly makes violations report-only.
func (b *ConfigBuilder) WithWarnOnly(warnOnly bool) *ConfigBuilder {
	b.cfg.WarnOnly = warnOnly
	return b
}

// WithRefreshCache rebuilds owner baselines instead of reporting changes.
func (b *ConfigBuilder) WithRefreshCache(refresh bool) *ConfigBuilder {
	b.cfg.RefreshCache = refresh
	return b
}

// WithOutput sets the report format.
func (b *ConfigBuilder) WithOutput(mode schema.OutputMode) *ConfigBuilder {
	b.cfg.Output = mode
	return b
}

// WithColors toggles colored output.
func (b *ConfigBuilder) WithColors(enabled bool) *ConfigBuilder {
	b.cfg.UseColors = enabled
	return b
}

// WithCacheBackend sets where owner baselines are persisted.
func (b *ConfigBuilder) WithCacheBackend(backend schema.DatabaseBackend, connStr string) *ConfigBuilder {
	b.cfg.CacheBackend = backend
	b.cfg.CacheDBConnect = connStr
	return b
}

// WithHistoryBackend sets where run history is persisted.
func (b *ConfigBuilder) WithHistoryBackend(backend schema.DatabaseBackend, connStr string) *ConfigBuilder {
	b.cfg.HistoryBackend = backend
	b.cfg.HistoryDBConnect = connStr
	return b
}

// Build returns a copy of the assembled config.
func (b *ConfigBuilder) Build() *Config {
	return b.cfg.Clone()
}
