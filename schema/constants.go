package schema

// Custom string types for type safety.
type (
	// Reason explains why a package was allowed or blocked by the cooldown policy.
	Reason string

	// SignalType identifies a risk heuristic.
	SignalType string

	// SignalMode is the severity of a risk signal.
	SignalMode string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for persistence.
	DatabaseBackend string
)

// All check reasons, in decision order.
const (
	ReasonIgnored             Reason = "ignored"
	ReasonTrustedSource       Reason = "trusted_source"
	ReasonTrustedOwner        Reason = "trusted_owner"
	ReasonVersionNotFound     Reason = "version_not_found"
	ReasonSatisfiesMinimumAge Reason = "satisfies_minimum_age"
	ReasonTooNew              Reason = "too_new"
)

// All risk signals, in evaluation order.
const (
	LowDownloadsSignal SignalType = "low_downloads"
	StaleGemSignal     SignalType = "stale_gem"
	NewOwnerSignal     SignalType = "new_owner"
	VersionJumpSignal  SignalType = "version_jump"
)

// All signal modes supported.
const (
	WarnMode  SignalMode = "warn" // default
	BlockMode SignalMode = "block"
	OffMode   SignalMode = "off"
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All persistence backends supported.
const (
	FileBackend       DatabaseBackend = "file" // default for the owner cache
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// AllSignalTypes lists every risk signal in the order they are evaluated and reported.
var AllSignalTypes = []SignalType{LowDownloadsSignal, StaleGemSignal, NewOwnerSignal, VersionJumpSignal}

// ValidReasons lists all valid check reasons.
var ValidReasons = map[Reason]struct{}{
	ReasonIgnored:             {},
	ReasonTrustedSource:       {},
	ReasonTrustedOwner:        {},
	ReasonVersionNotFound:     {},
	ReasonSatisfiesMinimumAge: {},
	ReasonTooNew:              {},
}

// ValidSignalModes lists all valid signal modes.
var ValidSignalModes = map[SignalMode]struct{}{
	WarnMode:  {},
	BlockMode: {},
	OffMode:   {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	JSONOut: {},
}

// ValidCacheBackends lists the backends that can hold the owner cache.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	FileBackend:       {},
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidHistoryBackends lists the backends that can hold run history.
var ValidHistoryBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// DefaultSignalThresholds holds the threshold used when a signal has none configured.
// low_downloads is a total download count and stale_gem is in years.
var DefaultSignalThresholds = map[SignalType]float64{
	LowDownloadsSignal: 1000,
	StaleGemSignal:     3,
}
