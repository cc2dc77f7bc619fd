// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/safeupdate/schema"
)

// --- Registry capabilities ---

// VersionAgeFetcher resolves when a specific version of a package was published.
type VersionAgeFetcher interface {
	// FetchVersionCreatedAt returns the publish time of name@version.
	// It returns an error when the version is unknown or the registry call fails.
	FetchVersionCreatedAt(ctx context.Context, name, version string) (time.Time, error)
}

// OwnersFetcher lists the publishers of a package.
type OwnersFetcher interface {
	FetchOwners(ctx context.Context, name string) ([]string, error)
}

// PopularityFetcher returns aggregate facts such as total downloads.
type PopularityFetcher interface {
	FetchGemInfo(ctx context.Context, name string) (*schema.GemInfo, error)
}

// RegistryClient is the full set of registry capabilities used by the engines.
type RegistryClient interface {
	VersionAgeFetcher
	OwnersFetcher
	PopularityFetcher
}

// --- Project collaborators ---

// SourceResolver maps a package name to the source it is installed from.
type SourceResolver interface {
	// SourceFor returns the declared source of name, or false when unknown.
	SourceFor(name string) (string, bool)
}

// OutdatedSource enumerates the packages that have a newer version available.
type OutdatedSource interface {
	// List returns outdated packages, optionally restricted to names.
	List(ctx context.Context, names []string) ([]schema.PackageReference, error)
}

// AuditTool runs a vulnerability audit over the project.
type AuditTool interface {
	Available(ctx context.Context) bool
	Run(ctx context.Context) schema.AuditResult
}

// UpdateExecutor performs the upgrade of the given packages.
type UpdateExecutor interface {
	Update(ctx context.Context, names []string, lockOnly bool) error
}

// --- Persistence ---

// OwnershipCache remembers the last observed publisher set per package.
type OwnershipCache interface {
	OwnersFor(name string) []string
	DetectChange(name string, owners []string) *schema.OwnerChange
	UpdateOwners(name string, owners []string)
	Save() error
	Exists() bool
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetOwnerStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking gate runs and their decisions.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, totalPackages, blockedPackages int) error

	// RecordDecision stores the outcome for one package
	RecordDecision(runID int64, record schema.DecisionRecord) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every recorded run ordered by ID
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllDecisions returns every recorded decision ordered by run and package
	GetAllDecisions() ([]schema.DecisionRecord, error)

	// Close closes the underlying connection
	Close() error
}
