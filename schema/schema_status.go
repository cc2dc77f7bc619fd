package schema

import "time"

// CacheStatus represents the status of the owner cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	Location        string    `json:"location,omitempty"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// HistoryStatus represents the status of the run history store.
type HistoryStatus struct {
	Backend        string           `json:"backend"`
	Connected      bool             `json:"connected"`
	TotalRuns      int              `json:"total_runs"`
	LastRunID      int64            `json:"last_run_id"`
	LastRunTime    time.Time        `json:"last_run_time"`
	OldestRunTime  time.Time        `json:"oldest_run_time"`
	TotalDecisions int              `json:"total_decisions"`
	TableSizes     map[string]int64 `json:"table_sizes"`
}

// RunRecord represents a row from the safeupdate_runs table.
type RunRecord struct {
	RunID           int64
	StartTime       time.Time
	EndTime         *time.Time
	RunDurationMs   *int64
	TotalPackages   *int64
	BlockedPackages *int64
	ConfigParams    *string
}

// DecisionRecord represents a row from the safeupdate_decisions table.
type DecisionRecord struct {
	RunID          int64
	PackageName    string
	Version        string
	CurrentVersion string
	AgeDays        *int64
	Allowed        bool
	Reason         string
	RiskSignals    string
	RiskBlocked    bool
	RecordedAt     time.Time
}
