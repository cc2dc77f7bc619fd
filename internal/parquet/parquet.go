// Package parquet exports safeupdate run history to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/safeupdate/schema"
	"github.com/parquet-go/parquet-go"
)

// Run is one gate run. It maps to the safeupdate_runs table.
type Run struct {
	RunID           int64      `parquet:"run_id,snappy"`
	StartTime       time.Time  `parquet:"start_time,snappy"`
	EndTime         *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs   *int64     `parquet:"run_duration_ms,optional,snappy"`
	TotalPackages   *int64     `parquet:"total_packages,optional,snappy"`
	BlockedPackages *int64     `parquet:"blocked_packages,optional,snappy"`
	ConfigParams    *string    `parquet:"config_params,optional,snappy"` // JSON
}

// Decision is the outcome for one package within a run.
// It maps to the safeupdate_decisions table.
type Decision struct {
	RunID          int64  `parquet:"run_id,snappy"`
	PackageName    string `parquet:"package_name,snappy,dict"`
	Version        string `parquet:"version,snappy"`
	CurrentVersion string `parquet:"current_version,snappy"`
	AgeDays        *int64 `parquet:"age_days,optional,snappy"`
	Allowed        bool   `parquet:"allowed"`
	Reason         string `parquet:"reason,snappy,dict"`

	// RiskSignals is a comma separated list of triggered signal types
	RiskSignals string    `parquet:"risk_signals,snappy"`
	RiskBlocked bool      `parquet:"risk_blocked"`
	RecordedAt  time.Time `parquet:"recorded_at,snappy"`
}

// WriteRunsParquet writes runs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteDecisionsParquet writes decisions to a Parquet file.
func WriteDecisionsParquet(data []Decision, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows using the schema inferred from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertRunRecords converts stored runs for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:           record.RunID,
			StartTime:       record.StartTime,
			EndTime:         record.EndTime,
			RunDurationMs:   record.RunDurationMs,
			TotalPackages:   record.TotalPackages,
			BlockedPackages: record.BlockedPackages,
			ConfigParams:    record.ConfigParams,
		}
	}
	return result
}

// ConvertDecisionRecords converts stored decisions for Parquet export.
func ConvertDecisionRecords(records []schema.DecisionRecord) []Decision {
	result := make([]Decision, len(records))
	for i, record := range records {
		result[i] = Decision{
			RunID:          record.RunID,
			PackageName:    record.PackageName,
			Version:        record.Version,
			CurrentVersion: record.CurrentVersion,
			AgeDays:        record.AgeDays,
			Allowed:        record.Allowed,
			Reason:         record.Reason,
			RiskSignals:    record.RiskSignals,
			RiskBlocked:    record.RiskBlocked,
			RecordedAt:     record.RecordedAt,
		}
	}
	return result
}
