package iocache

import (
	"errors"
	"fmt"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/internal/parquet"
)

// ExportHistory writes all runs and decisions of store to
// <outputFile>.runs.parquet and <outputFile>.decisions.parquet.
func ExportHistory(store contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history tracking is not enabled. Set --history-backend")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no history data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total runs: %d\n", status.TotalRuns)
	fmt.Printf("Total decisions: %d\n", status.TotalDecisions)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	decisions, err := store.GetAllDecisions()
	if err != nil {
		return fmt.Errorf("failed to retrieve decisions: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	fmt.Printf("Exported %d runs to: %s\n", len(runs), runsFile)

	decisionsFile := outputFile + ".decisions.parquet"
	if err := parquet.WriteDecisionsParquet(parquet.ConvertDecisionRecords(decisions), decisionsFile); err != nil {
		return fmt.Errorf("failed to write decisions: %w", err)
	}
	fmt.Printf("Exported %d decisions to: %s\n", len(decisions), decisionsFile)

	return nil
}
