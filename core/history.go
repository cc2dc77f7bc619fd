package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
)

// recordHistory stores the run and one decision per checked package.
// Tracking failures are reported but never fail the run.
func recordHistory(ctx context.Context, cfg *contract.Config, store contract.HistoryStore, report *schema.Report) {
	if store == nil {
		return
	}

	runID, err := store.BeginRun(report.StartTime, cfg.ConfigParams())
	if err != nil {
		contract.LogWarn("History tracking initialization failed", err)
		return
	}
	ctx = withRunID(ctx, runID)

	risks := make(map[string]schema.RiskResult, len(report.Risk))
	for _, r := range report.Risk {
		risks[r.Name] = r
	}
	for _, res := range report.Results {
		recordDecision(ctx, store, res, risks[res.Name])
	}

	if err := store.EndRun(runID, time.Now(), report.Checked, len(report.Blocked)); err != nil {
		contract.LogWarn("Failed to finalize history tracking", err)
	}
}

// recordDecision writes a single package outcome for the run stored in ctx.
func recordDecision(ctx context.Context, store contract.HistoryStore, res schema.CheckResult, risk schema.RiskResult) {
	runID, ok := getRunID(ctx)
	if !ok {
		return
	}

	record := schema.DecisionRecord{
		RunID:          runID,
		PackageName:    res.Name,
		Version:        res.Version,
		CurrentVersion: res.CurrentVersion,
		Allowed:        res.Allowed,
		Reason:         string(res.Reason),
		RiskSignals:    joinSignalTypes(risk.SignalTypes()),
		RiskBlocked:    risk.Blocked,
	}
	if res.AgeDays != nil {
		age := int64(*res.AgeDays)
		record.AgeDays = &age
	}

	if err := store.RecordDecision(runID, record); err != nil {
		contract.LogWarn(fmt.Sprintf("History tracking failed for RecordDecision on %s", res.Name), err)
	}
}

func joinSignalTypes(types []schema.SignalType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}
