// Package core has the policy engines and the orchestration of a gate run.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/safeupdate/internal/bundler"
	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/internal/outwriter"
	"github.com/huangsam/safeupdate/internal/registry"
	"github.com/huangsam/safeupdate/schema"
	"golang.org/x/sync/errgroup"
)

// Dependencies holds the collaborators of a gate run.
// Sources, Audit, Owners, Updater and History may be nil. Now defaults to time.Now.
type Dependencies struct {
	Outdated contract.OutdatedSource
	Sources  contract.SourceResolver
	Registry contract.RegistryClient
	Audit    contract.AuditTool
	Owners   contract.OwnershipCache
	Updater  contract.UpdateExecutor
	History  contract.HistoryStore
	Now      func() time.Time
}

// NewDependencies wires the Bundler, registry and persistence collaborators for cfg.
func NewDependencies(cfg *contract.Config, mgr contract.CacheManager) *Dependencies {
	deps := &Dependencies{
		Outdated: bundler.NewOutdatedChecker(cfg.ProjectPath),
		Registry: registry.NewClientFromConfig(cfg),
		Audit:    bundler.NewAuditChecker(cfg.ProjectPath),
		Updater:  bundler.NewUpdater(cfg.ProjectPath),
		Now:      time.Now,
	}

	if lock, err := bundler.LoadLockfile(cfg.ProjectPath); err != nil {
		contract.LogInfo(cfg, "lockfile unavailable, sources unknown: %v", err)
	} else {
		deps.Sources = lock
	}

	var ownerStore contract.CacheStore
	if mgr != nil {
		ownerStore = mgr.GetOwnerStore()
		deps.History = mgr.GetHistoryStore()
	}
	deps.Owners = NewOwnerCache(ownerStore)
	return deps
}

// ExecuteSafeUpdate runs the gate, prints the report and performs the update when requested.
// It returns the process exit code.
func ExecuteSafeUpdate(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (int, error) {
	if cfg.DryRun {
		return contract.ExitOK, outwriter.PrintDryRun(cfg)
	}

	deps := NewDependencies(cfg, mgr)
	report, err := GetSafeUpdateReport(ctx, cfg, deps)
	if err != nil {
		return contract.ExitError, err
	}

	if cfg.Update && deps.Updater != nil {
		names := report.UpdatableNames()
		if len(names) > 0 {
			if err := deps.Updater.Update(ctx, names, cfg.LockOnly); err != nil {
				return contract.ExitError, fmt.Errorf("failed to update %s: %w", strings.Join(names, ", "), err)
			}
			report.Updated = names
		}
	}

	report.Duration = time.Since(report.StartTime)
	if err := outwriter.PrintReport(report, cfg); err != nil {
		return contract.ExitError, err
	}
	return exitCode(cfg, report), nil
}

// GetSafeUpdateReport discovers outdated packages and evaluates them against every enabled policy.
// Only a discovery failure is returned as an error.
func GetSafeUpdateReport(ctx context.Context, cfg *contract.Config, deps *Dependencies) (*schema.Report, error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	report := &schema.Report{CooldownDays: cfg.CooldownDays, StartTime: time.Now(), WarnOnly: cfg.WarnOnly}

	pkgs, err := deps.Outdated.List(ctx, cfg.Packages)
	if err != nil {
		return nil, fmt.Errorf("failed to list outdated packages: %w", err)
	}
	if cfg.Output == schema.TextOut && !shouldSuppressHeader(ctx) {
		outwriter.PrintHeader(cfg, len(pkgs))
	}
	contract.LogInfo(cfg, "checking %d outdated package(s) with %d worker(s)", len(pkgs), max(1, min(cfg.MaxThreads, len(pkgs))))

	checker := NewPackageChecker(cfg, deps.Registry, deps.Sources).WithClock(now)
	var g errgroup.Group
	g.Go(func() error {
		report.Results = checker.CheckAll(ctx, pkgs)
		return nil
	})
	if cfg.Audit && deps.Audit != nil {
		g.Go(func() error {
			report.Audit = runAudit(ctx, deps.Audit)
			return nil
		})
	}
	_ = g.Wait()

	if cfg.Risk && deps.Owners != nil {
		engine := NewRiskEngine(cfg, deps.Registry, deps.Owners, deps.Sources).WithClock(now)
		report.Risk = runRisk(ctx, cfg, engine, report.Results)
	}

	report.Finalize()
	recordHistory(ctx, cfg, deps.History, report)
	return report, nil
}

// runAudit runs the audit tool, reporting a missing tool instead of failing.
func runAudit(ctx context.Context, tool contract.AuditTool) *schema.AuditResult {
	if !tool.Available(ctx) {
		return &schema.AuditResult{Vulnerabilities: []schema.Vulnerability{}, Unavailable: true}
	}
	result := tool.Run(ctx)
	return &result
}

// runRisk evaluates risk signals, or only rebuilds the owner baseline when a refresh is requested.
// The owner cache is saved exactly once.
func runRisk(ctx context.Context, cfg *contract.Config, engine *RiskEngine, results []schema.CheckResult) []schema.RiskResult {
	var risks []schema.RiskResult
	if cfg.RefreshCache {
		engine.RefreshOwners(ctx, results)
		risks = []schema.RiskResult{}
	} else {
		risks = engine.CheckAll(ctx, results)
	}

	if err := engine.SaveCache(); err != nil {
		contract.LogWarn("Cannot save owner cache", err)
	}
	return risks
}

// exitCode maps a finished report to the process exit code.
func exitCode(cfg *contract.Config, report *schema.Report) int {
	if cfg.WarnOnly || report.OK {
		return contract.ExitOK
	}
	return contract.ExitViolation
}
