package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/safeupdate/internal/batch"
	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
)

const hoursPerYear = 24 * 365.25

// RiskEngine evaluates supply-chain heuristics for packages that already have a check result.
type RiskEngine struct {
	cfg      *contract.Config
	registry contract.RegistryClient
	cache    contract.OwnershipCache
	sources  contract.SourceResolver
	now      func() time.Time
}

// NewRiskEngine creates a risk engine. sources may be nil, in which case every
// package is treated as coming from the public registry.
func NewRiskEngine(cfg *contract.Config, registry contract.RegistryClient, cache contract.OwnershipCache, sources contract.SourceResolver) *RiskEngine {
	return &RiskEngine{
		cfg:      cfg,
		registry: registry,
		cache:    cache,
		sources:  sources,
		now:      time.Now,
	}
}

// WithClock replaces the clock used by the stale_gem signal.
func (re *RiskEngine) WithClock(now func() time.Time) *RiskEngine {
	re.now = now
	return re
}

// CheckOne runs every enabled signal against result and returns nil when none triggered.
// Registry failures skip the affected signal only.
func (re *RiskEngine) CheckOne(ctx context.Context, result schema.CheckResult) *schema.RiskResult {
	if re.cfg.RiskExemptTrusted && result.IsTrusted() {
		return nil
	}

	fromRegistry := re.isRegistryPackage(result.Name)
	var signals []schema.RiskSignal
	for _, t := range schema.AllSignalTypes {
		if !re.cfg.SignalEnabled(t) {
			continue
		}
		var (
			message   string
			triggered bool
		)
		switch t {
		case schema.LowDownloadsSignal:
			if fromRegistry {
				message, triggered = re.checkLowDownloads(ctx, result)
			}
		case schema.StaleGemSignal:
			if fromRegistry {
				message, triggered = re.checkStaleGem(ctx, result)
			}
		case schema.NewOwnerSignal:
			if fromRegistry {
				message, triggered = re.checkNewOwner(ctx, result)
			}
		case schema.VersionJumpSignal:
			message, triggered = re.checkVersionJump(result)
		}
		if triggered {
			signals = append(signals, schema.RiskSignal{Type: t, Message: message, Mode: re.cfg.SignalMode(t)})
		}
	}
	return schema.NewRiskResult(result.Name, result.Version, signals)
}

// CheckAll evaluates results concurrently and returns only packages with at least one signal.
func (re *RiskEngine) CheckAll(ctx context.Context, results []schema.CheckResult) []schema.RiskResult {
	evaluated := batch.Run(ctx, results, re.cfg.MaxThreads,
		func(ctx context.Context, result schema.CheckResult) (*schema.RiskResult, error) {
			return re.CheckOne(ctx, result), nil
		},
		func(result schema.CheckResult, err error) *schema.RiskResult {
			contract.LogWarn("Risk check failed for "+result.Name, err)
			return nil
		},
	)

	risks := make([]schema.RiskResult, 0, len(evaluated))
	for _, r := range evaluated {
		if r != nil {
			risks = append(risks, *r)
		}
	}
	return risks
}

// RefreshOwners records the current owners of every registry package as the new baseline
// without reporting any change.
func (re *RiskEngine) RefreshOwners(ctx context.Context, results []schema.CheckResult) {
	batch.Run(ctx, results, re.cfg.MaxThreads,
		func(ctx context.Context, result schema.CheckResult) (struct{}, error) {
			if !re.isRegistryPackage(result.Name) {
				return struct{}{}, nil
			}
			owners, err := re.registry.FetchOwners(ctx, result.Name)
			if err != nil {
				return struct{}{}, err
			}
			if len(owners) > 0 {
				re.cache.UpdateOwners(result.Name, owners)
			}
			return struct{}{}, nil
		},
		func(result schema.CheckResult, err error) struct{} {
			contract.LogInfo(re.cfg, "owner refresh failed for %s: %v", result.Name, err)
			return struct{}{}
		},
	)
}

// SaveCache persists the owner baseline.
func (re *RiskEngine) SaveCache() error {
	return re.cache.Save()
}

func (re *RiskEngine) isRegistryPackage(name string) bool {
	if re.sources == nil {
		return true
	}
	source, _ := re.sources.SourceFor(name)
	return re.cfg.IsDefaultRegistrySource(source)
}

func (re *RiskEngine) checkLowDownloads(ctx context.Context, result schema.CheckResult) (string, bool) {
	info, err := re.registry.FetchGemInfo(ctx, result.Name)
	if err != nil || info == nil {
		contract.LogInfo(re.cfg, "download count unavailable for %s: %v", result.Name, err)
		return "", false
	}
	threshold := int64(re.cfg.SignalThreshold(schema.LowDownloadsSignal))
	if info.Downloads >= threshold {
		return "", false
	}
	return fmt.Sprintf("low downloads (%d total)", info.Downloads), true
}

// checkStaleGem flags packages whose installed version has not been released in years.
func (re *RiskEngine) checkStaleGem(ctx context.Context, result schema.CheckResult) (string, bool) {
	if result.CurrentVersion == "" {
		return "", false
	}
	publishedAt, err := re.registry.FetchVersionCreatedAt(ctx, result.Name, result.CurrentVersion)
	if err != nil {
		contract.LogInfo(re.cfg, "release date unavailable for %s %s: %v", result.Name, result.CurrentVersion, err)
		return "", false
	}
	ageYears := re.now().Sub(publishedAt).Hours() / hoursPerYear
	if ageYears < re.cfg.SignalThreshold(schema.StaleGemSignal) {
		return "", false
	}
	return fmt.Sprintf("stale gem (installed version released %.1f years ago)", ageYears), true
}

// checkNewOwner compares the current owners with the cached baseline and then
// records them as the new baseline.
func (re *RiskEngine) checkNewOwner(ctx context.Context, result schema.CheckResult) (string, bool) {
	owners, err := re.registry.FetchOwners(ctx, result.Name)
	if err != nil || len(owners) == 0 {
		contract.LogInfo(re.cfg, "owners unavailable for %s: %v", result.Name, err)
		return "", false
	}
	change := re.cache.DetectChange(result.Name, owners)
	re.cache.UpdateOwners(result.Name, owners)
	if change == nil {
		return "", false
	}
	return fmt.Sprintf("ownership changed (new: %s, was: %s)",
		schema.FormatOwners(change.CurrentOwners),
		schema.FormatOwners(change.PreviousOwners)), true
}

func (re *RiskEngine) checkVersionJump(result schema.CheckResult) (string, bool) {
	if !IsMajorJump(result.CurrentVersion, result.Version) {
		return "", false
	}
	message := fmt.Sprintf("major version jump (was %s)", result.CurrentVersion)
	if IsPrerelease(result.Version) {
		message += ", candidate is a pre-release"
	}
	return message, true
}
