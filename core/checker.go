package core

import (
	"context"
	"math"
	"time"

	"github.com/huangsam/safeupdate/internal/batch"
	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
)

// PackageChecker decides whether the candidate version of a package may be installed.
type PackageChecker struct {
	cfg      *contract.Config
	registry contract.RegistryClient
	sources  contract.SourceResolver
	now      func() time.Time
}

// NewPackageChecker creates a checker. sources may be nil when no lockfile is available.
func NewPackageChecker(cfg *contract.Config, registry contract.RegistryClient, sources contract.SourceResolver) *PackageChecker {
	return &PackageChecker{
		cfg:      cfg,
		registry: registry,
		sources:  sources,
		now:      time.Now,
	}
}

// WithClock replaces the clock used to compute version ages.
func (pc *PackageChecker) WithClock(now func() time.Time) *PackageChecker {
	pc.now = now
	return pc
}

// CheckOne evaluates a single package. The first matching rule wins:
// ignored, trusted source, trusted owner, then the cooldown age.
func (pc *PackageChecker) CheckOne(ctx context.Context, pkg schema.PackageReference) schema.CheckResult {
	if pc.cfg.IsIgnored(pkg.Name) {
		return newCheckResult(pkg, nil, true, schema.ReasonIgnored)
	}
	if pc.isTrustedSource(pkg.Name) {
		return newCheckResult(pkg, nil, true, schema.ReasonTrustedSource)
	}
	if pc.isTrustedOwner(ctx, pkg.Name) {
		return newCheckResult(pkg, nil, true, schema.ReasonTrustedOwner)
	}

	publishedAt, err := pc.registry.FetchVersionCreatedAt(ctx, pkg.Name, pkg.CandidateVersion)
	if err != nil {
		contract.LogInfo(pc.cfg, "age lookup failed for %s %s: %v", pkg.Name, pkg.CandidateVersion, err)
		return newCheckResult(pkg, nil, false, schema.ReasonVersionNotFound)
	}

	ageDays := ageInDays(pc.now(), publishedAt)
	if ageDays >= pc.cfg.CooldownDays {
		return newCheckResult(pkg, &ageDays, true, schema.ReasonSatisfiesMinimumAge)
	}
	return newCheckResult(pkg, &ageDays, false, schema.ReasonTooNew)
}

// CheckAll evaluates pkgs concurrently and returns results in input order.
func (pc *PackageChecker) CheckAll(ctx context.Context, pkgs []schema.PackageReference) []schema.CheckResult {
	if len(pkgs) == 0 {
		return []schema.CheckResult{}
	}
	return batch.Run(ctx, pkgs, pc.cfg.MaxThreads,
		func(ctx context.Context, pkg schema.PackageReference) (schema.CheckResult, error) {
			return pc.CheckOne(ctx, pkg), nil
		},
		func(pkg schema.PackageReference, err error) schema.CheckResult {
			contract.LogWarn("Package check failed for "+pkg.Name, err)
			return newCheckResult(pkg, nil, false, schema.ReasonVersionNotFound)
		},
	)
}

// isTrustedSource reports whether the declared source of name matches a trusted pattern.
func (pc *PackageChecker) isTrustedSource(name string) bool {
	if len(pc.cfg.TrustedSources) == 0 || pc.sources == nil {
		return false
	}
	source, ok := pc.sources.SourceFor(name)
	return ok && pc.cfg.IsTrustedSource(source)
}

// isTrustedOwner reports whether a trusted owner publishes name.
// A failed owner lookup counts as untrusted.
func (pc *PackageChecker) isTrustedOwner(ctx context.Context, name string) bool {
	if len(pc.cfg.TrustedOwners) == 0 {
		return false
	}
	owners, err := pc.registry.FetchOwners(ctx, name)
	if err != nil {
		contract.LogInfo(pc.cfg, "owner lookup failed for %s: %v", name, err)
		return false
	}
	return pc.cfg.HasTrustedOwner(owners)
}

// ageInDays returns the whole days elapsed between then and now.
func ageInDays(now, then time.Time) int {
	return int(math.Floor(now.Sub(then).Hours() / 24))
}

func newCheckResult(pkg schema.PackageReference, ageDays *int, allowed bool, reason schema.Reason) schema.CheckResult {
	return schema.CheckResult{
		Name:           pkg.Name,
		Version:        pkg.CandidateVersion,
		CurrentVersion: pkg.CurrentVersion,
		AgeDays:        ageDays,
		Allowed:        allowed,
		Reason:         reason,
	}
}
