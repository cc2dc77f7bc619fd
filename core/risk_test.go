package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// stubRegistry answers every registry call for name with healthy values unless overridden.
func stubRegistry(reg *contract.MockRegistryClient, name, current string, downloads int64, installedAt time.Time, owners []string) {
	reg.On("FetchGemInfo", mock.Anything, name).Return(&schema.GemInfo{Name: name, Downloads: downloads}, nil).Maybe()
	reg.On("FetchVersionCreatedAt", mock.Anything, name, current).Return(installedAt, nil).Maybe()
	reg.On("FetchOwners", mock.Anything, name).Return(owners, nil).Maybe()
}

func checked(name, current, candidate string) schema.CheckResult {
	return schema.CheckResult{Name: name, Version: candidate, CurrentVersion: current, Allowed: true, Reason: schema.ReasonSatisfiesMinimumAge}
}

func newTestRiskEngine(cfg *contract.Config, reg contract.RegistryClient, sources contract.SourceResolver) (*RiskEngine, *OwnerCache) {
	cache := NewOwnerCache(nil)
	return NewRiskEngine(cfg, reg, cache, sources).WithClock(fixedClock), cache
}

func TestRiskCheckOneClean(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	stubRegistry(reg, "rack", "3.0.0", 500_000, daysAgo(200), []string{"tenderlove"})

	engine, _ := newTestRiskEngine(contract.NewConfigBuilder().Build(), reg, nil)
	assert.Nil(t, engine.CheckOne(context.Background(), checked("rack", "3.0.0", "3.1.0")))
}

func TestRiskCheckOneLowDownloads(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	stubRegistry(reg, "tiny", "0.1.0", 42, daysAgo(30), []string{"someone"})

	engine, _ := newTestRiskEngine(contract.NewConfigBuilder().Build(), reg, nil)
	risk := engine.CheckOne(context.Background(), checked("tiny", "0.1.0", "0.2.0"))
	require.NotNil(t, risk)
	require.Len(t, risk.Signals, 1)
	assert.Equal(t, schema.LowDownloadsSignal, risk.Signals[0].Type)
	assert.Equal(t, "low downloads (42 total)", risk.Signals[0].Message)
	assert.Equal(t, schema.WarnMode, risk.Signals[0].Mode)
	assert.False(t, risk.Blocked)
	assert.Equal(t, "0.2.0", risk.Version)
}

func TestRiskCheckOneStaleGem(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	stubRegistry(reg, "old", "1.0.0", 50_000, testNow.Add(-time.Duration(4*hoursPerYear)*time.Hour), []string{"someone"})

	cfg := contract.NewConfigBuilder().WithSignalMode(schema.StaleGemSignal, schema.BlockMode).Build()
	engine, _ := newTestRiskEngine(cfg, reg, nil)
	risk := engine.CheckOne(context.Background(), checked("old", "1.0.0", "1.0.1"))
	require.NotNil(t, risk)
	require.Len(t, risk.Signals, 1)
	assert.Equal(t, schema.StaleGemSignal, risk.Signals[0].Type)
	assert.Equal(t, "stale gem (installed version released 4.0 years ago)", risk.Signals[0].Message)
	assert.True(t, risk.Blocked)
}

func TestRiskCheckOneVersionJump(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	stubRegistry(reg, "rails", "7.1.0", 500_000_000, daysAgo(100), []string{"dhh"})

	engine, _ := newTestRiskEngine(contract.NewConfigBuilder().Build(), reg, nil)
	risk := engine.CheckOne(context.Background(), checked("rails", "7.1.0", "8.0.0"))
	require.NotNil(t, risk)
	assert.Equal(t, []schema.SignalType{schema.VersionJumpSignal}, risk.SignalTypes())
	assert.Equal(t, "major version jump (was 7.1.0)", risk.Signals[0].Message)
}

func TestRiskCheckOneVersionJumpPrerelease(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	stubRegistry(reg, "rails", "7.1.0", 500_000_000, daysAgo(100), []string{"dhh"})

	engine, _ := newTestRiskEngine(contract.NewConfigBuilder().Build(), reg, nil)
	risk := engine.CheckOne(context.Background(), checked("rails", "7.1.0", "8.0.0.beta1"))
	require.NotNil(t, risk)
	assert.Equal(t, []schema.SignalType{schema.VersionJumpSignal}, risk.SignalTypes())
	assert.Equal(t, "major version jump (was 7.1.0), candidate is a pre-release", risk.Signals[0].Message)
}

func TestRiskCheckOneSignalOrder(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	stubRegistry(reg, "sketchy", "1.0.0", 10, testNow.Add(-5*365*24*time.Hour), []string{"mallory"})

	engine, cache := newTestRiskEngine(contract.NewConfigBuilder().Build(), reg, nil)
	cache.UpdateOwners("sketchy", []string{"alice"})

	risk := engine.CheckOne(context.Background(), checked("sketchy", "1.0.0", "2.0.0"))
	require.NotNil(t, risk)
	assert.Equal(t, schema.AllSignalTypes, risk.SignalTypes())
	assert.Equal(t, "ownership changed (new: mallory, was: alice)", risk.Signals[2].Message)
}

func TestRiskCheckOneOffModeSkipsRegistry(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	cfg := contract.NewConfigBuilder().
		WithSignalMode(schema.LowDownloadsSignal, schema.OffMode).
		WithSignalMode(schema.StaleGemSignal, schema.OffMode).
		WithSignalMode(schema.NewOwnerSignal, schema.OffMode).
		WithSignalMode(schema.VersionJumpSignal, schema.OffMode).
		Build()

	engine, _ := newTestRiskEngine(cfg, reg, nil)
	assert.Nil(t, engine.CheckOne(context.Background(), checked("rails", "1.0.0", "2.0.0")))
	assert.Empty(t, reg.Calls)
}

func TestRiskCheckOneAlternateSourceOnlyVersionJump(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	sources := &contract.MockSourceResolver{}
	sources.On("SourceFor", "private").Return("https://gems.example.com/", true)

	engine, _ := newTestRiskEngine(contract.NewConfigBuilder().Build(), reg, sources)
	risk := engine.CheckOne(context.Background(), checked("private", "1.0.0", "2.0.0"))
	require.NotNil(t, risk)
	assert.Equal(t, []schema.SignalType{schema.VersionJumpSignal}, risk.SignalTypes())
	assert.Empty(t, reg.Calls)
}

func TestRiskCheckOneRegistryFaultsSkipSignals(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	reg.On("FetchGemInfo", mock.Anything, "flaky").Return(nil, errors.New("503"))
	reg.On("FetchVersionCreatedAt", mock.Anything, "flaky", "1.0.0").Return(time.Time{}, errors.New("503"))
	reg.On("FetchOwners", mock.Anything, "flaky").Return(nil, errors.New("503"))

	engine, cache := newTestRiskEngine(contract.NewConfigBuilder().Build(), reg, nil)
	cache.UpdateOwners("flaky", []string{"alice"})

	assert.Nil(t, engine.CheckOne(context.Background(), checked("flaky", "1.0.0", "1.0.1")))
	assert.Equal(t, []string{"alice"}, cache.OwnersFor("flaky"), "failed fetch keeps the baseline")
}

func TestRiskCheckOneEmptyOwnersKeepsBaseline(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	stubRegistry(reg, "rack", "3.0.0", 500_000, daysAgo(30), []string{})

	engine, cache := newTestRiskEngine(contract.NewConfigBuilder().Build(), reg, nil)
	cache.UpdateOwners("rack", []string{"tenderlove"})

	assert.Nil(t, engine.CheckOne(context.Background(), checked("rack", "3.0.0", "3.0.1")))
	assert.Equal(t, []string{"tenderlove"}, cache.OwnersFor("rack"))
}

func TestRiskNewOwnerBaselineSequence(t *testing.T) {
	ctx := context.Background()
	cfg := contract.NewConfigBuilder().WithSignalMode(schema.NewOwnerSignal, schema.BlockMode).Build()
	cache := NewOwnerCache(nil)

	run := func(owners ...string) *schema.RiskResult {
		reg := &contract.MockRegistryClient{}
		stubRegistry(reg, "pkg", "1.0.0", 500_000, daysAgo(30), owners)
		return NewRiskEngine(cfg, reg, cache, nil).WithClock(fixedClock).CheckOne(ctx, checked("pkg", "1.0.0", "1.0.1"))
	}

	assert.Nil(t, run("alice"), "first sighting records a baseline")
	assert.Equal(t, []string{"alice"}, cache.OwnersFor("pkg"))

	assert.Nil(t, run("alice"), "unchanged owners")

	risk := run("bob", "alice")
	require.NotNil(t, risk)
	assert.True(t, risk.Blocked)
	assert.Equal(t, "ownership changed (new: alice, bob, was: alice)", risk.Signals[0].Message)
	assert.Equal(t, []string{"alice", "bob"}, cache.OwnersFor("pkg"))

	assert.Nil(t, run("bob", "alice"), "new baseline is not reported twice")
}

func TestRiskExemptTrusted(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	trusted := checked("rails", "7.1.0", "8.0.0")
	trusted.Reason = schema.ReasonTrustedOwner

	exempt, _ := newTestRiskEngine(contract.NewConfigBuilder().WithRiskExemptTrusted(true).Build(), reg, nil)
	assert.Nil(t, exempt.CheckOne(context.Background(), trusted))
	assert.Empty(t, reg.Calls)

	stubRegistry(reg, "rails", "7.1.0", 500_000_000, daysAgo(100), []string{"dhh"})
	notExempt, _ := newTestRiskEngine(contract.NewConfigBuilder().Build(), reg, nil)
	assert.NotNil(t, notExempt.CheckOne(context.Background(), trusted))
}

func TestRiskCheckAllIsSparseAndOrdered(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	stubRegistry(reg, "clean", "1.0.0", 1_000_000, daysAgo(30), []string{"a"})
	stubRegistry(reg, "tiny", "1.0.0", 5, daysAgo(30), []string{"b"})
	stubRegistry(reg, "major", "1.0.0", 1_000_000, daysAgo(30), []string{"c"})

	engine, _ := newTestRiskEngine(contract.NewConfigBuilder().WithMaxThreads(3).Build(), reg, nil)
	risks := engine.CheckAll(context.Background(), []schema.CheckResult{
		checked("tiny", "1.0.0", "1.1.0"),
		checked("clean", "1.0.0", "1.1.0"),
		checked("major", "1.0.0", "2.0.0"),
	})

	require.Len(t, risks, 2)
	assert.Equal(t, "tiny", risks[0].Name)
	assert.Equal(t, "major", risks[1].Name)
}

func TestRiskCheckAllEmpty(t *testing.T) {
	engine, _ := newTestRiskEngine(contract.NewConfigBuilder().Build(), &contract.MockRegistryClient{}, nil)
	risks := engine.CheckAll(context.Background(), nil)
	assert.NotNil(t, risks)
	assert.Empty(t, risks)
}

func TestRiskRefreshOwners(t *testing.T) {
	reg := &contract.MockRegistryClient{}
	reg.On("FetchOwners", mock.Anything, "rails").Return([]string{"rafaelfranca", "dhh"}, nil)
	reg.On("FetchOwners", mock.Anything, "down").Return(nil, errors.New("timeout"))

	engine, cache := newTestRiskEngine(contract.NewConfigBuilder().Build(), reg, nil)
	cache.UpdateOwners("rails", []string{"someone-else"})
	cache.UpdateOwners("down", []string{"kept"})

	engine.RefreshOwners(context.Background(), []schema.CheckResult{
		checked("rails", "7.1.0", "7.2.0"),
		checked("down", "1.0.0", "1.1.0"),
	})
	assert.Equal(t, []string{"dhh", "rafaelfranca"}, cache.OwnersFor("rails"))
	assert.Equal(t, []string{"kept"}, cache.OwnersFor("down"))
}
