//go:build basic

package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jsonReport struct {
	OK           bool `json:"ok"`
	CooldownDays int  `json:"cooldown_days"`
	Checked      int  `json:"checked"`
	Blocked      []struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		AgeDays *int   `json:"age_days"`
		Reason  string `json:"reason"`
	} `json:"blocked"`
	Risk []struct {
		Name    string `json:"name"`
		Signals []struct {
			Type string `json:"type"`
		} `json:"signals"`
	} `json:"risk"`
}

func decodeReport(t *testing.T, out string) jsonReport {
	t.Helper()
	var report jsonReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	return report
}

func TestCheckBlocksRecentRelease(t *testing.T) {
	p := newTestProject(t, fakeBundle)
	reg := newFakeRegistry(t)

	out, _, code := p.run(t, "check", "--json", "--no-audit", "--registry-url", reg.URL)
	assert.Equal(t, 1, code)

	report := decodeReport(t, out)
	assert.False(t, report.OK)
	assert.Equal(t, 14, report.CooldownDays)
	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Blocked, 1)
	assert.Equal(t, "rack", report.Blocked[0].Name)
	assert.Equal(t, "3.0.1", report.Blocked[0].Version)
	assert.Equal(t, "too_new", report.Blocked[0].Reason)
	require.NotNil(t, report.Blocked[0].AgeDays)
	assert.Equal(t, 2, *report.Blocked[0].AgeDays)

	// rack jumps from 2.x to 3.x
	var types []string
	for _, r := range report.Risk {
		if r.Name == "rack" {
			for _, s := range r.Signals {
				types = append(types, s.Type)
			}
		}
	}
	assert.Contains(t, types, "version_jump")

	// The first run records owner baselines in the project
	_, err := os.Stat(filepath.Join(p.Dir, ".bundle", "safeupdate-cache.yml"))
	assert.NoError(t, err)
}

func TestCheckWarnOnly(t *testing.T) {
	p := newTestProject(t, fakeBundle)
	reg := newFakeRegistry(t)

	out, _, code := p.run(t, "check", "--warn-only", "--no-audit", "--color", "no", "--registry-url", reg.URL)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "rack")
	assert.Contains(t, out, "violate minimum release age")
}

func TestCheckConfigPrecedence(t *testing.T) {
	p := newTestProject(t, fakeBundle)
	reg := newFakeRegistry(t)
	p.writeConfig(t, "cooldown-days: 1\naudit: false\nregistry-url: "+reg.URL+"\n")

	// The project file lowers the cooldown below rack's age
	out, _, code := p.run(t, "check", "--json")
	assert.Equal(t, 0, code)
	assert.Equal(t, 1, decodeReport(t, out).CooldownDays)

	// Environment wins over the file
	p.Env["SAFEUPDATE_COOLDOWN_DAYS"] = "30"
	out, _, code = p.run(t, "check", "--json")
	assert.Equal(t, 1, code)
	assert.Equal(t, 30, decodeReport(t, out).CooldownDays)

	// Flags win over the environment
	out, _, code = p.run(t, "check", "--json", "--cooldown-days", "0")
	assert.Equal(t, 0, code)
	assert.Equal(t, 0, decodeReport(t, out).CooldownDays)

	// The legacy spelling still works
	out, _, code = p.run(t, "check", "--json", "--cooldown", "0")
	assert.Equal(t, 0, code)
	assert.Equal(t, 0, decodeReport(t, out).CooldownDays)
}

func TestCheckMalformedConfigOnlyWarns(t *testing.T) {
	p := newTestProject(t, fakeBundle)
	reg := newFakeRegistry(t)
	p.writeConfig(t, "cooldown-days: [unterminated\n")

	out, stderr, code := p.run(t, "check", "--json", "--no-audit", "--registry-url", reg.URL)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Ignoring malformed config file")
	assert.Equal(t, 14, decodeReport(t, out).CooldownDays)
}

func TestCheckDryRun(t *testing.T) {
	p := newTestProject(t, brokenBundle)

	out, _, code := p.run(t, "check", "--dry-run", "--cooldown-days", "7", "--color", "no")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Configuration (dry-run):")
	assert.Contains(t, out, "Cooldown days: 7")
}

func TestCheckErrors(t *testing.T) {
	t.Run("invalid cooldown", func(t *testing.T) {
		p := newTestProject(t, fakeBundle)
		_, stderr, code := p.run(t, "check", "--cooldown-days", "-1")
		assert.Equal(t, 2, code)
		assert.Contains(t, stderr, "cooldown-days cannot be negative")
	})

	t.Run("discovery failure", func(t *testing.T) {
		p := newTestProject(t, brokenBundle)
		reg := newFakeRegistry(t)
		_, stderr, code := p.run(t, "check", "--no-audit", "--registry-url", reg.URL)
		assert.Equal(t, 2, code)
		assert.Contains(t, stderr, "failed to list outdated packages")
	})
}

func TestHistoryWithSQLite(t *testing.T) {
	p := newTestProject(t, fakeBundle)
	reg := newFakeRegistry(t)
	p.Env["SAFEUPDATE_HISTORY_BACKEND"] = "sqlite"
	p.Env["SAFEUPDATE_HISTORY_DB_CONNECT"] = filepath.Join(p.Home, "history.db")

	_, _, code := p.run(t, "check", "--warn-only", "--no-audit", "--registry-url", reg.URL)
	require.Equal(t, 0, code)

	out, _, code := p.run(t, "history", "status")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "sqlite")

	exportBase := filepath.Join(p.Home, "export")
	_, _, code = p.run(t, "history", "export", "--output-file", exportBase)
	assert.Equal(t, 0, code)
	assert.FileExists(t, exportBase+".runs.parquet")
	assert.FileExists(t, exportBase+".decisions.parquet")

	_, _, code = p.run(t, "history", "clear")
	assert.Equal(t, 0, code)
}

func TestCacheCommands(t *testing.T) {
	p := newTestProject(t, fakeBundle)
	reg := newFakeRegistry(t)

	_, _, code := p.run(t, "check", "--warn-only", "--no-audit", "--registry-url", reg.URL)
	require.Equal(t, 0, code)

	out, _, code := p.run(t, "cache", "status")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "file")

	_, _, code = p.run(t, "cache", "clear")
	assert.Equal(t, 0, code)
	_, err := os.Stat(filepath.Join(p.Dir, ".bundle", "safeupdate-cache.yml"))
	assert.True(t, os.IsNotExist(err))
}

func TestVersionCommand(t *testing.T) {
	p := newTestProject(t, fakeBundle)
	out, _, code := p.run(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "safeupdate CLI")
}
