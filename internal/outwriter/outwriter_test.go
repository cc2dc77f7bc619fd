package outwriter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func sampleReport() *schema.Report {
	report := &schema.Report{
		CooldownDays: 14,
		Results: []schema.CheckResult{
			{Name: "rack", Version: "3.1.8", CurrentVersion: "3.0.11", AgeDays: intPtr(40), Allowed: true, Reason: schema.ReasonSatisfiesMinimumAge},
			{Name: "rails", Version: "8.0.0", CurrentVersion: "7.2.1", AgeDays: intPtr(3), Allowed: false, Reason: schema.ReasonTooNew},
			{Name: "ghost", Version: "9.9.9", CurrentVersion: "1.0.0", Allowed: false, Reason: schema.ReasonVersionNotFound},
			{Name: "internal", Version: "2.0.0", CurrentVersion: "1.0.0", Allowed: true, Reason: schema.ReasonTrustedSource},
		},
		Risk: []schema.RiskResult{
			{Name: "rack", Version: "3.1.8", Blocked: true, Signals: []schema.RiskSignal{
				{Type: schema.NewOwnerSignal, Message: "ownership changed (new: mallory, was: tenderlove)", Mode: schema.BlockMode},
			}},
		},
		Audit: &schema.AuditResult{Vulnerabilities: []schema.Vulnerability{
			{PackageName: "nokogiri", AdvisoryID: "CVE-2024-0001", Title: "XXE", RecommendedFix: "upgrade to >= 1.16.5"},
		}},
		Duration: 1500 * time.Millisecond,
	}
	report.Finalize()
	return report
}

func TestWriteReportText(t *testing.T) {
	cfg := contract.NewConfigBuilder().WithColors(false).Build()
	var buf bytes.Buffer
	require.NoError(t, writeReportText(&buf, sampleReport(), cfg))

	out := buf.String()
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "BLOCKED")
	assert.Contains(t, out, "published 3 days ago (< 14 required)")
	assert.Contains(t, out, "version_not_found (< 14 required)")
	assert.Contains(t, out, "trusted_source")
	assert.Contains(t, out, "40 days")
	assert.Contains(t, out, "Risk signals:")
	assert.Contains(t, out, "ownership changed (new: mallory, was: tenderlove)")
	assert.Contains(t, out, "CVE-2024-0001")
	assert.Contains(t, out, "2 gem(s) violate minimum release age")
	assert.Contains(t, out, "1 gem(s) blocked by risk signals")
	assert.Contains(t, out, "1 vulnerabilit(ies) found")
	assert.Contains(t, out, "Checked 4 gem(s) in 1.5s")
	assert.NotContains(t, out, "\x1b[", "colors disabled")
}

func TestWriteReportTextClean(t *testing.T) {
	report := &schema.Report{CooldownDays: 14, Audit: &schema.AuditResult{}}
	report.Finalize()

	cfg := contract.NewConfigBuilder().WithColors(false).Build()
	var buf bytes.Buffer
	require.NoError(t, writeReportText(&buf, report, cfg))

	out := buf.String()
	assert.Contains(t, out, "No outdated gems found.")
	assert.Contains(t, out, "Audit: no known vulnerabilities.")
	assert.Contains(t, out, "All gem versions satisfy minimum age requirements.")
	assert.NotContains(t, out, "Risk signals:")
}

func TestWriteReportTextAuditStates(t *testing.T) {
	cfg := contract.NewConfigBuilder().WithColors(false).Build()

	var buf bytes.Buffer
	require.NoError(t, writeAudit(&buf, &schema.AuditResult{Unavailable: true}, newPainter(false)))
	assert.Contains(t, buf.String(), "bundler-audit is not installed")

	buf.Reset()
	require.NoError(t, writeAudit(&buf, &schema.AuditResult{Error: "network down"}, newPainter(false)))
	assert.Contains(t, buf.String(), "Audit failed: network down")

	buf.Reset()
	report := &schema.Report{Updated: []string{"rack", "rails"}, WarnOnly: true, Results: []schema.CheckResult{
		{Name: "rack", Allowed: true}, {Name: "rails", Allowed: false, Reason: schema.ReasonTooNew},
	}}
	report.Finalize()
	lockOnly := contract.FromConfig(cfg).WithUpdate(true, true).Build()
	require.NoError(t, writeReportText(&buf, report, lockOnly))
	assert.Contains(t, buf.String(), "Updated 2 gem(s): bundle lock --update rack rails")
	assert.Contains(t, buf.String(), "Warn-only mode")
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReportJSON(&buf, sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, false, decoded["ok"])
	assert.Equal(t, float64(14), decoded["cooldown_days"])
	assert.Equal(t, float64(4), decoded["checked"])

	blocked, ok := decoded["blocked"].([]any)
	require.True(t, ok)
	require.Len(t, blocked, 2)
	first := blocked[0].(map[string]any)
	assert.Equal(t, "rails", first["name"])
	assert.Equal(t, "8.0.0", first["version"])
	assert.Equal(t, float64(3), first["age_days"])
	second := blocked[1].(map[string]any)
	assert.Nil(t, second["age_days"])

	risk := decoded["risk"].([]any)
	require.Len(t, risk, 1)
	assert.Equal(t, true, risk[0].(map[string]any)["blocked"])
}

func TestWriteReportJSONEmptyLists(t *testing.T) {
	report := &schema.Report{CooldownDays: 7}
	report.Finalize()

	var buf bytes.Buffer
	require.NoError(t, writeReportJSON(&buf, report))
	assert.Contains(t, buf.String(), `"blocked": []`)
	assert.Contains(t, buf.String(), `"risk": []`)
	assert.Contains(t, buf.String(), `"ok": true`)
}

func TestPrintReportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	cfg := contract.NewConfigBuilder().WithOutput(schema.JSONOut).Build()
	cfg.OutputFile = path

	require.NoError(t, PrintReport(sampleReport(), cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestWriteDryRun(t *testing.T) {
	cfg := contract.NewConfigBuilder().
		WithCooldownDays(7).
		WithTrustedOwners("rafaelfranca", "tenderlove").
		WithSignalMode(schema.NewOwnerSignal, schema.BlockMode).
		Build()

	var buf bytes.Buffer
	require.NoError(t, writeDryRun(&buf, cfg))
	out := buf.String()
	assert.Contains(t, out, "Configuration (dry-run):\n")
	assert.Contains(t, out, "  Cooldown days: 7\n")
	assert.Contains(t, out, "  Ignored gems: (none)\n")
	assert.Contains(t, out, "  Trusted owners: rafaelfranca, tenderlove\n")
	assert.Contains(t, out, "    low_downloads: warn (threshold 1000)\n")
	assert.Contains(t, out, "    new_owner: block\n")
	assert.Contains(t, out, "  Update: false\n")
}

func TestWriteHeader(t *testing.T) {
	cfg := contract.NewConfigBuilder().WithProjectPath("/srv/shop").Build()
	var buf bytes.Buffer
	writeHeader(&buf, cfg, 3)
	assert.Contains(t, buf.String(), "Project: shop (cooldown: 14 days)")
	assert.Contains(t, buf.String(), "Checking 3 outdated gem(s) against rubygems.org")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "(none)", formatList(nil))
	assert.Equal(t, "a, b", formatList([]string{"a", "b"}))
	assert.Equal(t, "-", formatAge(nil))
	assert.Equal(t, "5 days", formatAge(intPtr(5)))
}
