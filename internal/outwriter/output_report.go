package outwriter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/safeupdate/internal/bundler"
	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// writeReportJSON writes the report as indented JSON.
func writeReportJSON(w io.Writer, report *schema.Report) error {
	return writeJSON(w, report)
}

// writeReportText writes the check table followed by risk, audit, update and summary sections.
func writeReportText(w io.Writer, report *schema.Report, cfg *contract.Config) error {
	paint := newPainter(cfg.UseColors)

	if len(report.Results) == 0 {
		if _, err := fmt.Fprintln(w, paint.ok("No outdated gems found.")); err != nil {
			return err
		}
	} else if err := writeResultsTable(w, report, paint); err != nil {
		return err
	}

	if len(report.Risk) > 0 {
		if err := writeRiskTable(w, report.Risk, paint); err != nil {
			return err
		}
	}
	if report.Audit != nil {
		if err := writeAudit(w, report.Audit, paint); err != nil {
			return err
		}
	}
	if len(report.Updated) > 0 {
		command := "bundle " + strings.Join(bundler.UpdateArgs(report.Updated, cfg.LockOnly), " ")
		if _, err := fmt.Fprintf(w, "\nUpdated %d gem(s): %s\n", len(report.Updated), command); err != nil {
			return err
		}
	}
	return writeSummary(w, report, cfg, paint)
}

func writeResultsTable(w io.Writer, report *schema.Report, paint painter) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Status", "Gem", "Installed", "Candidate", "Age", "Reason"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, res := range report.Results {
		data = append(data, []string{
			paint.status(res.Allowed),
			res.Name,
			res.CurrentVersion,
			res.Version,
			formatAge(res.AgeDays),
			describeReason(res, report.CooldownDays),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// describeReason explains a decision in the words of the cooldown policy.
func describeReason(res schema.CheckResult, cooldownDays int) string {
	if res.Allowed {
		return string(res.Reason)
	}
	if res.AgeDays != nil {
		return fmt.Sprintf("published %d days ago (< %d required)", *res.AgeDays, cooldownDays)
	}
	return fmt.Sprintf("%s (< %d required)", res.Reason, cooldownDays)
}

func writeRiskTable(w io.Writer, risks []schema.RiskResult, paint painter) error {
	if _, err := fmt.Fprintln(w, "\nRisk signals:"); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Mode", "Gem", "Version", "Signal", "Detail"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, risk := range risks {
		for _, signal := range risk.Signals {
			data = append(data, []string{
				paint.mode(signal.Mode),
				risk.Name,
				risk.Version,
				string(signal.Type),
				signal.Message,
			})
		}
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeAudit(w io.Writer, audit *schema.AuditResult, paint painter) error {
	switch {
	case audit.Unavailable:
		_, err := fmt.Fprintln(w, paint.warn("\nAudit skipped: bundler-audit is not installed (gem install bundler-audit)"))
		return err
	case audit.Error != "":
		_, err := fmt.Fprintln(w, paint.warn("\nAudit failed: "+audit.Error))
		return err
	case !audit.HasVulnerabilities():
		_, err := fmt.Fprintln(w, paint.ok("\nAudit: no known vulnerabilities."))
		return err
	}

	if _, err := fmt.Fprintln(w, paint.blocked("\nVulnerabilities:")); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Gem", "Advisory", "Title", "Solution"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	var data [][]string
	for _, v := range audit.Vulnerabilities {
		data = append(data, []string{v.PackageName, v.AdvisoryID, v.Title, v.RecommendedFix})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeSummary(w io.Writer, report *schema.Report, cfg *contract.Config, paint painter) error {
	var lines []string
	if len(report.Blocked) == 0 {
		lines = append(lines, paint.ok("All gem versions satisfy minimum age requirements."))
	} else {
		lines = append(lines, paint.warn(fmt.Sprintf("%d gem(s) violate minimum release age", len(report.Blocked))))
	}
	if n := len(report.RiskBlockedNames()); n > 0 {
		lines = append(lines, paint.blocked(fmt.Sprintf("%d gem(s) blocked by risk signals", n)))
	}
	if report.Audit != nil && report.Audit.HasVulnerabilities() {
		lines = append(lines, paint.blocked(fmt.Sprintf("%d vulnerabilit(ies) found", len(report.Audit.Vulnerabilities))))
	}
	if report.WarnOnly && report.HasViolations() {
		lines = append(lines, paint.warn("Warn-only mode: violations do not fail the run."))
	}
	lines = append(lines, fmt.Sprintf("Checked %d gem(s) in %v with %d worker(s). Cache backend: %s",
		report.Checked, report.Duration.Round(time.Millisecond), cfg.MaxThreads, cfg.CacheBackend))

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// painter applies the status colors when enabled.
type painter struct {
	enabled bool
}

func newPainter(enabled bool) painter {
	return painter{enabled: enabled}
}

func (p painter) paint(c *color.Color, s string) string {
	if !p.enabled {
		return s
	}
	return c.Sprint(s)
}

func (p painter) ok(s string) string      { return p.paint(contract.OKColor, s) }
func (p painter) warn(s string) string    { return p.paint(contract.WarnColor, s) }
func (p painter) blocked(s string) string { return p.paint(contract.BlockedColor, s) }

func (p painter) status(allowed bool) string {
	if !p.enabled {
		return contract.GetPlainStatus(allowed)
	}
	return contract.GetColorStatus(allowed)
}

func (p painter) mode(mode schema.SignalMode) string {
	label := strings.ToUpper(string(mode))
	if mode == schema.BlockMode {
		return p.blocked(label)
	}
	return p.warn(label)
}
