// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
)

// PrintHeader prints a concise 2-line header before the checks start.
func PrintHeader(cfg *contract.Config, outdated int) {
	writeHeader(os.Stdout, cfg, outdated)
}

// PrintReport writes the report in the configured output format.
func PrintReport(report *schema.Report, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportJSON(w, report)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportText(w, report, cfg)
		}, "Wrote report")
	}
	return nil
}

// PrintDryRun prints the effective configuration without running any check.
func PrintDryRun(cfg *contract.Config) error {
	return writeDryRun(os.Stdout, cfg)
}

func writeHeader(w io.Writer, cfg *contract.Config, outdated int) {
	project := filepath.Base(cfg.ProjectPath)
	if project == "" || project == "." {
		project = "current"
	}
	_, _ = fmt.Fprintf(w, "🔎 Project: %s (cooldown: %d days)\n", project, cfg.CooldownDays)
	_, _ = fmt.Fprintf(w, "📦 Checking %d outdated gem(s) against %s\n", outdated, cfg.RegistryHost())
}
