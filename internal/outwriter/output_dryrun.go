package outwriter

import (
	"fmt"
	"io"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
)

// writeDryRun lists the effective configuration, one setting per line.
func writeDryRun(w io.Writer, cfg *contract.Config) error {
	lines := []string{
		"Configuration (dry-run):",
		fmt.Sprintf("  Cooldown days: %d", cfg.CooldownDays),
		fmt.Sprintf("  Ignored gems: %s", formatList(cfg.IgnorePackages)),
		fmt.Sprintf("  Ignored prefixes: %s", formatList(cfg.IgnorePrefixes)),
		fmt.Sprintf("  Trusted sources: %s", formatList(cfg.TrustedSources)),
		fmt.Sprintf("  Trusted owners: %s", formatList(cfg.TrustedOwners)),
		fmt.Sprintf("  Max threads: %d", cfg.MaxThreads),
		fmt.Sprintf("  Audit: %t", cfg.Audit),
		fmt.Sprintf("  Risk: %t", cfg.Risk),
	}
	for _, t := range schema.AllSignalTypes {
		line := fmt.Sprintf("    %s: %s", t, cfg.SignalMode(t))
		if _, ok := schema.DefaultSignalThresholds[t]; ok {
			line += fmt.Sprintf(" (threshold %g)", cfg.SignalThreshold(t))
		}
		lines = append(lines, line)
	}
	lines = append(lines,
		fmt.Sprintf("  Registry: %s", cfg.RegistryURL),
		fmt.Sprintf("  Cache backend: %s", cfg.CacheBackend),
		fmt.Sprintf("  History backend: %s", cfg.HistoryBackend),
		fmt.Sprintf("  Update: %t", cfg.Update),
		fmt.Sprintf("  Lock only: %t", cfg.LockOnly),
		fmt.Sprintf("  Warn only: %t", cfg.WarnOnly),
		fmt.Sprintf("  Verbose: %t", cfg.Verbose),
	)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
