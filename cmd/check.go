package cmd

import (
	"os"

	"github.com/huangsam/safeupdate/core"
	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/internal/iocache"
	"github.com/spf13/cobra"
)

// checkCmd runs the gate for a Bundler project.
var checkCmd = &cobra.Command{
	Use:   "check [gems...]",
	Short: "Check outdated gems against the cooldown and risk policies (fails on violations)",
	Long: `Discover the outdated gems of a Bundler project and decide for each candidate
version whether it is safe to install.

A version is allowed when it was published at least --cooldown-days ago, or when
the gem is ignored, comes from a trusted source, or has a trusted owner. Risk
signals (low downloads, stale gem, new owner, version jump) and bundler-audit
findings are reported alongside and can block the run.

Exit codes:
  0 - every gem is allowed (or --warn-only)
  1 - a gem was blocked, a blocking risk signal fired, or a vulnerability was found
  2 - the check could not run

Examples:
  # Check every outdated gem with the default 14 day cooldown
  safeupdate check

  # Check two gems and update them when allowed
  safeupdate check rails puma --update

  # CI gate with a longer cooldown and JSON output
  safeupdate check --cooldown-days 30 --json --output-file safeupdate.json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		code, err := core.ExecuteSafeUpdate(rootCtx, cfg, cacheManager)
		iocache.CloseCaching()
		if err != nil {
			contract.LogFatal("Safe update check failed", err)
		}
		if code != contract.ExitOK {
			os.Exit(code)
		}
	},
}
