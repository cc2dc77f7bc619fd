package bundler

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
)

// outdatedLine matches "name (newest X, installed Y, ...)" from `bundle outdated --parseable`.
var outdatedLine = regexp.MustCompile(`^(\S+)\s+\(newest\s+([^\s,)]+),?\s*installed\s+([^\s,)]+)`)

// OutdatedChecker discovers packages with a newer version available.
type OutdatedChecker struct {
	dir string
	run commandRunner
}

var _ contract.OutdatedSource = &OutdatedChecker{} // Compile-time check

// NewOutdatedChecker creates a checker for the Bundler project in dir.
func NewOutdatedChecker(dir string) *OutdatedChecker {
	return &OutdatedChecker{dir: dir, run: runBundle}
}

// List runs `bundle outdated --parseable`, optionally restricted to names.
// Bundler exits non-zero when something is outdated, so only an exit without
// any parseable line is treated as a failure.
func (oc *OutdatedChecker) List(ctx context.Context, names []string) ([]schema.PackageReference, error) {
	args := append([]string{"outdated", "--parseable"}, names...)
	res, err := oc.run(ctx, oc.dir, args...)
	if err != nil {
		return nil, err
	}

	pkgs := parseOutdated(res.Stdout)
	if res.ExitCode != 0 && len(pkgs) == 0 {
		return nil, describeFailure(args, res)
	}
	return pkgs, nil
}

// parseOutdated extracts package references from parseable outdated output.
// Lines that do not describe an outdated package are skipped.
func parseOutdated(output []byte) []schema.PackageReference {
	pkgs := []schema.PackageReference{}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		m := outdatedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		pkgs = append(pkgs, schema.PackageReference{
			Name:             m[1],
			CandidateVersion: m[2],
			CurrentVersion:   m[3],
		})
	}
	return pkgs
}
