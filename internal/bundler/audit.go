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

// vulnerabilitiesFound is printed by bundler-audit when the check fails on advisories.
const vulnerabilitiesFound = "Vulnerabilities found!"

var auditField = regexp.MustCompile(`^(Name|CVE|GHSA|Title|Solution):\s+(.+)$`)

// AuditChecker runs bundler-audit over the project.
type AuditChecker struct {
	dir string
	run commandRunner
}

var _ contract.AuditTool = &AuditChecker{} // Compile-time check

// NewAuditChecker creates an audit checker for the Bundler project in dir.
func NewAuditChecker(dir string) *AuditChecker {
	return &AuditChecker{dir: dir, run: runBundle}
}

// Available reports whether bundler-audit is installed.
func (ac *AuditChecker) Available(ctx context.Context) bool {
	res, err := ac.run(ctx, ac.dir, "audit", "--version")
	return err == nil && res.ExitCode == 0
}

// Run updates the advisory database and checks the lockfile.
// A failure of the tool itself is reported in the Error field.
func (ac *AuditChecker) Run(ctx context.Context) schema.AuditResult {
	args := []string{"audit", "check", "--update"}
	res, err := ac.run(ctx, ac.dir, args...)
	if err != nil {
		return schema.AuditResult{Vulnerabilities: []schema.Vulnerability{}, Error: err.Error()}
	}

	switch {
	case res.ExitCode == 0:
		return schema.AuditResult{Vulnerabilities: []schema.Vulnerability{}}
	case bytes.Contains(res.Stdout, []byte(vulnerabilitiesFound)):
		return schema.AuditResult{Vulnerabilities: parseAudit(res.Stdout)}
	default:
		return schema.AuditResult{Vulnerabilities: []schema.Vulnerability{}, Error: describeFailure(args, res).Error()}
	}
}

// parseAudit reads advisory blocks. Each block ends at its Solution line.
// CVE identifiers are preferred over GHSA ones.
func parseAudit(output []byte) []schema.Vulnerability {
	vulns := []schema.Vulnerability{}
	var current schema.Vulnerability
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		m := auditField.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[2])
		switch m[1] {
		case "Name":
			current = schema.Vulnerability{PackageName: value}
		case "CVE":
			current.AdvisoryID = value
		case "GHSA":
			if current.AdvisoryID == "" {
				current.AdvisoryID = value
			}
		case "Title":
			current.Title = value
		case "Solution":
			current.RecommendedFix = value
			vulns = append(vulns, current)
			current = schema.Vulnerability{}
		}
	}
	return vulns
}
