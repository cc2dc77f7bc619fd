package bundler

import (
	"context"
	"errors"
	"testing"

	"github.com/huangsam/safeupdate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const auditOutput = `Updating ruby-advisory-db ...
Name: actionpack
Version: 3.2.10
CVE: CVE-2013-0156
GHSA: GHSA-jmgw-6vjg-jjwg
Criticality: High
URL: https://groups.google.com/forum/#!topic/rubyonrails-security/61bkgvnSGTQ/discussion
Title: Ruby on Rails params_parser.rb Action Pack Type Casting Parameter Parsing Remote Code Execution
Solution: upgrade to ~> 2.3.15, ~> 3.0.19, ~> 3.1.10, >= 3.2.11

Name: rack
Version: 2.0.1
GHSA: GHSA-hxqx-xwvh-44m2
Criticality: Medium
Title: Denial of service in multipart parsing
Solution: upgrade to >= 2.0.8

Vulnerabilities found!
`

func TestParseAudit(t *testing.T) {
	vulns := parseAudit([]byte(auditOutput))
	assert.Equal(t, []schema.Vulnerability{
		{
			PackageName:    "actionpack",
			AdvisoryID:     "CVE-2013-0156",
			Title:          "Ruby on Rails params_parser.rb Action Pack Type Casting Parameter Parsing Remote Code Execution",
			RecommendedFix: "upgrade to ~> 2.3.15, ~> 3.0.19, ~> 3.1.10, >= 3.2.11",
		},
		{
			PackageName:    "rack",
			AdvisoryID:     "GHSA-hxqx-xwvh-44m2",
			Title:          "Denial of service in multipart parsing",
			RecommendedFix: "upgrade to >= 2.0.8",
		},
	}, vulns)
}

func TestAuditAvailable(t *testing.T) {
	ok := &fakeRunner{result: commandResult{Stdout: []byte("bundler-audit 0.9.2")}}
	assert.True(t, (&AuditChecker{run: ok.run}).Available(context.Background()))
	assert.Equal(t, [][]string{{"audit", "--version"}}, ok.args)

	missing := &fakeRunner{result: commandResult{Stderr: []byte("Could not find command \"audit\"."), ExitCode: 15}}
	assert.False(t, (&AuditChecker{run: missing.run}).Available(context.Background()))

	noBundle := &fakeRunner{err: errors.New("executable file not found")}
	assert.False(t, (&AuditChecker{run: noBundle.run}).Available(context.Background()))
}

func TestAuditRun(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		runner := &fakeRunner{result: commandResult{Stdout: []byte("No vulnerabilities found\n")}}
		res := (&AuditChecker{run: runner.run}).Run(context.Background())
		assert.Empty(t, res.Vulnerabilities)
		assert.Empty(t, res.Error)
		assert.Equal(t, [][]string{{"audit", "check", "--update"}}, runner.args)
	})

	t.Run("vulnerable", func(t *testing.T) {
		runner := &fakeRunner{result: commandResult{Stdout: []byte(auditOutput), ExitCode: 1}}
		res := (&AuditChecker{run: runner.run}).Run(context.Background())
		require.Len(t, res.Vulnerabilities, 2)
		assert.True(t, res.HasVulnerabilities())
		assert.Empty(t, res.Error)
	})

	t.Run("tool error", func(t *testing.T) {
		runner := &fakeRunner{result: commandResult{Stderr: []byte("Failed to update advisory db\n"), ExitCode: 1}}
		res := (&AuditChecker{run: runner.run}).Run(context.Background())
		assert.Empty(t, res.Vulnerabilities)
		assert.Contains(t, res.Error, "Failed to update advisory db")
	})
}
