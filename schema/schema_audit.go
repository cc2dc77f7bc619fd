package schema

// Vulnerability is one advisory reported by the audit tool.
type Vulnerability struct {
	PackageName    string `json:"name"`
	AdvisoryID     string `json:"advisory_id"`
	Title          string `json:"title"`
	RecommendedFix string `json:"solution"`
}

// AuditResult is the outcome of a vulnerability audit.
// Unavailable is set when the tool is not installed, Error when it ran and failed.
type AuditResult struct {
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Error           string          `json:"error,omitempty"`
	Unavailable     bool            `json:"unavailable,omitempty"`
}

// HasVulnerabilities reports whether the audit found anything.
func (a AuditResult) HasVulnerabilities() bool {
	return len(a.Vulnerabilities) > 0
}
