package schema

import "time"

// BlockedPackage is the compact view of a package that failed the cooldown policy.
type BlockedPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	AgeDays *int   `json:"age_days"`
	Reason  Reason `json:"reason"`
}

// Report is the full outcome of one gate run.
type Report struct {
	OK           bool             `json:"ok"`
	CooldownDays int              `json:"cooldown_days"`
	Checked      int              `json:"checked"`
	Results      []CheckResult    `json:"results"`
	Blocked      []BlockedPackage `json:"blocked"`
	Risk         []RiskResult     `json:"risk"`
	Audit        *AuditResult     `json:"audit,omitempty"`
	Updated      []string         `json:"updated,omitempty"`
	WarnOnly     bool             `json:"warn_only,omitempty"`
	StartTime    time.Time        `json:"-"`
	Duration     time.Duration    `json:"-"`
}

// HasViolations reports whether anything in the run should fail the gate.
func (r *Report) HasViolations() bool {
	if len(r.Blocked) > 0 {
		return true
	}
	for _, risk := range r.Risk {
		if risk.Blocked {
			return true
		}
	}
	return r.Audit != nil && r.Audit.HasVulnerabilities()
}

// RiskBlockedNames returns the names of packages blocked by a risk signal.
func (r *Report) RiskBlockedNames() map[string]struct{} {
	names := make(map[string]struct{})
	for _, risk := range r.Risk {
		if risk.Blocked {
			names[risk.Name] = struct{}{}
		}
	}
	return names
}

// UpdatableNames returns allowed packages that are not risk-blocked, in check order.
func (r *Report) UpdatableNames() []string {
	blocked := r.RiskBlockedNames()
	var names []string
	for _, res := range r.Results {
		if !res.Allowed {
			continue
		}
		if _, ok := blocked[res.Name]; ok {
			continue
		}
		names = append(names, res.Name)
	}
	return names
}

// Finalize fills the derived fields from the check and risk results.
func (r *Report) Finalize() {
	r.Checked = len(r.Results)
	r.Blocked = []BlockedPackage{}
	for _, res := range r.Results {
		if res.Allowed {
			continue
		}
		r.Blocked = append(r.Blocked, BlockedPackage{Name: res.Name, Version: res.Version, AgeDays: res.AgeDays, Reason: res.Reason})
	}
	if r.Risk == nil {
		r.Risk = []RiskResult{}
	}
	r.OK = !r.HasViolations()
}
