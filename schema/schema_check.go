package schema

// CheckResult is the cooldown and trust decision for a single package.
// AgeDays is nil unless a registry age lookup actually happened.
type CheckResult struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	CurrentVersion string `json:"current_version,omitempty"`
	AgeDays        *int   `json:"age_days"`
	Allowed        bool   `json:"allowed"`
	Reason         Reason `json:"reason"`
}

// IsTrusted reports whether the package was exempted by a trusted source or owner.
func (r CheckResult) IsTrusted() bool {
	return r.Reason == ReasonTrustedSource || r.Reason == ReasonTrustedOwner
}
