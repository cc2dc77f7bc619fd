// Package schema has the models and enumerations shared by every part of safeupdate.
package schema

// PackageReference is one outdated package reported by discovery.
type PackageReference struct {
	Name             string `json:"name"`
	CurrentVersion   string `json:"current_version"`
	CandidateVersion string `json:"candidate_version"`
}

// GemInfo holds the popularity facts returned by the registry for a package.
type GemInfo struct {
	Name      string `json:"name"`
	Downloads int64  `json:"downloads"`
}
