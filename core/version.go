package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
)

// MajorVersion returns the major component of a version string.
// Semver-like input, including a "v" prefix or a missing minor/patch, is parsed by semver.
// Versions semver rejects, such as "1.2.3.4" or "2.0.0.beta1", fall back to the
// leading dot-delimited integer. Anything non-numeric is 0.
func MajorVersion(version string) uint64 {
	version = strings.TrimSpace(version)
	if v, err := semver.NewVersion(version); err == nil {
		return v.Major()
	}

	lead, _, _ := strings.Cut(version, ".")
	major, err := strconv.ParseUint(lead, 10, 64)
	if err != nil {
		return 0
	}
	return major
}

// IsPrerelease reports whether version is a pre-release, either semver style ("2.0.0-rc1")
// or RubyGems style where any segment carries a letter ("2.0.0.beta1").
func IsPrerelease(version string) bool {
	version = strings.TrimSpace(version)
	if v, err := semver.NewVersion(version); err == nil {
		return v.Prerelease() != ""
	}
	for seg := range strings.SplitSeq(version, ".") {
		if strings.ContainsFunc(seg, unicode.IsLetter) {
			return true
		}
	}
	return false
}

// IsMajorJump reports whether candidate has a higher major version than current.
func IsMajorJump(current, candidate string) bool {
	if current == "" {
		return false
	}
	return MajorVersion(candidate) > MajorVersion(current)
}
