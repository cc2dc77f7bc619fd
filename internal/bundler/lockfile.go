package bundler

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/huangsam/safeupdate/internal/contract"
)

// LockfileName is the lockfile Bundler writes next to the Gemfile.
const LockfileName = "Gemfile.lock"

var (
	sectionHeader = regexp.MustCompile(`^[A-Z]+$`)
	remoteLine    = regexp.MustCompile(`^\s+remote:\s+(.+)$`)
	specLine      = regexp.MustCompile(`^ {4}(\S+)\s+\(`)
)

// sourceSections are the lockfile sections whose specs carry a remote.
var sourceSections = map[string]struct{}{
	"GEM":  {},
	"GIT":  {},
	"PATH": {},
}

// Lockfile maps each locked package to the source it is installed from.
type Lockfile struct {
	sources map[string]string
}

var _ contract.SourceResolver = &Lockfile{} // Compile-time check

// LoadLockfile parses the Gemfile.lock in dir.
func LoadLockfile(dir string) (*Lockfile, error) {
	path := filepath.Join(dir, LockfileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	lock, err := ParseLockfile(f)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	return lock, nil
}

// ParseLockfile reads lockfile content. A spec line takes the remote of the
// section it appears in. Specs in sections without a remote are not recorded.
func ParseLockfile(r io.Reader) (*Lockfile, error) {
	lock := &Lockfile{sources: make(map[string]string)}

	inSource := false
	remote := ""
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case sectionHeader.MatchString(line):
			_, inSource = sourceSections[line]
			remote = ""
		case !inSource:
			continue
		case remoteLine.MatchString(line):
			remote = strings.TrimSpace(remoteLine.FindStringSubmatch(line)[1])
		case specLine.MatchString(line):
			if remote == "" {
				continue
			}
			lock.sources[specLine.FindStringSubmatch(line)[1]] = remote
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lock, nil
}

// SourceFor returns the remote a package is locked to.
func (l *Lockfile) SourceFor(name string) (string, bool) {
	source, ok := l.sources[name]
	return source, ok
}

// Len returns the number of packages with a known source.
func (l *Lockfile) Len() int {
	return len(l.sources)
}
