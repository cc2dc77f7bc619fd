package bundler

import (
	"context"

	"github.com/huangsam/safeupdate/internal/contract"
)

// Updater upgrades packages with Bundler.
type Updater struct {
	dir string
	run commandRunner
}

var _ contract.UpdateExecutor = &Updater{} // Compile-time check

// NewUpdater creates an updater for the Bundler project in dir.
func NewUpdater(dir string) *Updater {
	return &Updater{dir: dir, run: runBundle}
}

// UpdateArgs returns the bundle arguments that upgrade names.
// lockOnly rewrites Gemfile.lock without installing.
func UpdateArgs(names []string, lockOnly bool) []string {
	if lockOnly {
		return append([]string{"lock", "--update"}, names...)
	}
	return append([]string{"update"}, names...)
}

// Update runs the upgrade. An empty list is a no-op.
func (u *Updater) Update(ctx context.Context, names []string, lockOnly bool) error {
	if len(names) == 0 {
		return nil
	}
	args := UpdateArgs(names, lockOnly)
	res, err := u.run(ctx, u.dir, args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return describeFailure(args, res)
	}
	return nil
}
