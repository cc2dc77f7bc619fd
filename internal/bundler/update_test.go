package bundler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateArgs(t *testing.T) {
	assert.Equal(t, []string{"update", "rack", "rails"}, UpdateArgs([]string{"rack", "rails"}, false))
	assert.Equal(t, []string{"lock", "--update", "rack"}, UpdateArgs([]string{"rack"}, true))
}

func TestUpdate(t *testing.T) {
	runner := &fakeRunner{}
	u := &Updater{dir: "/app", run: runner.run}

	require.NoError(t, u.Update(context.Background(), []string{"rack"}, true))
	assert.Equal(t, [][]string{{"lock", "--update", "rack"}}, runner.args)
	assert.Equal(t, "/app", runner.dir)
}

func TestUpdateNoNames(t *testing.T) {
	runner := &fakeRunner{}
	require.NoError(t, (&Updater{run: runner.run}).Update(context.Background(), nil, false))
	assert.Empty(t, runner.args)
}

func TestUpdateFailure(t *testing.T) {
	runner := &fakeRunner{result: commandResult{Stderr: []byte("Bundler could not find compatible versions"), ExitCode: 6}}
	err := (&Updater{run: runner.run}).Update(context.Background(), []string{"rails"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundle update rails exited with status 6")
}
