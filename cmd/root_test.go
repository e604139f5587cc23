package cmd

import (
	"bytes"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distmin/distmin/lib/fsext"
)

// newGlobalTestState returns a globalState backed by an in-memory filesystem
// and buffers instead of the real process environment.
func newGlobalTestState(t *testing.T, args []string) (*globalState, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	fs := afero.NewMemMapFs()
	stdOut := &bytes.Buffer{}
	stdErr := &bytes.Buffer{}
	outMutex := &sync.Mutex{}

	logger := logrus.New()
	logger.SetOutput(stdErr)

	defaultFlags := getDefaultFlags()
	return &globalState{
		fs:           fs,
		getwd:        func() (string, error) { return "/", nil },
		args:         append([]string{"distmin"}, args...),
		envVars:      map[string]string{},
		defaultFlags: defaultFlags,
		flags:        defaultFlags,
		outMutex:     outMutex,
		stdOut:       &consoleWriter{stdOut, stdOut, false, outMutex},
		stdErr:       &consoleWriter{stdErr, stdErr, false, outMutex},
		logger:       logger,
	}, stdOut, stdErr
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	gs, stdOut, _ := newGlobalTestState(t, []string{"version"})
	require.NoError(t, newRootCommand(gs).cmd.Execute())
	assert.Contains(t, stdOut.String(), "distmin v"+version)
}

func TestRootRunsMinify(t *testing.T) {
	t.Parallel()

	gs, stdOut, _ := newGlobalTestState(t, nil)
	require.NoError(t, fsext.MkDir(gs.fs, originalDir))
	require.NoError(t, fsext.WriteFile(gs.fs, originalDir+"/style.css", []byte("body {\n  margin: 0px;\n}\n")))

	require.NoError(t, newRootCommand(gs).cmd.Execute())

	exists, err := afero.Exists(gs.fs, minifiedDir+"/style.css")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Contains(t, stdOut.String(), "style.css")
}

func TestMinifySubcommandRejectsArgs(t *testing.T) {
	t.Parallel()

	gs, _, _ := newGlobalTestState(t, []string{"minify", "somedir"})
	assert.Error(t, newRootCommand(gs).cmd.Execute())
}

func TestUnsupportedLogOutput(t *testing.T) {
	t.Parallel()

	gs, _, _ := newGlobalTestState(t, []string{"--log-output", "nowhere", "version"})
	assert.Error(t, newRootCommand(gs).cmd.Execute())
}
