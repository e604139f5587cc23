package cmd

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// globalFlags contains the global config values that apply to all distmin
// sub-commands.
type globalFlags struct {
	quiet     bool
	noColor   bool
	verbose   bool
	logOutput string
	logFormat string
}

// globalState contains the globalFlags and accessors for the process-external
// state: the filesystem, CLI arguments, env vars, standard output and error.
//
// Grouping them here prevents direct access to the os package from the rest
// of the codebase and lets tests run the whole CLI against an in-memory
// filesystem and simulated streams.
type globalState struct {
	fs      afero.Fs
	getwd   func() (string, error)
	args    []string
	envVars map[string]string

	defaultFlags, flags globalFlags

	outMutex       *sync.Mutex
	stdOut, stdErr *consoleWriter

	logger *logrus.Logger
}

// newGlobalState is the only place where the global os state is read; the
// rest of the codebase goes through the returned struct.
func newGlobalState() *globalState {
	isDumbTerm := os.Getenv("TERM") == "dumb"
	stdoutTTY := !isDumbTerm && (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	stderrTTY := !isDumbTerm && (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
	outMutex := &sync.Mutex{}
	stdOut := &consoleWriter{os.Stdout, colorable.NewColorable(os.Stdout), stdoutTTY, outMutex}
	stdErr := &consoleWriter{os.Stderr, colorable.NewColorable(os.Stderr), stderrTTY, outMutex}

	envVars := buildEnvMap(os.Environ())
	_, noColorsSet := envVars["NO_COLOR"] // even empty values disable colors
	logger := &logrus.Logger{
		Out: stdErr,
		Formatter: &logrus.TextFormatter{
			ForceColors:   stderrTTY,
			DisableColors: !stderrTTY || noColorsSet,
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}

	defaultFlags := getDefaultFlags()

	return &globalState{
		fs:           afero.NewOsFs(),
		getwd:        os.Getwd,
		args:         append(make([]string, 0, len(os.Args)), os.Args...), // copy
		envVars:      envVars,
		defaultFlags: defaultFlags,
		flags:        getFlags(defaultFlags, envVars),
		outMutex:     outMutex,
		stdOut:       stdOut,
		stdErr:       stdErr,
		logger:       logger,
	}
}

func getDefaultFlags() globalFlags {
	return globalFlags{
		logOutput: "stderr",
	}
}

func getFlags(defaultFlags globalFlags, env map[string]string) globalFlags {
	result := defaultFlags

	// Support https://no-color.org/, even an empty value should disable the
	// color output.
	if _, ok := env["NO_COLOR"]; ok {
		result.noColor = true
	}
	return result
}

func parseEnvKeyValue(kv string) (string, string) {
	if idx := strings.IndexRune(kv, '='); idx != -1 {
		return kv[:idx], kv[idx+1:]
	}
	return kv, ""
}

func buildEnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v := parseEnvKeyValue(kv)
		env[k] = v
	}
	return env
}

// consoleWriter writes to the console, going through the colorable wrapper
// when the output is a TTY. A shared mutex keeps stdout and stderr writes
// from interleaving.
type consoleWriter struct {
	rawOut io.Writer
	writer io.Writer
	isTTY  bool
	mutex  *sync.Mutex
}

func (w *consoleWriter) Write(p []byte) (n int, err error) {
	origLen := len(p)
	out := w.writer
	if !w.isTTY {
		out = w.rawOut
	}

	w.mutex.Lock()
	n, err = out.Write(p)
	w.mutex.Unlock()
	if err != nil && n < origLen {
		return n, err
	}
	return origLen, err
}
