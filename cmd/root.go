// Package cmd implements the cli interface of distmin.
package cmd

import (
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/distmin/distmin/errext"
)

// rootCommand keeps the state needed by the root distmin command.
type rootCommand struct {
	globalState *globalState

	cmd *cobra.Command
}

func newRootCommand(gs *globalState) *rootCommand {
	c := &rootCommand{
		globalState: gs,
	}
	// the base command when called without any subcommands.
	rootCmd := &cobra.Command{
		Use:   "distmin",
		Short: "minify a web dist directory, wasm symbols included",
		Long: "distmin rewrites the import/export symbols of wasm-bindgen modules,\n" +
			"pre-optimizes and minifies the JavaScript glue, minifies HTML and CSS,\n" +
			"and reports the resulting sizes.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// running distmin with no subcommand minifies the default dirs
			return runMinify(gs, cmd.OutOrStdout())
		},
	}

	rootCmd.PersistentFlags().AddFlagSet(rootCmdPersistentFlagSet(gs))
	rootCmd.SetArgs(gs.args[1:])
	rootCmd.SetOut(gs.stdOut)
	rootCmd.SetErr(gs.stdErr)

	rootCmd.AddCommand(getMinifyCmd(gs), getVersionCmd(gs))

	c.cmd = rootCmd
	return c
}

func (c *rootCommand) persistentPreRunE(_ *cobra.Command, _ []string) error {
	if err := c.setupLoggers(); err != nil {
		return err
	}
	stdlog.SetOutput(c.globalState.logger.Writer())
	c.globalState.logger.Debugf("distmin version: v%s", version)
	return nil
}

// Execute adds all child commands to the root command, sets flags
// appropriately and runs it. This is called by main.main().
func Execute() {
	ExecuteWithGlobalState(newGlobalState())
}

// ExecuteWithGlobalState runs the root command with the given global state,
// which tests can point at simulated environments.
func ExecuteWithGlobalState(gs *globalState) {
	rootCmd := newRootCommand(gs)

	if err := rootCmd.cmd.Execute(); err != nil {
		exitCode := -1
		var ecerr errext.HasExitCode
		if errors.As(err, &ecerr) {
			exitCode = int(ecerr.ExitCode())
		}

		errText, fields := errext.Format(err)
		gs.logger.WithFields(fields).Error(errText)

		os.Exit(exitCode) //nolint:gocritic
	}
}

func rootCmdPersistentFlagSet(gs *globalState) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)

	flags.StringVar(&gs.flags.logOutput, "log-output", gs.flags.logOutput,
		"change the output for distmin logs, possible values are stderr,stdout,none")
	flags.Lookup("log-output").DefValue = gs.defaultFlags.logOutput

	flags.StringVar(&gs.flags.logFormat, "log-format", gs.flags.logFormat, "log output format")
	flags.Lookup("log-format").DefValue = gs.defaultFlags.logFormat

	flags.BoolVar(&gs.flags.noColor, "no-color", gs.flags.noColor, "disable colored output")

	flags.BoolVarP(&gs.flags.verbose, "verbose", "v", gs.defaultFlags.verbose, "enable verbose logging")
	flags.BoolVarP(&gs.flags.quiet, "quiet", "q", gs.defaultFlags.quiet, "disable debug output")

	return flags
}

// RawFormatter it does nothing with the message just prints it
type RawFormatter struct{}

// Format renders a single log entry
func (f RawFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

func (c *rootCommand) setupLoggers() error {
	gs := c.globalState
	if gs.flags.verbose && !gs.flags.quiet {
		gs.logger.SetLevel(logrus.DebugLevel)
	}

	if gs.flags.noColor {
		color.NoColor = true
	}

	loggerForceColors := false // disable color by default
	switch line := gs.flags.logOutput; line {
	case "stderr":
		loggerForceColors = !gs.flags.noColor && gs.stdErr.isTTY
		gs.logger.SetOutput(gs.stdErr)
	case "stdout":
		loggerForceColors = !gs.flags.noColor && gs.stdOut.isTTY
		gs.logger.SetOutput(gs.stdOut)
	case "none":
		gs.logger.SetOutput(io.Discard)
	default:
		return fmt.Errorf("unsupported log output '%s'", line)
	}

	switch gs.flags.logFormat {
	case "raw":
		gs.logger.SetFormatter(&RawFormatter{})
		gs.logger.Debug("Logger format: RAW")
	case "json":
		gs.logger.SetFormatter(&logrus.JSONFormatter{})
		gs.logger.Debug("Logger format: JSON")
	default:
		gs.logger.SetFormatter(&logrus.TextFormatter{
			ForceColors: loggerForceColors, DisableColors: gs.flags.noColor,
		})
		gs.logger.Debug("Logger format: TEXT")
	}
	return nil
}
