package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/distmin/distmin/errext"
	"github.com/distmin/distmin/errext/exitcodes"
	"github.com/distmin/distmin/minifier"
)

// The pipeline always minifies the dist directory of the current working
// directory; the tool deliberately takes no arguments.
const (
	originalDir = "dist"
	minifiedDir = "dist-minified"
)

func getMinifyCmd(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "minify",
		Short: "minify the dist directory into dist-minified",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMinify(gs, cmd.OutOrStdout())
		},
	}
}

func runMinify(gs *globalState, out io.Writer) error {
	err := minifier.Run(gs.fs, gs.logger, out, originalDir, minifiedDir)
	return errext.WithExitCodeIfNone(err, exitcodes.MinificationFailed)
}
