package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.2.0"

func getVersionCmd(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "show application version",
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := fmt.Fprintf(gs.stdOut, "distmin v%s\n", version); err != nil {
				return err
			}
			return nil
		},
	}
}
