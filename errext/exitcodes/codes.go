// Package exitcodes contains the constants representing the possible distmin
// exit codes.
package exitcodes

import "github.com/distmin/distmin/errext"

// The constants are pretty self-explanatory.
const (
	GenericError       errext.ExitCode = 1
	MinificationFailed errext.ExitCode = 103
	OutputDirError     errext.ExitCode = 104
)
