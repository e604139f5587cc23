// Package errext contains extensions for normal Go errors that are used
// by the distmin CLI to communicate exit codes and user-facing hints.
package errext

import "errors"

// ExitCode is the process exit code that an error wants the CLI to use.
type ExitCode uint8

// HasExitCode is an interface that can be implemented by errors that should
// set a specific process exit code when they reach the CLI entry point.
type HasExitCode interface {
	error
	ExitCode() ExitCode
}

// WithExitCodeIfNone can attach an exit code to the given error, if it doesn't
// have one already. It won't do anything if the error already had an exit code
// attached, similarly to how errors.Wrap() works.
func WithExitCodeIfNone(err error, exitCode ExitCode) error {
	if err == nil {
		return nil
	}
	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		return err
	}
	return withExitCode{err, exitCode}
}

type withExitCode struct {
	error
	exitCode ExitCode
}

func (w withExitCode) Unwrap() error {
	return w.error
}

func (w withExitCode) ExitCode() ExitCode {
	return w.exitCode
}

// HasHint is an interface that can be implemented by errors that should
// display a hint to the user alongside the error message.
type HasHint interface {
	error
	Hint() string
}

// WithHint can attach a hint to the given error. If the error already had a
// hint, the new one will be appended to it.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	if hint == "" {
		return err
	}
	var oldhint HasHint
	if errors.As(err, &oldhint) && oldhint.Hint() != "" {
		hint = oldhint.Hint() + ", " + hint
	}
	return withHint{err, hint}
}

type withHint struct {
	error
	hint string
}

func (w withHint) Unwrap() error {
	return w.error
}

func (w withHint) Hint() string {
	return w.hint
}

// Format returns the error message of the given error, together with any
// logrus-compatible fields extracted from it (currently just the hint).
func Format(err error) (errText string, fields map[string]interface{}) {
	if err == nil {
		return "", nil
	}

	errText = err.Error()
	fields = make(map[string]interface{})
	var herr HasHint
	if errors.As(err, &herr) {
		fields["hint"] = herr.Hint()
	}
	return errText, fields
}
