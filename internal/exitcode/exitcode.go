package exitcode

import (
	"errors"
	"fmt"
	"os"
)

// The statuses the command can exit with
const (
	Success    = 0
	BuildError = 1
	UsageError = 2
)

// Returned for a command line that doesn't name a build. The help text is
// printed for this error before exiting.
var ErrUsage = errors.New("Invalid command line")

// Coder lets an error pick its own exit status.
type Coder interface {
	error
	ExitCode() int
}

// Get maps an error to the status the process exits with:
//
//	nil                       => Success
//	errors implementing Coder => the value returned by ExitCode
//	anything wrapping ErrUsage => UsageError
//	everything else           => BuildError
func Get(err error) int {
	if err == nil {
		return Success
	}

	if coder := Coder(nil); errors.As(err, &coder) {
		return coder.ExitCode()
	}

	if errors.Is(err, ErrUsage) {
		return UsageError
	}

	return BuildError
}

// Set attaches an exit status to an error without changing its message.
func Set(err error, code int) error {
	if err == nil {
		return nil
	}
	return coded{err, code}
}

// Usagef returns an error that wraps ErrUsage with a more specific message.
func Usagef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

type coded struct {
	err  error
	code int
}

func (c coded) Error() string {
	return c.err.Error()
}

func (c coded) ExitCode() int {
	return c.code
}

func (c coded) Unwrap() error {
	return c.err
}

func Exit(err error) {
	os.Exit(Get(err))
}
