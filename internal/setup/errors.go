package setup

import (
	"errors"
	"fmt"
)

// ErrPreconditionMismatch matches every *PreconditionMismatchError.
var ErrPreconditionMismatch = errors.New("precondition mismatch")

// PreconditionMismatchError reports a remote file that differs from the
// local copy about to replace it, when overwriting was not requested.
type PreconditionMismatchError struct {
	Host string
	Path string
}

func (e *PreconditionMismatchError) Error() string {
	return fmt.Sprintf("existing %s on %s does not match local copy", e.Path, e.Host)
}

// Is reports whether target is ErrPreconditionMismatch.
func (e *PreconditionMismatchError) Is(target error) bool {
	return target == ErrPreconditionMismatch
}

// exitCoder is implemented by remote execution errors that carry the exit
// status of the remote command.
type exitCoder interface {
	ExitCode() int
}

// exitCode returns the remote exit status carried by err, or -1.
func exitCode(err error) int {
	var ec exitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}
