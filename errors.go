package smbc

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

var (
	// ErrClosed indicates the context or handle has already been closed.
	ErrClosed = errors.New("already closed")

	// ErrNotSupported indicates the engine's call table has no slot for
	// the requested operation.
	ErrNotSupported = errors.New("operation not supported by engine")

	// ErrNulByte indicates a path or name argument contains an embedded
	// NUL, which can never reach the engine.
	ErrNulByte = errors.New("argument contains embedded NUL")

	// ErrValueTooLong indicates a value exceeds a bounded buffer's
	// capacity.
	ErrValueTooLong = errors.New("value exceeds buffer capacity")

	// ErrAsyncNotEnabled indicates a dispatch was attempted on a context
	// that never called EnableAsync.
	ErrAsyncNotEnabled = errors.New("async dispatch not enabled")

	// ErrNoAttribute is reported by engines for extended-attribute
	// lookups on an attribute with no value. Context.GetXattr translates
	// it into a defined "no value" result rather than a failure.
	ErrNoAttribute = errors.New("no such attribute")
)

// OpError records a failed protocol operation: the operation's label,
// the target path or resource, and the underlying cause. When the cause
// carries a platform error code it is reachable through Errno.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Errno returns the platform error code carried by the error chain, or
// zero if none is present.
func (e *OpError) Errno() syscall.Errno {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}
	return 0
}

// wrapOpError wraps an error with operation and path information,
// avoiding double-wrapping for the same path.
func wrapOpError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) && oe.Path == path {
		return err
	}
	return &OpError{Op: op, Path: path, Err: convertError(err)}
}

// LogicError reports a violated invariant: the identity registry
// observed conflicting metadata for a live native identifier. It is
// delivered by panic because the program state is unrecoverable.
type LogicError struct {
	Reason string
}

func (e *LogicError) Error() string {
	return "smbc: logic error: " + e.Reason
}

// convertError maps engine errors to standard fs package errors where a
// standard equivalent exists.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, fs.ErrInvalid) ||
		errors.Is(err, fs.ErrClosed) {
		return err
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOENT:
			return fmt.Errorf("%w (%w)", fs.ErrNotExist, errno)
		case syscall.EEXIST:
			return fmt.Errorf("%w (%w)", fs.ErrExist, errno)
		case syscall.EACCES, syscall.EPERM:
			return fmt.Errorf("%w (%w)", fs.ErrPermission, errno)
		case syscall.EINVAL:
			return fmt.Errorf("%w (%w)", fs.ErrInvalid, errno)
		case syscall.EBADF:
			return fmt.Errorf("%w (%w)", fs.ErrClosed, errno)
		}
	}

	return err
}
