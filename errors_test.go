package smbc

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"
)

func TestOpError_Format(t *testing.T) {
	err := &OpError{Op: "open", Path: "/share/a.txt", Err: syscall.ENOENT}
	want := "open /share/a.txt: no such file or directory"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	err = &OpError{Op: "close context", Err: ErrClosed}
	if err.Error() != "close context: already closed" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestOpError_Errno(t *testing.T) {
	err := wrapOpError("stat", "/x", syscall.EACCES)
	var oe *OpError
	if !errors.As(err, &oe) {
		t.Fatalf("wrapOpError() returned %T", err)
	}
	if oe.Errno() != syscall.EACCES {
		t.Errorf("Errno() = %v, want EACCES", oe.Errno())
	}

	noErrno := &OpError{Op: "x", Err: ErrClosed}
	if noErrno.Errno() != 0 {
		t.Errorf("Errno() = %v, want 0", noErrno.Errno())
	}
}

func TestWrapOpError_NoDoubleWrap(t *testing.T) {
	inner := wrapOpError("open", "/share/a.txt", syscall.ENOENT)
	outer := wrapOpError("open", "/share/a.txt", inner)
	if outer != inner {
		t.Error("same-path wrap produced a new layer")
	}

	// A different path wraps again; both layers stay reachable.
	other := wrapOpError("rename", "/share/b.txt", inner)
	if other == inner {
		t.Error("different-path wrap was skipped")
	}
	if !errors.Is(other, syscall.ENOENT) {
		t.Error("inner errno lost through the second layer")
	}
}

func TestWrapOpError_Nil(t *testing.T) {
	if err := wrapOpError("open", "/x", nil); err != nil {
		t.Errorf("wrapOpError(nil) = %v", err)
	}
}

func TestConvertError_StdSentinels(t *testing.T) {
	tests := []struct {
		errno syscall.Errno
		want  error
	}{
		{syscall.ENOENT, fs.ErrNotExist},
		{syscall.EEXIST, fs.ErrExist},
		{syscall.EACCES, fs.ErrPermission},
		{syscall.EPERM, fs.ErrPermission},
		{syscall.EINVAL, fs.ErrInvalid},
		{syscall.EBADF, fs.ErrClosed},
	}
	for _, tt := range tests {
		got := convertError(tt.errno)
		if !errors.Is(got, tt.want) {
			t.Errorf("convertError(%v) = %v, want Is(%v)", tt.errno, got, tt.want)
		}
		if !errors.Is(got, tt.errno) {
			t.Errorf("convertError(%v) lost the errno", tt.errno)
		}
	}

	// Wrapped errnos are found through the chain too.
	wrapped := fmt.Errorf("engine: %w", syscall.ENOENT)
	if !errors.Is(convertError(wrapped), fs.ErrNotExist) {
		t.Error("wrapped errno not mapped")
	}

	// Unknown errors pass through untouched.
	plain := errors.New("plain")
	if convertError(plain) != plain {
		t.Error("unknown error was rewritten")
	}
}

func TestLogicError_Message(t *testing.T) {
	err := &LogicError{Reason: "handle 7 is live under a different context"}
	want := "smbc: logic error: handle 7 is live under a different context"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
