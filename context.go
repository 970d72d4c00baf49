package smbc

import (
	"iter"
	"strings"
	"sync"
	"time"
)

// Logger is the interface for debug and error messages. A nil Logger
// disables logging.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Context is one configured SMB client session scope. It owns a native
// protocol-context identifier, configuration options, credential
// resolution, and (once EnableAsync has been called) a dedicated
// dispatch worker.
//
// A Context runs in exactly one of two modes: synchronous, where every
// operation blocks the calling goroutine, or asynchronous, where all
// operations are funneled through the dispatch worker via Dispatch.
// Mixing the two modes on one Context is not supported.
type Context struct {
	table  *CallTable
	id     ContextID
	logger Logger

	opts   Options
	auth   *AuthTable
	authFn AuthDataFunc

	handles handleRegistry

	mu      sync.Mutex
	disp    *dispatcher
	closing bool
	closed  bool
}

// NewContext allocates and initializes a native context on the given
// call table and returns its wrapper.
func NewContext(table *CallTable) (*Context, error) {
	if table == nil || table.NewContext == nil {
		return nil, &OpError{Op: "new context", Err: ErrNotSupported}
	}

	id, err := table.NewContext()
	if err != nil {
		return nil, wrapOpError("new context", "", err)
	}

	if table.InitContext != nil {
		if err := table.InitContext(id); err != nil {
			if table.FreeContext != nil {
				table.FreeContext(id, true)
			}
			return nil, wrapOpError("init context", "", err)
		}
	}

	return &Context{table: table, id: id}, nil
}

// ID returns the native context identifier. It is meaningful only to
// the engine that issued it.
func (c *Context) ID() ContextID {
	return c.id
}

// SetLogger installs a logger for diagnostics. Chainable.
func (c *Context) SetLogger(l Logger) *Context {
	c.logger = l
	return c
}

// Version returns the engine's identification string, or "" when the
// engine does not report one.
func (c *Context) Version() string {
	if c.table.Version == nil {
		return ""
	}
	return c.table.Version()
}

// Close shuts the context down. The async worker, if any, is fenced
// against new dispatches and drained first, so operations queued before
// Close run to completion against the still-live native context; only
// then is the context marked closed and the native context released.
// Close is idempotent; the native context is freed exactly once.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed || c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	disp := c.disp
	c.mu.Unlock()

	if disp != nil {
		disp.shutdown()
	}

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	if c.table.FreeContext != nil {
		if err := c.table.FreeContext(c.id, true); err != nil {
			return wrapOpError("close context", "", err)
		}
	}
	return nil
}

func (c *Context) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// checkPath validates a path or name argument before it reaches the
// engine. Argument validation always happens synchronously at the call
// site, even in asynchronous mode.
func (c *Context) checkPath(name string) error {
	if c.isClosed() {
		return ErrClosed
	}
	if strings.IndexByte(name, 0) >= 0 {
		return ErrNulByte
	}
	return nil
}

// Open opens the named file and returns its canonical handle.
func (c *Context) Open(name string, flags int, mode uint32) (*File, error) {
	if err := c.checkPath(name); err != nil {
		return nil, wrapOpError("open", name, err)
	}
	fn := c.table.Open
	if fn == nil {
		return nil, wrapOpError("open", name, ErrNotSupported)
	}
	id, err := fn(c.id, name, flags, mode)
	if err != nil {
		return nil, wrapOpError("open", name, err)
	}
	return c.handles.internFile(id, c), nil
}

// Create creates (or truncates) the named file for writing.
func (c *Context) Create(name string, mode uint32) (*File, error) {
	if err := c.checkPath(name); err != nil {
		return nil, wrapOpError("create", name, err)
	}
	fn := c.table.Creat
	if fn == nil {
		return nil, wrapOpError("create", name, ErrNotSupported)
	}
	id, err := fn(c.id, name, mode)
	if err != nil {
		return nil, wrapOpError("create", name, err)
	}
	return c.handles.internFile(id, c), nil
}

// OpenDir opens the named directory and returns its canonical handle.
func (c *Context) OpenDir(name string) (*Dir, error) {
	if err := c.checkPath(name); err != nil {
		return nil, wrapOpError("opendir", name, err)
	}
	fn := c.table.Opendir
	if fn == nil {
		return nil, wrapOpError("opendir", name, ErrNotSupported)
	}
	id, err := fn(c.id, name)
	if err != nil {
		return nil, wrapOpError("opendir", name, err)
	}
	return c.handles.internDir(id, c), nil
}

// OpenPrintJob opens a print job on the named printer share. The
// returned handle accepts writes; closing it submits the job.
func (c *Context) OpenPrintJob(name string) (*File, error) {
	if err := c.checkPath(name); err != nil {
		return nil, wrapOpError("open print job", name, err)
	}
	fn := c.table.OpenPrintJob
	if fn == nil {
		return nil, wrapOpError("open print job", name, ErrNotSupported)
	}
	id, err := fn(c.id, name)
	if err != nil {
		return nil, wrapOpError("open print job", name, err)
	}
	return c.handles.internFile(id, c), nil
}

// Unlink removes the named file.
func (c *Context) Unlink(name string) error {
	if err := c.checkPath(name); err != nil {
		return wrapOpError("unlink", name, err)
	}
	fn := c.table.Unlink
	if fn == nil {
		return wrapOpError("unlink", name, ErrNotSupported)
	}
	return wrapOpError("unlink", name, fn(c.id, name))
}

// Rename renames oldname on this context to newname on other. Passing
// nil for other renames within this context; both contexts must belong
// to the same engine.
func (c *Context) Rename(oldname string, other *Context, newname string) error {
	if other == nil {
		other = c
	}
	if err := c.checkPath(oldname); err != nil {
		return wrapOpError("rename", oldname, err)
	}
	if err := other.checkPath(newname); err != nil {
		return wrapOpError("rename", newname, err)
	}
	fn := c.table.Rename
	if fn == nil {
		return wrapOpError("rename", oldname, ErrNotSupported)
	}
	return wrapOpError("rename", oldname, fn(c.id, oldname, other.id, newname))
}

// Stat returns the decoded stat record for the named resource.
func (c *Context) Stat(name string) (Stat, error) {
	if err := c.checkPath(name); err != nil {
		return Stat{}, wrapOpError("stat", name, err)
	}
	fn := c.table.Stat
	if fn == nil {
		return Stat{}, wrapOpError("stat", name, ErrNotSupported)
	}
	raw, err := fn(c.id, name)
	if err != nil {
		return Stat{}, wrapOpError("stat", name, err)
	}
	return decodeStat(raw), nil
}

// StatVFS returns filesystem-level statistics for the named resource.
func (c *Context) StatVFS(name string) (StatVFS, error) {
	if err := c.checkPath(name); err != nil {
		return StatVFS{}, wrapOpError("statvfs", name, err)
	}
	fn := c.table.StatVFS
	if fn == nil {
		return StatVFS{}, wrapOpError("statvfs", name, ErrNotSupported)
	}
	out, err := fn(c.id, name)
	if err != nil {
		return StatVFS{}, wrapOpError("statvfs", name, err)
	}
	return out, nil
}

// Mkdir creates the named directory.
func (c *Context) Mkdir(name string, mode uint32) error {
	if err := c.checkPath(name); err != nil {
		return wrapOpError("mkdir", name, err)
	}
	fn := c.table.Mkdir
	if fn == nil {
		return wrapOpError("mkdir", name, ErrNotSupported)
	}
	return wrapOpError("mkdir", name, fn(c.id, name, mode))
}

// Rmdir removes the named (empty) directory.
func (c *Context) Rmdir(name string) error {
	if err := c.checkPath(name); err != nil {
		return wrapOpError("rmdir", name, err)
	}
	fn := c.table.Rmdir
	if fn == nil {
		return wrapOpError("rmdir", name, ErrNotSupported)
	}
	return wrapOpError("rmdir", name, fn(c.id, name))
}

// Chmod changes the mode of the named resource.
func (c *Context) Chmod(name string, mode uint32) error {
	if err := c.checkPath(name); err != nil {
		return wrapOpError("chmod", name, err)
	}
	fn := c.table.Chmod
	if fn == nil {
		return wrapOpError("chmod", name, ErrNotSupported)
	}
	return wrapOpError("chmod", name, fn(c.id, name, mode))
}

// SetTimes sets the access and modification times of the named
// resource. Sub-microsecond precision is discarded; the wire contract
// carries microseconds.
func (c *Context) SetTimes(name string, atime, mtime time.Time) error {
	if err := c.checkPath(name); err != nil {
		return wrapOpError("utimes", name, err)
	}
	fn := c.table.Utimes
	if fn == nil {
		return wrapOpError("utimes", name, ErrNotSupported)
	}
	return wrapOpError("utimes", name, fn(c.id, name, atime.UnixMicro(), mtime.UnixMicro()))
}

// SetXattr sets the named extended attribute. flags is zero or one of
// XattrFlagCreate, XattrFlagReplace.
func (c *Context) SetXattr(name, attr string, value []byte, flags int) error {
	if err := c.checkPath(name); err != nil {
		return wrapOpError("setxattr", name, err)
	}
	if err := c.checkPath(attr); err != nil {
		return wrapOpError("setxattr", name, err)
	}
	fn := c.table.Setxattr
	if fn == nil {
		return wrapOpError("setxattr", name, ErrNotSupported)
	}
	return wrapOpError("setxattr", name, fn(c.id, name, attr, value, flags))
}

// GetXattr returns the value of the named extended attribute. An
// attribute with no value is not an error: GetXattr reports it as
// ok == false with a nil error, so callers can distinguish "absent"
// from failure.
func (c *Context) GetXattr(name, attr string) (value []byte, ok bool, err error) {
	if err := c.checkPath(name); err != nil {
		return nil, false, wrapOpError("getxattr", name, err)
	}
	if err := c.checkPath(attr); err != nil {
		return nil, false, wrapOpError("getxattr", name, err)
	}
	fn := c.table.Getxattr
	if fn == nil {
		return nil, false, wrapOpError("getxattr", name, ErrNotSupported)
	}

	// Size probe first, then fetch.
	size, err := fn(c.id, name, attr, nil)
	if err != nil {
		if err == ErrNoAttribute {
			return nil, false, nil
		}
		return nil, false, wrapOpError("getxattr", name, err)
	}
	if size == 0 {
		return []byte{}, true, nil
	}
	buf := make([]byte, size)
	n, err := fn(c.id, name, attr, buf)
	if err != nil {
		if err == ErrNoAttribute {
			return nil, false, nil
		}
		return nil, false, wrapOpError("getxattr", name, err)
	}
	return buf[:n], true, nil
}

// RemoveXattr removes the named extended attribute.
func (c *Context) RemoveXattr(name, attr string) error {
	if err := c.checkPath(name); err != nil {
		return wrapOpError("removexattr", name, err)
	}
	if err := c.checkPath(attr); err != nil {
		return wrapOpError("removexattr", name, err)
	}
	fn := c.table.Removexattr
	if fn == nil {
		return wrapOpError("removexattr", name, ErrNotSupported)
	}
	return wrapOpError("removexattr", name, fn(c.id, name, attr))
}

// ListXattr returns the names of all extended attributes of the named
// resource.
func (c *Context) ListXattr(name string) ([]string, error) {
	if err := c.checkPath(name); err != nil {
		return nil, wrapOpError("listxattr", name, err)
	}
	fn := c.table.Listxattr
	if fn == nil {
		return nil, wrapOpError("listxattr", name, ErrNotSupported)
	}

	size, err := fn(c.id, name, nil)
	if err != nil {
		return nil, wrapOpError("listxattr", name, err)
	}
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	n, err := fn(c.id, name, buf)
	if err != nil {
		return nil, wrapOpError("listxattr", name, err)
	}

	// The buffer holds NUL-terminated names back to back.
	var names []string
	for _, b := range strings.Split(string(buf[:n]), "\x00") {
		if b != "" {
			names = append(names, b)
		}
	}
	return names, nil
}

// PrintFile submits the file at source on this context to the printer
// share named printer on printerCtx. Passing nil for printerCtx prints
// through this context.
func (c *Context) PrintFile(source string, printerCtx *Context, printer string) error {
	if printerCtx == nil {
		printerCtx = c
	}
	if err := c.checkPath(source); err != nil {
		return wrapOpError("print file", source, err)
	}
	if err := printerCtx.checkPath(printer); err != nil {
		return wrapOpError("print file", printer, err)
	}
	fn := c.table.PrintFile
	if fn == nil {
		return wrapOpError("print file", source, ErrNotSupported)
	}
	return wrapOpError("print file", source, fn(c.id, source, printerCtx.id, printer))
}

// ListPrintJobs returns a lazy sequence of the print jobs queued on the
// named printer share. The sequence is single-pass: the underlying
// engine call runs while the caller iterates.
func (c *Context) ListPrintJobs(name string) iter.Seq2[PrintJobInfo, error] {
	return func(yield func(PrintJobInfo, error) bool) {
		if err := c.checkPath(name); err != nil {
			yield(PrintJobInfo{}, wrapOpError("list print jobs", name, err))
			return
		}
		fn := c.table.ListPrintJobs
		if fn == nil {
			yield(PrintJobInfo{}, wrapOpError("list print jobs", name, ErrNotSupported))
			return
		}

		stopped := false
		err := fn(c.id, name, func(raw RawPrintJob) {
			if stopped {
				return
			}
			if !yield(decodePrintJob(raw), nil) {
				stopped = true
			}
		})
		if err != nil && !stopped {
			yield(PrintJobInfo{}, wrapOpError("list print jobs", name, err))
		}
	}
}

// UnlinkPrintJob removes the print job with the given id from the named
// printer share.
func (c *Context) UnlinkPrintJob(name string, id int) error {
	if err := c.checkPath(name); err != nil {
		return wrapOpError("unlink print job", name, err)
	}
	fn := c.table.UnlinkPrintJob
	if fn == nil {
		return wrapOpError("unlink print job", name, ErrNotSupported)
	}
	return wrapOpError("unlink print job", name, fn(c.id, name, id))
}
