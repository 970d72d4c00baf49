package smbc

import "time"

// Per-operation asynchronous wrappers. Each one validates its arguments
// at the call site, before anything reaches the dispatch queue: an
// invalid name resolves the returned Future immediately, without
// waiting behind work already queued on the worker. The operation
// itself then runs on the worker in dispatch order.
//
// Callers composing their own closures with Dispatch do not get this
// eager validation; the closure body runs entirely on the worker.

// failedFuture returns a Future already resolved with err.
func failedFuture[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.resolve(zero, err)
	return f
}

// OpenAsync queues Open on the dispatch worker.
func (c *Context) OpenAsync(name string, flags int, mode uint32) *Future[*File] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[*File](wrapOpError("open", name, err))
	}
	return Dispatch(c, func() (*File, error) { return c.Open(name, flags, mode) })
}

// CreateAsync queues Create on the dispatch worker.
func (c *Context) CreateAsync(name string, mode uint32) *Future[*File] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[*File](wrapOpError("create", name, err))
	}
	return Dispatch(c, func() (*File, error) { return c.Create(name, mode) })
}

// OpenDirAsync queues OpenDir on the dispatch worker.
func (c *Context) OpenDirAsync(name string) *Future[*Dir] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[*Dir](wrapOpError("opendir", name, err))
	}
	return Dispatch(c, func() (*Dir, error) { return c.OpenDir(name) })
}

// OpenPrintJobAsync queues OpenPrintJob on the dispatch worker.
func (c *Context) OpenPrintJobAsync(name string) *Future[*File] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[*File](wrapOpError("open print job", name, err))
	}
	return Dispatch(c, func() (*File, error) { return c.OpenPrintJob(name) })
}

// UnlinkAsync queues Unlink on the dispatch worker.
func (c *Context) UnlinkAsync(name string) *Future[struct{}] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[struct{}](wrapOpError("unlink", name, err))
	}
	return Dispatch(c, func() (struct{}, error) { return struct{}{}, c.Unlink(name) })
}

// RenameAsync queues Rename on the dispatch worker. Both names are
// validated before enqueueing.
func (c *Context) RenameAsync(oldname string, other *Context, newname string) *Future[struct{}] {
	if err := c.checkPath(oldname); err != nil {
		return failedFuture[struct{}](wrapOpError("rename", oldname, err))
	}
	target := other
	if target == nil {
		target = c
	}
	if err := target.checkPath(newname); err != nil {
		return failedFuture[struct{}](wrapOpError("rename", newname, err))
	}
	return Dispatch(c, func() (struct{}, error) { return struct{}{}, c.Rename(oldname, other, newname) })
}

// StatAsync queues Stat on the dispatch worker.
func (c *Context) StatAsync(name string) *Future[Stat] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[Stat](wrapOpError("stat", name, err))
	}
	return Dispatch(c, func() (Stat, error) { return c.Stat(name) })
}

// StatVFSAsync queues StatVFS on the dispatch worker.
func (c *Context) StatVFSAsync(name string) *Future[StatVFS] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[StatVFS](wrapOpError("statvfs", name, err))
	}
	return Dispatch(c, func() (StatVFS, error) { return c.StatVFS(name) })
}

// MkdirAsync queues Mkdir on the dispatch worker.
func (c *Context) MkdirAsync(name string, mode uint32) *Future[struct{}] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[struct{}](wrapOpError("mkdir", name, err))
	}
	return Dispatch(c, func() (struct{}, error) { return struct{}{}, c.Mkdir(name, mode) })
}

// RmdirAsync queues Rmdir on the dispatch worker.
func (c *Context) RmdirAsync(name string) *Future[struct{}] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[struct{}](wrapOpError("rmdir", name, err))
	}
	return Dispatch(c, func() (struct{}, error) { return struct{}{}, c.Rmdir(name) })
}

// ChmodAsync queues Chmod on the dispatch worker.
func (c *Context) ChmodAsync(name string, mode uint32) *Future[struct{}] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[struct{}](wrapOpError("chmod", name, err))
	}
	return Dispatch(c, func() (struct{}, error) { return struct{}{}, c.Chmod(name, mode) })
}

// SetTimesAsync queues SetTimes on the dispatch worker.
func (c *Context) SetTimesAsync(name string, atime, mtime time.Time) *Future[struct{}] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[struct{}](wrapOpError("utimes", name, err))
	}
	return Dispatch(c, func() (struct{}, error) { return struct{}{}, c.SetTimes(name, atime, mtime) })
}

// SetXattrAsync queues SetXattr on the dispatch worker.
func (c *Context) SetXattrAsync(name, attr string, value []byte, flags int) *Future[struct{}] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[struct{}](wrapOpError("setxattr", name, err))
	}
	if err := c.checkPath(attr); err != nil {
		return failedFuture[struct{}](wrapOpError("setxattr", name, err))
	}
	return Dispatch(c, func() (struct{}, error) { return struct{}{}, c.SetXattr(name, attr, value, flags) })
}

// XattrValue is the result of GetXattrAsync: the attribute's value and
// whether the attribute was present at all.
type XattrValue struct {
	Value   []byte
	Present bool
}

// GetXattrAsync queues GetXattr on the dispatch worker.
func (c *Context) GetXattrAsync(name, attr string) *Future[XattrValue] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[XattrValue](wrapOpError("getxattr", name, err))
	}
	if err := c.checkPath(attr); err != nil {
		return failedFuture[XattrValue](wrapOpError("getxattr", name, err))
	}
	return Dispatch(c, func() (XattrValue, error) {
		value, ok, err := c.GetXattr(name, attr)
		return XattrValue{Value: value, Present: ok}, err
	})
}

// RemoveXattrAsync queues RemoveXattr on the dispatch worker.
func (c *Context) RemoveXattrAsync(name, attr string) *Future[struct{}] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[struct{}](wrapOpError("removexattr", name, err))
	}
	if err := c.checkPath(attr); err != nil {
		return failedFuture[struct{}](wrapOpError("removexattr", name, err))
	}
	return Dispatch(c, func() (struct{}, error) { return struct{}{}, c.RemoveXattr(name, attr) })
}

// ListXattrAsync queues ListXattr on the dispatch worker.
func (c *Context) ListXattrAsync(name string) *Future[[]string] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[[]string](wrapOpError("listxattr", name, err))
	}
	return Dispatch(c, func() ([]string, error) { return c.ListXattr(name) })
}

// PrintFileAsync queues PrintFile on the dispatch worker. Both names
// are validated before enqueueing.
func (c *Context) PrintFileAsync(source string, printerCtx *Context, printer string) *Future[struct{}] {
	if err := c.checkPath(source); err != nil {
		return failedFuture[struct{}](wrapOpError("print file", source, err))
	}
	target := printerCtx
	if target == nil {
		target = c
	}
	if err := target.checkPath(printer); err != nil {
		return failedFuture[struct{}](wrapOpError("print file", printer, err))
	}
	return Dispatch(c, func() (struct{}, error) {
		return struct{}{}, c.PrintFile(source, printerCtx, printer)
	})
}

// UnlinkPrintJobAsync queues UnlinkPrintJob on the dispatch worker.
func (c *Context) UnlinkPrintJobAsync(name string, id int) *Future[struct{}] {
	if err := c.checkPath(name); err != nil {
		return failedFuture[struct{}](wrapOpError("unlink print job", name, err))
	}
	return Dispatch(c, func() (struct{}, error) { return struct{}{}, c.UnlinkPrintJob(name, id) })
}
