package smbc

import (
	"errors"
	"io"
	"iter"
	"sync"
)

// getdentsBufSize is the batch buffer handed to the engine per
// Getdents call while iterating with Entries.
const getdentsBufSize = 8192

// Dir is the canonical handle for one open remote directory. Like File,
// at most one Dir value exists per open native handle on a context.
type Dir struct {
	ctx *Context
	id  HandleID

	mu     sync.Mutex
	closed bool
}

// ID returns the native handle identifier.
func (d *Dir) ID() HandleID {
	return d.id
}

// Context returns the owning context.
func (d *Dir) Context() *Context {
	return d.ctx
}

func (d *Dir) check() error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed || d.ctx.isClosed() {
		return ErrClosed
	}
	return nil
}

// Close releases the native handle and removes the Dir from its
// context's registry. Close is idempotent.
func (d *Dir) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.ctx.handles.release(d.id)
	fn := d.ctx.table.Closedir
	if fn == nil {
		return nil
	}
	return wrapOpError("closedir", "", fn(d.ctx.id, d.id))
}

// ReadEntry returns the next directory entry and advances the cursor.
// At the end of the directory it returns ok == false with a nil error.
func (d *Dir) ReadEntry() (e Dirent, ok bool, err error) {
	if err := d.check(); err != nil {
		return Dirent{}, false, wrapOpError("readdir", "", err)
	}
	fn := d.ctx.table.Readdir
	if fn == nil {
		return Dirent{}, false, wrapOpError("readdir", "", ErrNotSupported)
	}
	e, err = fn(d.ctx.id, d.id)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Dirent{}, false, nil
		}
		return Dirent{}, false, wrapOpError("readdir", "", err)
	}
	return e, true, nil
}

// ReadEntryPlus returns the next entry together with its stat record,
// advancing the cursor. At the end of the directory it returns
// ok == false with a nil error.
func (d *Dir) ReadEntryPlus() (fi FileInfo, ok bool, err error) {
	if err := d.check(); err != nil {
		return FileInfo{}, false, wrapOpError("readdirplus", "", err)
	}
	fn := d.ctx.table.ReaddirPlus
	if fn == nil {
		return FileInfo{}, false, wrapOpError("readdirplus", "", ErrNotSupported)
	}
	raw, err := fn(d.ctx.id, d.id)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return FileInfo{}, false, nil
		}
		return FileInfo{}, false, wrapOpError("readdirplus", "", err)
	}
	return decodeFileInfo(raw), true, nil
}

// Offset returns the current cursor position as an opaque token for a
// later SeekTo on the same handle.
func (d *Dir) Offset() (int64, error) {
	if err := d.check(); err != nil {
		return 0, wrapOpError("telldir", "", err)
	}
	fn := d.ctx.table.Telldir
	if fn == nil {
		return 0, wrapOpError("telldir", "", ErrNotSupported)
	}
	off, err := fn(d.ctx.id, d.id)
	if err != nil {
		return 0, wrapOpError("telldir", "", err)
	}
	return off, nil
}

// SeekTo repositions the cursor to a token previously returned by
// Offset, or to 0 for the beginning of the directory.
func (d *Dir) SeekTo(offset int64) error {
	if err := d.check(); err != nil {
		return wrapOpError("lseekdir", "", err)
	}
	fn := d.ctx.table.Lseekdir
	if fn == nil {
		return wrapOpError("lseekdir", "", ErrNotSupported)
	}
	return wrapOpError("lseekdir", "", fn(d.ctx.id, d.id, offset))
}

// Entries returns a lazy sequence over the directory's entries,
// excluding "." and "..". The cursor is rewound first, so Entries
// always yields the full listing; the sequence is single-pass and
// advances the handle's cursor as it goes.
func (d *Dir) Entries() iter.Seq2[Dirent, error] {
	return func(yield func(Dirent, error) bool) {
		if err := d.SeekTo(0); err != nil {
			yield(Dirent{}, err)
			return
		}

		if d.ctx.table.Getdents == nil {
			d.yieldViaReadEntry(yield)
			return
		}

		buf := make([]byte, getdentsBufSize)
		for {
			if err := d.check(); err != nil {
				yield(Dirent{}, wrapOpError("getdents", "", err))
				return
			}
			n, err := d.ctx.table.Getdents(d.ctx.id, d.id, buf)
			if err != nil {
				yield(Dirent{}, wrapOpError("getdents", "", err))
				return
			}
			if n == 0 {
				return
			}
			ents, err := DecodeDirents(buf[:n])
			if err != nil {
				yield(Dirent{}, wrapOpError("getdents", "", err))
				return
			}
			for _, e := range ents {
				if e.Name == "." || e.Name == ".." {
					continue
				}
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}

func (d *Dir) yieldViaReadEntry(yield func(Dirent, error) bool) {
	for {
		e, ok, err := d.ReadEntry()
		if err != nil {
			yield(Dirent{}, err)
			return
		}
		if !ok {
			return
		}
		if e.Name == "." || e.Name == ".." {
			continue
		}
		if !yield(e, nil) {
			return
		}
	}
}

// Notify blocks watching the directory for changes, delivering each
// batch of actions to cb until cb returns true or an error occurs. The
// engine wakes cb with an empty batch at least every pollInterval even
// when nothing changed, which is the only chance to stop the watch. For
// a channel-based interface see Watch.
func (d *Dir) Notify(opts WatchOptions, cb func(actions []NotifyAction) bool) error {
	if err := d.check(); err != nil {
		return wrapOpError("notify", "", err)
	}
	fn := d.ctx.table.Notify
	if fn == nil {
		return wrapOpError("notify", "", ErrNotSupported)
	}
	opts = opts.withDefaults()
	return wrapOpError("notify", "", fn(d.ctx.id, d.id, opts.Recursive, opts.Filter, opts.PollInterval, cb))
}
