package smbc

import (
	"io"
	"sync"
)

// defaultReadChunk is the transfer size used by ReadAll and the
// internal copy loops when the caller does not specify one.
const defaultReadChunk = 4096

// File is the canonical handle for one open remote file. At most one
// File value exists per open native handle on a context; reopening the
// same path yields a distinct handle and therefore a distinct File.
type File struct {
	ctx       *Context
	id        HandleID
	readChunk int

	mu     sync.Mutex
	closed bool
}

// ID returns the native handle identifier. It is meaningful only to
// the engine that issued it.
func (f *File) ID() HandleID {
	return f.id
}

// Context returns the owning context.
func (f *File) Context() *Context {
	return f.ctx
}

// SetReadChunk sets the transfer size ReadAll uses per engine call.
// Values below 1 restore the default. Chainable.
func (f *File) SetReadChunk(n int) *File {
	if n < 1 {
		n = defaultReadChunk
	}
	f.readChunk = n
	return f
}

func (f *File) check() error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed || f.ctx.isClosed() {
		return ErrClosed
	}
	return nil
}

// Close releases the native handle and removes the File from its
// context's registry. Close is idempotent.
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	f.ctx.handles.release(f.id)
	fn := f.ctx.table.Close
	if fn == nil {
		return nil
	}
	return wrapOpError("close", "", fn(f.ctx.id, f.id))
}

// Read reads up to len(p) bytes into p. It implements io.Reader: a read
// at end of file returns 0, io.EOF. The engine may return fewer bytes
// than requested without that meaning end of file.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.ReadN(p)
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadN reads up to len(p) bytes into p and returns the count the
// engine transferred. Unlike Read it reports end of file as (0, nil),
// matching the underlying protocol call.
func (f *File) ReadN(p []byte) (int, error) {
	if err := f.check(); err != nil {
		return 0, wrapOpError("read", "", err)
	}
	fn := f.ctx.table.Read
	if fn == nil {
		return 0, wrapOpError("read", "", ErrNotSupported)
	}
	n, err := fn(f.ctx.id, f.id, p)
	if err != nil {
		return n, wrapOpError("read", "", err)
	}
	return n, nil
}

// ReadAll reads from the current position to end of file and returns
// the data. The result buffer grows geometrically, keeping at least
// half a chunk of headroom ahead of each engine call.
func (f *File) ReadAll() ([]byte, error) {
	chunk := f.readChunk
	if chunk < 1 {
		chunk = defaultReadChunk
	}

	buf := make([]byte, 0, chunk)
	for {
		if free := cap(buf) - len(buf); free < chunk/2 {
			grown := make([]byte, len(buf), cap(buf)+chunk)
			copy(grown, buf)
			buf = grown
		}
		limit := len(buf) + chunk
		if limit > cap(buf) {
			limit = cap(buf)
		}
		n, err := f.ReadN(buf[len(buf):limit])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return buf, nil
		}
		buf = buf[:len(buf)+n]
	}
}

// Write writes p at the current position and returns the count the
// engine accepted, which may be short. It does not retry; callers
// needing the full-write contract should use io.Copy or WriteAll.
func (f *File) Write(p []byte) (int, error) {
	if err := f.check(); err != nil {
		return 0, wrapOpError("write", "", err)
	}
	fn := f.ctx.table.Write
	if fn == nil {
		return 0, wrapOpError("write", "", ErrNotSupported)
	}
	n, err := fn(f.ctx.id, f.id, p)
	if err != nil {
		return n, wrapOpError("write", "", err)
	}
	return n, nil
}

// WriteAll writes all of p, looping over short writes.
func (f *File) WriteAll(p []byte) error {
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return wrapOpError("write", "", io.ErrShortWrite)
		}
		p = p[n:]
	}
	return nil
}

// Seek sets the file position. whence is one of SeekStart, SeekCurrent,
// SeekEnd.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.check(); err != nil {
		return 0, wrapOpError("seek", "", err)
	}
	fn := f.ctx.table.Lseek
	if fn == nil {
		return 0, wrapOpError("seek", "", ErrNotSupported)
	}
	pos, err := fn(f.ctx.id, f.id, offset, whence)
	if err != nil {
		return 0, wrapOpError("seek", "", err)
	}
	return pos, nil
}

// Truncate changes the file's size.
func (f *File) Truncate(size int64) error {
	if err := f.check(); err != nil {
		return wrapOpError("truncate", "", err)
	}
	fn := f.ctx.table.Ftruncate
	if fn == nil {
		return wrapOpError("truncate", "", ErrNotSupported)
	}
	return wrapOpError("truncate", "", fn(f.ctx.id, f.id, size))
}

// Stat returns the decoded stat record for the open file.
func (f *File) Stat() (Stat, error) {
	if err := f.check(); err != nil {
		return Stat{}, wrapOpError("fstat", "", err)
	}
	fn := f.ctx.table.Fstat
	if fn == nil {
		return Stat{}, wrapOpError("fstat", "", ErrNotSupported)
	}
	raw, err := fn(f.ctx.id, f.id)
	if err != nil {
		return Stat{}, wrapOpError("fstat", "", err)
	}
	return decodeStat(raw), nil
}

// StatVFS returns filesystem-level statistics for the open file.
func (f *File) StatVFS() (StatVFS, error) {
	if err := f.check(); err != nil {
		return StatVFS{}, wrapOpError("fstatvfs", "", err)
	}
	fn := f.ctx.table.FstatVFS
	if fn == nil {
		return StatVFS{}, wrapOpError("fstatvfs", "", ErrNotSupported)
	}
	out, err := fn(f.ctx.id, f.id)
	if err != nil {
		return StatVFS{}, wrapOpError("fstatvfs", "", err)
	}
	return out, nil
}

// Splice copies up to count bytes from f into dst, both positioned at
// their current offsets. dst must belong to the same context. progress,
// if non-nil, is invoked periodically with the byte count remaining and
// may return false to abandon the copy. Splice returns the number of
// bytes copied.
func (f *File) Splice(dst *File, count int64, progress func(remaining int64) bool) (int64, error) {
	if dst == nil {
		return 0, wrapOpError("splice", "", ErrNotSupported)
	}
	if dst.ctx != f.ctx {
		panic(&LogicError{Reason: "splice across contexts"})
	}
	if err := f.check(); err != nil {
		return 0, wrapOpError("splice", "", err)
	}
	if err := dst.check(); err != nil {
		return 0, wrapOpError("splice", "", err)
	}
	fn := f.ctx.table.Splice
	if fn == nil {
		return 0, wrapOpError("splice", "", ErrNotSupported)
	}
	n, err := fn(f.ctx.id, dst.id, f.id, count, progress)
	if err != nil {
		return n, wrapOpError("splice", "", err)
	}
	return n, nil
}
