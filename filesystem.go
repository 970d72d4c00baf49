package smbc

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"sync"
	"time"

	"github.com/absfs/smbc/absfs"
)

// FileSystem presents a Context as an absfs.FileSystem. Paths are
// interpreted relative to the current working directory, which starts
// at "/".
type FileSystem struct {
	ctx *Context

	mu  sync.Mutex
	cwd string
}

// Ensure FileSystem implements absfs.FileSystem.
var _ absfs.FileSystem = (*FileSystem)(nil)

// NewFileSystem wraps ctx in the filesystem interface.
func NewFileSystem(ctx *Context) *FileSystem {
	return &FileSystem{ctx: ctx, cwd: "/"}
}

func (fsys *FileSystem) abs(name string) string {
	if path.IsAbs(name) {
		return path.Clean(name)
	}
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	return path.Join(fsys.cwd, name)
}

// Open opens a file for reading.
func (fsys *FileSystem) Open(name string) (fs.File, error) {
	return fsys.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens the named file or directory.
func (fsys *FileSystem) OpenFile(name string, flag int, perm fs.FileMode) (absfs.File, error) {
	name = fsys.abs(name)

	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE) == 0 {
		if st, err := fsys.ctx.Stat(name); err == nil && st.IsDir() {
			d, err := fsys.ctx.OpenDir(name)
			if err != nil {
				return nil, err
			}
			return &fsNode{fsys: fsys, name: name, dir: d}, nil
		}
	}

	f, err := fsys.ctx.Open(name, flag, uint32(perm.Perm()))
	if err != nil {
		return nil, err
	}
	return &fsNode{fsys: fsys, name: name, file: f}, nil
}

// Create creates or truncates the named file.
func (fsys *FileSystem) Create(name string) (absfs.File, error) {
	return fsys.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

// Mkdir creates a directory.
func (fsys *FileSystem) Mkdir(name string, perm fs.FileMode) error {
	return fsys.ctx.Mkdir(fsys.abs(name), uint32(perm.Perm()))
}

// MkdirAll creates a directory and any missing parents.
func (fsys *FileSystem) MkdirAll(name string, perm fs.FileMode) error {
	name = fsys.abs(name)
	if st, err := fsys.ctx.Stat(name); err == nil {
		if st.IsDir() {
			return nil
		}
		return wrapOpError("mkdir", name, fs.ErrExist)
	}
	if parent := path.Dir(name); parent != name {
		if err := fsys.MkdirAll(parent, perm); err != nil {
			return err
		}
	}
	return fsys.ctx.Mkdir(name, uint32(perm.Perm()))
}

// Remove removes the named file or empty directory.
func (fsys *FileSystem) Remove(name string) error {
	name = fsys.abs(name)
	st, err := fsys.ctx.Stat(name)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fsys.ctx.Rmdir(name)
	}
	return fsys.ctx.Unlink(name)
}

// RemoveAll removes name and everything below it. A missing path is not
// an error.
func (fsys *FileSystem) RemoveAll(name string) error {
	name = fsys.abs(name)
	st, err := fsys.ctx.Stat(name)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}
	if !st.IsDir() {
		return fsys.ctx.Unlink(name)
	}

	entries, err := fsys.ReadDir(name)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := fsys.RemoveAll(path.Join(name, e.Name())); err != nil {
			return err
		}
	}
	return fsys.ctx.Rmdir(name)
}

// Rename moves oldname to newname.
func (fsys *FileSystem) Rename(oldname, newname string) error {
	return fsys.ctx.Rename(fsys.abs(oldname), nil, fsys.abs(newname))
}

// Stat returns information about the named file.
func (fsys *FileSystem) Stat(name string) (fs.FileInfo, error) {
	name = fsys.abs(name)
	st, err := fsys.ctx.Stat(name)
	if err != nil {
		return nil, err
	}
	return &statInfo{name: path.Base(name), st: st}, nil
}

// Lstat is equivalent to Stat; symlinks are resolved server-side.
func (fsys *FileSystem) Lstat(name string) (fs.FileInfo, error) {
	return fsys.Stat(name)
}

// Chmod changes the mode of the named file.
func (fsys *FileSystem) Chmod(name string, mode fs.FileMode) error {
	return fsys.ctx.Chmod(fsys.abs(name), uint32(mode.Perm()))
}

// Chown is not supported by the protocol.
func (fsys *FileSystem) Chown(name string, uid, gid int) error {
	return wrapOpError("chown", fsys.abs(name), ErrNotSupported)
}

// Chtimes changes the access and modification times of the named file.
func (fsys *FileSystem) Chtimes(name string, atime, mtime time.Time) error {
	return fsys.ctx.SetTimes(fsys.abs(name), atime, mtime)
}

// ReadDir returns the entries of the named directory, sorted by the
// engine's listing order.
func (fsys *FileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	name = fsys.abs(name)
	d, err := fsys.ctx.OpenDir(name)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	var out []fs.DirEntry
	for e, err := range d.Entries() {
		if err != nil {
			return nil, err
		}
		out = append(out, &dirEntry{fsys: fsys, dir: name, e: e})
	}
	return out, nil
}

// Separator returns the path separator.
func (fsys *FileSystem) Separator() uint8 { return '/' }

// ListSeparator returns the path list separator.
func (fsys *FileSystem) ListSeparator() uint8 { return ':' }

// Chdir changes the current working directory.
func (fsys *FileSystem) Chdir(dir string) error {
	dir = fsys.abs(dir)
	st, err := fsys.ctx.Stat(dir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return wrapOpError("chdir", dir, ErrNotSupported)
	}
	fsys.mu.Lock()
	fsys.cwd = dir
	fsys.mu.Unlock()
	return nil
}

// Getwd returns the current working directory.
func (fsys *FileSystem) Getwd() (string, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	return fsys.cwd, nil
}

// TempDir returns the default directory for temporary files.
func (fsys *FileSystem) TempDir() string { return "/tmp" }

// Truncate changes the size of the named file.
func (fsys *FileSystem) Truncate(name string, size int64) error {
	f, err := fsys.ctx.Open(fsys.abs(name), os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Truncate(size)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// fsNode is the absfs.File adapter over either an open file or an open
// directory handle.
type fsNode struct {
	fsys *FileSystem
	name string
	file *File
	dir  *Dir

	entries []fs.DirEntry
	listed  bool
}

func (n *fsNode) Stat() (fs.FileInfo, error) {
	if n.file != nil {
		st, err := n.file.Stat()
		if err != nil {
			return nil, err
		}
		return &statInfo{name: path.Base(n.name), st: st}, nil
	}
	return n.fsys.Stat(n.name)
}

func (n *fsNode) Read(p []byte) (int, error) {
	if n.file == nil {
		return 0, wrapOpError("read", n.name, ErrNotSupported)
	}
	return n.file.Read(p)
}

func (n *fsNode) Write(p []byte) (int, error) {
	if n.file == nil {
		return 0, wrapOpError("write", n.name, ErrNotSupported)
	}
	return n.file.Write(p)
}

func (n *fsNode) Seek(offset int64, whence int) (int64, error) {
	if n.file == nil {
		return 0, wrapOpError("seek", n.name, ErrNotSupported)
	}
	return n.file.Seek(offset, whence)
}

func (n *fsNode) Truncate(size int64) error {
	if n.file == nil {
		return wrapOpError("truncate", n.name, ErrNotSupported)
	}
	return n.file.Truncate(size)
}

func (n *fsNode) ReadDir(count int) ([]fs.DirEntry, error) {
	if n.dir == nil {
		return nil, wrapOpError("readdir", n.name, ErrNotSupported)
	}
	if !n.listed {
		for e, err := range n.dir.Entries() {
			if err != nil {
				return nil, err
			}
			n.entries = append(n.entries, &dirEntry{fsys: n.fsys, dir: n.name, e: e})
		}
		n.listed = true
	}
	if count <= 0 {
		out := n.entries
		n.entries = nil
		return out, nil
	}
	if len(n.entries) == 0 {
		return nil, io.EOF
	}
	if count > len(n.entries) {
		count = len(n.entries)
	}
	out := n.entries[:count]
	n.entries = n.entries[count:]
	return out, nil
}

func (n *fsNode) Close() error {
	if n.file != nil {
		return n.file.Close()
	}
	return n.dir.Close()
}

// statInfo adapts a Stat record to fs.FileInfo.
type statInfo struct {
	name string
	st   Stat
}

func (si *statInfo) Name() string       { return si.name }
func (si *statInfo) Size() int64        { return si.st.Size }
func (si *statInfo) Mode() fs.FileMode  { return si.st.FileMode() }
func (si *statInfo) ModTime() time.Time { return si.st.ModTime }
func (si *statInfo) IsDir() bool        { return si.st.IsDir() }
func (si *statInfo) Sys() interface{}   { return si.st }

// dirEntry adapts a Dirent to fs.DirEntry, fetching stat data lazily.
type dirEntry struct {
	fsys *FileSystem
	dir  string
	e    Dirent
}

func (de *dirEntry) Name() string { return de.e.Name }
func (de *dirEntry) IsDir() bool  { return de.e.Type == EntryDir }

func (de *dirEntry) Type() fs.FileMode {
	if de.IsDir() {
		return fs.ModeDir
	}
	if de.e.Type == EntryLink {
		return fs.ModeSymlink
	}
	return 0
}

func (de *dirEntry) Info() (fs.FileInfo, error) {
	return de.fsys.Stat(path.Join(de.dir, de.e.Name))
}
