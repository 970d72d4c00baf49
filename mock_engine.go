package smbc

import (
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

// MockEngine provides an in-memory protocol engine for testing. It
// keeps a virtual tree shared by every context it issues, supports
// error injection per path and per operation, and records all
// operations for verification.
type MockEngine struct {
	mu sync.RWMutex

	// files maps cleaned paths to mock file data
	files map[string]*mockFileData

	// xattrs maps cleaned paths to attribute name/value pairs
	xattrs map[string]map[string][]byte

	// jobs maps printer share names to queued print jobs
	jobs      map[string][]RawPrintJob
	nextJobID uint16

	ctxs       map[ContextID]bool
	handles    map[HandleID]*mockHandle
	nextCtx    ContextID
	nextHandle HandleID
	freeIDs    []HandleID

	authFns map[ContextID]AuthDataFunc
	options map[ContextID]map[Option]interface{}

	// errors to inject for specific paths or operations
	errorOnPath map[string]error
	errorOnOp   map[string]error

	// OpDelay makes named operations sleep before running, for
	// exercising dispatch ordering.
	OpDelay map[string]time.Duration

	// ReuseHandleIDs recycles released handle identifiers, the way a
	// native library reuses freed pointers.
	ReuseHandleIDs bool

	// MaxReadChunk and MaxWriteChunk cap the bytes moved per Read or
	// Write call; zero means unlimited.
	MaxReadChunk  int
	MaxWriteChunk int

	notifyCh chan []NotifyAction

	// operation tracking for verification (separate mutex to avoid
	// lock contention)
	opMu       sync.Mutex
	operations []MockOperation
}

// mockFileData represents a file or directory in the mock tree.
type mockFileData struct {
	content []byte
	mode    uint32
	isDir   bool
	atime   time.Time
	mtime   time.Time
}

// mockHandle represents one open file, directory or print job.
type mockHandle struct {
	ctx      ContextID
	path     string
	isDir    bool
	pos      int64
	dirNames []string
	printJob bool
	printBuf []byte
}

// MockOperation records an operation performed on the engine.
type MockOperation struct {
	Op   string
	Path string
	Args []interface{}
	Time time.Time
}

// NewMockEngine creates a mock engine with an empty root directory.
func NewMockEngine() *MockEngine {
	m := &MockEngine{
		files:       make(map[string]*mockFileData),
		xattrs:      make(map[string]map[string][]byte),
		jobs:        make(map[string][]RawPrintJob),
		ctxs:        make(map[ContextID]bool),
		handles:     make(map[HandleID]*mockHandle),
		authFns:     make(map[ContextID]AuthDataFunc),
		options:     make(map[ContextID]map[Option]interface{}),
		errorOnPath: make(map[string]error),
		errorOnOp:   make(map[string]error),
		OpDelay:     make(map[string]time.Duration),
		notifyCh:    make(chan []NotifyAction, 64),
	}
	now := time.Now()
	m.files["/"] = &mockFileData{isDir: true, mode: 0o755, atime: now, mtime: now}
	return m
}

// AddFile adds a file with the given content, creating parents.
func (m *MockEngine) AddFile(name string, content []byte, mode uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = path.Clean("/" + name)
	m.ensureParentsLocked(name)
	now := time.Now()
	m.files[name] = &mockFileData{
		content: append([]byte(nil), content...),
		mode:    mode,
		atime:   now,
		mtime:   now,
	}
}

// AddDir adds a directory, creating parents.
func (m *MockEngine) AddDir(name string, mode uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = path.Clean("/" + name)
	m.ensureParentsLocked(name)
	now := time.Now()
	m.files[name] = &mockFileData{isDir: true, mode: mode, atime: now, mtime: now}
}

// GetFile returns a file's content.
func (m *MockEngine) GetFile(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fd, ok := m.files[path.Clean("/"+name)]
	if !ok || fd.isDir {
		return nil, false
	}
	return append([]byte(nil), fd.content...), true
}

// FileExists reports whether the path exists.
func (m *MockEngine) FileExists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[path.Clean("/"+name)]
	return ok
}

// SetError injects an error for any operation touching the path.
func (m *MockEngine) SetError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorOnPath[path.Clean("/"+name)] = err
}

// SetOperationError injects an error for every call of the named
// operation.
func (m *MockEngine) SetOperationError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorOnOp[op] = err
}

// ClearErrors removes all injected errors.
func (m *MockEngine) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorOnPath = make(map[string]error)
	m.errorOnOp = make(map[string]error)
}

// Operations returns a copy of the recorded operation log.
func (m *MockEngine) Operations() []MockOperation {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return append([]MockOperation(nil), m.operations...)
}

// ClearOperations resets the operation log.
func (m *MockEngine) ClearOperations() {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.operations = nil
}

// HandleCount returns the number of currently open handles.
func (m *MockEngine) HandleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}

// ContextOption returns the last value applied for an option on a
// context.
func (m *MockEngine) ContextOption(ctx ContextID, opt Option) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.options[ctx][opt]
	return v, ok
}

// QueueNotify feeds a batch of actions to the next pending notify poll.
func (m *MockEngine) QueueNotify(actions []NotifyAction) {
	m.notifyCh <- actions
}

// AddPrintJob queues a job record on the named printer share and
// returns its id.
func (m *MockEngine) AddPrintJob(printer, user, name string, size uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.addJobLocked(printer, user, name, size))
}

// TriggerAuth invokes the context's installed credential callback the
// way a connection attempt would and returns the resolved triple.
func (m *MockEngine) TriggerAuth(ctx ContextID, server, share string) (workgroup, username, password string) {
	m.mu.RLock()
	fn := m.authFns[ctx]
	m.mu.RUnlock()

	wg, _ := NewBoundedBuffer("WORKGROUP", 256)
	user, _ := NewBoundedBuffer("guest", 256)
	pass, _ := NewBoundedBuffer("", 256)
	if fn != nil {
		fn(server, share, wg, user, pass)
	}
	return wg.String(), user.String(), pass.String()
}

func (m *MockEngine) recordOp(op, name string, args ...interface{}) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.operations = append(m.operations, MockOperation{
		Op:   op,
		Path: name,
		Args: args,
		Time: time.Now(),
	})
}

// checkError looks up injected errors and applies any configured delay.
func (m *MockEngine) checkError(op, name string) error {
	m.mu.RLock()
	delay := m.OpDelay[op]
	err, ok := m.errorOnOp[op]
	if !ok && name != "" {
		err, ok = m.errorOnPath[name]
	}
	m.mu.RUnlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if ok {
		return err
	}
	return nil
}

func (m *MockEngine) ensureParentsLocked(name string) {
	for dir := path.Dir(name); ; dir = path.Dir(dir) {
		if _, ok := m.files[dir]; ok {
			break
		}
		now := time.Now()
		m.files[dir] = &mockFileData{isDir: true, mode: 0o755, atime: now, mtime: now}
		if dir == "/" {
			break
		}
	}
}

func (m *MockEngine) allocHandleLocked(h *mockHandle) HandleID {
	var id HandleID
	if m.ReuseHandleIDs && len(m.freeIDs) > 0 {
		id = m.freeIDs[len(m.freeIDs)-1]
		m.freeIDs = m.freeIDs[:len(m.freeIDs)-1]
	} else {
		m.nextHandle++
		id = m.nextHandle
	}
	m.handles[id] = h
	return id
}

func (m *MockEngine) handleLocked(ctx ContextID, id HandleID, wantDir bool) (*mockHandle, error) {
	h, ok := m.handles[id]
	if !ok || h.ctx != ctx || h.isDir != wantDir {
		return nil, syscall.EBADF
	}
	return h, nil
}

func (m *MockEngine) listLocked(dir string) []string {
	names := []string{".", ".."}
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	for p := range m.files {
		if p != dir && strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			names = append(names, p[len(prefix):])
		}
	}
	sort.Strings(names[2:])
	return names
}

func (m *MockEngine) addJobLocked(printer, user, name string, size uint64) uint16 {
	m.nextJobID++
	m.jobs[printer] = append(m.jobs[printer], RawPrintJob{
		ID:       m.nextJobID,
		Priority: 1,
		Size:     size,
		User:     user,
		Name:     name,
		Time:     time.Now().Unix(),
	})
	return m.nextJobID
}

func mockRawStat(fd *mockFileData) RawStat {
	mode := fd.mode & 0o7777
	if fd.isDir {
		mode |= modeDir
	} else {
		mode |= modeRegular
	}
	return RawStat{
		Ino:     1,
		Mode:    mode,
		Nlink:   1,
		Size:    int64(len(fd.content)),
		Blksize: 512,
		Blocks:  (int64(len(fd.content)) + 511) / 512,
		Atim:    RawTimespec{Sec: fd.atime.Unix(), Nsec: int64(fd.atime.Nanosecond())},
		Mtim:    RawTimespec{Sec: fd.mtime.Unix(), Nsec: int64(fd.mtime.Nanosecond())},
		Ctim:    RawTimespec{Sec: fd.mtime.Unix(), Nsec: int64(fd.mtime.Nanosecond())},
	}
}

// Table returns a fully populated call table backed by this engine.
// Every context created through it shares the engine's tree.
func (m *MockEngine) Table() *CallTable {
	return &CallTable{
		NewContext: func() (ContextID, error) {
			if err := m.checkError("new", ""); err != nil {
				return 0, err
			}
			m.mu.Lock()
			defer m.mu.Unlock()
			m.nextCtx++
			m.ctxs[m.nextCtx] = true
			return m.nextCtx, nil
		},
		InitContext: func(ctx ContextID) error {
			m.recordOp("init", "")
			return m.checkError("init", "")
		},
		FreeContext: func(ctx ContextID, shutdown bool) error {
			m.recordOp("free", "")
			m.mu.Lock()
			defer m.mu.Unlock()
			if !m.ctxs[ctx] {
				return syscall.EBADF
			}
			delete(m.ctxs, ctx)
			for id, h := range m.handles {
				if h.ctx == ctx {
					delete(m.handles, id)
				}
			}
			return nil
		},

		Open:  m.open,
		Creat: m.creat,
		Read:  m.read,
		Write: m.write,
		Splice: func(ctx ContextID, dst, src HandleID, count int64, progress func(remaining int64) bool) (int64, error) {
			return m.splice(ctx, dst, src, count, progress)
		},
		Lseek:     m.lseek,
		Ftruncate: m.ftruncate,
		Fstat:     m.fstat,
		FstatVFS: func(ctx ContextID, f HandleID) (StatVFS, error) {
			return m.statVFS(ctx, "")
		},
		Close: m.close,

		Unlink:  m.unlink,
		Rename:  m.rename,
		Stat:    m.stat,
		StatVFS: m.statVFS,
		Mkdir:   m.mkdir,
		Rmdir:   m.rmdir,
		Chmod:   m.chmod,
		Utimes:  m.utimes,

		Opendir:     m.opendir,
		Closedir:    m.close,
		Readdir:     m.readdir,
		ReaddirPlus: m.readdirPlus,
		Getdents:    m.getdents,
		Telldir:     m.telldir,
		Lseekdir:    m.lseekdir,

		Setxattr:    m.setxattr,
		Getxattr:    m.getxattr,
		Removexattr: m.removexattr,
		Listxattr:   m.listxattr,

		PrintFile:      m.printFile,
		OpenPrintJob:   m.openPrintJob,
		ListPrintJobs:  m.listPrintJobs,
		UnlinkPrintJob: m.unlinkPrintJob,

		Notify: m.notify,

		ApplyOption: func(ctx ContextID, opt Option, value interface{}) error {
			if err := m.checkError("option", ""); err != nil {
				return err
			}
			if opt < OptDebug || opt > OptUseNTHash {
				return syscall.EINVAL
			}
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.options[ctx] == nil {
				m.options[ctx] = make(map[Option]interface{})
			}
			m.options[ctx][opt] = value
			return nil
		},
		SetAuthData: func(ctx ContextID, fn AuthDataFunc) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.authFns[ctx] = fn
		},
		Version: func() string { return "mock/1" },
	}
}

func (m *MockEngine) open(ctx ContextID, name string, flags int, mode uint32) (HandleID, error) {
	name = path.Clean("/" + name)
	if err := m.checkError("open", name); err != nil {
		return 0, err
	}
	m.recordOp("open", name, flags, mode)

	m.mu.Lock()
	defer m.mu.Unlock()
	fd, ok := m.files[name]
	switch {
	case !ok && flags&os.O_CREATE == 0:
		return 0, syscall.ENOENT
	case !ok:
		m.ensureParentsLocked(name)
		now := time.Now()
		fd = &mockFileData{mode: mode, atime: now, mtime: now}
		m.files[name] = fd
	case fd.isDir:
		return 0, syscall.EISDIR
	case flags&os.O_CREATE != 0 && flags&os.O_EXCL != 0:
		return 0, syscall.EEXIST
	case flags&os.O_TRUNC != 0:
		fd.content = nil
	}

	h := &mockHandle{ctx: ctx, path: name}
	if flags&os.O_APPEND != 0 {
		h.pos = int64(len(fd.content))
	}
	return m.allocHandleLocked(h), nil
}

func (m *MockEngine) creat(ctx ContextID, name string, mode uint32) (HandleID, error) {
	return m.open(ctx, name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
}

func (m *MockEngine) read(ctx ContextID, f HandleID, p []byte) (int, error) {
	if err := m.checkError("read", ""); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.handleLocked(ctx, f, false)
	if err != nil {
		return 0, err
	}
	fd, ok := m.files[h.path]
	if !ok {
		return 0, syscall.ENOENT
	}
	if h.pos >= int64(len(fd.content)) {
		return 0, nil
	}
	if m.MaxReadChunk > 0 && len(p) > m.MaxReadChunk {
		p = p[:m.MaxReadChunk]
	}
	n := copy(p, fd.content[h.pos:])
	h.pos += int64(n)
	return n, nil
}

func (m *MockEngine) write(ctx ContextID, f HandleID, p []byte) (int, error) {
	if err := m.checkError("write", ""); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.handleLocked(ctx, f, false)
	if err != nil {
		return 0, err
	}
	n := len(p)
	if m.MaxWriteChunk > 0 && n > m.MaxWriteChunk {
		n = m.MaxWriteChunk
	}
	if h.printJob {
		h.printBuf = append(h.printBuf, p[:n]...)
		h.pos += int64(n)
		return n, nil
	}
	fd, ok := m.files[h.path]
	if !ok {
		return 0, syscall.ENOENT
	}
	end := h.pos + int64(n)
	if end > int64(len(fd.content)) {
		grown := make([]byte, end)
		copy(grown, fd.content)
		fd.content = grown
	}
	copy(fd.content[h.pos:end], p[:n])
	fd.mtime = time.Now()
	h.pos = end
	return n, nil
}

func (m *MockEngine) splice(ctx ContextID, dst, src HandleID, count int64, progress func(remaining int64) bool) (int64, error) {
	if err := m.checkError("splice", ""); err != nil {
		return 0, err
	}
	chunk := int64(m.MaxReadChunk)
	if chunk <= 0 {
		chunk = defaultReadChunk
	}
	var copied int64
	buf := make([]byte, chunk)
	for copied < count {
		want := count - copied
		if want > chunk {
			want = chunk
		}
		n, err := m.read(ctx, src, buf[:want])
		if err != nil {
			return copied, err
		}
		if n == 0 {
			break
		}
		if _, err := m.write(ctx, dst, buf[:n]); err != nil {
			return copied, err
		}
		copied += int64(n)
		if progress != nil && !progress(count-copied) {
			break
		}
	}
	return copied, nil
}

func (m *MockEngine) lseek(ctx ContextID, f HandleID, offset int64, whence int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.handleLocked(ctx, f, false)
	if err != nil {
		return 0, err
	}
	fd := m.files[h.path]
	var base int64
	switch whence {
	case SeekStart:
	case SeekCurrent:
		base = h.pos
	case SeekEnd:
		if fd != nil {
			base = int64(len(fd.content))
		}
	default:
		return 0, syscall.EINVAL
	}
	if base+offset < 0 {
		return 0, syscall.EINVAL
	}
	h.pos = base + offset
	return h.pos, nil
}

func (m *MockEngine) ftruncate(ctx ContextID, f HandleID, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.handleLocked(ctx, f, false)
	if err != nil {
		return err
	}
	fd, ok := m.files[h.path]
	if !ok {
		return syscall.ENOENT
	}
	if size < 0 {
		return syscall.EINVAL
	}
	if size <= int64(len(fd.content)) {
		fd.content = fd.content[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, fd.content)
		fd.content = grown
	}
	fd.mtime = time.Now()
	return nil
}

func (m *MockEngine) fstat(ctx ContextID, f HandleID) (RawStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[f]
	if !ok || h.ctx != ctx {
		return RawStat{}, syscall.EBADF
	}
	fd, ok := m.files[h.path]
	if !ok {
		return RawStat{}, syscall.ENOENT
	}
	return mockRawStat(fd), nil
}

func (m *MockEngine) close(ctx ContextID, f HandleID) error {
	if err := m.checkError("close", ""); err != nil {
		return err
	}
	m.recordOp("close", "")
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[f]
	if !ok || h.ctx != ctx {
		return syscall.EBADF
	}
	delete(m.handles, f)
	if m.ReuseHandleIDs {
		m.freeIDs = append(m.freeIDs, f)
	}
	if h.printJob {
		m.addJobLocked(h.path, "guest", path.Base(h.path), uint64(len(h.printBuf)))
	}
	return nil
}

func (m *MockEngine) unlink(ctx ContextID, name string) error {
	name = path.Clean("/" + name)
	if err := m.checkError("unlink", name); err != nil {
		return err
	}
	m.recordOp("unlink", name)
	m.mu.Lock()
	defer m.mu.Unlock()
	fd, ok := m.files[name]
	if !ok {
		return syscall.ENOENT
	}
	if fd.isDir {
		return syscall.EISDIR
	}
	delete(m.files, name)
	delete(m.xattrs, name)
	return nil
}

func (m *MockEngine) rename(octx ContextID, oldname string, nctx ContextID, newname string) error {
	oldname = path.Clean("/" + oldname)
	newname = path.Clean("/" + newname)
	if err := m.checkError("rename", oldname); err != nil {
		return err
	}
	m.recordOp("rename", oldname, newname)
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ctxs[octx] || !m.ctxs[nctx] {
		return syscall.EBADF
	}
	fd, ok := m.files[oldname]
	if !ok {
		return syscall.ENOENT
	}
	m.ensureParentsLocked(newname)
	if fd.isDir {
		prefix := oldname + "/"
		for p, child := range m.files {
			if strings.HasPrefix(p, prefix) {
				m.files[newname+"/"+p[len(prefix):]] = child
				delete(m.files, p)
			}
		}
	}
	m.files[newname] = fd
	delete(m.files, oldname)
	if xa, ok := m.xattrs[oldname]; ok {
		m.xattrs[newname] = xa
		delete(m.xattrs, oldname)
	}
	return nil
}

func (m *MockEngine) stat(ctx ContextID, name string) (RawStat, error) {
	name = path.Clean("/" + name)
	if err := m.checkError("stat", name); err != nil {
		return RawStat{}, err
	}
	m.recordOp("stat", name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	fd, ok := m.files[name]
	if !ok {
		return RawStat{}, syscall.ENOENT
	}
	return mockRawStat(fd), nil
}

func (m *MockEngine) statVFS(ctx ContextID, name string) (StatVFS, error) {
	if err := m.checkError("statvfs", name); err != nil {
		return StatVFS{}, err
	}
	return StatVFS{
		BlockSize:    512,
		FragmentSize: 512,
		Blocks:       1 << 20,
		BlocksFree:   1 << 19,
		BlocksAvail:  1 << 19,
		MaxNameLen:   255,
	}, nil
}

func (m *MockEngine) mkdir(ctx ContextID, name string, mode uint32) error {
	name = path.Clean("/" + name)
	if err := m.checkError("mkdir", name); err != nil {
		return err
	}
	m.recordOp("mkdir", name, mode)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; ok {
		return syscall.EEXIST
	}
	m.ensureParentsLocked(name)
	now := time.Now()
	m.files[name] = &mockFileData{isDir: true, mode: mode, atime: now, mtime: now}
	return nil
}

func (m *MockEngine) rmdir(ctx ContextID, name string) error {
	name = path.Clean("/" + name)
	if err := m.checkError("rmdir", name); err != nil {
		return err
	}
	m.recordOp("rmdir", name)
	m.mu.Lock()
	defer m.mu.Unlock()
	fd, ok := m.files[name]
	if !ok {
		return syscall.ENOENT
	}
	if !fd.isDir {
		return syscall.ENOTDIR
	}
	if len(m.listLocked(name)) > 2 {
		return syscall.ENOTEMPTY
	}
	delete(m.files, name)
	return nil
}

func (m *MockEngine) chmod(ctx ContextID, name string, mode uint32) error {
	name = path.Clean("/" + name)
	if err := m.checkError("chmod", name); err != nil {
		return err
	}
	m.recordOp("chmod", name, mode)
	m.mu.Lock()
	defer m.mu.Unlock()
	fd, ok := m.files[name]
	if !ok {
		return syscall.ENOENT
	}
	fd.mode = mode
	return nil
}

func (m *MockEngine) utimes(ctx ContextID, name string, atimeUsec, mtimeUsec int64) error {
	name = path.Clean("/" + name)
	if err := m.checkError("utimes", name); err != nil {
		return err
	}
	m.recordOp("utimes", name, atimeUsec, mtimeUsec)
	m.mu.Lock()
	defer m.mu.Unlock()
	fd, ok := m.files[name]
	if !ok {
		return syscall.ENOENT
	}
	fd.atime = time.UnixMicro(atimeUsec)
	fd.mtime = time.UnixMicro(mtimeUsec)
	return nil
}

func (m *MockEngine) opendir(ctx ContextID, name string) (HandleID, error) {
	name = path.Clean("/" + name)
	if err := m.checkError("opendir", name); err != nil {
		return 0, err
	}
	m.recordOp("opendir", name)
	m.mu.Lock()
	defer m.mu.Unlock()
	fd, ok := m.files[name]
	if !ok {
		return 0, syscall.ENOENT
	}
	if !fd.isDir {
		return 0, syscall.ENOTDIR
	}
	h := &mockHandle{ctx: ctx, path: name, isDir: true, dirNames: m.listLocked(name)}
	return m.allocHandleLocked(h), nil
}

func (m *MockEngine) direntLocked(dir, name string) Dirent {
	typ := EntryFile
	if name == "." || name == ".." {
		typ = EntryDir
	} else if fd, ok := m.files[path.Join(dir, name)]; ok && fd.isDir {
		typ = EntryDir
	}
	return Dirent{Type: typ, Name: name}
}

func (m *MockEngine) readdir(ctx ContextID, d HandleID) (Dirent, error) {
	if err := m.checkError("readdir", ""); err != nil {
		return Dirent{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.handleLocked(ctx, d, true)
	if err != nil {
		return Dirent{}, err
	}
	if h.pos >= int64(len(h.dirNames)) {
		return Dirent{}, io.EOF
	}
	e := m.direntLocked(h.path, h.dirNames[h.pos])
	h.pos++
	return e, nil
}

func (m *MockEngine) readdirPlus(ctx ContextID, d HandleID) (RawFileInfo, error) {
	if err := m.checkError("readdirplus", ""); err != nil {
		return RawFileInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.handleLocked(ctx, d, true)
	if err != nil {
		return RawFileInfo{}, err
	}
	if h.pos >= int64(len(h.dirNames)) {
		return RawFileInfo{}, io.EOF
	}
	name := h.dirNames[h.pos]
	h.pos++
	full := path.Join(h.path, name)
	if name == "." {
		full = h.path
	} else if name == ".." {
		full = path.Dir(h.path)
	}
	fd, ok := m.files[full]
	if !ok {
		return RawFileInfo{}, syscall.ENOENT
	}
	return RawFileInfo{
		Size:       uint64(len(fd.content)),
		BirthTime:  RawTimespec{Sec: fd.mtime.Unix(), Nsec: int64(fd.mtime.Nanosecond())},
		ModTime:    RawTimespec{Sec: fd.mtime.Unix(), Nsec: int64(fd.mtime.Nanosecond())},
		AccessTime: RawTimespec{Sec: fd.atime.Unix(), Nsec: int64(fd.atime.Nanosecond())},
		ChangeTime: RawTimespec{Sec: fd.mtime.Unix(), Nsec: int64(fd.mtime.Nanosecond())},
		Name:       name,
	}, nil
}

func (m *MockEngine) getdents(ctx ContextID, d HandleID, buf []byte) (int, error) {
	if err := m.checkError("getdents", ""); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.handleLocked(ctx, d, true)
	if err != nil {
		return 0, err
	}
	var n int
	for h.pos < int64(len(h.dirNames)) {
		e := m.direntLocked(h.path, h.dirNames[h.pos])
		if n+direntWireSize(e) > len(buf) {
			if n == 0 {
				return 0, syscall.ERANGE
			}
			break
		}
		n += copy(buf[n:], AppendDirent(nil, e))
		h.pos++
	}
	return n, nil
}

func (m *MockEngine) telldir(ctx ContextID, d HandleID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.handleLocked(ctx, d, true)
	if err != nil {
		return 0, err
	}
	return h.pos, nil
}

func (m *MockEngine) lseekdir(ctx ContextID, d HandleID, offset int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, err := m.handleLocked(ctx, d, true)
	if err != nil {
		return err
	}
	if offset < 0 || offset > int64(len(h.dirNames)) {
		return syscall.EINVAL
	}
	h.pos = offset
	return nil
}

func (m *MockEngine) setxattr(ctx ContextID, name, attr string, value []byte, flags int) error {
	name = path.Clean("/" + name)
	if err := m.checkError("setxattr", name); err != nil {
		return err
	}
	m.recordOp("setxattr", name, attr)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return syscall.ENOENT
	}
	xa := m.xattrs[name]
	_, exists := xa[attr]
	if flags == XattrFlagCreate && exists {
		return syscall.EEXIST
	}
	if flags == XattrFlagReplace && !exists {
		return ErrNoAttribute
	}
	if xa == nil {
		xa = make(map[string][]byte)
		m.xattrs[name] = xa
	}
	xa[attr] = append([]byte(nil), value...)
	return nil
}

func (m *MockEngine) getxattr(ctx ContextID, name, attr string, buf []byte) (int, error) {
	name = path.Clean("/" + name)
	if err := m.checkError("getxattr", name); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[name]; !ok {
		return 0, syscall.ENOENT
	}
	val, ok := m.xattrs[name][attr]
	if !ok {
		return 0, ErrNoAttribute
	}
	if len(buf) == 0 {
		return len(val), nil
	}
	if len(buf) < len(val) {
		return 0, syscall.ERANGE
	}
	return copy(buf, val), nil
}

func (m *MockEngine) removexattr(ctx ContextID, name, attr string) error {
	name = path.Clean("/" + name)
	if err := m.checkError("removexattr", name); err != nil {
		return err
	}
	m.recordOp("removexattr", name, attr)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.xattrs[name][attr]; !ok {
		return ErrNoAttribute
	}
	delete(m.xattrs[name], attr)
	return nil
}

func (m *MockEngine) listxattr(ctx ContextID, name string, buf []byte) (int, error) {
	name = path.Clean("/" + name)
	if err := m.checkError("listxattr", name); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[name]; !ok {
		return 0, syscall.ENOENT
	}
	names := make([]string, 0, len(m.xattrs[name]))
	for attr := range m.xattrs[name] {
		names = append(names, attr)
	}
	sort.Strings(names)
	var packed []byte
	for _, attr := range names {
		packed = append(packed, attr...)
		packed = append(packed, 0)
	}
	if len(buf) == 0 {
		return len(packed), nil
	}
	if len(buf) < len(packed) {
		return 0, syscall.ERANGE
	}
	return copy(buf, packed), nil
}

func (m *MockEngine) printFile(sctx ContextID, source string, pctx ContextID, printer string) error {
	source = path.Clean("/" + source)
	if err := m.checkError("print", source); err != nil {
		return err
	}
	m.recordOp("print", source, printer)
	m.mu.Lock()
	defer m.mu.Unlock()
	fd, ok := m.files[source]
	if !ok || fd.isDir {
		return syscall.ENOENT
	}
	m.addJobLocked(printer, "guest", path.Base(source), uint64(len(fd.content)))
	return nil
}

func (m *MockEngine) openPrintJob(ctx ContextID, name string) (HandleID, error) {
	if err := m.checkError("openprintjob", name); err != nil {
		return 0, err
	}
	m.recordOp("openprintjob", name)
	m.mu.Lock()
	defer m.mu.Unlock()
	h := &mockHandle{ctx: ctx, path: name, printJob: true}
	return m.allocHandleLocked(h), nil
}

func (m *MockEngine) listPrintJobs(ctx ContextID, name string, fn func(RawPrintJob)) error {
	if err := m.checkError("listprintjobs", name); err != nil {
		return err
	}
	m.mu.RLock()
	jobs := append([]RawPrintJob(nil), m.jobs[name]...)
	m.mu.RUnlock()
	for _, j := range jobs {
		fn(j)
	}
	return nil
}

func (m *MockEngine) unlinkPrintJob(ctx ContextID, name string, id int) error {
	if err := m.checkError("unlinkprintjob", name); err != nil {
		return err
	}
	m.recordOp("unlinkprintjob", name, id)
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := m.jobs[name]
	for i, j := range jobs {
		if int(j.ID) == id {
			m.jobs[name] = append(jobs[:i], jobs[i+1:]...)
			return nil
		}
	}
	return syscall.ENOENT
}

func (m *MockEngine) notify(ctx ContextID, d HandleID, recursive bool, filter NotifyFilter, pollInterval time.Duration, cb func([]NotifyAction) bool) error {
	if err := m.checkError("notify", ""); err != nil {
		return err
	}
	m.mu.RLock()
	_, ok := m.handles[d]
	m.mu.RUnlock()
	if !ok {
		return syscall.EBADF
	}
	for {
		var actions []NotifyAction
		select {
		case actions = <-m.notifyCh:
		case <-time.After(pollInterval):
		}
		if cb(actions) {
			return nil
		}
	}
}
