package smb2engine

import (
	"context"
	"io"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/hirochachacha/go-smb2"

	"github.com/absfs/smbc"
)

const copyChunk = 64 * 1024

// posix file-type bits used when synthesizing stat records.
const (
	posixModeDir     = 0o040000
	posixModeRegular = 0o100000
)

// Engine adapts real SMB2/3 shares to the smbc call table. Resource
// names are smb:// URLs; connection pools are created per share on
// first touch and shared by all handles addressing it.
//
// Extended attributes, change notification and printing have no
// SMB2-level equivalent in the underlying client library, so those
// table slots stay nil and surface as unsupported.
type Engine struct {
	cfg Config

	mu         sync.Mutex
	ctxs       map[smbc.ContextID]*engineCtx
	handles    map[smbc.HandleID]*engineHandle
	nextCtx    smbc.ContextID
	nextHandle smbc.HandleID
}

type engineCtx struct {
	opts  map[smbc.Option]interface{}
	auth  smbc.AuthDataFunc
	pools map[string]*connectionPool
}

type engineHandle struct {
	ctx  smbc.ContextID
	res  Resource
	pool *connectionPool
	conn *pooledConn
	file *smb2.File

	// directory snapshot, taken at open
	entries []os.FileInfo
	isDir   bool
	pos     int64
}

// New creates an engine with the given connection defaults.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &Engine{
		cfg:     cfg,
		ctxs:    make(map[smbc.ContextID]*engineCtx),
		handles: make(map[smbc.HandleID]*engineHandle),
	}, nil
}

// Close shuts down every pool the engine created.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ec := range e.ctxs {
		for _, p := range ec.pools {
			p.Close()
		}
	}
	e.ctxs = make(map[smbc.ContextID]*engineCtx)
	e.handles = make(map[smbc.HandleID]*engineHandle)
	return nil
}

func (e *Engine) ctxLocked(id smbc.ContextID) (*engineCtx, error) {
	ec, ok := e.ctxs[id]
	if !ok {
		return nil, syscall.EBADF
	}
	return ec, nil
}

func (e *Engine) handleFor(ctx smbc.ContextID, id smbc.HandleID, wantDir bool) (*engineHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.handles[id]
	if !ok || h.ctx != ctx || h.isDir != wantDir {
		return nil, syscall.EBADF
	}
	return h, nil
}

func (e *Engine) boolOpt(ec *engineCtx, opt smbc.Option, fallback bool) bool {
	if v, ok := ec.opts[opt]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

// credentials resolves the triple used to dial a share, in priority
// order: URL-inline, the context's auth callback, engine defaults.
func (e *Engine) credentials(ec *engineCtx, res Resource) (domain, username, password string, err error) {
	domain, username, password = e.cfg.Domain, e.cfg.Username, e.cfg.Password
	if res.Domain != "" {
		domain = res.Domain
	}

	if ec.auth != nil && res.Username == "" {
		wg, _ := smbc.NewBoundedBuffer(domain, 256)
		user, _ := smbc.NewBoundedBuffer(username, 256)
		pass, _ := smbc.NewBoundedBuffer(password, 256)
		ec.auth(res.Server, res.Share, wg, user, pass)
		domain, username, password = wg.String(), user.String(), pass.String()
	}
	if res.Username != "" {
		username, password = res.Username, res.Password
	}

	if e.boolOpt(ec, smbc.OptUseKerberos, e.cfg.UseKerberos) && username == "" {
		principal, realm, kerr := kerberosIdentity(e.cfg.CcachePath)
		if kerr != nil {
			return "", "", "", kerr
		}
		username = principal
		if domain == "" {
			domain = realm
		}
	}
	return domain, username, password, nil
}

func (e *Engine) poolFor(ctx smbc.ContextID, res Resource) (*connectionPool, error) {
	e.mu.Lock()
	ec, err := e.ctxLocked(ctx)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if p, ok := ec.pools[res.key()]; ok {
		e.mu.Unlock()
		return p, nil
	}
	e.mu.Unlock()

	domain, username, password, err := e.credentials(ec, res)
	if err != nil {
		return nil, err
	}

	di := dialInfo{
		addr:     res.Server + ":" + strconv.Itoa(res.Port),
		share:    res.Share,
		domain:   domain,
		username: username,
		password: password,
	}
	if e.boolOpt(ec, smbc.OptUseNTHash, e.cfg.UseNTHash) {
		hash, err := decodeNTHash(password)
		if err != nil {
			return nil, err
		}
		di.ntHash = hash
		di.password = ""
	}

	p := newConnectionPool(&e.cfg, di)

	e.mu.Lock()
	defer e.mu.Unlock()
	// Lost a race with a concurrent dial for the same share.
	if existing, ok := ec.pools[res.key()]; ok {
		go p.Close()
		return existing, nil
	}
	ec.pools[res.key()] = p
	return p, nil
}

// withShare runs fn against a pooled connection to the resource's
// share, returning the connection afterwards.
func (e *Engine) withShare(ctx smbc.ContextID, name string, fn func(res Resource, share *smb2.Share) error) error {
	res, err := ParseResource(name)
	if err != nil {
		return err
	}
	pool, err := e.poolFor(ctx, res)
	if err != nil {
		return err
	}
	conn, err := pool.get(context.Background())
	if err != nil {
		return err
	}
	defer pool.put(conn)
	return fn(res, conn.share)
}

func statFromFileInfo(fi os.FileInfo) smbc.RawStat {
	mode := uint32(fi.Mode().Perm())
	if fi.IsDir() {
		mode |= posixModeDir
	} else {
		mode |= posixModeRegular
	}
	mtime := fi.ModTime()
	ts := smbc.RawTimespec{Sec: mtime.Unix(), Nsec: int64(mtime.Nanosecond())}
	return smbc.RawStat{
		Ino:     1,
		Mode:    mode,
		Nlink:   1,
		Size:    fi.Size(),
		Blksize: 512,
		Blocks:  (fi.Size() + 511) / 512,
		Atim:    ts,
		Mtim:    ts,
		Ctim:    ts,
	}
}

func direntFromFileInfo(fi os.FileInfo) smbc.Dirent {
	typ := smbc.EntryFile
	if fi.IsDir() {
		typ = smbc.EntryDir
	}
	return smbc.Dirent{Type: typ, Name: fi.Name()}
}

// Table returns the call table backed by this engine.
func (e *Engine) Table() *smbc.CallTable {
	return &smbc.CallTable{
		NewContext: func() (smbc.ContextID, error) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.nextCtx++
			e.ctxs[e.nextCtx] = &engineCtx{
				opts:  make(map[smbc.Option]interface{}),
				pools: make(map[string]*connectionPool),
			}
			return e.nextCtx, nil
		},
		InitContext: func(ctx smbc.ContextID) error {
			e.mu.Lock()
			defer e.mu.Unlock()
			_, err := e.ctxLocked(ctx)
			return err
		},
		FreeContext: func(ctx smbc.ContextID, shutdown bool) error {
			e.mu.Lock()
			defer e.mu.Unlock()
			ec, err := e.ctxLocked(ctx)
			if err != nil {
				return err
			}
			for id, h := range e.handles {
				if h.ctx == ctx {
					e.release(h)
					delete(e.handles, id)
				}
			}
			for _, p := range ec.pools {
				p.Close()
			}
			delete(e.ctxs, ctx)
			return nil
		},

		Open: func(ctx smbc.ContextID, name string, flags int, mode uint32) (smbc.HandleID, error) {
			return e.open(ctx, name, flags, mode)
		},
		Creat: func(ctx smbc.ContextID, name string, mode uint32) (smbc.HandleID, error) {
			return e.open(ctx, name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode)
		},
		Read:      e.read,
		Write:     e.write,
		Splice:    e.splice,
		Lseek:     e.lseek,
		Ftruncate: e.ftruncate,
		Fstat:     e.fstat,
		FstatVFS: func(ctx smbc.ContextID, f smbc.HandleID) (smbc.StatVFS, error) {
			e.mu.Lock()
			h, ok := e.handles[f]
			e.mu.Unlock()
			if !ok || h.ctx != ctx {
				return smbc.StatVFS{}, syscall.EBADF
			}
			return e.statVFS(ctx, h.res)
		},
		Close: e.close,

		Unlink: func(ctx smbc.ContextID, name string) error {
			return e.withShare(ctx, name, func(res Resource, share *smb2.Share) error {
				return share.Remove(res.winPath())
			})
		},
		Rename: e.rename,
		Stat: func(ctx smbc.ContextID, name string) (smbc.RawStat, error) {
			var raw smbc.RawStat
			err := e.withShare(ctx, name, func(res Resource, share *smb2.Share) error {
				fi, err := share.Stat(res.winPath())
				if err != nil {
					return err
				}
				raw = statFromFileInfo(fi)
				return nil
			})
			return raw, err
		},
		StatVFS: func(ctx smbc.ContextID, name string) (smbc.StatVFS, error) {
			res, err := ParseResource(name)
			if err != nil {
				return smbc.StatVFS{}, err
			}
			return e.statVFS(ctx, res)
		},
		Mkdir: func(ctx smbc.ContextID, name string, mode uint32) error {
			return e.withShare(ctx, name, func(res Resource, share *smb2.Share) error {
				return share.Mkdir(res.winPath(), os.FileMode(mode))
			})
		},
		Rmdir: func(ctx smbc.ContextID, name string) error {
			return e.withShare(ctx, name, func(res Resource, share *smb2.Share) error {
				return share.Remove(res.winPath())
			})
		},
		Chmod: func(ctx smbc.ContextID, name string, mode uint32) error {
			return e.withShare(ctx, name, func(res Resource, share *smb2.Share) error {
				return share.Chmod(res.winPath(), os.FileMode(mode))
			})
		},
		Utimes: func(ctx smbc.ContextID, name string, atimeUsec, mtimeUsec int64) error {
			return e.withShare(ctx, name, func(res Resource, share *smb2.Share) error {
				return share.Chtimes(res.winPath(), time.UnixMicro(atimeUsec), time.UnixMicro(mtimeUsec))
			})
		},

		Opendir:     e.opendir,
		Closedir:    e.close,
		Readdir:     e.readdir,
		ReaddirPlus: e.readdirPlus,
		Getdents:    e.getdents,
		Telldir:     e.telldir,
		Lseekdir:    e.lseekdir,

		ApplyOption: func(ctx smbc.ContextID, opt smbc.Option, value interface{}) error {
			e.mu.Lock()
			defer e.mu.Unlock()
			ec, err := e.ctxLocked(ctx)
			if err != nil {
				return err
			}
			ec.opts[opt] = value
			return nil
		},
		SetAuthData: func(ctx smbc.ContextID, fn smbc.AuthDataFunc) {
			e.mu.Lock()
			defer e.mu.Unlock()
			if ec, ok := e.ctxs[ctx]; ok {
				ec.auth = fn
			}
		},
		Version: func() string { return "go-smb2/1.1" },
	}
}

func (e *Engine) open(ctx smbc.ContextID, name string, flags int, mode uint32) (smbc.HandleID, error) {
	res, err := ParseResource(name)
	if err != nil {
		return 0, err
	}
	pool, err := e.poolFor(ctx, res)
	if err != nil {
		return 0, err
	}
	conn, err := pool.get(context.Background())
	if err != nil {
		return 0, err
	}
	f, err := conn.share.OpenFile(res.winPath(), flags, os.FileMode(mode))
	if err != nil {
		pool.put(conn)
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextHandle++
	e.handles[e.nextHandle] = &engineHandle{
		ctx:  ctx,
		res:  res,
		pool: pool,
		conn: conn,
		file: f,
	}
	return e.nextHandle, nil
}

func (e *Engine) opendir(ctx smbc.ContextID, name string) (smbc.HandleID, error) {
	res, err := ParseResource(name)
	if err != nil {
		return 0, err
	}
	pool, err := e.poolFor(ctx, res)
	if err != nil {
		return 0, err
	}
	conn, err := pool.get(context.Background())
	if err != nil {
		return 0, err
	}
	dir, err := conn.share.OpenFile(res.winPath(), os.O_RDONLY, 0)
	if err != nil {
		pool.put(conn)
		return 0, err
	}
	entries, err := dir.Readdir(-1)
	if err != nil {
		dir.Close()
		pool.put(conn)
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextHandle++
	e.handles[e.nextHandle] = &engineHandle{
		ctx:     ctx,
		res:     res,
		pool:    pool,
		conn:    conn,
		file:    dir,
		entries: entries,
		isDir:   true,
	}
	return e.nextHandle, nil
}

func (e *Engine) read(ctx smbc.ContextID, f smbc.HandleID, p []byte) (int, error) {
	h, err := e.handleFor(ctx, f, false)
	if err != nil {
		return 0, err
	}
	n, err := h.file.Read(p)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

func (e *Engine) write(ctx smbc.ContextID, f smbc.HandleID, p []byte) (int, error) {
	h, err := e.handleFor(ctx, f, false)
	if err != nil {
		return 0, err
	}
	return h.file.Write(p)
}

func (e *Engine) splice(ctx smbc.ContextID, dst, src smbc.HandleID, count int64, progress func(remaining int64) bool) (int64, error) {
	hd, err := e.handleFor(ctx, dst, false)
	if err != nil {
		return 0, err
	}
	hs, err := e.handleFor(ctx, src, false)
	if err != nil {
		return 0, err
	}

	var copied int64
	buf := make([]byte, copyChunk)
	for copied < count {
		want := count - copied
		if want > copyChunk {
			want = copyChunk
		}
		n, rerr := hs.file.Read(buf[:want])
		if n > 0 {
			if _, werr := hd.file.Write(buf[:n]); werr != nil {
				return copied, werr
			}
			copied += int64(n)
		}
		if rerr == io.EOF || n == 0 {
			break
		}
		if rerr != nil {
			return copied, rerr
		}
		if progress != nil && !progress(count-copied) {
			break
		}
	}
	return copied, nil
}

func (e *Engine) lseek(ctx smbc.ContextID, f smbc.HandleID, offset int64, whence int) (int64, error) {
	h, err := e.handleFor(ctx, f, false)
	if err != nil {
		return 0, err
	}
	return h.file.Seek(offset, whence)
}

func (e *Engine) ftruncate(ctx smbc.ContextID, f smbc.HandleID, size int64) error {
	h, err := e.handleFor(ctx, f, false)
	if err != nil {
		return err
	}
	return h.file.Truncate(size)
}

func (e *Engine) fstat(ctx smbc.ContextID, f smbc.HandleID) (smbc.RawStat, error) {
	h, err := e.handleFor(ctx, f, false)
	if err != nil {
		return smbc.RawStat{}, err
	}
	fi, err := h.file.Stat()
	if err != nil {
		return smbc.RawStat{}, err
	}
	return statFromFileInfo(fi), nil
}

func (e *Engine) statVFS(ctx smbc.ContextID, res Resource) (smbc.StatVFS, error) {
	pool, err := e.poolFor(ctx, res)
	if err != nil {
		return smbc.StatVFS{}, err
	}
	conn, err := pool.get(context.Background())
	if err != nil {
		return smbc.StatVFS{}, err
	}
	defer pool.put(conn)

	fsinfo, err := conn.share.Statfs(res.winPath())
	if err != nil {
		return smbc.StatVFS{}, err
	}
	return smbc.StatVFS{
		BlockSize:    fsinfo.BlockSize(),
		FragmentSize: fsinfo.FragmentSize(),
		Blocks:       fsinfo.TotalBlockCount(),
		BlocksFree:   fsinfo.FreeBlockCount(),
		BlocksAvail:  fsinfo.AvailableBlockCount(),
		MaxNameLen:   255,
	}, nil
}

func (e *Engine) close(ctx smbc.ContextID, f smbc.HandleID) error {
	e.mu.Lock()
	h, ok := e.handles[f]
	if ok && h.ctx == ctx {
		delete(e.handles, f)
	}
	e.mu.Unlock()
	if !ok || h.ctx != ctx {
		return syscall.EBADF
	}
	return e.release(h)
}

// release closes the handle's file and returns its connection to the
// pool. It does not touch engine state, so callers may hold e.mu or not.
func (e *Engine) release(h *engineHandle) error {
	var err error
	if h.file != nil {
		err = h.file.Close()
	}
	h.pool.put(h.conn)
	return err
}

func (e *Engine) rename(octx smbc.ContextID, oldname string, nctx smbc.ContextID, newname string) error {
	ores, err := ParseResource(oldname)
	if err != nil {
		return err
	}
	nres, err := ParseResource(newname)
	if err != nil {
		return err
	}
	// Renames only work within one share.
	if ores.key() != nres.key() {
		return syscall.EXDEV
	}
	return e.withShare(octx, oldname, func(res Resource, share *smb2.Share) error {
		return share.Rename(res.winPath(), nres.winPath())
	})
}

func (e *Engine) readdir(ctx smbc.ContextID, d smbc.HandleID) (smbc.Dirent, error) {
	h, err := e.handleFor(ctx, d, true)
	if err != nil {
		return smbc.Dirent{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if h.pos >= int64(len(h.entries)) {
		return smbc.Dirent{}, io.EOF
	}
	ent := direntFromFileInfo(h.entries[h.pos])
	h.pos++
	return ent, nil
}

func (e *Engine) readdirPlus(ctx smbc.ContextID, d smbc.HandleID) (smbc.RawFileInfo, error) {
	h, err := e.handleFor(ctx, d, true)
	if err != nil {
		return smbc.RawFileInfo{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if h.pos >= int64(len(h.entries)) {
		return smbc.RawFileInfo{}, io.EOF
	}
	fi := h.entries[h.pos]
	h.pos++
	mtime := fi.ModTime()
	ts := smbc.RawTimespec{Sec: mtime.Unix(), Nsec: int64(mtime.Nanosecond())}
	return smbc.RawFileInfo{
		Size:       uint64(fi.Size()),
		BirthTime:  ts,
		ModTime:    ts,
		AccessTime: ts,
		ChangeTime: ts,
		Name:       fi.Name(),
	}, nil
}

func (e *Engine) getdents(ctx smbc.ContextID, d smbc.HandleID, buf []byte) (int, error) {
	h, err := e.handleFor(ctx, d, true)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var n int
	for h.pos < int64(len(h.entries)) {
		ent := direntFromFileInfo(h.entries[h.pos])
		encoded := smbc.AppendDirent(nil, ent)
		if n+len(encoded) > len(buf) {
			if n == 0 {
				return 0, syscall.ERANGE
			}
			break
		}
		n += copy(buf[n:], encoded)
		h.pos++
	}
	return n, nil
}

func (e *Engine) telldir(ctx smbc.ContextID, d smbc.HandleID) (int64, error) {
	h, err := e.handleFor(ctx, d, true)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return h.pos, nil
}

func (e *Engine) lseekdir(ctx smbc.ContextID, d smbc.HandleID, offset int64) error {
	h, err := e.handleFor(ctx, d, true)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if offset < 0 || offset > int64(len(h.entries)) {
		return syscall.EINVAL
	}
	h.pos = offset
	return nil
}
