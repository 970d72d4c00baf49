package smbc

import "time"

// ContextID is the opaque identifier the protocol engine assigns to a
// context. It is not a kernel file descriptor; engines may reuse values
// after a context is freed.
type ContextID uint64

// HandleID is the opaque identifier the protocol engine assigns to an
// open file, directory or print job. Engines may reuse values after the
// resource is closed.
type HandleID uint64

// Whence values for File.Seek, matching io.Seek* semantics.
const (
	SeekStart   = 0
	SeekCurrent = 1
	SeekEnd     = 2
)

// EntryType identifies what a directory entry refers to.
type EntryType uint32

const (
	EntryWorkgroup    EntryType = 1
	EntryServer       EntryType = 2
	EntryFileShare    EntryType = 3
	EntryPrinterShare EntryType = 4
	EntryCommsShare   EntryType = 5
	EntryIPCShare     EntryType = 6
	EntryDir          EntryType = 7
	EntryFile         EntryType = 8
	EntryLink         EntryType = 9
)

// DOS attribute flags carried by extended directory entries.
const (
	DOSModeReadonly  = 0x01
	DOSModeHidden    = 0x02
	DOSModeSystem    = 0x04
	DOSModeVolumeID  = 0x08
	DOSModeDirectory = 0x10
	DOSModeArchive   = 0x20
)

// Xattr flags for Context.SetXattr.
const (
	XattrFlagCreate  = 0x1
	XattrFlagReplace = 0x2
)

// NotifyFilter selects which change classes a directory notify reports.
type NotifyFilter uint32

const (
	NotifyChangeFileName   NotifyFilter = 0x001
	NotifyChangeDirName    NotifyFilter = 0x002
	NotifyChangeAttributes NotifyFilter = 0x004
	NotifyChangeSize       NotifyFilter = 0x008
	NotifyChangeLastWrite  NotifyFilter = 0x010
	NotifyChangeLastAccess NotifyFilter = 0x020
	NotifyChangeCreation   NotifyFilter = 0x040
	NotifyChangeEA         NotifyFilter = 0x080
	NotifyChangeSecurity   NotifyFilter = 0x100
	NotifyChangeStreamName NotifyFilter = 0x200
	NotifyChangeStreamSize NotifyFilter = 0x400

	// NotifyChangeAll enables every change class.
	NotifyChangeAll NotifyFilter = 0x7ff
)

// NotifyActionKind is the kind of one change notification.
type NotifyActionKind uint32

const (
	ActionAdded          NotifyActionKind = 1
	ActionRemoved        NotifyActionKind = 2
	ActionModified       NotifyActionKind = 3
	ActionRenamedOldName NotifyActionKind = 4
	ActionRenamedNewName NotifyActionKind = 5
	ActionAddedStream    NotifyActionKind = 6
	ActionRemovedStream  NotifyActionKind = 7
	ActionModifiedStream NotifyActionKind = 8
)

// NotifyAction is one filesystem change event delivered by the notify
// primitive.
type NotifyAction struct {
	Action   NotifyActionKind
	Filename string
}

// ShareMode controls how opens on the same resource interact.
type ShareMode uint32

const (
	ShareModeDenyDOS   ShareMode = 0
	ShareModeDenyAll   ShareMode = 1
	ShareModeDenyWrite ShareMode = 2
	ShareModeDenyRead  ShareMode = 3
	ShareModeDenyNone  ShareMode = 4
	ShareModeDenyFCB   ShareMode = 7
)

// EncryptLevel controls transport encryption negotiation.
type EncryptLevel uint32

const (
	EncryptLevelNone    EncryptLevel = 0
	EncryptLevelRequest EncryptLevel = 1
	EncryptLevelRequire EncryptLevel = 2
)

// Option names a configurable context property forwarded to the engine
// through CallTable.ApplyOption.
type Option int

const (
	OptDebug Option = iota + 1
	OptNetbiosName
	OptWorkgroup
	OptUser
	OptTimeout
	OptPort
	OptDebugToStderr
	OptFullTimeNames
	OptOpenShareMode
	OptEncryptLevel
	OptCaseSensitive
	OptBrowseMaxLmbCount
	OptURLEncodeReaddirEntries
	OptOneSharePerServer
	OptUseKerberos
	OptFallbackAfterKerberos
	OptNoAutoAnonymousLogin
	OptUseCCache
	OptUseNTHash
)

// AuthDataFunc is the credential-resolution callback an engine invokes
// while connecting. The workgroup, username and password buffers arrive
// pre-populated with the engine's current values; the callback may
// overwrite them, subject to each buffer's capacity.
type AuthDataFunc func(server, share string, workgroup, username, password *BoundedBuffer)

// CallTable is the per-context table of protocol operations. Every slot
// is independently nullable; a Context reports ErrNotSupported for
// operations whose slot is nil. Callers needing custom behavior install
// their own functions into the relevant slots before creating contexts.
//
// A table is accessed from at most one goroutine at a time per context:
// the calling goroutine in synchronous mode, or the context's single
// dispatch worker in asynchronous mode.
type CallTable struct {
	// Context lifecycle.
	NewContext  func() (ContextID, error)
	InitContext func(ctx ContextID) error
	FreeContext func(ctx ContextID, shutdown bool) error

	// File operations.
	Open      func(ctx ContextID, name string, flags int, mode uint32) (HandleID, error)
	Creat     func(ctx ContextID, name string, mode uint32) (HandleID, error)
	Read      func(ctx ContextID, f HandleID, p []byte) (int, error)
	Write     func(ctx ContextID, f HandleID, p []byte) (int, error)
	Splice    func(ctx ContextID, dst, src HandleID, count int64, progress func(remaining int64) bool) (int64, error)
	Lseek     func(ctx ContextID, f HandleID, offset int64, whence int) (int64, error)
	Ftruncate func(ctx ContextID, f HandleID, size int64) error
	Fstat     func(ctx ContextID, f HandleID) (RawStat, error)
	FstatVFS  func(ctx ContextID, f HandleID) (StatVFS, error)
	Close     func(ctx ContextID, f HandleID) error

	// Path operations.
	Unlink  func(ctx ContextID, name string) error
	Rename  func(octx ContextID, oldname string, nctx ContextID, newname string) error
	Stat    func(ctx ContextID, name string) (RawStat, error)
	StatVFS func(ctx ContextID, name string) (StatVFS, error)
	Mkdir   func(ctx ContextID, name string, mode uint32) error
	Rmdir   func(ctx ContextID, name string) error
	Chmod   func(ctx ContextID, name string, mode uint32) error
	Utimes  func(ctx ContextID, name string, atimeUsec, mtimeUsec int64) error

	// Directory operations. Getdents fills buf with wire-format entries
	// (see DecodeDirents) and returns the number of bytes written; zero
	// means the cursor is at the end.
	Opendir     func(ctx ContextID, name string) (HandleID, error)
	Closedir    func(ctx ContextID, d HandleID) error
	Readdir     func(ctx ContextID, d HandleID) (Dirent, error)
	ReaddirPlus func(ctx ContextID, d HandleID) (RawFileInfo, error)
	Getdents    func(ctx ContextID, d HandleID, buf []byte) (int, error)
	Telldir     func(ctx ContextID, d HandleID) (int64, error)
	Lseekdir    func(ctx ContextID, d HandleID, offset int64) error

	// Extended attributes. Getxattr and Listxattr follow the size-probe
	// protocol: called with an empty buffer they return the required
	// size; called with a buffer they fill it and return the length used.
	Setxattr    func(ctx ContextID, name, attr string, value []byte, flags int) error
	Getxattr    func(ctx ContextID, name, attr string, buf []byte) (int, error)
	Removexattr func(ctx ContextID, name, attr string) error
	Listxattr   func(ctx ContextID, name string, buf []byte) (int, error)

	// Printing.
	PrintFile      func(sctx ContextID, source string, pctx ContextID, printer string) error
	OpenPrintJob   func(ctx ContextID, name string) (HandleID, error)
	ListPrintJobs  func(ctx ContextID, name string, fn func(RawPrintJob)) error
	UnlinkPrintJob func(ctx ContextID, name string, id int) error

	// Notify blocks, invoking cb with each batch of change actions until
	// cb returns true. When no events are pending the engine still calls
	// cb with an empty batch at least every pollInterval, which is the
	// only point where the call can be stopped.
	Notify func(ctx ContextID, d HandleID, recursive bool, filter NotifyFilter, pollInterval time.Duration, cb func(actions []NotifyAction) bool) error

	// Configuration plumbing.
	ApplyOption func(ctx ContextID, opt Option, value interface{}) error
	SetAuthData func(ctx ContextID, fn AuthDataFunc)

	// Version identifies the engine, e.g. "go-smb2/1.1".
	Version func() string
}
