package smbc

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"time"
)

// RawTimespec is a (seconds, nanoseconds) timestamp pair as carried by
// the engine's fixed-layout records.
type RawTimespec struct {
	Sec  int64
	Nsec int64
}

// Time converts the pair to a time.Time.
func (ts RawTimespec) Time() time.Time {
	return time.Unix(ts.Sec, ts.Nsec)
}

// RawStat is the fixed-layout stat record produced by the engine.
type RawStat struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint64
	UID     uint32
	GID     uint32
	Rdev    uint64
	Size    int64
	Blksize int64
	Blocks  int64
	Atim    RawTimespec
	Mtim    RawTimespec
	Ctim    RawTimespec
}

// Stat is the decoded form of RawStat with normalized timestamps.
type Stat struct {
	Dev        uint64
	Ino        uint64
	Mode       uint32
	Nlink      uint64
	UID        uint32
	GID        uint32
	Rdev       uint64
	Size       int64
	BlockSize  int64
	Blocks     int64
	AccessTime time.Time
	ModTime    time.Time
	ChangeTime time.Time
}

// POSIX file-type bits of Stat.Mode.
const (
	modeTypeMask = 0170000
	modeDir      = 0040000
	modeRegular  = 0100000
	modeSymlink  = 0120000
)

// IsDir reports whether the record describes a directory.
func (s Stat) IsDir() bool {
	return s.Mode&modeTypeMask == modeDir
}

// IsRegular reports whether the record describes a regular file.
func (s Stat) IsRegular() bool {
	return s.Mode&modeTypeMask == modeRegular
}

// FileMode converts the POSIX mode to an fs.FileMode.
func (s Stat) FileMode() fs.FileMode {
	mode := fs.FileMode(s.Mode & 0777)
	switch s.Mode & modeTypeMask {
	case modeDir:
		mode |= fs.ModeDir
	case modeSymlink:
		mode |= fs.ModeSymlink
	}
	return mode
}

func decodeStat(raw RawStat) Stat {
	return Stat{
		Dev:        raw.Dev,
		Ino:        raw.Ino,
		Mode:       raw.Mode,
		Nlink:      raw.Nlink,
		UID:        raw.UID,
		GID:        raw.GID,
		Rdev:       raw.Rdev,
		Size:       raw.Size,
		BlockSize:  raw.Blksize,
		Blocks:     raw.Blocks,
		AccessTime: raw.Atim.Time(),
		ModTime:    raw.Mtim.Time(),
		ChangeTime: raw.Ctim.Time(),
	}
}

// Mount flags for StatVFS.Flags.
const (
	VFSReadOnly    = 1
	VFSNoSuid      = 2
	VFSNoDev       = 4
	VFSNoExec      = 8
	VFSSynchronous = 16
	VFSMandLock    = 64
)

// StatVFS is the filesystem-level stat record. It is consumed as-is;
// there is nothing to normalize.
type StatVFS struct {
	BlockSize    uint64
	FragmentSize uint64
	Blocks       uint64
	BlocksFree   uint64
	BlocksAvail  uint64
	Files        uint64
	FilesFree    uint64
	FilesAvail   uint64
	FsID         uint64
	Flags        uint64
	MaxNameLen   uint64
}

// Dirent is one decoded directory entry. Entries are value types with no
// identity; each directory read produces fresh records.
type Dirent struct {
	Type    EntryType
	Comment string
	Name    string
}

// RawFileInfo is the fixed-layout extended directory entry produced by
// the engine's readdirplus operation.
type RawFileInfo struct {
	Size       uint64
	Attrs      uint16
	UID        uint32
	GID        uint32
	BirthTime  RawTimespec
	ModTime    RawTimespec
	AccessTime RawTimespec
	ChangeTime RawTimespec
	Name       string
	ShortName  string
}

// FileInfo is the decoded form of RawFileInfo.
type FileInfo struct {
	Size       int64
	Attrs      uint16
	UID        uint32
	GID        uint32
	BirthTime  time.Time
	ModTime    time.Time
	AccessTime time.Time
	ChangeTime time.Time
	Name       string
	ShortName  string
}

func decodeFileInfo(raw RawFileInfo) FileInfo {
	return FileInfo{
		Size:       int64(raw.Size),
		Attrs:      raw.Attrs,
		UID:        raw.UID,
		GID:        raw.GID,
		BirthTime:  raw.BirthTime.Time(),
		ModTime:    raw.ModTime.Time(),
		AccessTime: raw.AccessTime.Time(),
		ChangeTime: raw.ChangeTime.Time(),
		Name:       raw.Name,
		ShortName:  raw.ShortName,
	}
}

// RawPrintJob is the fixed-layout print-job record produced by the
// engine's list-print-jobs operation.
type RawPrintJob struct {
	ID       uint16
	Priority uint16
	Size     uint64
	User     string
	Name     string
	Time     int64 // seconds since the epoch
}

// PrintJobInfo is the decoded form of RawPrintJob.
type PrintJobInfo struct {
	ID         int
	Priority   int
	Size       int64
	User       string
	Name       string
	SubmitTime time.Time
}

func decodePrintJob(raw RawPrintJob) PrintJobInfo {
	return PrintJobInfo{
		ID:         int(raw.ID),
		Priority:   int(raw.Priority),
		Size:       int64(raw.Size),
		User:       raw.User,
		Name:       raw.Name,
		SubmitTime: time.Unix(raw.Time, 0),
	}
}

// Wire format for batched directory entries, as filled into the caller's
// buffer by CallTable.Getdents: a 16-byte little-endian header (entry
// type, total record length, comment length, name length) followed by
// the comment bytes and name bytes back to back. Records are packed with
// no padding; each record's declared total length locates the next one.
const direntHeaderSize = 16

// direntWireSize returns the encoded size of d.
func direntWireSize(d Dirent) int {
	return direntHeaderSize + len(d.Comment) + len(d.Name)
}

// AppendDirent appends the wire encoding of d to buf and returns the
// extended slice. Engines use it to fill Getdents buffers.
func AppendDirent(buf []byte, d Dirent) []byte {
	var hdr [direntHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(d.Type))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(direntWireSize(d)))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(d.Comment)))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(len(d.Name)))
	buf = append(buf, hdr[:]...)
	buf = append(buf, d.Comment...)
	buf = append(buf, d.Name...)
	return buf
}

// DecodeDirents decodes the wire-format entries packed into buf. It
// fails if a record's declared length is inconsistent with the buffer.
func DecodeDirents(buf []byte) ([]Dirent, error) {
	var out []Dirent
	for len(buf) > 0 {
		if len(buf) < direntHeaderSize {
			return nil, fmt.Errorf("dirent buffer truncated: %d bytes left", len(buf))
		}
		total := int(binary.LittleEndian.Uint32(buf[4:8]))
		commentLen := int(binary.LittleEndian.Uint32(buf[8:12]))
		nameLen := int(binary.LittleEndian.Uint32(buf[12:16]))
		if total != direntHeaderSize+commentLen+nameLen || total > len(buf) {
			return nil, fmt.Errorf("dirent record length %d inconsistent with buffer", total)
		}
		out = append(out, Dirent{
			Type:    EntryType(binary.LittleEndian.Uint32(buf[0:4])),
			Comment: string(buf[direntHeaderSize : direntHeaderSize+commentLen]),
			Name:    string(buf[direntHeaderSize+commentLen : total]),
		})
		buf = buf[total:]
	}
	return out, nil
}
