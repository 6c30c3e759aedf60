// Package fileinfo decodes raw POSIX mode bits as reported by an SFTP server
// and renders them as a fixed width listing line.
package fileinfo

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/sftp"
)

const (
	modeTypeMask = 0xf000
	modeFifo     = 0x1000
	modeChar     = 0x2000
	modeDir      = 0x4000
	modeBlock    = 0x6000
	modeRegular  = 0x8000
	modeSymlink  = 0xa000
	modeSocket   = 0xc000

	modeSetUID = 04000
	modeSetGID = 02000
	modeSticky = 01000

	modeUserR  = 00400
	modeUserW  = 00200
	modeUserX  = 00100
	modeGroupR = 00040
	modeGroupW = 00020
	modeGroupX = 00010
	modeOtherR = 00004
	modeOtherW = 00002
	modeOtherX = 00001
)

// TimeLayout is the local date-time rendering used by String.
const TimeLayout = "2006-01-02T15:04:05"

type FileType int

const (
	TypeUnknown FileType = iota
	TypeFifo
	TypeCharDevice
	TypeDirectory
	TypeBlockDevice
	TypeRegular
	TypeSymlink
	TypeSocket
)

func (ft FileType) String() string {
	switch ft {
	case TypeFifo:
		return "fifo"
	case TypeCharDevice:
		return "char-device"
	case TypeDirectory:
		return "directory"
	case TypeBlockDevice:
		return "block-device"
	case TypeRegular:
		return "regular"
	case TypeSymlink:
		return "symlink"
	case TypeSocket:
		return "socket"
	default:
		return "unknown"
	}
}

// FileInfo is an immutable directory entry.
type FileInfo struct {
	name  string
	size  int64
	mode  uint32
	uid   uint32
	gid   uint32
	mtime time.Time
}

func New(name string, size int64, mode, uid, gid uint32, mtime time.Time) *FileInfo {
	if size < 0 {
		size = 0
	}
	return &FileInfo{
		name:  name,
		size:  size,
		mode:  mode,
		uid:   uid,
		gid:   gid,
		mtime: mtime,
	}
}

// FromFileInfo builds a FileInfo from a listing entry. Raw attributes are
// taken from *sftp.FileStat when present.
func FromFileInfo(fi os.FileInfo) *FileInfo {
	if st, ok := fi.Sys().(*sftp.FileStat); ok {
		return New(fi.Name(), int64(st.Size), st.Mode, st.UID, st.GID, time.Unix(int64(st.Mtime), 0))
	}
	return New(fi.Name(), fi.Size(), posixMode(fi.Mode()), 0, 0, fi.ModTime())
}

// posixMode converts a Go file mode back into POSIX st_mode bits.
func posixMode(m os.FileMode) uint32 {
	bits := uint32(m.Perm())
	switch {
	case m&os.ModeDir != 0:
		bits |= modeDir
	case m&os.ModeSymlink != 0:
		bits |= modeSymlink
	case m&os.ModeNamedPipe != 0:
		bits |= modeFifo
	case m&os.ModeSocket != 0:
		bits |= modeSocket
	case m&os.ModeCharDevice != 0:
		bits |= modeChar
	case m&os.ModeDevice != 0:
		bits |= modeBlock
	default:
		bits |= modeRegular
	}
	if m&os.ModeSetuid != 0 {
		bits |= modeSetUID
	}
	if m&os.ModeSetgid != 0 {
		bits |= modeSetGID
	}
	if m&os.ModeSticky != 0 {
		bits |= modeSticky
	}
	return bits
}

func (fi *FileInfo) Name() string        { return fi.name }
func (fi *FileInfo) Size() int64         { return fi.size }
func (fi *FileInfo) Mode() uint32        { return fi.mode }
func (fi *FileInfo) UID() uint32         { return fi.uid }
func (fi *FileInfo) GID() uint32         { return fi.gid }
func (fi *FileInfo) ModTime() time.Time  { return fi.mtime }
func (fi *FileInfo) IsRegular() bool     { return fi.mode&modeTypeMask == modeRegular }
func (fi *FileInfo) IsDir() bool         { return fi.mode&modeTypeMask == modeDir }
func (fi *FileInfo) IsCharDevice() bool  { return fi.mode&modeTypeMask == modeChar }
func (fi *FileInfo) IsBlockDevice() bool { return fi.mode&modeTypeMask == modeBlock }
func (fi *FileInfo) IsFifo() bool        { return fi.mode&modeTypeMask == modeFifo }
func (fi *FileInfo) IsSymlink() bool     { return fi.mode&modeTypeMask == modeSymlink }
func (fi *FileInfo) IsSocket() bool      { return fi.mode&modeTypeMask == modeSocket }
func (fi *FileInfo) IsSticky() bool      { return fi.mode&modeSticky != 0 }

// Type decodes the high nibble of the mode bits. Combinations outside the
// known set are reported as TypeUnknown and not rejected.
func (fi *FileInfo) Type() FileType {
	switch fi.mode & modeTypeMask {
	case modeFifo:
		return TypeFifo
	case modeChar:
		return TypeCharDevice
	case modeDir:
		return TypeDirectory
	case modeBlock:
		return TypeBlockDevice
	case modeRegular:
		return TypeRegular
	case modeSymlink:
		return TypeSymlink
	case modeSocket:
		return TypeSocket
	default:
		return TypeUnknown
	}
}

// Permissions renders the 10 character ls style mode string.
//
// Set-uid and set-gid show as 's' in the execute slot whatever the execute
// bit says. The sticky bit is not rendered in the others execute slot, to
// stay byte compatible with existing listings; use IsSticky to inspect it.
func (fi *FileInfo) Permissions() string {
	b := make([]byte, 10)

	switch {
	case fi.IsDir():
		b[0] = 'd'
	case fi.IsSymlink():
		b[0] = 'l'
	default:
		b[0] = '-'
	}

	b[1] = fi.flag(modeUserR, 'r')
	b[2] = fi.flag(modeUserW, 'w')
	b[3] = fi.special(modeSetUID, modeUserX)

	b[4] = fi.flag(modeGroupR, 'r')
	b[5] = fi.flag(modeGroupW, 'w')
	b[6] = fi.special(modeSetGID, modeGroupX)

	b[7] = fi.flag(modeOtherR, 'r')
	b[8] = fi.flag(modeOtherW, 'w')
	b[9] = fi.flag(modeOtherX, 'x')

	return string(b)
}

func (fi *FileInfo) flag(bit uint32, c byte) byte {
	if fi.mode&bit != 0 {
		return c
	}
	return '-'
}

func (fi *FileInfo) special(specialBit, execBit uint32) byte {
	if fi.mode&specialBit != 0 {
		return 's'
	}
	return fi.flag(execBit, 'x')
}

// String renders permissions, uid, gid, size, local modification time and name.
func (fi *FileInfo) String() string {
	return fmt.Sprintf("%s %5d %5d %12d %s %s",
		fi.Permissions(),
		fi.uid,
		fi.gid,
		fi.size,
		fi.mtime.Local().Format(TimeLayout),
		fi.name,
	)
}
