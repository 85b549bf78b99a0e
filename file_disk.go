package chainfs

import (
	"errors"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

const DefaultSectorSize = 128

// ErrDiskLocked is returned when another process holds the image lock.
var ErrDiskLocked = errors.New("disk image is locked by another process")

// FileDisk is a BlockDevice backed by a file. When the file is a host
// file it is locked exclusively for the lifetime of the FileDisk.
type FileDisk struct {
	f          afero.File
	size       int64
	sectorSize int
	locked     bool
}

// NewFileDisk creates a new FileDisk using the given file as the backing
// store. The file must already be sized to the whole disk.
func NewFileDisk(f afero.File) (*FileDisk, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	d := &FileDisk{
		f:          f,
		size:       fi.Size(),
		sectorSize: DefaultSectorSize,
	}

	if osf, ok := f.(*os.File); ok {
		err := unix.Flock(int(osf.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err != nil {
			if errors.Is(err, unix.EWOULDBLOCK) {
				return nil, ErrDiskLocked
			}
			return nil, err
		}
		d.locked = true
	}

	return d, nil
}

// Close releases the image lock and syncs the backing file. The file
// itself is owned by the caller and is left open.
func (d *FileDisk) Close() error {
	err := d.f.Sync()
	if d.locked {
		if osf, ok := d.f.(*os.File); ok {
			unix.Flock(int(osf.Fd()), unix.LOCK_UN)
		}
		d.locked = false
	}
	return err
}

func (d *FileDisk) Len() int64 {
	return d.size
}

func (d *FileDisk) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

func (d *FileDisk) SectorSize() int {
	return d.sectorSize
}

func (d *FileDisk) WriteAt(p []byte, off int64) (int, error) {
	return d.f.WriteAt(p, off)
}
