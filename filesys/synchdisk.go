package filesys

import (
	"fmt"
	"sync"

	"github.com/rstms/chainfs"
)

// SectorDevice reads and writes whole sectors by number.
type SectorDevice interface {
	ReadSector(sector int, buf []byte) error
	WriteSector(sector int, buf []byte) error
	NumSectors() int
}

// SynchDisk is a SectorDevice over a chainfs.BlockDevice. Physical I/O
// is serialized so concurrent callers never interleave a transfer.
type SynchDisk struct {
	sync.Mutex
	device     chainfs.BlockDevice
	numSectors int
}

var _ SectorDevice = (*SynchDisk)(nil)

func NewSynchDisk(device chainfs.BlockDevice) (*SynchDisk, error) {
	if device.SectorSize() != SectorSize {
		return nil, fmt.Errorf("device sector size %d, want %d", device.SectorSize(), SectorSize)
	}
	return &SynchDisk{
		device:     device,
		numSectors: int(device.Len() / SectorSize),
	}, nil
}

func (d *SynchDisk) NumSectors() int {
	return d.numSectors
}

func (d *SynchDisk) ReadSector(sector int, buf []byte) error {
	if err := d.check(sector, buf); err != nil {
		return err
	}
	d.Lock()
	defer d.Unlock()
	n, err := d.device.ReadAt(buf[:SectorSize], int64(sector)*SectorSize)
	switch {
	case err != nil:
		return err
	case n != SectorSize:
		return ErrReadFailed
	}
	return nil
}

func (d *SynchDisk) WriteSector(sector int, buf []byte) error {
	if err := d.check(sector, buf); err != nil {
		return err
	}
	d.Lock()
	defer d.Unlock()
	n, err := d.device.WriteAt(buf[:SectorSize], int64(sector)*SectorSize)
	switch {
	case err != nil:
		return err
	case n != SectorSize:
		return ErrWriteFailed
	}
	return nil
}

func (d *SynchDisk) check(sector int, buf []byte) error {
	if sector < 0 || sector >= d.numSectors {
		return fmt.Errorf("sector %d outside disk of %d sectors: %w", sector, d.numSectors, ErrCorruptedState)
	}
	if len(buf) < SectorSize {
		return fmt.Errorf("buffer of %d bytes: %w", len(buf), ErrBoundsExceeded)
	}
	return nil
}
