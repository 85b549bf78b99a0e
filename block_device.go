package chainfs

// A BlockDevice is the raw storage a file system lives on. Reads and
// writes are addressed in bytes but callers are expected to transfer
// whole sectors.
type BlockDevice interface {
	// Len returns the number of bytes on the device.
	Len() int64

	// SectorSize returns the sector size of the device in bytes.
	SectorSize() int

	ReadAt(p []byte, off int64) (n int, err error)
	WriteAt(p []byte, off int64) (n int, err error)
}
