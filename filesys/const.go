package filesys

import "github.com/rstms/chainfs"

// Disk geometry and on-disk record layout. Every value here is part of
// the image format.
const (
	SectorSize = chainfs.DefaultSectorSize
	NumSectors = 1024

	// NoSector marks an absent sector reference.
	NoSector = -1

	FreeMapSector       = 0
	RootDirectorySector = 1
)

// File header layout: three int32 fields followed by the direct sector
// table, sized so one header fills exactly one sector.
const (
	headerFields = 3
	NumDirect    = (SectorSize - headerFields*4) / 4
	MaxFileSize  = NumDirect * SectorSize
)

// Directory entry layout.
const (
	FileNameMaxLen     = 9
	DirectoryEntrySize = 20
	entryNameOffset    = 8

	// NumDirEntries is the capacity of every directory on the disk. Nested
	// directories are always loaded with this capacity.
	NumDirEntries     = 64
	DirectoryFileSize = NumDirEntries * DirectoryEntrySize
)

// Limits on recursion over corrupted or hostile structures.
const (
	MaxPathLen     = 255
	MaxDirDepth    = 32
	MaxChainLength = 64
)

func divRoundUp(n, s int) int {
	return (n + s - 1) / s
}
