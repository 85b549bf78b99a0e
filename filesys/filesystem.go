package filesys

import (
	"fmt"
	"io"
	"sync"

	"github.com/rstms/chainfs"
)

// FileSystem implements chainfs.FileSystem on a block device. The free
// sector map lives in the file whose header is at FreeMapSector and the
// root directory in the file whose header is at RootDirectorySector.
//
// Every operation holds one lock, so callers never see a directory or
// the free map half updated.
type FileSystem struct {
	lock        sync.Mutex
	device      chainfs.BlockDevice
	disk        *SynchDisk
	freeMap     *Bitmap
	freeMapFile *OpenFile
	rootFile    *OpenFile
}

// ensure FileSystem implements chainfs.FileSystem
var _ chainfs.FileSystem = (*FileSystem)(nil)

// WalkFunc is called by Walk for every entry below the root. length is
// the file length for files and zero for directories.
type WalkFunc func(path string, entry *DirectoryEntry, length int) error

// Format writes an empty file system onto device and returns it mounted.
func Format(device chainfs.BlockDevice) (*FileSystem, error) {
	disk, err := NewSynchDisk(device)
	if err != nil {
		return nil, Fatal(err)
	}
	numSectors := disk.NumSectors()
	if numSectors < 64 || numSectors%8 != 0 {
		return nil, Fatalf("cannot format %d sectors: need a multiple of 8, at least 64", numSectors)
	}

	freeMap := NewBitmap(numSectors)
	freeMap.Mark(FreeMapSector)
	freeMap.Mark(RootDirectorySector)

	mapHdr := NewFileHeader()
	if err := mapHdr.Allocate(freeMap, freeMap.FileSize()); err != nil {
		return nil, Fatal(err)
	}
	dirHdr := NewFileHeader()
	if err := dirHdr.Allocate(freeMap, DirectoryFileSize); err != nil {
		return nil, Fatal(err)
	}
	if err := mapHdr.WriteBack(disk, FreeMapSector); err != nil {
		return nil, Fatal(err)
	}
	if err := dirHdr.WriteBack(disk, RootDirectorySector); err != nil {
		return nil, Fatal(err)
	}

	mapFile, err := OpenSector(disk, FreeMapSector)
	if err != nil {
		return nil, Fatal(err)
	}
	dirFile, err := OpenSector(disk, RootDirectorySector)
	if err != nil {
		return nil, Fatal(err)
	}
	if err := freeMap.WriteBack(mapFile); err != nil {
		return nil, Fatal(err)
	}
	if err := NewDirectory(disk, NumDirEntries).WriteBack(dirFile); err != nil {
		return nil, Fatal(err)
	}

	return New(device)
}

// New returns a FileSystem for a previously formatted device.
func New(device chainfs.BlockDevice) (*FileSystem, error) {
	disk, err := NewSynchDisk(device)
	if err != nil {
		return nil, Fatal(err)
	}
	mapFile, err := OpenSector(disk, FreeMapSector)
	if err != nil {
		return nil, Fatal(err)
	}
	freeMap := NewBitmap(disk.NumSectors())
	if err := freeMap.FetchFrom(mapFile); err != nil {
		return nil, Fatal(err)
	}
	rootFile, err := OpenSector(disk, RootDirectorySector)
	if err != nil {
		return nil, Fatal(err)
	}

	result := &FileSystem{
		device:      device,
		disk:        disk,
		freeMap:     freeMap,
		freeMapFile: mapFile,
		rootFile:    rootFile,
	}
	return result, nil
}

// Disk returns the sector device the file system is mounted on.
func (f *FileSystem) Disk() SectorDevice {
	return f.disk
}

func (f *FileSystem) FreeSectors() int {
	return f.freeMap.CountClear()
}

// RootDir loads the root directory.
func (f *FileSystem) RootDir() (*Directory, error) {
	dir := NewDirectory(f.disk, NumDirEntries)
	if err := dir.FetchFrom(f.rootFile); err != nil {
		return nil, Fatal(err)
	}
	return dir, nil
}

// loadDir resolves path to a directory and loads it along with the file
// holding it.
func (f *FileSystem) loadDir(path string) (*Directory, *OpenFile, error) {
	root, err := f.RootDir()
	if err != nil {
		return nil, nil, err
	}
	sector, kind, err := root.Lookup(path)
	if err != nil {
		return nil, nil, err
	}
	if kind != chainfs.KindDirectory {
		return nil, nil, fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}
	if sector == RootDirectorySector {
		return root, f.rootFile, nil
	}
	file, err := OpenSector(f.disk, sector)
	if err != nil {
		return nil, nil, err
	}
	dir := NewDirectory(f.disk, NumDirEntries)
	if err := dir.FetchFrom(file); err != nil {
		return nil, nil, err
	}
	return dir, file, nil
}

// Create makes a new file of size bytes at path.
func (f *FileSystem) Create(path string, size int) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	_, err := f.create(path, size, chainfs.KindFile)
	return err
}

// Mkdir makes a new, empty directory at path.
func (f *FileSystem) Mkdir(path string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	sector, err := f.create(path, DirectoryFileSize, chainfs.KindDirectory)
	if err != nil {
		return err
	}
	file, err := OpenSector(f.disk, sector)
	if err != nil {
		return Fatal(err)
	}
	return NewDirectory(f.disk, NumDirEntries).WriteBack(file)
}

func (f *FileSystem) create(path string, size int, kind chainfs.EntryKind) (int, error) {
	parent, name, err := Split(path)
	if err != nil {
		return NoSector, err
	}
	if len(name) < 2 {
		return NoSector, fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	if len(name) > FileNameMaxLen {
		return NoSector, fmt.Errorf("name %q longer than %d bytes: %w", name, FileNameMaxLen, ErrBoundsExceeded)
	}
	dir, dirFile, err := f.loadDir(parent)
	if err != nil {
		return NoSector, err
	}
	if dir.FindIndex(name) != -1 {
		return NoSector, fmt.Errorf("%s: %w", path, ErrDuplicateName)
	}

	sector := f.freeMap.FindAndSet()
	if sector == NoSector {
		return NoSector, fmt.Errorf("no sector for file header: %w", ErrDiskFull)
	}
	hdr := NewFileHeader()
	if err := hdr.Allocate(f.freeMap, size); err != nil {
		f.freeMap.Clear(sector)
		return NoSector, err
	}
	if err := dir.Add(name, sector, kind); err != nil {
		if derr := hdr.Deallocate(f.freeMap); derr != nil {
			return NoSector, Fatal(derr)
		}
		f.freeMap.Clear(sector)
		return NoSector, err
	}

	if err := hdr.WriteBack(f.disk, sector); err != nil {
		return NoSector, Fatal(err)
	}
	if err := dir.WriteBack(dirFile); err != nil {
		return NoSector, Fatal(err)
	}
	if err := f.freeMap.WriteBack(f.freeMapFile); err != nil {
		return NoSector, Fatal(err)
	}
	return sector, nil
}

// Open returns the file at path.
func (f *FileSystem) Open(path string) (chainfs.File, error) {
	file, err := f.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (f *FileSystem) OpenFile(path string) (*OpenFile, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	root, err := f.RootDir()
	if err != nil {
		return nil, err
	}
	sector, kind, err := root.Lookup(path)
	if err != nil {
		return nil, err
	}
	if kind == chainfs.KindDirectory {
		return nil, fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}
	return OpenSector(f.disk, sector)
}

// Remove deletes the file or directory at path and releases its sectors.
// A directory that still has entries is only removed when recursive is
// set, together with everything below it.
func (f *FileSystem) Remove(path string, recursive bool) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	parent, name, err := Split(path)
	if err != nil {
		return err
	}
	if path == "/" {
		return fmt.Errorf("cannot remove the root directory: %w", ErrInvalidPath)
	}
	dir, dirFile, err := f.loadDir(parent)
	if err != nil {
		return err
	}
	entry := dir.Entry(name)
	if entry == nil {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}

	// Collect every sector first so a failure part way leaves the free
	// map untouched.
	var sectors []int
	if entry.isDir {
		sub, _, err := f.loadDir(path)
		if err != nil {
			return err
		}
		if !sub.Empty() {
			if !recursive {
				return fmt.Errorf("%s: %w", path, ErrDirectoryNotEmpty)
			}
			if err := f.collectTree(sub, PathDepth(path), &sectors); err != nil {
				return err
			}
		}
	}
	if err := f.collect(entry.sector, &sectors); err != nil {
		return err
	}
	if err := f.release(sectors); err != nil {
		return err
	}
	if err := dir.Remove(name); err != nil {
		return err
	}

	if err := dir.WriteBack(dirFile); err != nil {
		return Fatal(err)
	}
	if err := f.freeMap.WriteBack(f.freeMapFile); err != nil {
		return Fatal(err)
	}
	return nil
}

// collectTree appends the sectors of everything below dir, which sits
// depth segments below the root.
func (f *FileSystem) collectTree(dir *Directory, depth int, sectors *[]int) error {
	if depth > MaxDirDepth {
		return fmt.Errorf("directory depth %d: %w", depth, ErrCorruptedState)
	}
	for i := range dir.table {
		entry := &dir.table[i]
		if !entry.inUse {
			continue
		}
		if entry.isDir {
			sub, err := dir.openSubdirectory(entry.sector)
			if err != nil {
				return err
			}
			if err := f.collectTree(sub, depth+1, sectors); err != nil {
				return err
			}
		}
		if err := f.collect(entry.sector, sectors); err != nil {
			return err
		}
	}
	return nil
}

// collect appends the header at sector, its continuation headers and its
// data sectors.
func (f *FileSystem) collect(sector int, sectors *[]int) error {
	hdr := NewFileHeader()
	if err := hdr.FetchFrom(f.disk, sector); err != nil {
		return err
	}
	*sectors = append(*sectors, hdr.DataSectors()...)
	*sectors = append(*sectors, hdr.HeaderSectors()...)
	*sectors = append(*sectors, sector)
	return nil
}

// release clears sectors in the free map. Nothing is cleared unless every
// sector is in use and owned once.
func (f *FileSystem) release(sectors []int) error {
	seen := make(map[int]bool, len(sectors))
	for _, sector := range sectors {
		if seen[sector] {
			return fmt.Errorf("sector %d owned twice: %w", sector, ErrCorruptedState)
		}
		seen[sector] = true
		if !f.freeMap.Test(sector) {
			return fmt.Errorf("sector %d already free: %w", sector, ErrCorruptedState)
		}
	}
	for _, sector := range sectors {
		f.freeMap.Clear(sector)
	}
	return nil
}

// List writes the directory at path, or the whole tree below it.
func (f *FileSystem) List(w io.Writer, path string, recursive bool) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	dir, _, err := f.loadDir(path)
	if err != nil {
		return err
	}
	if recursive {
		return dir.ListRecursive(w, 0)
	}
	return dir.List(w)
}

// Walk calls fn for every entry in the tree, parents before children.
// The tree is read under the lock and fn runs after it is released, so
// fn may call back into the file system.
func (f *FileSystem) Walk(fn WalkFunc) error {
	records, err := f.scan()
	if err != nil {
		return err
	}
	for i := range records {
		if err := fn(records[i].path, &records[i].entry, records[i].length); err != nil {
			return err
		}
	}
	return nil
}

type walkRecord struct {
	path   string
	entry  DirectoryEntry
	length int
}

func (f *FileSystem) scan() ([]walkRecord, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	root, err := f.RootDir()
	if err != nil {
		return nil, err
	}
	var records []walkRecord
	if err := f.walk("", root, &records, 0); err != nil {
		return nil, err
	}
	return records, nil
}

func (f *FileSystem) walk(prefix string, dir *Directory, records *[]walkRecord, depth int) error {
	if depth > MaxDirDepth {
		return fmt.Errorf("directory depth %d: %w", depth, ErrCorruptedState)
	}
	for i := range dir.table {
		entry := dir.table[i]
		if !entry.inUse {
			continue
		}
		path := prefix + entry.name
		if entry.isDir {
			*records = append(*records, walkRecord{path: path, entry: entry})
			sub, err := dir.openSubdirectory(entry.sector)
			if err != nil {
				return err
			}
			if err := f.walk(path, sub, records, depth+1); err != nil {
				return err
			}
			continue
		}
		hdr := NewFileHeader()
		if err := hdr.FetchFrom(f.disk, entry.sector); err != nil {
			return err
		}
		*records = append(*records, walkRecord{path: path, entry: entry, length: hdr.FileLength()})
	}
	return nil
}

// Print dumps the free map, the root directory, and every file in it.
func (f *FileSystem) Print(w io.Writer) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	fmt.Fprintf(w, "Bit map file header:\n")
	if err := f.freeMapFile.Header().Print(w, f.disk); err != nil {
		return err
	}
	fmt.Fprintf(w, "Directory file header:\n")
	if err := f.rootFile.Header().Print(w, f.disk); err != nil {
		return err
	}
	f.freeMap.Print(w)
	root, err := f.RootDir()
	if err != nil {
		return err
	}
	return root.Print(w)
}
