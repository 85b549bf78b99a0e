package filesys

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/rstms/chainfs"
)

// Directory is a fixed-size table of entries, each naming a file or a
// subdirectory and the sector holding its header. The table is persisted
// as the content of an ordinary file; it never grows.
//
// Names are stored with their leading '/' marker, so the file "f1" in a
// directory is the entry "/f1".
type Directory struct {
	dev   SectorDevice
	table []DirectoryEntry
}

// ensure Directory implements chainfs.Directory
var _ chainfs.Directory = (*Directory)(nil)

// DirectoryEntry is one slot of a Directory table.
type DirectoryEntry struct {
	inUse  bool
	isDir  bool
	sector int
	name   string
}

// ensure DirectoryEntry implements chainfs.DirectoryEntry
var _ chainfs.DirectoryEntry = (*DirectoryEntry)(nil)

func (e *DirectoryEntry) Name() string { return e.name }
func (e *DirectoryEntry) Sector() int  { return e.sector }
func (e *DirectoryEntry) IsDir() bool  { return e.isDir }

func (e *DirectoryEntry) Kind() chainfs.EntryKind {
	return chainfs.EntryKind(e.isDir)
}

// DisplayName is the name without its leading marker byte.
func (e *DirectoryEntry) DisplayName() string {
	if len(e.name) == 0 {
		return e.name
	}
	return e.name[1:]
}

// NewDirectory returns an empty directory of size slots. dev is used to
// load subdirectories during path resolution and recursive listing.
func NewDirectory(dev SectorDevice, size int) *Directory {
	return &Directory{
		dev:   dev,
		table: make([]DirectoryEntry, size),
	}
}

func (d *Directory) Capacity() int {
	return len(d.table)
}

// FileSize is the number of bytes the table occupies when persisted.
func (d *Directory) FileSize() int {
	return len(d.table) * DirectoryEntrySize
}

// FetchFrom reads the table from the start of file.
func (d *Directory) FetchFrom(file io.ReaderAt) error {
	buf := make([]byte, d.FileSize())
	n, err := file.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("directory: read %d of %d bytes: %w", n, len(buf), ErrReadFailed)
	}
	for i := range d.table {
		d.table[i].decode(buf[i*DirectoryEntrySize : (i+1)*DirectoryEntrySize])
	}
	return nil
}

// WriteBack writes the table to the start of file.
func (d *Directory) WriteBack(file io.WriterAt) error {
	buf := make([]byte, d.FileSize())
	for i := range d.table {
		d.table[i].encode(buf[i*DirectoryEntrySize : (i+1)*DirectoryEntrySize])
	}
	n, err := file.WriteAt(buf, 0)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("directory: wrote %d of %d bytes: %w", n, len(buf), ErrWriteFailed)
	}
	return nil
}

// FindIndex returns the slot holding name, or -1.
func (d *Directory) FindIndex(name string) int {
	if len(name) > FileNameMaxLen {
		return -1
	}
	for i := range d.table {
		if d.table[i].inUse && d.table[i].name == name {
			return i
		}
	}
	return -1
}

// Find returns the header sector of name.
func (d *Directory) Find(name string) (int, error) {
	if len(name) > FileNameMaxLen {
		return NoSector, fmt.Errorf("name %q longer than %d bytes: %w", name, FileNameMaxLen, ErrBoundsExceeded)
	}
	i := d.FindIndex(name)
	if i == -1 {
		return NoSector, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return d.table[i].sector, nil
}

// Entry returns the in-use entry for name, or nil.
func (d *Directory) Entry(name string) *DirectoryEntry {
	i := d.FindIndex(name)
	if i == -1 {
		return nil
	}
	return &d.table[i]
}

// Add records name in the first free slot. name must carry its '/'
// marker and no NUL byte. It fails without changing the table if name is
// already present or every slot is in use.
func (d *Directory) Add(name string, sector int, kind chainfs.EntryKind) error {
	if len(name) < 2 || name[0] != '/' || strings.IndexByte(name, 0) != -1 {
		return fmt.Errorf("name %q: %w", name, ErrInvalidPath)
	}
	if len(name) > FileNameMaxLen {
		return fmt.Errorf("name %q longer than %d bytes: %w", name, FileNameMaxLen, ErrBoundsExceeded)
	}
	if d.FindIndex(name) != -1 {
		return fmt.Errorf("%s: %w", name, ErrDuplicateName)
	}
	for i := range d.table {
		if !d.table[i].inUse {
			d.table[i] = DirectoryEntry{
				inUse:  true,
				isDir:  bool(kind),
				sector: sector,
				name:   name,
			}
			return nil
		}
	}
	return fmt.Errorf("%s: %w", name, ErrDirectoryFull)
}

// Remove frees the slot holding name. The entry's header and data
// sectors are not touched.
func (d *Directory) Remove(name string) error {
	i := d.FindIndex(name)
	if i == -1 {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	d.table[i].inUse = false
	return nil
}

// Empty reports whether no slot is in use.
func (d *Directory) Empty() bool {
	for i := range d.table {
		if d.table[i].inUse {
			return false
		}
	}
	return true
}

func (d *Directory) Entries() []chainfs.DirectoryEntry {
	result := make([]chainfs.DirectoryEntry, 0, len(d.table))
	for i := range d.table {
		if d.table[i].inUse {
			result = append(result, &d.table[i])
		}
	}
	return result
}

// List writes the names at this level, one per line.
func (d *Directory) List(w io.Writer) error {
	for i := range d.table {
		if d.table[i].inUse {
			if _, err := fmt.Fprintln(w, d.table[i].DisplayName()); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListRecursive writes the tree below this directory in pre-order,
// indenting each level by depth. A directory at depth MaxDirDepth can
// hold no entries, so anything deeper is corrupt.
func (d *Directory) ListRecursive(w io.Writer, depth int) error {
	if depth > MaxDirDepth {
		return fmt.Errorf("directory depth %d: %w", depth, ErrBoundsExceeded)
	}
	for i := range d.table {
		entry := &d.table[i]
		if !entry.inUse {
			continue
		}
		_, err := fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("    ", depth), entry.Kind(), entry.DisplayName())
		if err != nil {
			return err
		}
		if entry.isDir {
			sub, err := d.openSubdirectory(entry.sector)
			if err != nil {
				return err
			}
			if err := sub.ListRecursive(w, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// FindPath resolves an absolute path one segment at a time, loading each
// intermediate directory from disk. "/" is the root directory.
func (d *Directory) FindPath(path string) (int, error) {
	sector, _, err := d.Lookup(path)
	return sector, err
}

// Lookup resolves path like FindPath and also reports the kind of entry
// found.
func (d *Directory) Lookup(path string) (int, chainfs.EntryKind, error) {
	if err := checkPath(path); err != nil {
		return NoSector, chainfs.KindFile, err
	}
	return d.lookup(path, RootDirectorySector)
}

// lookup resolves path relative to d, whose header is at self. The
// number of descents is bounded by the segment limit checkPath applies.
func (d *Directory) lookup(path string, self int) (int, chainfs.EntryKind, error) {
	if path == "/" {
		return self, chainfs.KindDirectory, nil
	}
	split := strings.IndexByte(path[1:], '/')
	if split == -1 {
		sector, err := d.Find(path)
		if err != nil {
			return NoSector, chainfs.KindFile, err
		}
		return sector, d.table[d.FindIndex(path)].Kind(), nil
	}
	rootPath, restPath := path[:split+1], path[split+1:]

	i := d.FindIndex(rootPath)
	if i == -1 {
		return NoSector, chainfs.KindFile, fmt.Errorf("%s: %w", rootPath, ErrNotFound)
	}
	if !d.table[i].isDir {
		return NoSector, chainfs.KindFile, fmt.Errorf("%s: %w", rootPath, ErrNotDirectory)
	}
	sub, err := d.openSubdirectory(d.table[i].sector)
	if err != nil {
		return NoSector, chainfs.KindFile, err
	}
	return sub.lookup(restPath, d.table[i].sector)
}

func (d *Directory) openSubdirectory(sector int) (*Directory, error) {
	if d.dev == nil {
		return nil, fmt.Errorf("directory has no sector device")
	}
	file, err := OpenSector(d.dev, sector)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	sub := NewDirectory(d.dev, NumDirEntries)
	if err := sub.FetchFrom(file); err != nil {
		return nil, err
	}
	return sub, nil
}

// Print writes each entry with its header and file contents.
func (d *Directory) Print(w io.Writer) error {
	fmt.Fprintf(w, "Directory contents:\n")
	for i := range d.table {
		entry := &d.table[i]
		if !entry.inUse {
			continue
		}
		fmt.Fprintf(w, "Name: %s, Sector: %d\n", entry.name, entry.sector)
		hdr := NewFileHeader()
		if err := hdr.FetchFrom(d.dev, entry.sector); err != nil {
			return err
		}
		if err := hdr.Print(w, d.dev); err != nil {
			return err
		}
	}
	fmt.Fprintln(w)
	return nil
}

func (e *DirectoryEntry) encode(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	if e.inUse {
		buf[0] = 1
	}
	if e.isDir {
		buf[1] = 1
	}
	binary.LittleEndian.PutUint32(buf[4:], uint32(int32(e.sector)))
	copy(buf[entryNameOffset:entryNameOffset+FileNameMaxLen], e.name)
}

func (e *DirectoryEntry) decode(buf []byte) {
	e.inUse = buf[0] != 0
	e.isDir = buf[1] != 0
	e.sector = int(int32(binary.LittleEndian.Uint32(buf[4:])))
	name := buf[entryNameOffset : entryNameOffset+FileNameMaxLen+1]
	if end := strings.IndexByte(string(name), 0); end != -1 {
		name = name[:end]
	}
	e.name = string(name)
}
