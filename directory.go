package chainfs

import "io"

// EntryKind distinguishes files from subdirectories in a directory table.
type EntryKind bool

const (
	KindFile      EntryKind = false
	KindDirectory EntryKind = true
)

func (k EntryKind) String() string {
	if k == KindDirectory {
		return "[D]"
	}
	return "[F]"
}

// Directory is a fixed-capacity table mapping names to the sector holding
// each entry's file header.
type Directory interface {
	Capacity() int
	FindIndex(name string) int
	Find(name string) (int, error)
	FindPath(path string) (int, error)
	Add(name string, sector int, kind EntryKind) error
	Remove(name string) error
	Entries() []DirectoryEntry
	List(w io.Writer) error
	ListRecursive(w io.Writer, depth int) error
}

// DirectoryEntry is one in-use slot of a Directory.
type DirectoryEntry interface {
	Name() string
	DisplayName() string
	Sector() int
	IsDir() bool
	Kind() EntryKind
}
