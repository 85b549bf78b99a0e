package chainfs

import "io"

// A FileSystem is the contract offered to the system call layer: files
// and directories addressed by absolute slash separated paths.
type FileSystem interface {
	Create(path string, size int) error
	Mkdir(path string) error
	Open(path string) (File, error)
	Remove(path string, recursive bool) error
	List(w io.Writer, path string, recursive bool) error
	FreeSectors() int
}

// A File is an open file. Writes never extend a file; its size is fixed
// when it is created.
type File interface {
	io.ReaderAt
	io.WriterAt
	Length() int
	Close() error
}
