package filesys

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateName     = errors.New("name already exists")
	ErrDirectoryFull     = errors.New("directory full")
	ErrDiskFull          = errors.New("not enough free sectors")
	ErrCorruptedState    = errors.New("corrupted file system state")
	ErrBoundsExceeded    = errors.New("length exceeds fixed maximum")
	ErrNotDirectory      = errors.New("not a directory")
	ErrIsDirectory       = errors.New("is a directory")
	ErrDirectoryNotEmpty = errors.New("directory not empty")
	ErrInvalidPath       = errors.New("invalid path")
	ErrReadFailed        = errors.New("read failed")
	ErrWriteFailed       = errors.New("write failed")
)
