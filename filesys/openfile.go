package filesys

import (
	"fmt"
	"io"

	"github.com/rstms/chainfs"
)

// OpenFile is the content of a file, read and written through its header.
// It never changes the file's length.
type OpenFile struct {
	dev    SectorDevice
	sector int
	hdr    *FileHeader
	pos    int
}

var _ chainfs.File = (*OpenFile)(nil)

// OpenSector loads the header stored at sector and returns the file it
// describes.
func OpenSector(dev SectorDevice, sector int) (*OpenFile, error) {
	hdr := NewFileHeader()
	if err := hdr.FetchFrom(dev, sector); err != nil {
		return nil, err
	}
	return &OpenFile{dev: dev, sector: sector, hdr: hdr}, nil
}

func (f *OpenFile) Header() *FileHeader { return f.hdr }
func (f *OpenFile) Sector() int         { return f.sector }
func (f *OpenFile) Length() int         { return f.hdr.FileLength() }

// Close drops the in-memory header. Nothing is written.
func (f *OpenFile) Close() error {
	f.hdr = nil
	return nil
}

func (f *OpenFile) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, int64(f.pos))
	f.pos += n
	return n, err
}

func (f *OpenFile) Write(p []byte) (int, error) {
	n, err := f.WriteAt(p, int64(f.pos))
	f.pos += n
	return n, err
}

func (f *OpenFile) ReadAt(p []byte, off int64) (int, error) {
	length := f.Length()
	if off < 0 {
		return 0, fmt.Errorf("offset %d: %w", off, ErrBoundsExceeded)
	}
	if off >= int64(length) {
		return 0, io.EOF
	}
	want := len(p)
	if int64(want) > int64(length)-off {
		want = int(int64(length) - off)
	}

	buf := make([]byte, SectorSize)
	done := 0
	for done < want {
		pos := int(off) + done
		sector, err := f.hdr.ByteToSector(pos)
		if err != nil {
			return done, err
		}
		if err := f.dev.ReadSector(sector, buf); err != nil {
			return done, err
		}
		done += copy(p[done:want], buf[pos%SectorSize:])
	}
	if want < len(p) {
		return done, io.EOF
	}
	return done, nil
}

func (f *OpenFile) WriteAt(p []byte, off int64) (int, error) {
	length := f.Length()
	if off < 0 || off > int64(length) {
		return 0, fmt.Errorf("offset %d in file of %d bytes: %w", off, length, ErrBoundsExceeded)
	}
	want := len(p)
	if int64(want) > int64(length)-off {
		want = int(int64(length) - off)
	}

	buf := make([]byte, SectorSize)
	done := 0
	for done < want {
		pos := int(off) + done
		sector, err := f.hdr.ByteToSector(pos)
		if err != nil {
			return done, err
		}
		start := pos % SectorSize
		// partial sectors keep the bytes around the write
		if start != 0 || want-done < SectorSize {
			if err := f.dev.ReadSector(sector, buf); err != nil {
				return done, err
			}
		}
		n := copy(buf[start:], p[done:want])
		if err := f.dev.WriteSector(sector, buf); err != nil {
			return done, err
		}
		done += n
	}
	if want < len(p) {
		return done, io.ErrShortWrite
	}
	return done, nil
}
