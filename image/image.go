package image

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/rstms/chainfs"
	"github.com/rstms/chainfs/filesys"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// Verbose enables progress logging.
var Verbose bool

type FileRecord struct {
	Name   string
	Dir    bool
	Size   int
	Sector int
}

type Image struct {
	Filename string
	host     afero.Fs
	file     afero.File
	disk     *chainfs.FileDisk
	fs       *filesys.FileSystem
}

// OpenImage opens an existing image file on the host file system.
func OpenImage(filename string) (*Image, error) {
	return OpenImageFs(afero.NewOsFs(), filename)
}

// CreateImage creates and formats an image file of sectors sectors on the
// host file system, replacing any existing file.
func CreateImage(filename string, sectors int) (*Image, error) {
	return CreateImageFs(afero.NewOsFs(), filename, sectors)
}

func OpenImageFs(host afero.Fs, filename string) (*Image, error) {
	i := Image{Filename: filename, host: host}
	var err error
	i.file, err = host.OpenFile(filename, os.O_RDWR, 0600)
	if err != nil {
		return nil, Fatal(err)
	}
	i.disk, err = chainfs.NewFileDisk(i.file)
	if err != nil {
		i.closeFile()
		return nil, Fatal(err)
	}
	i.fs, err = filesys.New(i.disk)
	if err != nil {
		i.Close()
		return nil, Fatal(err)
	}
	return &i, nil
}

func CreateImageFs(host afero.Fs, filename string, sectors int) (*Image, error) {
	i := Image{Filename: filename, host: host}
	var err error
	err = i.createImageFile(int64(sectors) * filesys.SectorSize)
	if err != nil {
		return nil, Fatal(err)
	}
	i.disk, err = chainfs.NewFileDisk(i.file)
	if err != nil {
		i.closeFile()
		return nil, Fatal(err)
	}
	i.fs, err = filesys.Format(i.disk)
	if err != nil {
		i.Close()
		return nil, Fatal(err)
	}
	return &i, nil
}

func (i *Image) closeFile() error {
	if i.file != nil {
		err := i.file.Close()
		if err != nil {
			return Fatal(err)
		}
		i.file = nil
	}
	return nil
}

func (i *Image) closeDisk() error {
	if i.disk != nil {
		err := i.disk.Close()
		if err != nil {
			return Fatal(err)
		}
		i.disk = nil
	}
	return nil
}

func (i *Image) Close() error {
	return multierr.Combine(i.closeDisk(), i.closeFile())
}

// FileSystem returns the mounted file system.
func (i *Image) FileSystem() *filesys.FileSystem {
	return i.fs
}

func (i *Image) FreeSectors() int {
	return i.fs.FreeSectors()
}

func (i *Image) ScanFiles() ([]FileRecord, error) {
	records := []FileRecord{}
	err := i.fs.Walk(func(path string, entry *filesys.DirectoryEntry, length int) error {
		records = append(records, FileRecord{
			Name:   path,
			Dir:    entry.IsDir(),
			Size:   length,
			Sector: entry.Sector(),
		})
		return nil
	})
	if err != nil {
		return []FileRecord{}, Fatal(err)
	}
	return records, nil
}

// AddFile copies the host file srcPathname into the image at dstPathname.
func (i *Image) AddFile(dstPathname, srcPathname string) error {
	data, err := afero.ReadFile(i.host, srcPathname)
	if err != nil {
		return Fatal(err)
	}
	return i.WriteFile(dstPathname, data)
}

// WriteFile creates dstPathname in the image holding data.
func (i *Image) WriteFile(dstPathname string, data []byte) error {
	if Verbose {
		log.Printf("write %s: %d bytes\n", dstPathname, len(data))
	}
	err := i.fs.Create(dstPathname, len(data))
	if err != nil {
		return Fatal(err)
	}
	dst, err := i.fs.Open(dstPathname)
	if err != nil {
		return Fatal(err)
	}
	defer dst.Close()
	count, err := dst.WriteAt(data, 0)
	if err != nil {
		return Fatal(err)
	}
	if count != len(data) {
		return Fatalf("write count mismatch; expected %d, wrote %d", len(data), count)
	}
	return nil
}

// ReadFile returns the whole content of a file in the image.
func (i *Image) ReadFile(pathname string) ([]byte, error) {
	src, err := i.fs.Open(pathname)
	if err != nil {
		return nil, Fatal(err)
	}
	defer src.Close()
	data := make([]byte, src.Length())
	count, err := src.ReadAt(data, 0)
	if err != nil && err != io.EOF {
		return nil, Fatal(err)
	}
	if count != len(data) {
		return nil, Fatalf("read count mismatch; expected %d, read %d", len(data), count)
	}
	return data, nil
}

// GetFile copies a file out of the image to the host file dstPathname.
func (i *Image) GetFile(dstPathname, srcPathname string) error {
	data, err := i.ReadFile(srcPathname)
	if err != nil {
		return Fatal(err)
	}
	err = afero.WriteFile(i.host, dstPathname, data, 0600)
	if err != nil {
		return Fatal(err)
	}
	return nil
}

// Cat writes the content of a file in the image to w.
func (i *Image) Cat(w io.Writer, pathname string) error {
	data, err := i.ReadFile(pathname)
	if err != nil {
		return Fatal(err)
	}
	_, err = w.Write(data)
	if err != nil {
		return Fatal(err)
	}
	return nil
}

func (i *Image) IsDir(name string) (bool, error) {
	root, err := i.fs.RootDir()
	if err != nil {
		return false, Fatal(err)
	}
	_, kind, err := root.Lookup(name)
	if err != nil {
		if Verbose {
			log.Printf("lookup %s: %v\n", name, err)
		}
		return false, nil
	}
	return kind == chainfs.KindDirectory, nil
}

func (i *Image) Mkdir(pathname string) error {
	exists, err := i.IsDir(pathname)
	if err != nil {
		return Fatal(err)
	}
	if exists {
		return Fatalf("directory exists: %s", pathname)
	}
	if Verbose {
		log.Printf("mkdir %s\n", pathname)
	}
	err = i.fs.Mkdir(pathname)
	if err != nil {
		return Fatal(err)
	}
	return nil
}

func (i *Image) Remove(pathname string, recursive bool) error {
	if Verbose {
		log.Printf("remove %s recursive=%v\n", pathname, recursive)
	}
	err := i.fs.Remove(pathname, recursive)
	if err != nil {
		return Fatal(err)
	}
	return nil
}

func (i *Image) List(w io.Writer, pathname string, recursive bool) error {
	err := i.fs.List(w, pathname, recursive)
	if err != nil {
		return Fatal(err)
	}
	return nil
}

func (i *Image) Print(w io.Writer) error {
	err := i.fs.Print(w)
	if err != nil {
		return Fatal(err)
	}
	return nil
}

// Import copies the host directory tree below hostDir into the image
// root.
func (i *Image) Import(hostDir string) error {
	err := afero.Walk(i.host, hostDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(hostDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		dst := "/" + filepath.ToSlash(rel)
		if info.IsDir() {
			return i.Mkdir(dst)
		}
		return i.AddFile(dst, path)
	})
	if err != nil {
		return Fatal(err)
	}
	return nil
}

// create, truncate, and reopen the output file
func (i *Image) createImageFile(size int64) error {
	err := i.host.MkdirAll(filepath.Dir(i.Filename), 0700)
	if err != nil {
		return Fatal(err)
	}
	i.file, err = i.host.OpenFile(i.Filename, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0600)
	if err != nil {
		return Fatal(err)
	}
	err = i.file.Truncate(size)
	if err != nil {
		return Fatal(err)
	}
	return nil
}
