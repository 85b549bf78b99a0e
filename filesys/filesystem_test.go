package filesys

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rstms/chainfs"
	"github.com/stretchr/testify/require"
)

const formattedFree = NumSectors - 2 - NumSectors/8/SectorSize - DirectoryFileSize/SectorSize

func TestFileSystemImplementsFileSystem(t *testing.T) {
	var raw interface{}
	raw = new(FileSystem)
	if _, ok := raw.(chainfs.FileSystem); !ok {
		t.Fatal("FileSystem should be a FileSystem")
	}
}

func TestFileSystemFormat(t *testing.T) {
	fs, _ := newFileSystem(t)
	require.Equal(t, formattedFree, fs.FreeSectors())
	root, err := fs.RootDir()
	require.Nil(t, err)
	require.True(t, root.Empty())
	require.Equal(t, NumDirEntries, root.Capacity())
}

func TestFileSystemFormatTooSmall(t *testing.T) {
	_, err := Format(newDevice(t, 60))
	require.NotNil(t, err)
}

func TestFileSystemCreateOpen(t *testing.T) {
	fs, device := newFileSystem(t)
	require.Nil(t, fs.Create("/f", 5000))
	// header, two segments of data and one continuation header
	require.Equal(t, formattedFree-1-40-1, fs.FreeSectors())

	file, err := fs.Open("/f")
	require.Nil(t, err)
	require.Equal(t, 5000, file.Length())
	data := pattern(5000)
	_, err = file.WriteAt(data, 0)
	require.Nil(t, err)
	require.Nil(t, file.Close())

	mounted, err := New(device)
	require.Nil(t, err)
	require.Equal(t, fs.FreeSectors(), mounted.FreeSectors())
	file, err = mounted.Open("/f")
	require.Nil(t, err)
	got := make([]byte, 5000)
	_, err = file.ReadAt(got, 0)
	require.Nil(t, err)
	require.Equal(t, data, got)
}

func TestFileSystemCreateErrors(t *testing.T) {
	fs := buildTree(t)
	free := fs.FreeSectors()

	require.ErrorIs(t, fs.Create("/a", 10), ErrDuplicateName)
	require.ErrorIs(t, fs.Create("/x/f", 10), ErrNotFound)
	require.ErrorIs(t, fs.Create("/g/f", 10), ErrNotDirectory)
	require.ErrorIs(t, fs.Create("/waytoolongname", 10), ErrBoundsExceeded)
	require.ErrorIs(t, fs.Create("/", 10), ErrInvalidPath)
	require.ErrorIs(t, fs.Create("rel", 10), ErrInvalidPath)
	require.ErrorIs(t, fs.Create("/big", 200000), ErrDiskFull)
	require.Equal(t, free, fs.FreeSectors())
}

func TestFileSystemDirectoryFull(t *testing.T) {
	fs, _ := newFileSystem(t)
	names := "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789@#"
	require.Len(t, names, NumDirEntries)
	for _, c := range names {
		require.Nil(t, fs.Create("/"+string(c), 1))
	}
	free := fs.FreeSectors()
	require.ErrorIs(t, fs.Create("/full", 1), ErrDirectoryFull)
	require.Equal(t, free, fs.FreeSectors())
}

func TestFileSystemOpenErrors(t *testing.T) {
	fs := buildTree(t)
	_, err := fs.Open("/a")
	require.ErrorIs(t, err, ErrIsDirectory)
	_, err = fs.Open("/a/nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileSystemRemove(t *testing.T) {
	fs, _ := newFileSystem(t)
	require.Nil(t, fs.Create("/f", 5000))
	require.Nil(t, fs.Remove("/f", false))
	require.Equal(t, formattedFree, fs.FreeSectors())
	_, err := fs.Open("/f")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, fs.Remove("/f", false), ErrNotFound)
	require.ErrorIs(t, fs.Remove("/", true), ErrInvalidPath)
}

func TestFileSystemRemoveTree(t *testing.T) {
	fs := buildTree(t)
	require.ErrorIs(t, fs.Remove("/a", false), ErrDirectoryNotEmpty)

	require.Nil(t, fs.Remove("/a/b/f2", false))
	require.Nil(t, fs.Remove("/a/b", false))
	require.Nil(t, fs.Mkdir("/a/b"))
	require.Nil(t, fs.Create("/a/b/f2", 4000))

	require.Nil(t, fs.Remove("/a", true))
	require.Nil(t, fs.Remove("/g", false))
	require.Equal(t, formattedFree, fs.FreeSectors())

	root, err := fs.RootDir()
	require.Nil(t, err)
	require.True(t, root.Empty())
}

func TestFileSystemDeepestTree(t *testing.T) {
	fs, _ := newFileSystem(t)
	path := ""
	for i := 0; i < MaxDirDepth; i++ {
		path += "/d"
		require.Nil(t, fs.Mkdir(path))
	}
	leaf := strings.Repeat("/d", MaxDirDepth-1) + "/f"
	require.Nil(t, fs.Create(leaf, 100))
	require.ErrorIs(t, fs.Create(path+"/f", 100), ErrBoundsExceeded)

	file, err := fs.Open(leaf)
	require.Nil(t, err)
	require.Equal(t, 100, file.Length())

	var out bytes.Buffer
	require.Nil(t, fs.List(&out, "/", true))
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, MaxDirDepth+1)
	require.Equal(t, strings.Repeat("    ", MaxDirDepth-1)+"[F] f", lines[MaxDirDepth])

	count := 0
	require.Nil(t, fs.Walk(func(string, *DirectoryEntry, int) error {
		count++
		return nil
	}))
	require.Equal(t, MaxDirDepth+1, count)

	require.Nil(t, fs.Remove("/d", true))
	require.Equal(t, formattedFree, fs.FreeSectors())
}

// A recursive remove that hits a bad entry frees nothing.
func TestFileSystemRemoveTreeCorrupted(t *testing.T) {
	fs, _ := newFileSystem(t)
	require.Nil(t, fs.Mkdir("/t"))
	require.Nil(t, fs.Create("/t/f", 1000))
	require.Nil(t, fs.Create("/t/g", 100))

	f, err := fs.OpenFile("/t/f")
	require.Nil(t, err)
	owned := append(f.Header().DataSectors(), f.Sector())
	g, err := fs.OpenFile("/t/g")
	require.Nil(t, err)
	fs.freeMap.Clear(g.Header().DataSectors()[0])
	free := fs.FreeSectors()

	require.ErrorIs(t, fs.Remove("/t", true), ErrCorruptedState)
	require.Equal(t, free, fs.FreeSectors())
	for _, sector := range owned {
		require.True(t, fs.freeMap.Test(sector))
	}
	_, err = fs.Open("/t/f")
	require.Nil(t, err)

	require.Nil(t, fs.Create("/n", 1000))
	n, err := fs.OpenFile("/n")
	require.Nil(t, err)
	for _, sector := range append(n.Header().DataSectors(), n.Sector()) {
		require.NotContains(t, owned, sector)
	}
}

func TestFileSystemList(t *testing.T) {
	fs := buildTree(t)

	var out bytes.Buffer
	require.Nil(t, fs.List(&out, "/", false))
	require.Equal(t, "a\ng\n", out.String())

	out.Reset()
	require.Nil(t, fs.List(&out, "/a", true))
	require.Equal(t, "[F] f1\n[D] b\n    [F] f2\n", out.String())

	require.ErrorIs(t, fs.List(&out, "/g", false), ErrNotDirectory)
}

func TestFileSystemWalk(t *testing.T) {
	fs := buildTree(t)
	var paths []string
	var sizes []int
	err := fs.Walk(func(path string, entry *DirectoryEntry, length int) error {
		paths = append(paths, path)
		sizes = append(sizes, length)
		return nil
	})
	require.Nil(t, err)
	require.Equal(t, []string{"/a", "/a/f1", "/a/b", "/a/b/f2", "/g"}, paths)
	require.Equal(t, []int{0, 10, 0, 4000, 5}, sizes)

	err = fs.Walk(func(path string, entry *DirectoryEntry, length int) error {
		if entry.IsDir() {
			return nil
		}
		file, err := fs.Open(path)
		if err != nil {
			return err
		}
		require.Equal(t, length, file.Length())
		return file.Close()
	})
	require.Nil(t, err)
}

func TestFileSystemPrint(t *testing.T) {
	fs := buildTree(t)
	var out bytes.Buffer
	require.Nil(t, fs.Print(&out))
	require.Contains(t, out.String(), "Bitmap set:\n0, 1, ")
	require.Contains(t, out.String(), "Name: /a, Sector: ")
	require.Contains(t, out.String(), "Name: /g, Sector: ")
}
