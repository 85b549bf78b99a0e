package filesys

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/rstms/chainfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestDirectoryCapacity(t *testing.T) {
	for _, size := range []int{1, 4, NumDirEntries} {
		dir := NewDirectory(nil, size)
		require.Equal(t, size, dir.Capacity())
		for i := 0; i < size; i++ {
			require.Nil(t, dir.Add(fmt.Sprintf("/f%d", i), 10+i, chainfs.KindFile))
		}
		err := dir.Add("/extra", 99, chainfs.KindFile)
		require.ErrorIs(t, err, ErrDirectoryFull)
		require.Len(t, dir.Entries(), size)
	}
}

func TestDirectoryAddFindRemove(t *testing.T) {
	dir := NewDirectory(nil, 8)
	require.Nil(t, dir.Add("/abc", 42, chainfs.KindFile))
	sector, err := dir.Find("/abc")
	require.Nil(t, err)
	require.Equal(t, 42, sector)

	require.Nil(t, dir.Remove("/abc"))
	sector, err = dir.Find("/abc")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, NoSector, sector)
	require.Equal(t, -1, dir.FindIndex("/abc"))

	require.ErrorIs(t, dir.Remove("/abc"), ErrNotFound)
}

func TestDirectoryDuplicate(t *testing.T) {
	dir := NewDirectory(nil, 8)
	require.Nil(t, dir.Add("/a", 1, chainfs.KindFile))
	err := dir.Add("/a", 2, chainfs.KindDirectory)
	require.ErrorIs(t, err, ErrDuplicateName)

	require.Len(t, dir.Entries(), 1)
	entry := dir.Entry("/a")
	require.NotNil(t, entry)
	require.Equal(t, 1, entry.Sector())
	require.False(t, entry.IsDir())

	// names are case sensitive
	require.Nil(t, dir.Add("/A", 3, chainfs.KindFile))
}

func TestDirectoryNameLength(t *testing.T) {
	dir := NewDirectory(nil, 8)
	long := "/" + strings.Repeat("x", FileNameMaxLen)
	require.ErrorIs(t, dir.Add(long, 1, chainfs.KindFile), ErrBoundsExceeded)
	_, err := dir.Find(long)
	require.ErrorIs(t, err, ErrBoundsExceeded)
	require.Equal(t, -1, dir.FindIndex(long))

	longest := long[:FileNameMaxLen]
	require.Nil(t, dir.Add(longest, 1, chainfs.KindFile))
	sector, err := dir.Find(longest)
	require.Nil(t, err)
	require.Equal(t, 1, sector)

	require.ErrorIs(t, dir.Add("", 1, chainfs.KindFile), ErrInvalidPath)
}

func TestDirectoryAddInvalidName(t *testing.T) {
	dir := NewDirectory(nil, 8)
	require.ErrorIs(t, dir.Add("/", 1, chainfs.KindFile), ErrInvalidPath)
	require.ErrorIs(t, dir.Add("abc", 1, chainfs.KindFile), ErrInvalidPath)
	require.ErrorIs(t, dir.Add("/a\x00b", 1, chainfs.KindFile), ErrInvalidPath)
	require.True(t, dir.Empty())
}

func TestDirectorySlotReuse(t *testing.T) {
	dir := NewDirectory(nil, 4)
	require.Nil(t, dir.Add("/f1", 10, chainfs.KindFile))
	require.Nil(t, dir.Add("/f2", 20, chainfs.KindFile))
	require.Nil(t, dir.Add("/f3", 30, chainfs.KindFile))
	require.Nil(t, dir.Add("/f4", 40, chainfs.KindFile))
	require.ErrorIs(t, dir.Add("/f5", 50, chainfs.KindFile), ErrDirectoryFull)

	freed := dir.FindIndex("/f2")
	require.Nil(t, dir.Remove("/f2"))
	require.Nil(t, dir.Add("/f5", 50, chainfs.KindFile))
	require.Equal(t, freed, dir.FindIndex("/f5"))

	sector, err := dir.Find("/f3")
	require.Nil(t, err)
	require.Equal(t, 30, sector)
}

func TestDirectoryRoundTrip(t *testing.T) {
	file, err := afero.NewMemMapFs().Create("dir")
	require.Nil(t, err)
	defer file.Close()

	dir := NewDirectory(nil, NumDirEntries)
	require.Nil(t, dir.Add("/f1", 10, chainfs.KindFile))
	require.Nil(t, dir.Add("/sub", 20, chainfs.KindDirectory))
	require.Nil(t, dir.Add("/f3", 30, chainfs.KindFile))
	require.Nil(t, dir.Remove("/f1"))
	require.Nil(t, dir.WriteBack(file))

	info, err := file.Stat()
	require.Nil(t, err)
	require.Equal(t, int64(DirectoryFileSize), info.Size())

	fetched := NewDirectory(nil, NumDirEntries)
	require.Nil(t, fetched.FetchFrom(file))
	require.Equal(t, dir.table, fetched.table)
	require.True(t, fetched.Entry("/sub").IsDir())
	require.Nil(t, fetched.Entry("/f1"))
}

func TestDirectoryFetchShort(t *testing.T) {
	file, err := afero.NewMemMapFs().Create("dir")
	require.Nil(t, err)
	defer file.Close()
	require.Nil(t, NewDirectory(nil, 2).WriteBack(file))
	require.ErrorIs(t, NewDirectory(nil, 4).FetchFrom(file), ErrReadFailed)
}

func TestDirectoryList(t *testing.T) {
	dir := NewDirectory(nil, 4)
	require.Nil(t, dir.Add("/f1", 10, chainfs.KindFile))
	require.Nil(t, dir.Add("/d2", 20, chainfs.KindDirectory))
	require.Nil(t, dir.Add("/f3", 30, chainfs.KindFile))
	require.Nil(t, dir.Remove("/d2"))

	var out bytes.Buffer
	require.Nil(t, dir.List(&out))
	require.Equal(t, "f1\nf3\n", out.String())
}

// buildTree creates
//
//	/a        directory
//	/a/f1     file
//	/a/b      directory
//	/a/b/f2   file
//	/g        file
func buildTree(t *testing.T) *FileSystem {
	fs, _ := newFileSystem(t)
	require.Nil(t, fs.Mkdir("/a"))
	require.Nil(t, fs.Create("/a/f1", 10))
	require.Nil(t, fs.Mkdir("/a/b"))
	require.Nil(t, fs.Create("/a/b/f2", 4000))
	require.Nil(t, fs.Create("/g", 5))
	return fs
}

func TestDirectoryListRecursive(t *testing.T) {
	fs := buildTree(t)
	root, err := fs.RootDir()
	require.Nil(t, err)

	var out bytes.Buffer
	require.Nil(t, root.ListRecursive(&out, 0))
	expected := "[D] a\n" +
		"    [F] f1\n" +
		"    [D] b\n" +
		"        [F] f2\n" +
		"[F] g\n"
	require.Equal(t, expected, out.String())
}

func TestDirectoryFindPath(t *testing.T) {
	fs := buildTree(t)
	root, err := fs.RootDir()
	require.Nil(t, err)

	sector, err := root.FindPath("/")
	require.Nil(t, err)
	require.Equal(t, RootDirectorySector, sector)

	a, err := root.Find("/a")
	require.Nil(t, err)
	sector, err = root.FindPath("/a")
	require.Nil(t, err)
	require.Equal(t, a, sector)
	sector, err = root.FindPath("/a/")
	require.Nil(t, err)
	require.Equal(t, a, sector)

	sector, kind, err := root.Lookup("/a/b/f2")
	require.Nil(t, err)
	require.Equal(t, chainfs.KindFile, kind)
	file, err := OpenSector(fs.Disk(), sector)
	require.Nil(t, err)
	require.Equal(t, 4000, file.Length())

	_, kind, err = root.Lookup("/a/b")
	require.Nil(t, err)
	require.Equal(t, chainfs.KindDirectory, kind)

	_, err = root.FindPath("/a/zz")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = root.FindPath("/x/f1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = root.FindPath("/g/f1")
	require.ErrorIs(t, err, ErrNotDirectory)
	_, err = root.FindPath("a/f1")
	require.ErrorIs(t, err, ErrInvalidPath)
	_, err = root.FindPath("/" + strings.Repeat("a/", MaxPathLen))
	require.ErrorIs(t, err, ErrBoundsExceeded)
}

func TestDirectoryFindPathDepth(t *testing.T) {
	fs, _ := newFileSystem(t)
	path := ""
	for i := 0; i < MaxDirDepth; i++ {
		path += "/d"
		require.Nil(t, fs.Mkdir(path))
	}
	require.ErrorIs(t, fs.Mkdir(path+"/d"), ErrBoundsExceeded)
	root, err := fs.RootDir()
	require.Nil(t, err)

	_, err = root.FindPath(strings.Repeat("/d", MaxDirDepth))
	require.Nil(t, err)
	_, err = root.FindPath(strings.Repeat("/d", MaxDirDepth) + "/")
	require.Nil(t, err)
	_, err = root.FindPath(strings.Repeat("/d", MaxDirDepth+1))
	require.ErrorIs(t, err, ErrBoundsExceeded)
}
