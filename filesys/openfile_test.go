package filesys

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func newOpenFile(t *testing.T, size int) *OpenFile {
	disk := newDisk(t, NumSectors)
	freeMap := NewBitmap(NumSectors)
	freeMap.Mark(0)
	hdr := NewFileHeader()
	require.Nil(t, hdr.Allocate(freeMap, size))
	require.Nil(t, hdr.WriteBack(disk, 0))
	file, err := OpenSector(disk, 0)
	require.Nil(t, err)
	return file
}

func pattern(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestOpenFileReadWrite(t *testing.T) {
	file := newOpenFile(t, 5000)
	require.Equal(t, 5000, file.Length())

	data := pattern(5000)
	n, err := file.WriteAt(data, 0)
	require.Nil(t, err)
	require.Equal(t, 5000, n)

	got := make([]byte, 5000)
	n, err = file.ReadAt(got, 0)
	require.Nil(t, err)
	require.Equal(t, 5000, n)
	require.Equal(t, data, got)
}

func TestOpenFilePartialWrite(t *testing.T) {
	file := newOpenFile(t, 5000)
	data := pattern(5000)
	_, err := file.WriteAt(data, 0)
	require.Nil(t, err)

	patch := bytes.Repeat([]byte{0xff}, 300)
	n, err := file.WriteAt(patch, 3650)
	require.Nil(t, err)
	require.Equal(t, 300, n)
	copy(data[3650:], patch)

	got := make([]byte, 5000)
	_, err = file.ReadAt(got, 0)
	require.Nil(t, err)
	require.Equal(t, data, got)
}

func TestOpenFileBounds(t *testing.T) {
	file := newOpenFile(t, 200)

	n, err := file.WriteAt(pattern(300), 0)
	require.ErrorIs(t, err, io.ErrShortWrite)
	require.Equal(t, 200, n)

	_, err = file.WriteAt([]byte{1}, 201)
	require.ErrorIs(t, err, ErrBoundsExceeded)

	got := make([]byte, 100)
	n, err = file.ReadAt(got, 150)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 50, n)
	require.Equal(t, pattern(200)[150:], got[:50])

	n, err = file.ReadAt(got, 200)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 0, n)
}

func TestOpenFileSequential(t *testing.T) {
	file := newOpenFile(t, 1000)
	_, err := file.Write(pattern(600))
	require.Nil(t, err)
	_, err = file.Write(pattern(400))
	require.Nil(t, err)

	got := make([]byte, 600)
	_, err = file.ReadAt(got, 0)
	require.Nil(t, err)
	require.Equal(t, pattern(600), got)
}
