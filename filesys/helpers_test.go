package filesys

import (
	"testing"

	"github.com/rstms/chainfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T, sectors int) *chainfs.FileDisk {
	f, err := afero.NewMemMapFs().Create("disk.img")
	require.Nil(t, err)
	require.Nil(t, f.Truncate(int64(sectors*SectorSize)))
	device, err := chainfs.NewFileDisk(f)
	require.Nil(t, err)
	t.Cleanup(func() {
		device.Close()
		f.Close()
	})
	return device
}

func newDisk(t *testing.T, sectors int) *SynchDisk {
	disk, err := NewSynchDisk(newDevice(t, sectors))
	require.Nil(t, err)
	return disk
}

func newFileSystem(t *testing.T) (*FileSystem, chainfs.BlockDevice) {
	device := newDevice(t, NumSectors)
	fs, err := Format(device)
	require.Nil(t, err)
	return fs, device
}
