// SPDX-License-Identifier: EPL-2.0

package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/diskfs/go-diskfs/filesystem/fat32"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	imageSize  = 50 * fat32.MB
	sectorSize = 512
	// first partition sector, clear of the MBR
	partStart = 2048
)

// createImage writes a single-partition FAT32 image holding files.
func createImage(t *testing.T, files map[string][]byte) string {
	t.Helper()

	img := filepath.Join(t.TempDir(), "card.img")
	dsk, err := diskfs.Create(img, imageSize, diskfs.SectorSizeDefault)
	require.NoError(t, err)

	table := &mbr.Table{
		LogicalSectorSize:  sectorSize,
		PhysicalSectorSize: sectorSize,
		Partitions: []*mbr.Partition{
			{
				Bootable: false,
				Type:     mbr.Linux,
				Start:    partStart,
				Size:     uint32(imageSize)/sectorSize - partStart,
			},
		},
	}
	require.NoError(t, dsk.Partition(table))

	fatfs, err := dsk.CreateFilesystem(disk.FilesystemSpec{
		Partition:   1,
		FSType:      filesystem.TypeFat32,
		VolumeLabel: "GAPLESS",
	})
	require.NoError(t, err)

	for name, data := range files {
		f, err := fatfs.OpenFile(name, os.O_CREATE|os.O_RDWR)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
	require.NoError(t, fatfs.Close())
	return img
}

func TestDiskImage_Open(t *testing.T) {
	t.Parallel()

	track := make([]byte, 10_000)
	for i := range track {
		track[i] = byte(i)
	}
	img := createImage(t, map[string][]byte{"/TRACK01.WAV": track})

	src := NewDiskImage(img, 1)
	defer src.Close()

	rsc, err := src.Open("TRACK01.WAV")
	require.NoError(t, err)
	defer rsc.Close()

	_, err = rsc.Seek(5000, io.SeekStart)
	require.NoError(t, err)
	buf := make([]byte, 16)
	_, err = io.ReadFull(rsc, buf)
	require.NoError(t, err)
	assert.Equal(t, track[5000:5016], buf)

	_, err = rsc.Seek(0, io.SeekStart)
	require.NoError(t, err)
	got, err := io.ReadAll(rsc)
	require.NoError(t, err)
	assert.Equal(t, track, got)

	_, err = src.Open("MISSING.WAV")
	assert.Error(t, err)
}

func TestCreateImage_KeepsPartitionTable(t *testing.T) {
	t.Parallel()

	img := createImage(t, map[string][]byte{"/A.WAV": []byte("abc")})

	dsk, err := diskfs.Open(img, diskfs.WithOpenMode(diskfs.ReadOnly))
	require.NoError(t, err)
	defer dsk.Close()

	table, err := dsk.GetPartitionTable()
	require.NoError(t, err)
	parts := table.GetPartitions()
	require.Len(t, parts, 1)
	assert.Equal(t, int64(partStart*sectorSize), parts[0].GetStart())

	fsys, err := dsk.GetFilesystem(1)
	require.NoError(t, err)
	assert.Equal(t, filesystem.TypeFat32, fsys.Type())
}

func TestDiskImage_Errors(t *testing.T) {
	t.Parallel()

	missing := NewDiskImage(filepath.Join(t.TempDir(), "none.img"), 1)
	_, err := missing.Open("A.WAV")
	assert.Error(t, err)

	img := createImage(t, map[string][]byte{"/A.WAV": []byte("abc")})
	src := NewDiskImage(img, 1)
	_, err = src.Open("../A.WAV")
	assert.ErrorIs(t, err, ErrInvalidID)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	_, err = src.Open("A.WAV")
	assert.ErrorIs(t, err, ErrClosed)
}
