// SPDX-License-Identifier: EPL-2.0

package source

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/filesystem"
)

// DiskImage serves assets from a file system inside a disk image, such as a
// FAT32 card dump or an ISO 9660 image. The image is opened read-only on the
// first Open and stays open until Close.
type DiskImage struct {
	Path string
	// Partition is the 1-based partition holding the file system, or 0 for
	// an image without a partition table.
	Partition int

	mu     sync.Mutex
	fs     filesystem.FileSystem
	closed bool
}

func NewDiskImage(path string, partition int) *DiskImage {
	return &DiskImage{Path: path, Partition: partition}
}

func (d *DiskImage) mount() (filesystem.FileSystem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if d.fs != nil {
		return d.fs, nil
	}

	dsk, err := diskfs.Open(d.Path, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("source: open image %s: %w", d.Path, err)
	}
	fsys, err := dsk.GetFilesystem(d.Partition)
	if err != nil {
		return nil, fmt.Errorf("source: image %s partition %d: %w", d.Path, d.Partition, err)
	}
	d.fs = fsys
	return fsys, nil
}

func (d *DiskImage) Open(id string) (io.ReadSeekCloser, error) {
	name, err := cleanID(id)
	if err != nil {
		return nil, err
	}

	fsys, err := d.mount()
	if err != nil {
		return nil, err
	}

	f, err := fsys.OpenFile("/"+name, os.O_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("source: open %q in %s: %w", id, d.Path, err)
	}
	return f, nil
}

// Close releases the image. Handles already returned by Open must not be
// used afterwards.
func (d *DiskImage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.fs == nil {
		return nil
	}
	return d.fs.Close()
}
