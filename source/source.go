// SPDX-License-Identifier: EPL-2.0

// Package source resolves asset identifiers to readable handles for the
// playback pipeline.
//
// Identifiers are slash separated paths relative to the source root. Every
// source here implements audio.AssetSource.
package source

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ik5/gapless/audio"
)

var (
	_ audio.AssetSource = Dir("")
	_ audio.AssetSource = FS{}
	_ audio.AssetSource = (*DiskImage)(nil)
)

// cleanID validates id and returns it without a leading slash.
func cleanID(id string) (string, error) {
	id = strings.TrimPrefix(id, "/")
	if id == "" || !fs.ValidPath(id) || id == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return id, nil
}

// Dir serves assets from a directory on the local file system.
type Dir string

func (d Dir) Open(id string) (io.ReadSeekCloser, error) {
	name, err := cleanID(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(string(d), filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("source: open %q: %w", id, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("source: stat %q: %w", id, err)
	}
	if !st.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("source: %q: %w", id, ErrNotRegular)
	}
	return f, nil
}

// FS serves assets from an fs.FS. Files that cannot seek are read into
// memory on open.
type FS struct {
	FS fs.FS
}

func (s FS) Open(id string) (io.ReadSeekCloser, error) {
	name, err := cleanID(id)
	if err != nil {
		return nil, err
	}

	f, err := s.FS.Open(name)
	if err != nil {
		return nil, fmt.Errorf("source: open %q: %w", id, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("source: stat %q: %w", id, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, fmt.Errorf("source: %q: %w", id, ErrNotRegular)
	}

	if rsc, ok := f.(io.ReadSeekCloser); ok {
		return rsc, nil
	}

	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("source: read %q: %w", id, err)
	}
	return memFile{bytes.NewReader(data)}, nil
}

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }
