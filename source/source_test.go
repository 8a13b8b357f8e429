// SPDX-License-Identifier: EPL-2.0

package source

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, rsc io.ReadSeekCloser) []byte {
	t.Helper()
	defer rsc.Close()

	data, err := io.ReadAll(rsc)
	require.NoError(t, err)

	end, err := rsc.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), end)
	return data
}

func TestCleanID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id      string
		want    string
		wantErr bool
	}{
		{"a.wav", "a.wav", false},
		{"/album/b.mp3", "album/b.mp3", false},
		{"", "", true},
		{"/", "", true},
		{"../escape.wav", "", true},
		{"album/../a.wav", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()

			got, err := cleanID(tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDir_Open(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "album"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "album", "01.wav"), []byte("first"), 0o644))

	src := Dir(root)

	rsc, err := src.Open("album/01.wav")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), readAll(t, rsc))

	_, err = src.Open("album/missing.wav")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = src.Open("album")
	assert.ErrorIs(t, err, ErrNotRegular)

	_, err = src.Open("../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidID)
}

// streamFS wraps an fs.FS so its files only expose fs.File.
type streamFS struct {
	fs.FS
}

type streamFile struct {
	fs.File
}

func (s streamFS) Open(name string) (fs.File, error) {
	f, err := s.FS.Open(name)
	if err != nil {
		return nil, err
	}
	return streamFile{f}, nil
}

func TestFS_Open(t *testing.T) {
	t.Parallel()

	mapFS := fstest.MapFS{
		"a.ogg":     {Data: []byte("OggS-a")},
		"dir/b.mp3": {Data: []byte("ID3-b")},
	}

	t.Run("seekable", func(t *testing.T) {
		t.Parallel()

		rsc, err := FS{FS: mapFS}.Open("a.ogg")
		require.NoError(t, err)
		_, isMem := rsc.(memFile)
		assert.False(t, isMem)
		assert.Equal(t, []byte("OggS-a"), readAll(t, rsc))
	})

	t.Run("stream only", func(t *testing.T) {
		t.Parallel()

		rsc, err := FS{FS: streamFS{mapFS}}.Open("/dir/b.mp3")
		require.NoError(t, err)
		_, isMem := rsc.(memFile)
		assert.True(t, isMem)
		assert.Equal(t, []byte("ID3-b"), readAll(t, rsc))
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		_, err := FS{FS: mapFS}.Open("nope.wav")
		assert.ErrorIs(t, err, fs.ErrNotExist)
		_, err = FS{FS: mapFS}.Open("dir")
		assert.ErrorIs(t, err, ErrNotRegular)
		_, err = FS{FS: mapFS}.Open("")
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}
