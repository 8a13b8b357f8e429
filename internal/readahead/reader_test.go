// SPDX-License-Identifier: EPL-2.0

package readahead

import (
	"bytes"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct {
	*bytes.Reader
	closed atomic.Bool
}

func (n *nopCloser) Close() error {
	n.closed.Store(true)
	return nil
}

// gatedSource hands out one chunk per token on gate and is not an io.ReaderAt.
type gatedSource struct {
	data  []byte
	pos   int
	gate  chan struct{}
	stop  chan struct{}
	fail  error
	count atomic.Int32
}

func newGatedSource(data []byte) *gatedSource {
	return &gatedSource{data: data, gate: make(chan struct{}, 64), stop: make(chan struct{})}
}

func (g *gatedSource) Read(p []byte) (int, error) {
	select {
	case <-g.gate:
	case <-g.stop:
		return 0, io.ErrClosedPipe
	}
	g.count.Add(1)
	if g.fail != nil {
		return 0, g.fail
	}
	if g.pos >= len(g.data) {
		return 0, io.EOF
	}
	n := copy(p, g.data[g.pos:])
	g.pos += n
	return n, nil
}

func (g *gatedSource) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		g.pos = int(offset)
	case io.SeekEnd:
		g.pos = len(g.data) + int(offset)
	}
	return int64(g.pos), nil
}

func (g *gatedSource) Close() error {
	close(g.stop)
	return nil
}

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

func TestReader_LoadsWholeSource(t *testing.T) {
	t.Parallel()

	data := testData(10_000)
	src := &nopCloser{Reader: bytes.NewReader(data)}
	r := New(src, 1024)
	defer r.Close()

	assert.Equal(t, int64(len(data)), r.Size())
	assert.Eventually(t, r.ReachedEnd, time.Second, time.Millisecond)
	assert.Equal(t, int64(len(data)), r.Buffered())

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReader_SeekAndReadAt(t *testing.T) {
	t.Parallel()

	data := testData(4096)
	r := New(&nopCloser{Reader: bytes.NewReader(data)}, 512)
	defer r.Close()

	pos, err := r.Seek(-10, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(4086), pos)

	buf := make([]byte, 32)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, data[4086:], buf[:n])

	_, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)

	pos, err = r.Seek(100, io.SeekStart)
	require.NoError(t, err)
	pos, err = r.Seek(28, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(128), pos)

	n, err = r.ReadAt(buf, 4080)
	assert.Equal(t, 16, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = r.Seek(-1, io.SeekStart)
	assert.ErrorIs(t, err, ErrNegativeOffset)
	_, err = r.ReadAt(buf, -1)
	assert.ErrorIs(t, err, ErrNegativeOffset)
	_, err = r.Seek(0, 42)
	assert.ErrorIs(t, err, ErrInvalidWhence)
}

func TestReader_WaitsForFillerWithoutReaderAt(t *testing.T) {
	t.Parallel()

	data := testData(300)
	src := newGatedSource(data)
	r := New(src, 100)
	defer r.Close()

	assert.False(t, r.ReachedEnd())

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 150)
		n, _ := io.ReadFull(r, buf)
		got <- buf[:n]
	}()

	select {
	case <-got:
		t.Fatal("read finished before data was loaded")
	case <-time.After(20 * time.Millisecond):
	}

	src.gate <- struct{}{}
	src.gate <- struct{}{}
	assert.Equal(t, data[:150], <-got)
	assert.False(t, r.ReachedEnd())

	src.gate <- struct{}{}
	src.gate <- struct{}{}
	assert.Eventually(t, r.ReachedEnd, time.Second, time.Millisecond)
}

func TestReader_SourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk on fire")
	src := newGatedSource(testData(100))
	src.fail = boom
	r := New(src, 100)
	defer r.Close()

	src.gate <- struct{}{}

	_, err := r.ReadAt(make([]byte, 10), 0)
	assert.ErrorIs(t, err, boom)
	assert.False(t, r.ReachedEnd())
}

func TestReader_Close(t *testing.T) {
	t.Parallel()

	src := newGatedSource(testData(1000))
	r := New(src, 100)

	waiting := make(chan error, 1)
	go func() {
		_, err := r.ReadAt(make([]byte, 10), 0)
		waiting <- err
	}()

	require.NoError(t, r.Close())
	assert.ErrorIs(t, <-waiting, ErrClosed)
	assert.NoError(t, r.Close())

	_, err := r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReader_ClosesSource(t *testing.T) {
	t.Parallel()

	src := &nopCloser{Reader: bytes.NewReader(testData(10))}
	r := New(src, 0)
	require.NoError(t, r.Close())
	assert.True(t, src.closed.Load())
}

func TestReader_EmptySource(t *testing.T) {
	t.Parallel()

	r := New(&nopCloser{Reader: bytes.NewReader(nil)}, 16)
	defer r.Close()

	assert.Eventually(t, r.ReachedEnd, time.Second, time.Millisecond)
	_, err := r.Read(make([]byte, 4))
	assert.ErrorIs(t, err, io.EOF)
}
