// SPDX-License-Identifier: EPL-2.0

// Package readahead buffers an asset in the background so demuxers read from
// memory and can tell when their source needs no more I/O.
package readahead

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

const DefaultChunkSize = 64 * 1024

var (
	ErrClosed         = errors.New("readahead: reader closed")
	ErrNegativeOffset = errors.New("readahead: negative offset")
	ErrInvalidWhence  = errors.New("readahead: invalid whence")
)

// Reader loads its source front to back on a background goroutine. Reads
// that reach past the loaded prefix go straight to the source when it is an
// io.ReaderAt, and otherwise wait for the filler.
type Reader struct {
	src  io.ReadSeekCloser
	at   io.ReaderAt
	size int64

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	done   bool
	err    error
	closed bool
	off    int64

	wg sync.WaitGroup
}

// New starts buffering src in chunks of chunkSize bytes. The Reader owns src
// and closes it on Close.
func New(src io.ReadSeekCloser, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	r := &Reader{src: src, size: -1}
	r.cond = sync.NewCond(&r.mu)
	if at, ok := src.(io.ReaderAt); ok {
		r.at = at
	}

	if end, err := src.Seek(0, io.SeekEnd); err == nil {
		r.size = end
		r.buf = make([]byte, 0, end)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		r.done = true
		r.err = fmt.Errorf("readahead: rewind: %w", err)
		return r
	}

	r.wg.Add(1)
	go r.fill(chunkSize)
	return r
}

func (r *Reader) fill(chunkSize int) {
	defer r.wg.Done()

	chunk := make([]byte, chunkSize)
	var pos int64
	for {
		var n int
		var err error
		if r.at != nil {
			n, err = r.at.ReadAt(chunk, pos)
		} else {
			n, err = r.src.Read(chunk)
		}
		pos += int64(n)

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return
		}
		r.buf = append(r.buf, chunk[:n]...)
		if errors.Is(err, io.EOF) || (r.size >= 0 && pos >= r.size) {
			r.done = true
		} else if err != nil {
			r.done = true
			r.err = err
		}
		finished := r.done
		r.cond.Broadcast()
		r.mu.Unlock()

		if finished {
			return
		}
	}
}

// ReachedEnd reports whether the whole source is buffered.
func (r *Reader) ReachedEnd() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.done && r.err == nil
}

// Buffered returns the number of bytes loaded so far.
func (r *Reader) Buffered() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return int64(len(r.buf))
}

// Size is the source size, or -1 when the source could not report it.
func (r *Reader) Size() int64 { return r.size }

func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	if len(p) == 0 {
		return 0, nil
	}

	end := off + int64(len(p))

	r.mu.Lock()
	for {
		if r.closed {
			r.mu.Unlock()
			return 0, ErrClosed
		}
		if end <= int64(len(r.buf)) || r.done {
			break
		}
		if r.at != nil {
			r.mu.Unlock()
			return r.at.ReadAt(p, off)
		}
		r.cond.Wait()
	}
	defer r.mu.Unlock()

	if off >= int64(len(r.buf)) {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.buf[off:])
	if n < len(p) {
		if r.err != nil {
			return n, r.err
		}
		return n, io.EOF
	}
	return n, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	off := r.off
	r.mu.Unlock()

	n, err := r.ReadAt(p, off)

	r.mu.Lock()
	r.off = off + int64(n)
	r.mu.Unlock()

	if n > 0 && errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.off + offset
	case io.SeekEnd:
		size := r.size
		for size < 0 && !r.done && !r.closed {
			r.cond.Wait()
		}
		if size < 0 {
			size = int64(len(r.buf))
		}
		abs = size + offset
	default:
		return 0, ErrInvalidWhence
	}
	if abs < 0 {
		return 0, ErrNegativeOffset
	}
	r.off = abs
	return abs, nil
}

// Close stops the filler and closes the source.
func (r *Reader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.cond.Broadcast()
	r.mu.Unlock()

	err := r.src.Close()
	r.wg.Wait()
	return err
}
