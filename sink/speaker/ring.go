// SPDX-License-Identifier: EPL-2.0

package speaker

import (
	"context"
	"errors"
	"sync"

	"github.com/ik5/gapless/audio"
	"github.com/ik5/gapless/utils"
)

var ErrClosed = errors.New("speaker: sink closed")

const (
	// -3 dB, for folding centre and surround channels into stereo
	foldGain = 0.7071067811865476
)

// ring is the sink's PCM16 buffer. It is filled by Write and drained by
// the device callback through Stream.
type ring struct {
	mu     sync.Mutex
	wake   chan struct{}
	buf    []byte
	r, n   int
	closed bool

	channels  int
	frameSize int
	played    int64
	underruns int64
}

func newRing(size, channels int) *ring {
	frameSize := channels * audio.EncodingPCM16.BytesPerSample()
	size = max(size, frameSize)
	size -= size % frameSize
	return &ring{
		wake:      make(chan struct{}),
		buf:       make([]byte, size),
		channels:  channels,
		frameSize: frameSize,
	}
}

// signal wakes everyone waiting on the ring. Callers hold mu.
func (q *ring) signal() {
	close(q.wake)
	q.wake = make(chan struct{})
}

// write copies as much of p as fits, waiting for room until ctx is done.
// Only whole frames are accepted.
func (q *ring) write(ctx context.Context, p []byte) (int, error) {
	p = p[:len(p)-len(p)%q.frameSize]

	written := 0
	for written < len(p) {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return written, ErrClosed
		}
		free := len(q.buf) - q.n
		if free == 0 {
			wake := q.wake
			q.mu.Unlock()
			select {
			case <-wake:
				continue
			case <-ctx.Done():
				return written, ctx.Err()
			}
		}

		w := (q.r + q.n) % len(q.buf)
		chunk := min(free, len(p)-written, len(q.buf)-w)
		copy(q.buf[w:], p[written:written+chunk])
		q.n += chunk
		written += chunk
		q.mu.Unlock()
	}
	return written, nil
}

// drain waits until every buffered frame was consumed.
func (q *ring) drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		if q.n == 0 || q.closed {
			q.mu.Unlock()
			return nil
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *ring) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		q.signal()
	}
}

func (q *ring) playedFrames() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.played
}

// Stream hands buffered frames to the device as stereo. An empty ring
// plays silence without advancing the playback head.
func (q *ring) Stream(samples [][2]float64) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := 0
	for ; i < len(samples) && q.n >= q.frameSize; i++ {
		samples[i] = q.frame()
		q.r = (q.r + q.frameSize) % len(q.buf)
		q.n -= q.frameSize
		q.played++
	}
	if i > 0 {
		q.signal()
	}
	if i < len(samples) && !q.closed {
		q.underruns++
	}
	for ; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (q *ring) Err() error { return nil }

// frame reads the frame at r and folds it into stereo. Callers hold mu.
func (q *ring) frame() [2]float64 {
	at := func(ch int) float64 {
		off := (q.r + ch*2) % len(q.buf)
		lo, hi := q.buf[off], q.buf[(off+1)%len(q.buf)]
		return utils.Int16ToFloat64(int16(uint16(lo) | uint16(hi)<<8))
	}

	switch q.channels {
	case 1:
		s := at(0)
		return [2]float64{s, s}
	case 2:
		return [2]float64{at(0), at(1)}
	}

	// FL FR FC LFE RL RR [SL SR]; the LFE channel is dropped
	l := at(0) + foldGain*at(2) + foldGain*at(4)
	r := at(1) + foldGain*at(2) + foldGain*at(5)
	norm := 1 + 2*foldGain
	if q.channels == 8 {
		l += foldGain * at(6)
		r += foldGain * at(7)
		norm += foldGain
	}
	return [2]float64{l / norm, r / norm}
}
