// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"time"
)

// Demuxer parses one asset and yields the compressed samples of its selected
// track in presentation order.
type Demuxer interface {
	TrackCount() int
	SelectTrack(index int) error
	TrackFormat(index int) (TrackFormat, error)

	// ReadSample copies the current sample into dst without advancing.
	// It returns io.EOF once every sample was consumed and ErrShortBuffer
	// when dst cannot hold the sample.
	ReadSample(dst []byte) (int, error)
	// SampleTime is the presentation time of the current sample.
	SampleTime() time.Duration
	// Advance moves to the next sample and reports whether one exists.
	Advance() bool

	// CachedToEnd reports whether the underlying read-ahead cache already
	// holds the asset through its end, so no more I/O is needed.
	CachedToEnd() bool

	Close() error
}

// CacheStatus is implemented by readers that buffer their source ahead of
// the consumer.
type CacheStatus interface {
	ReachedEnd() bool
}

// CachedToEnd reports the cache state of r, or false when r does not cache.
func CachedToEnd(r io.Reader) bool {
	cs, ok := r.(CacheStatus)
	return ok && cs.ReachedEnd()
}

// DemuxerFactory opens a container format.
type DemuxerFactory struct {
	Name       string
	Extensions []string
	// Sniff reports whether head, the first bytes of an asset, looks like
	// this container. It may be nil.
	Sniff func(head []byte) bool
	Open  func(r io.ReadSeeker) (Demuxer, error)
}
