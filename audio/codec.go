// SPDX-License-Identifier: EPL-2.0

package audio

import "time"

// BufferFlags qualify queued input and dequeued output buffers.
type BufferFlags uint32

const (
	FlagEndOfStream BufferFlags = 1 << iota
)

// OutputStatus is the result kind of Codec.DequeueOutputBuffer.
type OutputStatus int

const (
	// OutputTryAgainLater means no output is available yet.
	OutputTryAgainLater OutputStatus = iota
	// OutputFormatChanged means OutputFormat now returns a new format.
	OutputFormatChanged
	// OutputBufferReady means the returned OutputBuffer holds a unit.
	OutputBufferReady
)

func (s OutputStatus) String() string {
	switch s {
	case OutputTryAgainLater:
		return "try-again-later"
	case OutputFormatChanged:
		return "format-changed"
	case OutputBufferReady:
		return "buffer-ready"
	}
	return "unknown"
}

// OutputBuffer is one decoded unit. Data stays valid until the slot is
// released.
type OutputBuffer struct {
	Slot  int
	Data  []byte
	PTS   time.Duration
	Flags BufferFlags
}

// Codec is a stateful decoder bound to one TrackFormat, driven through input
// and output slot queues.
type Codec interface {
	Configure(format TrackFormat) error
	Start() error

	// DequeueInputBuffer returns a free input slot, or false when none
	// became free within timeout.
	DequeueInputBuffer(timeout time.Duration) (int, bool)
	InputBuffer(slot int) []byte
	QueueInputBuffer(slot, size int, pts time.Duration, flags BufferFlags) error

	DequeueOutputBuffer(timeout time.Duration) (OutputBuffer, OutputStatus, error)
	ReleaseOutputBuffer(slot int) error
	// OutputFormat is the PCM format of the output, updated whenever
	// OutputFormatChanged is returned.
	OutputFormat() TrackFormat

	Stop() error
	Release() error
}

// CodecFactory constructs a fresh, unconfigured Codec.
type CodecFactory func() Codec
