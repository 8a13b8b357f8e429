// SPDX-License-Identifier: EPL-2.0

package audio

import "context"

// SinkConfig is what a Sink is constructed with.
type SinkConfig struct {
	SampleRate int
	Layout     ChannelLayout
	Encoding   Encoding
	// BufferSize is the size of the sink's ring buffer in bytes.
	BufferSize int
}

// Sink is a streaming PCM output.
type Sink interface {
	Start() error
	// Write blocks until p was accepted into the sink's buffer or ctx is
	// done.
	Write(ctx context.Context, p []byte) (int, error)
	// SetOutputRate changes the rate the buffered PCM is played at.
	SetOutputRate(sampleRate int) error
	// PlaybackHeadFrames is the number of frames played so far.
	PlaybackHeadFrames() int64
	SampleRate() int
	Layout() ChannelLayout
	// Drain blocks until everything written was played or ctx is done.
	Drain(ctx context.Context) error
	Close() error
}

// SinkFactory builds the platform sink.
type SinkFactory interface {
	// MinBufferSize is the smallest viable buffer, in bytes, for the format.
	MinBufferSize(sampleRate int, layout ChannelLayout, enc Encoding) int
	NewSink(cfg SinkConfig) (Sink, error)
}
