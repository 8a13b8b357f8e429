// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// MIME types understood by the registry.
const (
	MIMERaw    = "audio/raw"
	MIMEMPEG   = "audio/mpeg"
	MIMEVorbis = "audio/vorbis"
	MIMEOpus   = "audio/opus"
)

// Encoding is the sample encoding of PCM handed to a Sink.
type Encoding int

const (
	EncodingInvalid Encoding = iota
	// EncodingPCM16 is signed 16-bit little-endian interleaved PCM.
	EncodingPCM16
)

// BytesPerSample returns the width of one sample of one channel.
func (e Encoding) BytesPerSample() int {
	if e == EncodingPCM16 {
		return 2
	}
	return 0
}

func (e Encoding) String() string {
	if e == EncodingPCM16 {
		return "pcm16"
	}
	return "invalid"
}

// TrackFormat describes one track of an asset, as read from its demuxer, or
// the PCM produced by a codec.
type TrackFormat struct {
	MIME       string
	SampleRate int
	Channels   int
	Duration   time.Duration

	// MaxInputSize is the largest compressed sample the demuxer will emit.
	MaxInputSize int
	// CodecConfig carries codec setup data (for example Vorbis headers).
	CodecConfig [][]byte

	// EncoderDelay is the number of leading decoded frames that are not
	// part of the program.
	EncoderDelay int
	// TotalFrames is the number of valid decoded frames, zero when unknown.
	TotalFrames int64
}

// FrameSize returns the byte size of one PCM16 frame of this format.
func (f TrackFormat) FrameSize() int {
	return f.Channels * EncodingPCM16.BytesPerSample()
}

func (f TrackFormat) String() string {
	return fmt.Sprintf("%s %dHz %dch %v", f.MIME, f.SampleRate, f.Channels, f.Duration)
}

// DurationToFrames converts d to a frame count at rate, rounding to nearest.
func DurationToFrames(d time.Duration, rate int) int64 {
	if rate <= 0 {
		return 0
	}
	return (int64(d)*int64(rate) + int64(time.Second)/2) / int64(time.Second)
}

// FramesToDuration converts a frame count at rate to a duration.
func FramesToDuration(frames int64, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(frames * int64(time.Second) / int64(rate))
}
