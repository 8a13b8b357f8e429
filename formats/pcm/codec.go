// SPDX-License-Identifier: EPL-2.0

// Package pcm provides the codec for uncompressed PCM16 tracks.
//
// WAV and AIFF demuxers emit audio/raw samples that are already interleaved
// signed 16-bit little-endian PCM, so decoding is a copy. Running them through
// a codec anyway keeps one decode loop for every format.
package pcm

import (
	"fmt"

	"github.com/ik5/gapless/audio"
)

type decoder struct {
	format audio.TrackFormat
}

func (d *decoder) Init(format audio.TrackFormat) error {
	if format.MIME != audio.MIMERaw {
		return fmt.Errorf("%w: pcm codec cannot decode %q", audio.ErrInvalidFormat, format.MIME)
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return fmt.Errorf("%w: %v", audio.ErrInvalidFormat, format)
	}
	d.format = audio.TrackFormat{
		MIME:       audio.MIMERaw,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		Duration:   format.Duration,
	}
	return nil
}

func (d *decoder) Format() audio.TrackFormat { return d.format }

func (d *decoder) Decode(packet []byte, out []byte) ([]byte, error) {
	return append(out, packet...), nil
}

func (d *decoder) Flush(out []byte) ([]byte, error) { return out, nil }

func (d *decoder) Close() error { return nil }

// NewCodec returns an unconfigured audio/raw codec.
func NewCodec() audio.Codec {
	return audio.NewSlotCodec("pcm", &decoder{})
}
