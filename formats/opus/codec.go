// SPDX-License-Identifier: EPL-2.0

// Package opus decodes Opus packets demuxed from Ogg with libopus, through
// github.com/hraban/opus.
//
// Output is always 48 kHz. The OpusHead pre-skip arrives as the track's
// EncoderDelay and is trimmed by the slot codec, as is everything past the
// final granule position.
package opus

import (
	"fmt"

	"github.com/hraban/opus"
	"github.com/ik5/gapless/audio"
	"github.com/ik5/gapless/utils"
)

const (
	sampleRate = 48000

	// maxFrameSamples is 120 ms at 48 kHz, the longest Opus packet.
	maxFrameSamples = 5760
)

// opusDecoder is an interface for opus.Decoder to allow testing
type opusDecoder interface {
	Decode(data []byte, pcm []int16) (int, error)
}

func newLibopus(rate, channels int) (opusDecoder, error) {
	return opus.NewDecoder(rate, channels)
}

type decoder struct {
	newDecoder func(rate, channels int) (opusDecoder, error)
	dec        opusDecoder
	format     audio.TrackFormat
	pcm        []int16
}

// NewCodec returns an Opus codec for mono and stereo streams.
func NewCodec() audio.Codec {
	return audio.NewSlotCodec("opus", &decoder{newDecoder: newLibopus})
}

func (d *decoder) Init(format audio.TrackFormat) error {
	if format.MIME != audio.MIMEOpus {
		return fmt.Errorf("%w: %s", audio.ErrInvalidFormat, format.MIME)
	}
	if format.Channels < 1 || format.Channels > 2 {
		return fmt.Errorf("%w: %d channels", audio.ErrInvalidFormat, format.Channels)
	}

	dec, err := d.newDecoder(sampleRate, format.Channels)
	if err != nil {
		return err
	}
	d.dec = dec
	d.pcm = make([]int16, maxFrameSamples*format.Channels)
	d.format = audio.TrackFormat{
		MIME:       audio.MIMERaw,
		SampleRate: sampleRate,
		Channels:   format.Channels,
	}
	return nil
}

func (d *decoder) Format() audio.TrackFormat { return d.format }

func (d *decoder) Decode(packet []byte, out []byte) ([]byte, error) {
	n, err := d.dec.Decode(packet, d.pcm)
	if err != nil {
		return out, err
	}
	return utils.AppendInt16AsPCM16(out, d.pcm[:n*d.format.Channels]), nil
}

func (d *decoder) Flush(out []byte) ([]byte, error) { return out, nil }

func (d *decoder) Close() error {
	d.dec = nil
	return nil
}
