// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"

	"github.com/ik5/gapless/audio"
	"github.com/ik5/gapless/utils"
	"github.com/jfreymuth/vorbis"
)

// vorbisDecoder is an interface for vorbis.Decoder to allow testing
type vorbisDecoder interface {
	ReadHeader(header []byte) error
	Decode(packet []byte) ([]float32, error)
	SampleRate() int
	Channels() int
}

// channelOrder maps Vorbis channel order onto WAVE order, for the layouts
// where they differ.
var channelOrder = map[int][]int{
	// FL FC FR RL RR LFE -> FL FR FC LFE RL RR
	6: {0, 2, 1, 5, 3, 4},
	// FL FC FR SL SR RL RR LFE -> FL FR FC LFE RL RR SL SR
	8: {0, 2, 1, 7, 5, 6, 3, 4},
}

type decoder struct {
	newDecoder func() vorbisDecoder
	dec        vorbisDecoder
	format     audio.TrackFormat
	order      []int
	frame      []float32
}

// NewCodec returns a Vorbis codec backed by github.com/jfreymuth/vorbis.
// The track's CodecConfig must hold the three Vorbis header packets.
func NewCodec() audio.Codec {
	return audio.NewSlotCodec("vorbis", &decoder{
		newDecoder: func() vorbisDecoder { return &vorbis.Decoder{} },
	})
}

func (d *decoder) Init(format audio.TrackFormat) error {
	if format.MIME != audio.MIMEVorbis {
		return fmt.Errorf("%w: %s", audio.ErrInvalidFormat, format.MIME)
	}
	if len(format.CodecConfig) < 3 {
		return fmt.Errorf("%w: %d header packets", audio.ErrInvalidFormat, len(format.CodecConfig))
	}

	dec := d.newDecoder()
	for i, h := range format.CodecConfig[:3] {
		if err := dec.ReadHeader(h); err != nil {
			return fmt.Errorf("header %d: %w", i, err)
		}
	}

	d.dec = dec
	d.order = channelOrder[dec.Channels()]
	d.frame = make([]float32, dec.Channels())
	d.format = audio.TrackFormat{
		MIME:       audio.MIMERaw,
		SampleRate: dec.SampleRate(),
		Channels:   dec.Channels(),
	}
	return nil
}

func (d *decoder) Format() audio.TrackFormat { return d.format }

func (d *decoder) Decode(packet []byte, out []byte) ([]byte, error) {
	samples, err := d.dec.Decode(packet)
	if err != nil {
		return out, err
	}
	if d.order == nil {
		return utils.AppendFloat32AsPCM16(out, samples), nil
	}

	ch := len(d.order)
	for i := 0; i+ch <= len(samples); i += ch {
		for j, src := range d.order {
			d.frame[j] = samples[i+src]
		}
		out = utils.AppendFloat32AsPCM16(out, d.frame)
	}
	return out, nil
}

func (d *decoder) Flush(out []byte) ([]byte, error) { return out, nil }

func (d *decoder) Close() error {
	d.dec = nil
	return nil
}
