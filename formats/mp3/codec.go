// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/gapless/audio"
)

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

func openGoMP3(r io.Reader) (mp3Reader, error) {
	return gomp3.NewDecoder(r)
}

// decoder feeds whole frames to go-mp3 one at a time. go-mp3 decodes a frame
// per Read once its input holds one, and always produces stereo.
type decoder struct {
	open func(io.Reader) (mp3Reader, error)

	// feed must not be an io.Seeker: go-mp3 scans seekable input to its
	// end when it opens it.
	feed bytes.Buffer
	dec  mp3Reader

	format     audio.TrackFormat
	frameBytes int
	pcm        []byte
}

// NewCodec returns a layer III codec backed by github.com/hajimehoshi/go-mp3.
func NewCodec() audio.Codec {
	return audio.NewSlotCodec("mp3", &decoder{open: openGoMP3})
}

func (d *decoder) Init(format audio.TrackFormat) error {
	if format.MIME != audio.MIMEMPEG {
		return fmt.Errorf("%w: %s", audio.ErrInvalidFormat, format.MIME)
	}
	if format.SampleRate <= 0 || format.Channels < 1 || format.Channels > 2 {
		return fmt.Errorf("%w: %s", audio.ErrInvalidFormat, format)
	}

	spf := 1152
	if format.SampleRate < 32000 {
		spf = 576
	}
	d.frameBytes = spf * 4
	d.pcm = make([]byte, d.frameBytes)
	d.format = audio.TrackFormat{
		MIME:       audio.MIMERaw,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	}
	d.feed.Reset()
	d.dec = nil
	return nil
}

func (d *decoder) Format() audio.TrackFormat { return d.format }

func (d *decoder) Decode(packet []byte, out []byte) ([]byte, error) {
	d.feed.Write(packet)

	if d.dec == nil {
		dec, err := d.open(&d.feed)
		if err != nil {
			return out, err
		}
		d.dec = dec
		if rate := dec.SampleRate(); rate > 0 {
			d.format.SampleRate = rate
		}
	}

	if _, err := io.ReadFull(d.dec, d.pcm); err != nil {
		return out, err
	}
	if d.format.Channels == 1 {
		return audio.MixToMono(out, d.pcm, 2)
	}
	return append(out, d.pcm...), nil
}

func (d *decoder) Flush(out []byte) ([]byte, error) { return out, nil }

func (d *decoder) Close() error {
	d.dec = nil
	d.feed.Reset()
	return nil
}
