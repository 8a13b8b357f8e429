// SPDX-License-Identifier: EPL-2.0

package pipelinetest

import (
	"fmt"
	"time"

	"github.com/ik5/gapless/audio"
	"github.com/ik5/gapless/formats/pcm"
)

// MIMEStall selects a codec that takes input but never produces output.
const MIMEStall = "audio/x-stall"

// RegisterCodecs adds tracked codecs for audio.MIMERaw and MIMEStall.
func RegisterCodecs(reg *audio.Registry, t *Tracker) {
	reg.RegisterCodec(audio.MIMERaw, func() audio.Codec {
		return track(t, audio.MIMERaw, pcm.NewCodec())
	})
	reg.RegisterCodec(MIMEStall, func() audio.Codec {
		return track(t, MIMEStall, &stallCodec{})
	})
}

type trackedCodec struct {
	audio.Codec
	t        *Tracker
	name     string
	released bool
}

func track(t *Tracker, mime string, c audio.Codec) *trackedCodec {
	name := fmt.Sprintf("%s#%d", mime, t.Created(KindCodec)+1)
	t.acquire(KindCodec, name)
	return &trackedCodec{Codec: c, t: t, name: name}
}

func (c *trackedCodec) Start() error {
	c.t.Record("start codec %s", c.name)
	return c.Codec.Start()
}

func (c *trackedCodec) DequeueOutputBuffer(timeout time.Duration) (audio.OutputBuffer, audio.OutputStatus, error) {
	out, status, err := c.Codec.DequeueOutputBuffer(timeout)
	c.t.poll(c.name)
	return out, status, err
}

func (c *trackedCodec) Stop() error {
	c.t.Record("stop codec %s", c.name)
	return c.Codec.Stop()
}

func (c *trackedCodec) Release() error {
	if !c.released {
		c.released = true
		c.t.release(KindCodec, c.name)
	}
	return c.Codec.Release()
}

type stallCodec struct {
	format  audio.TrackFormat
	buf     []byte
	running bool
}

func (c *stallCodec) Configure(format audio.TrackFormat) error {
	c.format = format
	c.buf = make([]byte, max(format.MaxInputSize, 4096))
	return nil
}

func (c *stallCodec) Start() error {
	c.running = true
	return nil
}

func (c *stallCodec) DequeueInputBuffer(time.Duration) (int, bool) { return 0, c.running }

func (c *stallCodec) InputBuffer(int) []byte { return c.buf }

func (c *stallCodec) QueueInputBuffer(int, int, time.Duration, audio.BufferFlags) error {
	if !c.running {
		return audio.ErrCodecState
	}
	return nil
}

func (c *stallCodec) DequeueOutputBuffer(time.Duration) (audio.OutputBuffer, audio.OutputStatus, error) {
	return audio.OutputBuffer{}, audio.OutputTryAgainLater, nil
}

func (c *stallCodec) ReleaseOutputBuffer(int) error { return audio.ErrInvalidSlot }

func (c *stallCodec) OutputFormat() audio.TrackFormat { return c.format }

func (c *stallCodec) Stop() error {
	c.running = false
	return nil
}

func (c *stallCodec) Release() error { return nil }
