// SPDX-License-Identifier: EPL-2.0

package pipelinetest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ik5/gapless/audio"
)

var ErrReadFailed = errors.New("fake read failure")

// DemuxerFactory returns the factory for encoded assets.
func DemuxerFactory(t *Tracker) audio.DemuxerFactory {
	return audio.DemuxerFactory{
		Name:       "fake",
		Extensions: []string{Extension},
		Sniff:      Sniff,
		Open: func(r io.ReadSeeker) (audio.Demuxer, error) {
			return OpenDemuxer(t, r)
		},
	}
}

// OpenDemuxer parses an encoded asset from r.
func OpenDemuxer(t *Tracker, r io.ReadSeeker) (*Demuxer, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	a, err := Decode(r)
	if err != nil {
		return nil, err
	}
	a = a.normalized()

	t.acquire(KindDemuxer, a.Name)
	return &Demuxer{asset: a, t: t, total: a.TotalFrames()}, nil
}

// Demuxer yields packets of a synthetic asset. Each packet is PCM16 that
// the pcm codec passes through unchanged.
type Demuxer struct {
	asset    Asset
	t        *Tracker
	total    int64
	packet   int64
	selected bool
	closed   bool
}

func (d *Demuxer) TrackCount() int { return d.asset.Tracks }

func (d *Demuxer) SelectTrack(index int) error {
	if index < 0 || index >= d.asset.Tracks {
		return fmt.Errorf("%w: %d", audio.ErrTrackOutOfRange, index)
	}
	d.selected = true
	return nil
}

func (d *Demuxer) TrackFormat(index int) (audio.TrackFormat, error) {
	if index < 0 || index >= d.asset.Tracks {
		return audio.TrackFormat{}, fmt.Errorf("%w: %d", audio.ErrTrackOutOfRange, index)
	}
	return audio.TrackFormat{
		MIME:         d.asset.MIME,
		SampleRate:   d.asset.SampleRate,
		Channels:     d.asset.Channels,
		Duration:     d.asset.Duration,
		MaxInputSize: d.asset.PacketFrames * d.asset.Channels * 2,
		TotalFrames:  d.total,
	}, nil
}

func (d *Demuxer) ReadSample(dst []byte) (int, error) {
	if d.asset.FailAfter > 0 && d.packet >= int64(d.asset.FailAfter) {
		return 0, ErrReadFailed
	}

	start := d.packet * int64(d.asset.PacketFrames)
	if start >= d.total {
		return 0, io.EOF
	}
	frames := min(int64(d.asset.PacketFrames), d.total-start)
	size := int(frames) * d.asset.Channels * 2
	if len(dst) < size {
		return 0, audio.ErrShortBuffer
	}

	off := 0
	for i := range frames {
		v := uint16(SampleValue(start + i))
		for range d.asset.Channels {
			binary.LittleEndian.PutUint16(dst[off:], v)
			off += 2
		}
	}
	return size, nil
}

func (d *Demuxer) SampleTime() time.Duration {
	return audio.FramesToDuration(d.packet*int64(d.asset.PacketFrames), d.asset.SampleRate)
}

func (d *Demuxer) Advance() bool {
	d.packet++
	return d.packet*int64(d.asset.PacketFrames) < d.total
}

func (d *Demuxer) CachedToEnd() bool {
	return d.asset.CachedAfter >= 0 && d.packet >= int64(d.asset.CachedAfter)
}

// Packet is the index of the current packet.
func (d *Demuxer) Packet() int64 { return d.packet }

func (d *Demuxer) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.t.release(KindDemuxer, d.asset.Name)
	return nil
}
