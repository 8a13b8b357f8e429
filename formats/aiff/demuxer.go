// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/gapless/audio"
)

const packetFrames = 1024

// aiffReader is the part of aiff.Decoder the demuxer needs, so tests can
// feed it samples directly.
type aiffReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type demuxer struct {
	src    io.Reader
	dec    aiffReader
	format audio.TrackFormat
	intBuf *goaudio.IntBuffer

	cur    []byte
	loaded bool
	eof    bool
	err    error
	frames int64
}

// Factory registers the demuxer under the "aiff" container name.
func Factory() audio.DemuxerFactory {
	return audio.DemuxerFactory{
		Name:       "aiff",
		Extensions: []string{".aif", ".aiff"},
		Sniff:      Sniff,
		Open:       Open,
	}
}

// Sniff reports whether head starts an uncompressed AIFF file.
func Sniff(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[:4], []byte("FORM")) && bytes.Equal(head[8:12], []byte("AIFF"))
}

// Open reads the AIFF chunks of r up to the sound data.
func Open(r io.ReadSeeker) (audio.Demuxer, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	if dec.BitDepth != 16 {
		return nil, ErrOnlyPCM16bitSupported
	}
	format := dec.Format()
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, ErrUnsupportedAiffLayout
	}

	return newDemuxer(r, dec, int64(dec.NumSampleFrames)), nil
}

func newDemuxer(src io.Reader, dec aiffReader, totalFrames int64) *demuxer {
	f := dec.Format()
	return &demuxer{
		src: src,
		dec: dec,
		format: audio.TrackFormat{
			MIME:         audio.MIMERaw,
			SampleRate:   f.SampleRate,
			Channels:     f.NumChannels,
			Duration:     audio.FramesToDuration(totalFrames, f.SampleRate),
			MaxInputSize: packetFrames * f.NumChannels * 2,
			TotalFrames:  totalFrames,
		},
		intBuf: &goaudio.IntBuffer{
			Data:           make([]int, packetFrames*f.NumChannels),
			Format:         f,
			SourceBitDepth: 16,
		},
	}
}

func (d *demuxer) TrackCount() int { return 1 }

func (d *demuxer) SelectTrack(index int) error {
	if index != 0 {
		return audio.ErrTrackOutOfRange
	}
	return nil
}

func (d *demuxer) TrackFormat(index int) (audio.TrackFormat, error) {
	if index != 0 {
		return audio.TrackFormat{}, audio.ErrTrackOutOfRange
	}
	return d.format, nil
}

// load converts the next packet from big-endian integers into PCM16 LE.
func (d *demuxer) load() {
	if d.loaded || d.eof {
		return
	}

	d.intBuf.Data = d.intBuf.Data[:cap(d.intBuf.Data)]
	n, err := d.dec.PCMBuffer(d.intBuf)
	n -= n % d.format.Channels
	if n <= 0 {
		d.eof = true
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			d.err = err
		}
		return
	}

	d.cur = d.cur[:0]
	for _, s := range d.intBuf.Data[:n] {
		d.cur = append(d.cur, byte(s), byte(s>>8))
	}
	d.loaded = true
}

func (d *demuxer) ReadSample(dst []byte) (int, error) {
	d.load()
	if d.err != nil {
		return 0, d.err
	}
	if d.eof {
		return 0, io.EOF
	}
	if len(dst) < len(d.cur) {
		return 0, audio.ErrShortBuffer
	}
	return copy(dst, d.cur), nil
}

func (d *demuxer) SampleTime() time.Duration {
	return audio.FramesToDuration(d.frames, d.format.SampleRate)
}

func (d *demuxer) Advance() bool {
	d.load()
	if d.eof {
		return false
	}
	d.frames += int64(len(d.cur) / d.format.FrameSize())
	d.loaded = false
	d.load()
	return !d.eof
}

func (d *demuxer) CachedToEnd() bool { return audio.CachedToEnd(d.src) }

func (d *demuxer) Close() error { return nil }
