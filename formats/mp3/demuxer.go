// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ik5/gapless/audio"
)

var (
	ErrNoFrames = errors.New("mp3: no MPEG layer III frame found")
)

// syncWindow bounds how far the demuxer looks for the next frame header.
const syncWindow = 64 * 1024

type demuxer struct {
	r      io.ReadSeeker
	first  frameHeader
	format audio.TrackFormat

	pos    int64 // offset of the frame after cur
	cur    []byte
	loaded bool
	eof    bool
	err    error
	index  int64 // frames handed out before cur
}

// Factory registers the demuxer under the "mp3" container name.
func Factory() audio.DemuxerFactory {
	return audio.DemuxerFactory{
		Name:       "mp3",
		Extensions: []string{".mp3"},
		Sniff:      Sniff,
		Open:       Open,
	}
}

// Sniff reports whether head starts with an ID3v2 tag or a layer III frame.
func Sniff(head []byte) bool {
	if id3v2Size(head) > 0 {
		return true
	}
	_, ok := parseHeader(head)
	return ok
}

// Open finds the first audio frame of r and reads the Xing/LAME tag when
// there is one.
func Open(r io.ReadSeeker) (audio.Demuxer, error) {
	d := &demuxer{r: r}

	head := make([]byte, 10)
	n, err := d.readAt(head, 0)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("mp3: read header: %w", err)
	}
	start := int64(id3v2Size(head[:n]))

	off, h, err := d.sync(start, nil)
	if err != nil {
		return nil, err
	}
	d.first = h

	frame := make([]byte, h.frameSize())
	if _, err := d.readAt(frame, off); err != nil {
		return nil, fmt.Errorf("mp3: read first frame: %w", err)
	}

	d.pos = off
	xing, hasXing := parseXing(h, frame)
	if hasXing {
		d.pos += int64(len(frame))
	}

	spf := int64(h.samplesPerFrame())
	d.format = audio.TrackFormat{
		MIME:         audio.MIMEMPEG,
		SampleRate:   h.sampleRate,
		Channels:     h.channels(),
		MaxInputSize: maxFrameSize,
	}

	switch {
	case hasXing && xing.frames > 0:
		total := xing.frames * spf
		if xing.hasLAME {
			d.format.EncoderDelay = xing.delay + decoderDelay
			total -= int64(xing.delay + xing.padding)
			d.format.TotalFrames = total
		}
		d.format.Duration = audio.FramesToDuration(total, h.sampleRate)
	default:
		end, err := r.Seek(0, io.SeekEnd)
		if err == nil && end > d.pos {
			d.format.Duration = time.Duration((end-d.pos)*8) * time.Second / time.Duration(h.bitrate)
		}
	}

	return d, nil
}

func (d *demuxer) readAt(p []byte, off int64) (int, error) {
	if _, err := d.r.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(d.r, p)
}

// sync returns the offset and header of the first frame at or after off.
// When like is set, headers of a different stream layout are skipped.
func (d *demuxer) sync(off int64, like *frameHeader) (int64, frameHeader, error) {
	buf := make([]byte, syncWindow)
	n, err := d.readAt(buf, off)
	if n < headerSize {
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, frameHeader{}, ErrNoFrames
		}
		return 0, frameHeader{}, err
	}
	buf = buf[:n]

	for i := 0; i+headerSize <= len(buf); i++ {
		if buf[i] != 0xFF {
			continue
		}
		if i == 0 && bytes.HasPrefix(buf, []byte("TAG")) {
			break
		}
		h, ok := parseHeader(buf[i:])
		if !ok {
			continue
		}
		if like != nil && (h.lsf != like.lsf || h.sampleRate != like.sampleRate) {
			continue
		}
		return off + int64(i), h, nil
	}
	return 0, frameHeader{}, ErrNoFrames
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

// load reads the frame at pos. An ID3v1 tag, a truncated frame or the lack
// of any further header ends the stream.
func (d *demuxer) load() {
	if d.loaded || d.eof {
		return
	}

	var hdr [headerSize]byte
	n, err := d.readAt(hdr[:], d.pos)
	if n < headerSize || bytes.HasPrefix(hdr[:], []byte("TAG")) {
		d.finish(err)
		return
	}

	off := d.pos
	h, ok := parseHeader(hdr[:])
	if !ok || h.lsf != d.first.lsf || h.sampleRate != d.first.sampleRate {
		off, h, err = d.sync(d.pos+1, &d.first)
		if err != nil {
			d.finish(err)
			return
		}
	}

	size := h.frameSize()
	if cap(d.cur) < size {
		d.cur = make([]byte, size)
	}
	d.cur = d.cur[:size]
	if _, err := d.readAt(d.cur, off); err != nil {
		d.finish(err)
		return
	}
	d.pos = off + int64(size)
	d.loaded = true
}

func (d *demuxer) finish(err error) {
	d.eof = true
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, ErrNoFrames) {
		d.err = err
	}
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
	return audio.FramesToDuration(d.index*int64(d.first.samplesPerFrame()), d.first.sampleRate)
}

func (d *demuxer) Advance() bool {
	d.load()
	if d.eof {
		return false
	}
	d.index++
	d.loaded = false
	d.load()
	return !d.eof
}

func (d *demuxer) CachedToEnd() bool { return audio.CachedToEnd(d.r) }

func (d *demuxer) Close() error { return nil }
