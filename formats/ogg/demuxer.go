// SPDX-License-Identifier: EPL-2.0

package ogg

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ik5/gapless/audio"
	"github.com/jfreymuth/oggvorbis"
)

// MIMEUnknown is reported for logical streams of an unrecognised codec.
const MIMEUnknown = "application/ogg"

const (
	opusRate = 48000

	// maxHeaderPages bounds the pages read while collecting codec headers.
	maxHeaderPages = 64

	maxPacketSize = 1 << 17
)

var (
	ErrNoStreams         = errors.New("ogg: no logical streams")
	ErrIncompleteHeaders = errors.New("ogg: codec headers incomplete")
	ErrBadHeader         = errors.New("ogg: malformed codec identification header")
)

type packet struct {
	data []byte
	pts  time.Duration
}

type track struct {
	serial  uint32
	format  audio.TrackFormat
	headers int // header packets still expected
	preskip int64

	partial []byte
	queue   []packet
	granule int64 // last granule position seen
}

type demuxer struct {
	r        io.ReadSeeker
	br       *bufio.Reader
	tracks   []*track
	bySerial map[uint32]*track
	selected *track

	cur    packet
	loaded bool
	eof    bool
	err    error
}

// Factory registers the demuxer under the "ogg" container name.
func Factory() audio.DemuxerFactory {
	return audio.DemuxerFactory{
		Name:       "ogg",
		Extensions: []string{".ogg", ".oga", ".opus"},
		Sniff:      Sniff,
		Open:       Open,
	}
}

// Sniff reports whether head starts with an Ogg page.
func Sniff(head []byte) bool {
	return bytes.HasPrefix(head, capturePattern)
}

// Open reads the beginning-of-stream pages of r and the codec headers of
// every logical stream. Each logical stream is a track.
func Open(r io.ReadSeeker) (audio.Demuxer, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ogg: rewind: %w", err)
	}

	d := &demuxer{
		r:        r,
		br:       bufio.NewReader(r),
		bySerial: make(map[uint32]*track),
	}

	var offset int64
	for pages := 0; ; pages++ {
		if pages == maxHeaderPages {
			return nil, ErrIncompleteHeaders
		}
		p, err := readPage(d.br)
		if errors.Is(err, io.EOF) {
			if len(d.tracks) == 0 {
				return nil, ErrNoStreams
			}
			if !d.headersDone() {
				return nil, ErrIncompleteHeaders
			}
			break
		}
		if err != nil {
			return nil, err
		}
		offset += int64(p.size)

		if p.flags&flagBOS != 0 {
			if _, dup := d.bySerial[p.serial]; !dup {
				t := &track{serial: p.serial, headers: -1}
				d.tracks = append(d.tracks, t)
				d.bySerial[p.serial] = t
			}
		}
		if t, ok := d.bySerial[p.serial]; ok {
			if err := d.feed(t, p, true); err != nil {
				return nil, err
			}
		}
		if p.flags&flagBOS == 0 && len(d.tracks) > 0 && d.headersDone() {
			break
		}
	}

	for _, t := range d.tracks {
		d.measure(t)
	}
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ogg: seek to audio data: %w", err)
	}
	d.br.Reset(r)
	d.selected = d.tracks[0]

	return d, nil
}

func (d *demuxer) headersDone() bool {
	for _, t := range d.tracks {
		if t.headers != 0 {
			return false
		}
	}
	return true
}

// feed splits p into packets of t. Codec headers go to the track format;
// audio packets are queued when keep is set.
func (d *demuxer) feed(t *track, p page, keep bool) error {
	if p.flags&flagContinued == 0 {
		t.partial = t.partial[:0]
	}

	for i, seg := range p.segments {
		t.partial = append(t.partial, seg...)
		if !p.complete[i] {
			continue
		}
		data := append([]byte(nil), t.partial...)
		t.partial = t.partial[:0]

		if t.headers != 0 {
			if err := t.header(data); err != nil {
				return err
			}
			continue
		}
		if keep {
			t.queue = append(t.queue, packet{data: data, pts: t.pts()})
		}
	}

	if p.granule != -1 {
		t.granule = p.granule
	}
	return nil
}

// header consumes one codec header packet.
func (t *track) header(data []byte) error {
	if t.headers < 0 {
		switch {
		case bytes.HasPrefix(data, []byte("\x01vorbis")):
			if len(data) < 30 {
				return ErrBadHeader
			}
			t.headers = 3
			t.format = audio.TrackFormat{
				MIME:       audio.MIMEVorbis,
				Channels:   int(data[11]),
				SampleRate: int(binary.LittleEndian.Uint32(data[12:])),
			}
		case bytes.HasPrefix(data, []byte("OpusHead")):
			if len(data) < 19 {
				return ErrBadHeader
			}
			t.headers = 2
			t.preskip = int64(binary.LittleEndian.Uint16(data[10:]))
			t.format = audio.TrackFormat{
				MIME:         audio.MIMEOpus,
				Channels:     int(data[9]),
				SampleRate:   opusRate,
				EncoderDelay: int(t.preskip),
			}
		default:
			t.headers = 0
			t.format = audio.TrackFormat{MIME: MIMEUnknown}
			return nil
		}
		t.format.MaxInputSize = maxPacketSize
	}

	t.format.CodecConfig = append(t.format.CodecConfig, data)
	t.headers--
	return nil
}

// pts is the presentation time of a packet completed on the current page:
// the granule position of the page before it.
func (t *track) pts() time.Duration {
	if t.format.SampleRate <= 0 {
		return 0
	}
	return audio.FramesToDuration(max(t.granule-t.preskip, 0), t.format.SampleRate)
}

// measure fills in the duration of t from the granule position of its last
// page.
func (d *demuxer) measure(t *track) {
	if t.format.SampleRate <= 0 {
		return
	}

	last := int64(-1)
	if t.format.MIME == audio.MIMEVorbis && len(d.tracks) == 1 {
		if _, err := d.r.Seek(0, io.SeekStart); err == nil {
			if n, _, err := oggvorbis.GetLength(d.r); err == nil {
				last = n
			}
		}
	}
	if last < 0 {
		if g, err := lastGranule(d.r, t.serial); err == nil {
			last = g
		}
	}
	if last < 0 {
		return
	}

	total := max(last-t.preskip, 0)
	t.format.TotalFrames = total
	t.format.Duration = audio.FramesToDuration(total, t.format.SampleRate)
}

func (d *demuxer) TrackCount() int { return len(d.tracks) }

func (d *demuxer) SelectTrack(index int) error {
	if index < 0 || index >= len(d.tracks) {
		return audio.ErrTrackOutOfRange
	}
	d.selected = d.tracks[index]
	return nil
}

func (d *demuxer) TrackFormat(index int) (audio.TrackFormat, error) {
	if index < 0 || index >= len(d.tracks) {
		return audio.TrackFormat{}, audio.ErrTrackOutOfRange
	}
	return d.tracks[index].format, nil
}

func (d *demuxer) load() {
	t := d.selected
	for !d.loaded && !d.eof {
		if len(t.queue) > 0 {
			d.cur = t.queue[0]
			t.queue = t.queue[1:]
			d.loaded = true
			return
		}

		p, err := readPage(d.br)
		if err != nil {
			d.eof = true
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				d.err = err
			}
			return
		}
		if owner, ok := d.bySerial[p.serial]; ok {
			if err := d.feed(owner, p, owner == t); err != nil {
				d.eof = true
				d.err = err
			}
		}
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
	if len(dst) < len(d.cur.data) {
		return 0, audio.ErrShortBuffer
	}
	return copy(dst, d.cur.data), nil
}

func (d *demuxer) SampleTime() time.Duration {
	d.load()
	return d.cur.pts
}

func (d *demuxer) Advance() bool {
	d.load()
	if d.eof {
		return false
	}
	d.loaded = false
	d.load()
	return !d.eof
}

func (d *demuxer) CachedToEnd() bool { return audio.CachedToEnd(d.r) }

func (d *demuxer) Close() error { return nil }
