// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/wav"
	"github.com/ik5/gapless/audio"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE

	// packetFrames is the number of PCM frames handed out per sample.
	packetFrames = 1024
)

// pcmChunk is the part of wav.Decoder the demuxer reads through.
type pcmChunk interface {
	Read(p []byte) (int, error)
}

type demuxer struct {
	src       io.Reader
	pcm       pcmChunk
	format    audio.TrackFormat
	frameSize int

	cur    []byte
	loaded bool
	eof    bool
	err    error
	frames int64 // frames before cur
}

// Factory registers the demuxer under the "wav" container name.
func Factory() audio.DemuxerFactory {
	return audio.DemuxerFactory{
		Name:       "wav",
		Extensions: []string{".wav", ".wave"},
		Sniff:      Sniff,
		Open:       Open,
	}
}

// Sniff reports whether head starts a RIFF/WAVE file.
func Sniff(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE"))
}

// Open parses the RIFF headers of r and positions it at the PCM data.
func Open(r io.ReadSeeker) (audio.Demuxer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	if dec.BitDepth != 16 || (dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible) {
		return nil, ErrOnlyPCM16bitSupported
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedWavChunks, err)
	}
	if dec.PCMChunk == nil {
		return nil, ErrUnsupportedWavChunks
	}

	channels := int(dec.NumChans)
	rate := int(dec.SampleRate)
	frameSize := channels * 2
	total := dec.PCMLen() / int64(frameSize)

	return &demuxer{
		src: r,
		pcm: dec.PCMChunk,
		format: audio.TrackFormat{
			MIME:         audio.MIMERaw,
			SampleRate:   rate,
			Channels:     channels,
			Duration:     audio.FramesToDuration(total, rate),
			MaxInputSize: packetFrames * frameSize,
			TotalFrames:  total,
		},
		frameSize: frameSize,
	}, nil
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

func (d *demuxer) load() {
	if d.loaded || d.eof {
		return
	}
	if cap(d.cur) < packetFrames*d.frameSize {
		d.cur = make([]byte, packetFrames*d.frameSize)
	}
	n, err := io.ReadFull(d.pcm, d.cur[:cap(d.cur)])
	n -= n % d.frameSize
	d.cur = d.cur[:n]
	switch {
	case n == 0 && err == nil:
		d.eof = true
	case n == 0:
		d.eof = true
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			d.err = err
		}
	default:
		d.loaded = true
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
	return audio.FramesToDuration(d.frames, d.format.SampleRate)
}

func (d *demuxer) Advance() bool {
	d.load()
	if d.eof {
		return false
	}
	d.frames += int64(len(d.cur) / d.frameSize)
	d.loaded = false
	d.load()
	return !d.eof
}

func (d *demuxer) CachedToEnd() bool { return audio.CachedToEnd(d.src) }

func (d *demuxer) Close() error { return nil }
