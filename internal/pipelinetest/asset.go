// SPDX-License-Identifier: EPL-2.0

package pipelinetest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ik5/gapless/audio"
)

const (
	// Extension routes asset ids to the fake demuxer.
	Extension = ".fake"

	defaultPacketFrames = 1024
)

var magic = [4]byte{'F', 'A', 'K', 'E'}

var ErrNotFake = errors.New("not a fake asset")

// Asset describes a synthetic asset. Source serializes it into the handle
// bytes and the fake demuxer parses it back.
type Asset struct {
	// Name is filled in by Source with the asset id.
	Name string
	// MIME of the single track. Empty means audio.MIMERaw.
	MIME       string
	SampleRate int
	Channels   int
	// Tracks is the track count. Zero means one.
	Tracks   int
	Duration time.Duration
	// PacketFrames is the number of frames per compressed sample. Zero
	// means 1024.
	PacketFrames int
	// CachedAfter is the number of packets after which the demuxer reports
	// CachedToEnd. Zero reports it from the start, negative never.
	CachedAfter int
	// FailAfter makes ReadSample fail once this many packets were read.
	// Zero disables.
	FailAfter int
	// Padding is appended to the handle bytes to give the read-ahead cache
	// something to load.
	Padding int
}

func (a Asset) normalized() Asset {
	if a.MIME == "" {
		a.MIME = audio.MIMERaw
	}
	if a.Tracks == 0 {
		a.Tracks = 1
	}
	if a.PacketFrames <= 0 {
		a.PacketFrames = defaultPacketFrames
	}
	return a
}

// TotalFrames is the number of PCM frames the asset decodes to.
func (a Asset) TotalFrames() int64 {
	return audio.DurationToFrames(a.Duration, a.SampleRate)
}

// Packets is the number of compressed samples the demuxer yields.
func (a Asset) Packets() int {
	a = a.normalized()
	pf := int64(a.PacketFrames)
	return int((a.TotalFrames() + pf - 1) / pf)
}

// SampleValue is the value every channel of frame i carries.
func SampleValue(frame int64) int16 {
	return int16(frame % 1000)
}

type header struct {
	Magic        [4]byte
	SampleRate   uint32
	Channels     uint16
	Tracks       uint16
	Duration     int64
	PacketFrames uint32
	CachedAfter  int32
	FailAfter    int32
	NameLen      uint16
	MIMELen      uint16
}

// Encode serializes a.
func Encode(a Asset) []byte {
	a = a.normalized()

	var buf bytes.Buffer
	h := header{
		Magic:        magic,
		SampleRate:   uint32(a.SampleRate),
		Channels:     uint16(a.Channels),
		Tracks:       uint16(a.Tracks),
		Duration:     int64(a.Duration),
		PacketFrames: uint32(a.PacketFrames),
		CachedAfter:  int32(a.CachedAfter),
		FailAfter:    int32(a.FailAfter),
		NameLen:      uint16(len(a.Name)),
		MIMELen:      uint16(len(a.MIME)),
	}
	_ = binary.Write(&buf, binary.LittleEndian, h)
	buf.WriteString(a.Name)
	buf.WriteString(a.MIME)
	buf.Write(make([]byte, a.Padding))
	return buf.Bytes()
}

// Decode parses an asset written by Encode.
func Decode(r io.Reader) (Asset, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return Asset{}, fmt.Errorf("%w: %w", ErrNotFake, err)
	}
	if h.Magic != magic {
		return Asset{}, ErrNotFake
	}

	strs := make([]byte, int(h.NameLen)+int(h.MIMELen))
	if _, err := io.ReadFull(r, strs); err != nil {
		return Asset{}, fmt.Errorf("%w: %w", ErrNotFake, err)
	}

	return Asset{
		Name:         string(strs[:h.NameLen]),
		MIME:         string(strs[h.NameLen:]),
		SampleRate:   int(h.SampleRate),
		Channels:     int(h.Channels),
		Tracks:       int(h.Tracks),
		Duration:     time.Duration(h.Duration),
		PacketFrames: int(h.PacketFrames),
		CachedAfter:  int(h.CachedAfter),
		FailAfter:    int(h.FailAfter),
	}, nil
}

// Sniff reports whether head starts like an encoded asset.
func Sniff(head []byte) bool {
	return len(head) >= 4 && bytes.Equal(head[:4], magic[:])
}
