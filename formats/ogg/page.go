// SPDX-License-Identifier: EPL-2.0

package ogg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	pageHeaderSize = 27
	maxPageSize    = pageHeaderSize + 255 + 255*255

	flagContinued = 0x01
	flagBOS       = 0x02
	flagEOS       = 0x04
)

var (
	ErrBadCapture  = errors.New("ogg: missing OggS capture pattern")
	ErrBadVersion  = errors.New("ogg: unsupported stream structure version")
	ErrBadChecksum = errors.New("ogg: page checksum mismatch")
)

var capturePattern = []byte("OggS")

// page is one decoded Ogg page. segments holds the payload split by the
// lacing table; the last segment of a page may continue on the next one.
type page struct {
	flags    byte
	granule  int64
	serial   uint32
	sequence uint32
	segments [][]byte
	// complete reports, per segment, whether a packet ends with it.
	complete []bool
	size     int
}

var crcTable = func() (t [256]uint32) {
	for i := range t {
		r := uint32(i) << 24
		for range 8 {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		t[i] = r
	}
	return t
}()

// crc is the Ogg page checksum: CRC-32, polynomial 0x04c11db7, no
// reflection, zero initial value and no final xor.
func crc(c uint32, b []byte) uint32 {
	for _, x := range b {
		c = c<<8 ^ crcTable[byte(c>>24)^x]
	}
	return c
}

// readPage reads and verifies the page at the current position of r.
func readPage(r io.Reader) (page, error) {
	var hdr [pageHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return page{}, err
	}
	if !bytes.Equal(hdr[:4], capturePattern) {
		return page{}, ErrBadCapture
	}
	if hdr[4] != 0 {
		return page{}, ErrBadVersion
	}

	lacing := make([]byte, hdr[26])
	if _, err := io.ReadFull(r, lacing); err != nil {
		return page{}, noEOF(err)
	}
	bodySize := 0
	for _, l := range lacing {
		bodySize += int(l)
	}
	body := make([]byte, bodySize)
	if _, err := io.ReadFull(r, body); err != nil {
		return page{}, noEOF(err)
	}

	want := binary.LittleEndian.Uint32(hdr[22:])
	clear(hdr[22:26])
	sum := crc(0, hdr[:])
	sum = crc(sum, lacing)
	sum = crc(sum, body)
	if sum != want {
		return page{}, fmt.Errorf("%w: %08x != %08x", ErrBadChecksum, sum, want)
	}

	p := page{
		flags:    hdr[5],
		granule:  int64(binary.LittleEndian.Uint64(hdr[6:])),
		serial:   binary.LittleEndian.Uint32(hdr[14:]),
		sequence: binary.LittleEndian.Uint32(hdr[18:]),
		size:     pageHeaderSize + len(lacing) + bodySize,
	}

	// consecutive 255 lacing values belong to the same segment
	start, n := 0, 0
	for _, l := range lacing {
		n += int(l)
		if l < 255 {
			p.segments = append(p.segments, body[start:start+n])
			p.complete = append(p.complete, true)
			start += n
			n = 0
		}
	}
	if n > 0 {
		p.segments = append(p.segments, body[start:start+n])
		p.complete = append(p.complete, false)
	}
	return p, nil
}

func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// lastGranule scans the tail of r for the last page of serial that carries
// a granule position and returns it, or -1.
func lastGranule(r io.ReadSeeker, serial uint32) (int64, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return -1, err
	}
	start := max(end-maxPageSize, 0)
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return -1, err
	}
	tail, err := io.ReadAll(r)
	if err != nil {
		return -1, err
	}

	granule := int64(-1)
	for i := 0; i < len(tail); {
		j := bytes.Index(tail[i:], capturePattern)
		if j < 0 {
			break
		}
		p, err := readPage(bytes.NewReader(tail[i+j:]))
		if err != nil {
			i += j + 1
			continue
		}
		if p.serial == serial && p.granule != -1 {
			granule = p.granule
		}
		i += j + p.size
	}
	return granule, nil
}
