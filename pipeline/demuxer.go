// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/gapless/audio"
	"github.com/ik5/gapless/internal/readahead"
	"github.com/rs/zerolog"
)

// sniffSize is how much of an asset is offered to content sniffing.
const sniffSize = 512

// demuxerHandle is an open demuxer with the read-ahead cache it reads from.
type demuxerHandle struct {
	index int
	id    string
	cache *readahead.Reader
	demux audio.Demuxer
}

func (c *Controller) openDemuxer(index int) (*demuxerHandle, error) {
	id := c.assets[index]

	rsc, err := c.deps.Source.Open(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetOpen, id, err)
	}
	cache := readahead.New(rsc, c.cfg.ReadAheadChunk)

	head := make([]byte, sniffSize)
	n, err := cache.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		cache.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetOpen, id, err)
	}

	factory, err := c.deps.Registry.DemuxerFor(id, head[:n])
	if err != nil {
		cache.Close()
		return nil, configError(err)
	}

	demux, err := factory.Open(cache)
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("%w: %s: %s: %w", ErrAssetOpen, id, factory.Name, err)
	}

	return &demuxerHandle{index: index, id: id, cache: cache, demux: demux}, nil
}

func (d *demuxerHandle) close() error {
	return errors.Join(d.demux.Close(), d.cache.Close())
}

// release closes d and logs a failure instead of returning it.
func (d *demuxerHandle) release(log zerolog.Logger) {
	if err := d.close(); err != nil {
		log.Warn().Err(err).Str("asset", d.id).Msg("closing demuxer")
	}
}

// selectTrack selects the single track of d and maps its channels to a sink
// layout.
func selectTrack(d audio.Demuxer) (audio.TrackFormat, audio.ChannelLayout, error) {
	if n := d.TrackCount(); n != 1 {
		return audio.TrackFormat{}, audio.LayoutInvalid, configError(fmt.Errorf("%w: found %d", ErrMultiTrack, n))
	}
	if err := d.SelectTrack(0); err != nil {
		return audio.TrackFormat{}, audio.LayoutInvalid, configError(err)
	}

	format, err := d.TrackFormat(0)
	if err != nil {
		return audio.TrackFormat{}, audio.LayoutInvalid, configError(err)
	}

	layout, err := audio.LayoutForChannels(format.Channels)
	if err != nil {
		return audio.TrackFormat{}, audio.LayoutInvalid, configError(err)
	}
	return format, layout, nil
}
