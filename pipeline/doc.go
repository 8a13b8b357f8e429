// SPDX-License-Identifier: EPL-2.0

// Package pipeline plays a sequence of audio assets back to back without
// gaps.
//
// A Controller owns one worker goroutine that walks the sequence. For each
// asset it opens a demuxer behind a read-ahead cache, selects the single
// track, configures a fresh codec from the registry and pumps samples
// through it into one shared sink:
//
//	source -> read-ahead -> demuxer -> codec -> sink
//
// # Gapless transitions
//
// Opening an asset is the slow part of a transition. Once the current
// demuxer reports that its cache holds the rest of the asset, the worker
// opens the next asset's demuxer while the current one is still decoding,
// and adopts it at the next setup instead of reopening. The sink is built
// once, from the first asset's format, and never recreated.
//
// # Sink sizing
//
// The sink buffer is the sink's minimum size times Config.BufferMultiplier,
// clamped to [MinBufferDuration, max(minimum, MaxBufferDuration)] worth of
// PCM. See SinkBufferSize.
//
// # Positions
//
// ExtractedPosition and DecodedPosition report absolute timestamps across
// the whole sequence. Both only move forward. PlaybackPosition is based on
// the sink's playback head.
//
// # Errors
//
// Configuration problems (multi-track assets, unsupported channel counts,
// unknown codecs or containers) and failures opening an asset end the
// session and are returned from Wait. A codec that stops producing output
// for Config.StarvationCeiling iterations only ends its asset. Cancelling is
// not an error.
//
// # Usage
//
//	ctrl, err := pipeline.New(assets, pipeline.Dependencies{
//	    Source:   source.Dir("music"),
//	    Registry: gapless.DefaultRegistry(),
//	    Sinks:    speaker.NewFactory(logger),
//	}, pipeline.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	ctrl.Start(ctx)
//	return ctrl.Wait()
package pipeline
