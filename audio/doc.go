// SPDX-License-Identifier: EPL-2.0

// Package audio defines the building blocks of the gapless playback
// pipeline.
//
// The package contains no playback logic of its own. It names the
// capabilities the pipeline drives and the values that flow between them:
//   - AssetSource resolves asset identifiers to byte handles
//   - Demuxer parses one asset into timestamped compressed samples
//   - Codec turns compressed samples into PCM through slot queues
//   - Sink plays PCM from an internal ring buffer
//   - Registry maps containers and MIME types to implementations
//
// # Track Formats
//
// A TrackFormat is read once per asset from its demuxer:
//
//	format, err := demuxer.TrackFormat(0)
//	layout, err := audio.LayoutForChannels(format.Channels)
//
// Only mono, stereo, 5.1 and 7.1 layouts are playable; any other channel
// count fails with ErrUnsupportedChannelCount.
//
// # Codecs
//
// Codecs follow a queue protocol: the caller dequeues a free input slot,
// fills it with one compressed sample and queues it back, then polls for
// decoded output:
//
//	slot, ok := codec.DequeueInputBuffer(10 * time.Millisecond)
//	if ok {
//	    n, err := demuxer.ReadSample(codec.InputBuffer(slot))
//	    ...
//	    codec.QueueInputBuffer(slot, n, demuxer.SampleTime(), 0)
//	}
//	out, status, err := codec.DequeueOutputBuffer(10 * time.Millisecond)
//
// SlotCodec adapts any synchronous PacketDecoder to this protocol and
// applies gapless trimming from EncoderDelay and TotalFrames.
//
// # Sample Format
//
// Everything after the codec is interleaved signed 16-bit little-endian PCM
// (EncodingPCM16). MixToMono folds multichannel PCM16 to one channel.
//
// # Registry
//
//	registry := audio.NewRegistry()
//	registry.RegisterDemuxer(wav.Factory())
//	registry.RegisterCodec(audio.MIMERaw, pcm.NewCodec)
//	factory, err := registry.DemuxerFor("track01.wav", head)
package audio
