// SPDX-License-Identifier: EPL-2.0

// Package gapless plays sequences of audio files back to back with no
// audible gap between them.
//
// The work is done by the pipeline subpackage. This package wires it to
// every container and codec the module ships and offers a one-call entry
// point.
//
// # Supported Formats
//
// Containers:
//   - WAV (PCM 16-bit) via formats/wav
//   - AIFF (PCM 16-bit) via formats/aiff
//   - MP3 with Xing/LAME gapless info via formats/mp3
//   - Ogg carrying Vorbis or Opus via formats/ogg
//
// Codecs:
//   - uncompressed PCM via formats/pcm
//   - MPEG-1/2 Layer III via formats/mp3
//   - Vorbis via formats/vorbis
//   - Opus via formats/opus (needs cgo and libopus, see DefaultRegistry)
//
// # Quick Start
//
//	logger := zerolog.New(zerolog.NewConsoleWriter())
//
//	err := gapless.Play(ctx, []string{"01.mp3", "02.mp3"}, pipeline.Dependencies{
//	    Source:   source.Dir("/srv/music/album"),
//	    Registry: gapless.DefaultRegistry(),
//	    Sinks:    speaker.NewFactory(logger),
//	}, pipeline.DefaultConfig())
//
// # Outputs
//
// sink/speaker plays through the system audio device. sink/wavfile renders
// the session into a WAV file, which is handy for headless runs and for
// checking that track boundaries are sample exact.
//
// # Sources
//
// The source subpackage serves assets from a directory, any fs.FS, or a
// file system inside a disk image.
//
// See the individual subpackages for more detailed documentation.
package gapless
