// SPDX-License-Identifier: EPL-2.0

// Package config loads playback sessions from YAML files.
//
// A session names the assets to play, where they come from, where the audio
// goes and how the pipeline is tuned:
//
//	assets:
//	  - 01 - intro.mp3
//	  - 02 - theme.ogg
//	source:
//	  dir: /srv/music/album
//	sink:
//	  type: speaker
//	  latency: 100ms
//	pipeline:
//	  starvation_ceiling: 50
//	  poll_interval: 10ms
//	log_level: info
//
// Assets on a disk image are served with source.image and source.partition;
// sink.type "wav" renders to sink.path instead of playing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ik5/gapless/audio"
	"github.com/ik5/gapless/pipeline"
	"github.com/ik5/gapless/source"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	SinkSpeaker = "speaker"
	SinkWAV     = "wav"
)

var (
	ErrNoAssets      = errors.New("session has no assets")
	ErrSourceConfig  = errors.New("session source needs exactly one of dir and image")
	ErrUnknownSink   = errors.New("unknown sink type")
	ErrMissingWAVOut = errors.New("wav sink needs a path")
)

// Session is one playback session.
type Session struct {
	Assets   []string       `yaml:"assets"`
	Source   SourceConfig   `yaml:"source"`
	Sink     SinkConfig     `yaml:"sink"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	LogLevel string         `yaml:"log_level"`

	// dir is the directory of the session file; relative paths resolve
	// against it.
	dir string
}

type SourceConfig struct {
	Dir       string `yaml:"dir"`
	Image     string `yaml:"image"`
	Partition int    `yaml:"partition"`
}

type SinkConfig struct {
	Type    string        `yaml:"type"`
	Path    string        `yaml:"path"`
	Latency time.Duration `yaml:"latency"`
	Volume  float64       `yaml:"volume"`
}

type PipelineConfig struct {
	StarvationCeiling int           `yaml:"starvation_ceiling"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	BufferMultiplier  int           `yaml:"buffer_multiplier"`
	MinBuffer         time.Duration `yaml:"min_buffer"`
	MaxBuffer         time.Duration `yaml:"max_buffer"`
	ReadAheadChunk    int           `yaml:"read_ahead_chunk"`
	StrictFormat      bool          `yaml:"strict_format"`
}

// Load reads and validates the session file at path.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// Parse decodes and validates a session. Relative paths stay relative to
// the working directory.
func Parse(r io.Reader) (*Session, error) {
	var s Session

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}

	if s.Sink.Type == "" {
		s.Sink.Type = SinkSpeaker
	}
	if s.LogLevel == "" {
		s.LogLevel = zerolog.LevelInfoValue
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Session) Validate() error {
	if len(s.Assets) == 0 {
		return ErrNoAssets
	}
	if (s.Source.Dir == "") == (s.Source.Image == "") {
		return ErrSourceConfig
	}

	switch s.Sink.Type {
	case SinkSpeaker:
	case SinkWAV:
		if s.Sink.Path == "" {
			return ErrMissingWAVOut
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSink, s.Sink.Type)
	}

	if _, err := s.Level(); err != nil {
		return err
	}
	return s.PipelineConfig(zerolog.Nop()).Validate()
}

// Level is the parsed log level.
func (s *Session) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// PipelineConfig converts the tunables, leaving unset ones to the pipeline
// defaults.
func (s *Session) PipelineConfig(logger zerolog.Logger) pipeline.Config {
	p := s.Pipeline
	return pipeline.Config{
		StarvationCeiling: p.StarvationCeiling,
		PollInterval:      p.PollInterval,
		BufferMultiplier:  p.BufferMultiplier,
		MinBufferDuration: p.MinBuffer,
		MaxBufferDuration: p.MaxBuffer,
		ReadAheadChunk:    p.ReadAheadChunk,
		StrictFormat:      p.StrictFormat,
		Logger:            logger,
	}
}

// Path resolves p against the session file's directory.
func (s *Session) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}

// OpenSource builds the asset source. The returned closer releases it.
func (s *Session) OpenSource() (audio.AssetSource, io.Closer, error) {
	if s.Source.Image != "" {
		img := source.NewDiskImage(s.Path(s.Source.Image), s.Source.Partition)
		return img, img, nil
	}

	dir := s.Path(s.Source.Dir)
	st, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("config: source: %w", err)
	}
	if !st.IsDir() {
		return nil, nil, fmt.Errorf("config: source %s is not a directory", dir)
	}
	return source.Dir(dir), nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
