// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"fmt"
	"time"

	"github.com/ik5/gapless/internal/readahead"
	"github.com/rs/zerolog"
)

const (
	DefaultStarvationCeiling = 50
	DefaultPollInterval      = 10 * time.Millisecond
	DefaultBufferMultiplier  = 4
	DefaultMinBufferDuration = 250 * time.Millisecond
	DefaultMaxBufferDuration = 750 * time.Millisecond
)

// Config tunes a Controller. Zero fields take their defaults.
type Config struct {
	// StarvationCeiling is the number of consecutive decode iterations
	// without audible output after which the current asset is abandoned.
	StarvationCeiling int
	// PollInterval is how long an idle decode iteration waits before
	// probing the codec again.
	PollInterval time.Duration

	// BufferMultiplier scales the sink's minimum buffer size.
	BufferMultiplier int
	// MinBufferDuration and MaxBufferDuration bound the sink buffer.
	MinBufferDuration time.Duration
	MaxBufferDuration time.Duration

	// ReadAheadChunk is the read size of the per-asset read-ahead cache.
	ReadAheadChunk int

	// StrictFormat turns a later asset whose rate or layout differs from
	// the sink into a configuration error. By default it is only logged.
	StrictFormat bool

	// Logger receives the controller's logs. The zero value discards them.
	Logger zerolog.Logger
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		StarvationCeiling: DefaultStarvationCeiling,
		PollInterval:      DefaultPollInterval,
		BufferMultiplier:  DefaultBufferMultiplier,
		MinBufferDuration: DefaultMinBufferDuration,
		MaxBufferDuration: DefaultMaxBufferDuration,
		ReadAheadChunk:    readahead.DefaultChunkSize,
		Logger:            zerolog.Nop(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StarvationCeiling == 0 {
		c.StarvationCeiling = d.StarvationCeiling
	}
	if c.PollInterval == 0 {
		c.PollInterval = d.PollInterval
	}
	if c.BufferMultiplier == 0 {
		c.BufferMultiplier = d.BufferMultiplier
	}
	if c.MinBufferDuration == 0 {
		c.MinBufferDuration = d.MinBufferDuration
	}
	if c.MaxBufferDuration == 0 {
		c.MaxBufferDuration = d.MaxBufferDuration
	}
	if c.ReadAheadChunk == 0 {
		c.ReadAheadChunk = d.ReadAheadChunk
	}
	return c
}

// Validate checks c after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()

	switch {
	case c.StarvationCeiling < 0:
		return fmt.Errorf("%w: starvation ceiling %d", ErrInvalidConfig, c.StarvationCeiling)
	case c.PollInterval < 0:
		return fmt.Errorf("%w: poll interval %v", ErrInvalidConfig, c.PollInterval)
	case c.BufferMultiplier < 0:
		return fmt.Errorf("%w: buffer multiplier %d", ErrInvalidConfig, c.BufferMultiplier)
	case c.MinBufferDuration < 0:
		return fmt.Errorf("%w: min buffer duration %v", ErrInvalidConfig, c.MinBufferDuration)
	case c.MaxBufferDuration < c.MinBufferDuration:
		return fmt.Errorf("%w: max buffer duration %v below min %v", ErrInvalidConfig, c.MaxBufferDuration, c.MinBufferDuration)
	case c.ReadAheadChunk < 0:
		return fmt.Errorf("%w: read-ahead chunk %d", ErrInvalidConfig, c.ReadAheadChunk)
	}
	return nil
}
