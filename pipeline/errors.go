// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks errors that make the session unplayable as
	// configured. It wraps the specific cause.
	ErrConfiguration   = errors.New("configuration error")
	ErrMultiTrack      = errors.New("asset must have exactly one track")
	ErrFormatMismatch  = errors.New("asset format differs from the sink format")
	ErrInvalidSinkSize = errors.New("sink reported an invalid minimum buffer size")

	ErrAssetOpen = errors.New("cannot open asset")
	ErrCodec     = errors.New("codec failure")
	ErrSink      = errors.New("sink failure")

	// ErrStarvation is logged when a decoder stops producing output. It
	// never ends the session.
	ErrStarvation = errors.New("decoder starved")

	ErrInvalidConfig     = errors.New("invalid pipeline config")
	ErrMissingDependency = errors.New("missing pipeline dependency")
)

func configError(err error) error {
	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}
