// SPDX-License-Identifier: EPL-2.0

package source

import "errors"

var (
	ErrInvalidID  = errors.New("invalid asset id")
	ErrNotRegular = errors.New("asset is not a regular file")
	ErrClosed     = errors.New("source closed")
)
