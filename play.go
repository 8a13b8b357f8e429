// SPDX-License-Identifier: EPL-2.0

package gapless

import (
	"context"

	"github.com/ik5/gapless/pipeline"
)

// Play plays assets to the end and returns once every resource was
// released. Cancelling ctx stops playback early and is not an error.
//
// For position reporting or stopping from another goroutine, use a
// pipeline.Controller directly.
func Play(ctx context.Context, assets []string, deps pipeline.Dependencies, cfg pipeline.Config) error {
	ctrl, err := pipeline.New(assets, deps, cfg)
	if err != nil {
		return err
	}

	ctrl.Start(ctx)
	return ctrl.Wait()
}
