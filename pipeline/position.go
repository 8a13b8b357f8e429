// SPDX-License-Identifier: EPL-2.0

package pipeline

import "time"

// counter is an absolute transport position: the total of completed assets
// plus the offset into the current one.
type counter struct {
	accumulated time.Duration
	current     time.Duration
}

// set moves the current offset forward. Timestamps behind it are ignored.
func (c *counter) set(t time.Duration) {
	if t > c.current {
		c.current = t
	}
}

func (c *counter) fold() {
	c.accumulated += c.current
	c.current = 0
}

func (c counter) total() time.Duration {
	return c.accumulated + c.current
}
