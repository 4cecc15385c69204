package auth

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

const refreshFlightKey = "token-refresh"

// Coordinator collapses concurrent refresh attempts into a single in-flight
// operation: the first caller executes, everyone else attaches to the same
// flight and receives the same outcome. Once a flight completes it is
// forgotten, so later callers always start fresh.
//
// It also serializes credential-store writers, so a login can not race an
// in-flight refresh.
type Coordinator struct {
	group singleflight.Group

	// writeMu is held for the duration of every credential write
	// (refresh persisting tokens, login persisting tokens, logout
	// clearing them).
	writeMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Refresh runs fn under the single-flight guard. fn receives a context
// detached from any individual caller: the outcome is shared system-wide,
// so its lifetime must not be tied to whichever caller arrived first. Only
// Cancel aborts it.
func (c *Coordinator) Refresh(fn func(ctx context.Context) error) error {
	_, err, _ := c.group.Do(refreshFlightKey, func() (any, error) {
		ctx, cancel := context.WithCancel(context.Background())

		c.mu.Lock()
		c.cancel = cancel
		c.mu.Unlock()

		defer func() {
			c.mu.Lock()
			c.cancel = nil
			c.mu.Unlock()
			cancel()
		}()

		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return nil, fn(ctx)
	})
	return err
}

// Exclusive runs fn while no refresh is writing credentials. Unlike
// Refresh, callers never attach to each other; each fn runs.
func (c *Coordinator) Exclusive(fn func() error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return fn()
}

// Cancel aborts the in-flight refresh, if any. Attached callers observe the
// cancellation as a failure; the next Refresh starts a new flight.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.group.Forget(refreshFlightKey)
}
