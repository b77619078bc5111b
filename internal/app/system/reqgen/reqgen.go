// Package reqgen makes "latest selection wins" hold for per-viewer requests.
//
// Each selection takes a generation from the view-state store. Starting a
// new request for a key cancels the previous in-flight one on this instance,
// and a result is accepted only while its generation is still current, which
// also covers requests that were in flight on another instance.
package reqgen

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalemusser/studentportal/internal/app/system/viewstate"
)

// Ticket identifies one request generation.
type Ticket struct {
	Key string
	Gen int64
}

type inflight struct {
	gen    int64
	cancel context.CancelFunc
}

// Coordinator tracks in-flight requests per key.
type Coordinator struct {
	gens viewstate.Store

	mu       sync.Mutex
	inflight map[string]inflight
}

// New returns a Coordinator backed by the given generation store.
func New(gens viewstate.Store) *Coordinator {
	return &Coordinator{gens: gens, inflight: make(map[string]inflight)}
}

// Begin starts a new generation for key, cancelling the previous in-flight
// request for the same key. The returned context is cancelled by Finish or
// by a later generation.
//
// Generations are taken before the lock, so two Begins may register out of
// order. Only an older generation is ever cancelled: a Begin that finds a
// newer one already registered gets a cancelled context back.
func (c *Coordinator) Begin(ctx context.Context, key string) (context.Context, Ticket, error) {
	gen, err := c.gens.Next(ctx, key)
	if err != nil {
		return ctx, Ticket{}, fmt.Errorf("reqgen: next generation: %w", err)
	}
	rctx, cancel := context.WithCancel(ctx)
	t := Ticket{Key: key, Gen: gen}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.inflight[key]; ok {
		if prev.gen > gen {
			cancel()
			return rctx, t, nil
		}
		prev.cancel()
	}
	c.inflight[key] = inflight{gen: gen, cancel: cancel}
	return rctx, t, nil
}

// Current reports whether t is still the latest generation for its key.
// A store error is treated as superseded so stale data is never shown.
func (c *Coordinator) Current(ctx context.Context, t Ticket) bool {
	cur, err := c.gens.Current(ctx, t.Key)
	if err != nil {
		return false
	}
	return cur == t.Gen
}

// Finish releases t's context.
func (c *Coordinator) Finish(t Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.inflight[t.Key]; ok && e.gen == t.Gen {
		e.cancel()
		delete(c.inflight, t.Key)
	}
}

// InFlight reports how many keys have a running request (tests, health).
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}
