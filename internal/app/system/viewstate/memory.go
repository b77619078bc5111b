package viewstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memEntry struct {
	data    []byte
	gen     int64
	expires time.Time
}

// Memory is a process-local Store. It is the default when no Redis address
// is configured and is only correct for a single instance.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	values  map[string]memEntry
	gens    map[string]memEntry
	now     func() time.Time
	stop    chan struct{}
	stopped bool
}

// NewMemory returns a Memory store. Call Close to stop the janitor.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		ttl:    ttl,
		values: make(map[string]memEntry),
		gens:   make(map[string]memEntry),
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go m.janitor()
	return m
}

// SetClock replaces the time source (tests).
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Next(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return 0, ErrClosed
	}
	e := m.live(m.gens, key)
	e.gen++
	e.expires = m.now().Add(m.ttl)
	m.gens[key] = e
	return e.gen, nil
}

func (m *Memory) Current(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return 0, ErrClosed
	}
	return m.live(m.gens, key).gen, nil
}

func (m *Memory) Save(_ context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("viewstate: encode %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrClosed
	}
	m.values[key] = memEntry{data: data, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Load(_ context.Context, key string, v any) (bool, error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return false, ErrClosed
	}
	e := m.live(m.values, key)
	m.mu.Unlock()

	if e.data == nil {
		return false, nil
	}
	if err := json.Unmarshal(e.data, v); err != nil {
		return false, fmt.Errorf("viewstate: decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrClosed
	}
	delete(m.values, key)
	return nil
}

func (m *Memory) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrClosed
	}
	return nil
}

// Close stops the janitor. Further calls return ErrClosed.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped {
		m.stopped = true
		close(m.stop)
	}
}

// live returns the unexpired entry for key, dropping it if it expired.
// Caller holds m.mu.
func (m *Memory) live(tbl map[string]memEntry, key string) memEntry {
	e, ok := tbl[key]
	if !ok {
		return memEntry{}
	}
	if !m.now().Before(e.expires) {
		delete(tbl, key)
		return memEntry{}
	}
	return e
}

func (m *Memory) janitor() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.values {
		if !now.Before(e.expires) {
			delete(m.values, k)
		}
	}
	for k, e := range m.gens {
		if !now.Before(e.expires) {
			delete(m.gens, k)
		}
	}
}
