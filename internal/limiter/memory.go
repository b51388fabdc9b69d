package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/and161185/todo-keeper/internal/clock"
)

type entry struct {
	fails        int
	blockedUntil time.Time
	updatedAt    time.Time
}

// Memory is an in-process limiter with the same window semantics as PG.
type Memory struct {
	mu      sync.Mutex
	clk     clock.Clock
	p       Policy
	entries map[string]*entry
}

// NewMemory constructs an in-process limiter.
func NewMemory(clk clock.Clock, p Policy) *Memory {
	return &Memory{clk: clk, p: p, entries: map[string]*entry{}}
}

func (k Key) id() string { return k.Kind + "\x00" + k.Email + "\x00" + string(k.IPHash) }

func (l *Memory) Allow(_ context.Context, k Key) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[k.id()]
	if !ok {
		return true, 0, nil
	}
	now := l.clk.Now()
	if e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (l *Memory) Success(_ context.Context, k Key) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, k.id())
	return nil
}

func (l *Memory) Failure(_ context.Context, k Key) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clk.Now()
	e, ok := l.entries[k.id()]
	if !ok || now.Sub(e.updatedAt) > l.p.Window {
		e = &entry{}
		l.entries[k.id()] = e
	}
	e.fails++
	e.updatedAt = now
	if e.fails >= l.p.MaxFails {
		e.blockedUntil = now.Add(l.p.BlockFor)
		return true, l.p.BlockFor, nil
	}
	return false, 0, nil
}
