package service

import (
	"sync"
	"time"
)

type throttleKey struct {
	userId       string
	whiteboardId string
}

// ThrottleGate admits at most one activity-log write per (user,
// whiteboard) pair per window. It only gates the audit trail; element
// broadcasts are never throttled.
type ThrottleGate struct {
	mu         sync.Mutex
	window     time.Duration
	lastLogged map[throttleKey]time.Time
}

func NewThrottleGate(window time.Duration) *ThrottleGate {
	return &ThrottleGate{
		window:     window,
		lastLogged: make(map[throttleKey]time.Time),
	}
}

// Allow reports whether a log write for the pair is admitted now, and
// if so starts a new window.
func (g *ThrottleGate) Allow(userId string, whiteboardId string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := throttleKey{userId, whiteboardId}
	now := time.Now()
	if last, ok := g.lastLogged[key]; ok && now.Sub(last) < g.window {
		return false
	}
	g.lastLogged[key] = now
	return true
}

// Forget drops every window held by the user, called when their last
// connection goes away.
func (g *ThrottleGate) Forget(userId string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for key := range g.lastLogged {
		if key.userId == userId {
			delete(g.lastLogged, key)
		}
	}
}

// Sweep removes entries older than the cutoff and returns how many were
// dropped. Entries older than the window are inert, so this only bounds
// memory.
func (g *ThrottleGate) Sweep(olderThan time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for key, last := range g.lastLogged {
		if last.Before(cutoff) {
			delete(g.lastLogged, key)
			removed++
		}
	}
	return removed
}
