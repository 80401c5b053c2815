package heartbeat

import (
	"sync"
	"time"

	"github.com/loykin/folio/internal/metrics"
)

// Registrar records the most recent liveness signal.
// last_seen only moves forward; an older timestamp is ignored.
type Registrar struct {
	mu       sync.Mutex
	lastSeen time.Time
	now      func() time.Time
}

// NewRegistrar returns a Registrar whose clock starts at now(), so a client
// that never pings still gets one full threshold before shutdown.
// A nil now uses time.Now.
func NewRegistrar(now func() time.Time) *Registrar {
	if now == nil {
		now = time.Now
	}
	return &Registrar{lastSeen: now(), now: now}
}

// Signal records a heartbeat at the current time.
func (r *Registrar) Signal() {
	r.SignalAt(r.now())
}

// SignalAt records a heartbeat observed at t and reports whether last_seen moved.
func (r *Registrar) SignalAt(t time.Time) bool {
	metrics.IncHeartbeat()
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.Before(r.lastSeen) {
		metrics.IncHeartbeatRegression()
		return false
	}
	r.lastSeen = t
	return true
}

// LastSeen returns the latest recorded heartbeat time.
func (r *Registrar) LastSeen() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeen
}

// Idle returns how long it has been since the last heartbeat at now.
func (r *Registrar) Idle(now time.Time) time.Duration {
	return now.Sub(r.LastSeen())
}
