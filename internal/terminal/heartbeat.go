package terminal

import (
	"context"
	"sync"
	"time"

	"pollguard/pkg/requestcontext"
)

// Heartbeat is a liveness report from a polling terminal.
type Heartbeat struct {
	TerminalID       string
	PollingStationID string
	Status           string
	SeenAt           time.Time
}

// Monitor tracks terminal liveness from periodic heartbeats.
type Monitor struct {
	mu     sync.RWMutex
	seen   map[string]Heartbeat
	update map[string]bool
}

func NewMonitor() *Monitor {
	return &Monitor{
		seen:   make(map[string]Heartbeat),
		update: make(map[string]bool),
	}
}

// Record stores the latest heartbeat for a terminal and reports whether
// a software update is pending for it.
func (m *Monitor) Record(ctx context.Context, hb Heartbeat) bool {
	if hb.SeenAt.IsZero() {
		hb.SeenAt = requestcontext.Now(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[hb.TerminalID] = hb
	return m.update[hb.TerminalID]
}

// FlagUpdate marks a terminal as having a pending software update. The
// flag is surfaced on the terminal's next heartbeat.
func (m *Monitor) FlagUpdate(terminalID string, pending bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pending {
		m.update[terminalID] = true
	} else {
		delete(m.update, terminalID)
	}
}

// Stale returns terminals whose last heartbeat is older than threshold.
func (m *Monitor) Stale(now time.Time, threshold time.Duration) []Heartbeat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stale []Heartbeat
	for _, hb := range m.seen {
		if now.Sub(hb.SeenAt) > threshold {
			stale = append(stale, hb)
		}
	}
	return stale
}
