package udp

import (
	"sort"
	"sync"
	"time"
)

// KnownServer is a game server seen on the discovery port.
type KnownServer struct {
	Announcement
	FirstSeen time.Time
	LastSeen  time.Time
	Offers    int
}

// ServerTable remembers which servers are currently announcing. Entries not
// refreshed within timeout are dropped by CleanupStale.
type ServerTable struct {
	mu      sync.RWMutex
	servers map[string]*KnownServer // game address -> server
	timeout time.Duration
}

func NewServerTable(timeout time.Duration) *ServerTable {
	return &ServerTable{
		servers: make(map[string]*KnownServer),
		timeout: timeout,
	}
}

// Seen records an announcement and reports whether the server is new.
func (st *ServerTable) Seen(a Announcement) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	key := a.GameAddr()
	if s, ok := st.servers[key]; ok {
		s.Announcement = a
		s.LastSeen = a.ReceivedAt
		s.Offers++
		return false
	}
	st.servers[key] = &KnownServer{
		Announcement: a,
		FirstSeen:    a.ReceivedAt,
		LastSeen:     a.ReceivedAt,
		Offers:       1,
	}
	return true
}

// GetAll returns a copy of every known server ordered by address.
func (st *ServerTable) GetAll() []KnownServer {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]KnownServer, 0, len(st.servers))
	for _, s := range st.servers {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameAddr() < out[j].GameAddr() })
	return out
}

// CleanupStale drops servers not heard from within the timeout and returns
// how many were removed.
func (st *ServerTable) CleanupStale(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for key, s := range st.servers {
		if now.Sub(s.LastSeen) > st.timeout {
			delete(st.servers, key)
			removed++
		}
	}
	return removed
}

func (st *ServerTable) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.servers)
}

// StartCleanupRoutine runs CleanupStale every interval until done is closed.
func (st *ServerTable) StartCleanupRoutine(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			st.CleanupStale(now)
		case <-done:
			return
		}
	}
}
