// Package stats keeps server-wide totals across all sessions.
package stats

import (
	"sync"
	"time"

	"blackjack/internal/game"
)

// Snapshot is a point-in-time copy of the registry.
type Snapshot struct {
	Served    uint64    `json:"served"`
	Active    int64     `json:"active"`
	Rounds    uint64    `json:"rounds"`
	Wins      uint64    `json:"wins"`
	Losses    uint64    `json:"losses"`
	Pushes    uint64    `json:"pushes"`
	Aborted   uint64    `json:"aborted"`
	Rejected  uint64    `json:"rejected"`
	StartedAt time.Time `json:"started_at"`
	TakenAt   time.Time `json:"taken_at"`
}

// WinRate is the player win share of completed rounds, 0 when none completed.
func (s Snapshot) WinRate() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Rounds)
}

// Registry is shared by every session. All methods are safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	served    uint64
	active    int64
	rounds    uint64
	wins      uint64
	losses    uint64
	pushes    uint64
	aborted   uint64
	rejected  uint64
	startedAt time.Time
	now       func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{startedAt: time.Now(), now: time.Now}
}

// IncrementServed counts a client whose Request was accepted.
func (r *Registry) IncrementServed() {
	r.mu.Lock()
	r.served++
	r.mu.Unlock()
}

// RecordRound commits one finished round. Unknown outcomes are ignored.
func (r *Registry) RecordRound(o game.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch o {
	case game.Win:
		r.wins++
	case game.Loss:
		r.losses++
	case game.Push:
		r.pushes++
	default:
		return
	}
	r.rounds++
}

func (r *Registry) SessionOpened() {
	r.mu.Lock()
	r.active++
	r.mu.Unlock()
}

// SessionClosed releases the active slot. aborted marks a session that ended
// before all requested rounds were played.
func (r *Registry) SessionClosed(aborted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active > 0 {
		r.active--
	}
	if aborted {
		r.aborted++
	}
}

// RecordRejected counts a connection turned away because the server was full.
func (r *Registry) RecordRejected() {
	r.mu.Lock()
	r.rejected++
	r.mu.Unlock()
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Served:    r.served,
		Active:    r.active,
		Rounds:    r.rounds,
		Wins:      r.wins,
		Losses:    r.losses,
		Pushes:    r.pushes,
		Aborted:   r.aborted,
		Rejected:  r.rejected,
		StartedAt: r.startedAt,
		TakenAt:   r.now(),
	}
}
