package dto

import (
	"time"

	"blackjack/internal/stats"
)

// DTOs for the stats reporting API

type StatsResponse struct {
	ServerName    string  `json:"server_name"`
	Served        uint64  `json:"served"`
	Active        int64   `json:"active"`
	Rounds        uint64  `json:"rounds"`
	Wins          uint64  `json:"wins"`
	Losses        uint64  `json:"losses"`
	Pushes        uint64  `json:"pushes"`
	Aborted       uint64  `json:"aborted"`
	Rejected      uint64  `json:"rejected"`
	WinRate       float64 `json:"win_rate"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	StartedAt     string  `json:"started_at"`
	TakenAt       string  `json:"taken_at"`
}

func StatsFromSnapshot(name string, s stats.Snapshot) StatsResponse {
	return StatsResponse{
		ServerName:    name,
		Served:        s.Served,
		Active:        s.Active,
		Rounds:        s.Rounds,
		Wins:          s.Wins,
		Losses:        s.Losses,
		Pushes:        s.Pushes,
		Aborted:       s.Aborted,
		Rejected:      s.Rejected,
		WinRate:       s.WinRate(),
		UptimeSeconds: int64(s.TakenAt.Sub(s.StartedAt) / time.Second),
		StartedAt:     s.StartedAt.UTC().Format(time.RFC3339),
		TakenAt:       s.TakenAt.UTC().Format(time.RFC3339),
	}
}
