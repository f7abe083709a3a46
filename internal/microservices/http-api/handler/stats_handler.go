package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blackjack/internal/microservices/http-api/dto"
	"blackjack/internal/stats"
)

// SnapshotSource is satisfied by *stats.Registry.
type SnapshotSource interface {
	Snapshot() stats.Snapshot
}

type StatsHandler struct {
	src        SnapshotSource
	serverName string
}

func NewStatsHandler(src SnapshotSource, serverName string) *StatsHandler {
	return &StatsHandler{src: src, serverName: serverName}
}

func (h *StatsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
}

// Get handles GET /api/stats
func (h *StatsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StatsFromSnapshot(h.serverName, h.src.Snapshot()))
}

// CheckConn handles GET /check-conn
func CheckConn(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "it's happening"})
}
