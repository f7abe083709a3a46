package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blackjack/internal/game"
	"blackjack/internal/microservices/http-api/dto"
	"blackjack/internal/stats"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouter_LiveStats(t *testing.T) {
	reg := stats.NewRegistry()
	srv := httptest.NewServer(NewRouter(reg, Config{ServerName: "Dealer", LiveInterval: 20 * time.Millisecond}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stats/live"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first dto.StatsResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "Dealer", first.ServerName)
	assert.Zero(t, first.Rounds)

	reg.RecordRound(game.Win)

	// a later push reflects the new round
	var next dto.StatsResponse
	for i := 0; i < 100 && next.Rounds == 0; i++ {
		require.NoError(t, conn.ReadJSON(&next))
	}
	assert.Equal(t, uint64(1), next.Rounds)
	assert.Equal(t, uint64(1), next.Wins)
}

func TestRouter_LiveRequiresUpgrade(t *testing.T) {
	router := NewRouter(stats.NewRegistry(), Config{})

	req, _ := http.NewRequest(http.MethodGet, "/api/stats/live", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_StartAndShutdown(t *testing.T) {
	reg := stats.NewRegistry()
	reg.IncrementServed()

	s, err := NewServer(reg, Config{Host: "127.0.0.1", ServerName: "Dealer"}, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	resp, err := http.Get("http://" + s.Addr() + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body dto.StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, uint64(1), body.Served)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-done)
}
