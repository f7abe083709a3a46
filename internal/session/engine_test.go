package session

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blackjack/internal/game"
	"blackjack/internal/protocol"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) IncrementServed()           { m.Called() }
func (m *mockRecorder) RecordRound(o game.Outcome) { m.Called(o) }

type runResult struct {
	summary Summary
	err     error
}

type harness struct {
	t      *testing.T
	client net.Conn
	in     *protocol.Reader
	engine *Engine
	done   chan runResult
}

func c(r game.Rank, s game.Suit) game.Card { return game.Card{Rank: r, Suit: s} }

// deadlineConn arms a fresh read deadline before every read, like the
// dispatcher's client connection.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (d deadlineConn) Read(p []byte) (int, error) {
	if err := d.Conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.Conn.Read(p)
}

func startEngine(t *testing.T, rec StatsRecorder, decks []*game.Deck, opts ...Option) *harness {
	t.Helper()
	return startEngineWithTimeout(t, rec, decks, 0, opts...)
}

// startEngineWithTimeout runs the engine behind a deadlineConn when timeout > 0.
func startEngineWithTimeout(t *testing.T, rec StatsRecorder, decks []*game.Deck, timeout time.Duration, opts ...Option) *harness {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	next := 0
	source := func() *game.Deck {
		d := decks[next%len(decks)]
		next++
		return d
	}
	opts = append([]Option{WithDeckSource(source)}, opts...)
	var rw io.ReadWriter = server
	if timeout > 0 {
		rw = deadlineConn{Conn: server, timeout: timeout}
	}
	e := New("test-session", rw, rec, opts...)

	h := &harness{
		t:      t,
		client: client,
		in:     protocol.NewReader(client, protocol.FromServer),
		engine: e,
		done:   make(chan runResult, 1),
	}
	go func() {
		s, err := e.Run(context.Background())
		h.done <- runResult{s, err}
	}()
	return h
}

func (h *harness) send(m protocol.Message) {
	h.t.Helper()
	require.NoError(h.t, h.client.SetWriteDeadline(time.Now().Add(time.Second)))
	require.NoError(h.t, protocol.WriteMessage(h.client, m))
}

func (h *harness) expect(result protocol.Result, card game.Card) {
	h.t.Helper()
	require.NoError(h.t, h.client.SetReadDeadline(time.Now().Add(time.Second)))
	msg, err := h.in.ReadMessage()
	require.NoError(h.t, err)
	require.Equal(h.t, protocol.Update{Result: result, Rank: uint16(card.Rank), Suit: uint8(card.Suit)}, msg)
}

func (h *harness) wait() runResult {
	h.t.Helper()
	select {
	case r := <-h.done:
		return r
	case <-time.After(2 * time.Second):
		h.t.Fatal("engine did not finish")
		return runResult{}
	}
}

func TestEngine_StandDealerDrawsPastPlayer(t *testing.T) {
	rec := &mockRecorder{}
	rec.On("IncrementServed").Once()
	rec.On("RecordRound", game.Loss).Once()

	deck := game.NewStackedDeck(
		c(10, game.Hearts), c(9, game.Spades), // player 19
		c(10, game.Diamonds), c(6, game.Clubs), // dealer 16
		c(4, game.Hearts), // dealer draws to 20
	)
	h := startEngine(t, rec, []*game.Deck{deck})

	h.send(protocol.Request{Rounds: 1})
	h.expect(protocol.ResultNone, c(10, game.Hearts))
	h.expect(protocol.ResultNone, c(9, game.Spades))
	h.expect(protocol.ResultNone, c(10, game.Diamonds))

	h.send(protocol.Decision{Action: protocol.ActionStand})
	h.expect(protocol.ResultNone, c(6, game.Clubs))
	h.expect(protocol.ResultLoss, c(4, game.Hearts))

	r := h.wait()
	require.NoError(t, r.err)
	assert.Equal(t, Summary{Requested: 1, Completed: 1, Losses: 1}, r.summary)
	assert.Equal(t, SessionClosed, h.engine.State())
	rec.AssertExpectations(t)
}

func TestEngine_HitBustSkipsDealer(t *testing.T) {
	rec := &mockRecorder{}
	rec.On("IncrementServed").Once()
	rec.On("RecordRound", game.Loss).Once()

	deck := game.NewStackedDeck(
		c(10, game.Hearts), c(9, game.Spades),
		c(10, game.Diamonds), c(6, game.Clubs),
		c(5, game.Clubs), // player hits to 24
		c(2, game.Hearts),
	)
	h := startEngine(t, rec, []*game.Deck{deck})

	h.send(protocol.Request{Rounds: 1})
	h.expect(protocol.ResultNone, c(10, game.Hearts))
	h.expect(protocol.ResultNone, c(9, game.Spades))
	h.expect(protocol.ResultNone, c(10, game.Diamonds))

	h.send(protocol.Decision{Action: protocol.ActionHit})
	h.expect(protocol.ResultLoss, c(5, game.Clubs))

	r := h.wait()
	require.NoError(t, r.err)
	assert.Equal(t, 1, r.summary.Losses)
	assert.Equal(t, 1, deck.Remaining(), "dealer must not draw after a player bust")
	rec.AssertNumberOfCalls(t, "RecordRound", 1)
	rec.AssertExpectations(t)
}

func TestEngine_NaturalResolvesImmediately(t *testing.T) {
	rec := &mockRecorder{}
	rec.On("IncrementServed").Once()
	rec.On("RecordRound", game.Win).Once()

	deck := game.NewStackedDeck(
		c(game.Ace, game.Spades), c(game.King, game.Hearts),
		c(10, game.Diamonds), c(7, game.Clubs),
	)
	h := startEngine(t, rec, []*game.Deck{deck})

	h.send(protocol.Request{Rounds: 1})
	h.expect(protocol.ResultNone, c(game.Ace, game.Spades))
	h.expect(protocol.ResultNone, c(game.King, game.Hearts))
	h.expect(protocol.ResultNone, c(10, game.Diamonds))
	h.expect(protocol.ResultWin, c(7, game.Clubs))

	r := h.wait()
	require.NoError(t, r.err)
	assert.Equal(t, 1, r.summary.Wins)
	rec.AssertExpectations(t)
}

func TestEngine_AutoStandOnTwentyOne(t *testing.T) {
	rec := &mockRecorder{}
	rec.On("IncrementServed").Once()
	rec.On("RecordRound", game.Win).Once()

	deck := game.NewStackedDeck(
		c(10, game.Hearts), c(6, game.Spades),
		c(10, game.Diamonds), c(7, game.Clubs), // dealer stands on 17
		c(5, game.Hearts),
	)
	h := startEngine(t, rec, []*game.Deck{deck})

	h.send(protocol.Request{Rounds: 1})
	h.expect(protocol.ResultNone, c(10, game.Hearts))
	h.expect(protocol.ResultNone, c(6, game.Spades))
	h.expect(protocol.ResultNone, c(10, game.Diamonds))

	h.send(protocol.Decision{Action: protocol.ActionHit})
	h.expect(protocol.ResultNone, c(5, game.Hearts))
	// no Stand needed; the hole card comes back with the result
	h.expect(protocol.ResultWin, c(7, game.Clubs))

	r := h.wait()
	require.NoError(t, r.err)
	rec.AssertExpectations(t)
}

func TestEngine_MultipleRounds(t *testing.T) {
	rec := &mockRecorder{}
	rec.On("IncrementServed").Once()
	rec.On("RecordRound", game.Push).Once()
	rec.On("RecordRound", game.Win).Once()

	push := game.NewStackedDeck(
		c(10, game.Hearts), c(8, game.Spades),
		c(9, game.Diamonds), c(9, game.Clubs),
	)
	dealerBust := game.NewStackedDeck(
		c(10, game.Hearts), c(2, game.Spades),
		c(10, game.Diamonds), c(5, game.Clubs),
		c(game.King, game.Clubs),
	)
	h := startEngine(t, rec, []*game.Deck{push, dealerBust})

	h.send(protocol.Request{Rounds: 2})

	h.expect(protocol.ResultNone, c(10, game.Hearts))
	h.expect(protocol.ResultNone, c(8, game.Spades))
	h.expect(protocol.ResultNone, c(9, game.Diamonds))
	h.send(protocol.Decision{Action: protocol.ActionStand})
	h.expect(protocol.ResultPush, c(9, game.Clubs))

	h.expect(protocol.ResultNone, c(10, game.Hearts))
	h.expect(protocol.ResultNone, c(2, game.Spades))
	h.expect(protocol.ResultNone, c(10, game.Diamonds))
	h.send(protocol.Decision{Action: protocol.ActionStand})
	h.expect(protocol.ResultNone, c(5, game.Clubs))
	h.expect(protocol.ResultWin, c(game.King, game.Clubs))

	r := h.wait()
	require.NoError(t, r.err)
	assert.Equal(t, Summary{Requested: 2, Completed: 2, Wins: 1, Pushes: 1}, r.summary)
	rec.AssertExpectations(t)
}

func TestEngine_TimeoutCommitsNothing(t *testing.T) {
	rec := &mockRecorder{}
	rec.On("IncrementServed").Once()

	deck := game.NewStackedDeck(
		c(10, game.Hearts), c(6, game.Spades),
		c(10, game.Diamonds), c(7, game.Clubs),
	)
	h := startEngineWithTimeout(t, rec, []*game.Deck{deck}, 50*time.Millisecond)

	h.send(protocol.Request{Rounds: 3})
	h.expect(protocol.ResultNone, c(10, game.Hearts))
	h.expect(protocol.ResultNone, c(6, game.Spades))
	h.expect(protocol.ResultNone, c(10, game.Diamonds))

	r := h.wait()
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, ErrTimeout)
	assert.Equal(t, Summary{Requested: 3}, r.summary)
	rec.AssertNotCalled(t, "RecordRound", mock.Anything)
	rec.AssertExpectations(t)
}

func TestEngine_IdleBeforeRequest(t *testing.T) {
	rec := &mockRecorder{}
	h := startEngineWithTimeout(t, rec, []*game.Deck{game.NewShuffledDeck()}, 30*time.Millisecond)

	r := h.wait()
	assert.ErrorIs(t, r.err, ErrTimeout)
	rec.AssertNotCalled(t, "IncrementServed")
}

func TestEngine_ProtocolViolations(t *testing.T) {
	t.Run("request in player turn", func(t *testing.T) {
		rec := &mockRecorder{}
		rec.On("IncrementServed").Once()
		deck := game.NewStackedDeck(
			c(10, game.Hearts), c(6, game.Spades),
			c(10, game.Diamonds), c(7, game.Clubs),
		)
		h := startEngine(t, rec, []*game.Deck{deck})

		h.send(protocol.Request{Rounds: 1})
		for i := 0; i < 3; i++ {
			_, err := h.in.ReadMessage()
			require.NoError(t, err)
		}
		h.send(protocol.Request{Rounds: 1})

		r := h.wait()
		assert.ErrorIs(t, r.err, ErrProtocolViolation)
		rec.AssertNotCalled(t, "RecordRound", mock.Anything)
	})

	t.Run("bad cookie before request", func(t *testing.T) {
		rec := &mockRecorder{}
		h := startEngine(t, rec, []*game.Deck{game.NewShuffledDeck()})

		require.NoError(t, h.client.SetWriteDeadline(time.Now().Add(time.Second)))
		_, err := h.client.Write([]byte{0xde, 0xad, 0xbe, 0xef, 0x03, 0x01})
		// the engine may close before consuming the last byte
		_ = err

		r := h.wait()
		assert.ErrorIs(t, r.err, ErrProtocolViolation)
		var de *protocol.DecodeError
		assert.True(t, errors.As(r.err, &de))
		rec.AssertNotCalled(t, "IncrementServed")
	})

	t.Run("offer instead of request", func(t *testing.T) {
		rec := &mockRecorder{}
		h := startEngine(t, rec, []*game.Deck{game.NewShuffledDeck()})

		h.send(protocol.Offer{Port: 1, ServerName: "x"})

		r := h.wait()
		assert.ErrorIs(t, r.err, ErrProtocolViolation)
	})
}

func TestEngine_ClientGone(t *testing.T) {
	rec := &mockRecorder{}
	h := startEngine(t, rec, []*game.Deck{game.NewShuffledDeck()})
	require.NoError(t, h.client.Close())

	r := h.wait()
	assert.ErrorIs(t, r.err, ErrClientGone)
}

func TestEngine_EmptyDeckIsRefilled(t *testing.T) {
	rec := &mockRecorder{}
	rec.On("IncrementServed").Once()
	rec.On("RecordRound", mock.Anything).Once()

	// two cards only; the engine reshuffles the stack to keep dealing
	deck := game.NewStackedDeck(c(10, game.Hearts), c(9, game.Spades))
	h := startEngine(t, rec, []*game.Deck{deck})

	h.send(protocol.Request{Rounds: 1})
	h.expect(protocol.ResultNone, c(10, game.Hearts))
	h.expect(protocol.ResultNone, c(9, game.Spades))
	h.expect(protocol.ResultNone, c(10, game.Hearts))
	h.send(protocol.Decision{Action: protocol.ActionStand})
	h.expect(protocol.ResultPush, c(9, game.Spades))

	r := h.wait()
	require.NoError(t, r.err)
	rec.AssertExpectations(t)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "player_turn", PlayerTurn.String())
	assert.Equal(t, "session_closed", SessionClosed.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestEngine_UndeliveredResultCommitsNothing(t *testing.T) {
	rec := &mockRecorder{}
	rec.On("IncrementServed").Once()

	deck := game.NewStackedDeck(
		c(10, game.Hearts), c(9, game.Spades), // player 19
		c(10, game.Diamonds), c(7, game.Clubs), // dealer stands on 17
	)
	h := startEngine(t, rec, []*game.Deck{deck})

	h.send(protocol.Request{Rounds: 1})
	h.expect(protocol.ResultNone, c(10, game.Hearts))
	h.expect(protocol.ResultNone, c(9, game.Spades))
	h.expect(protocol.ResultNone, c(10, game.Diamonds))
	h.send(protocol.Decision{Action: protocol.ActionStand})
	require.NoError(t, h.client.Close())

	r := h.wait()
	assert.ErrorIs(t, r.err, ErrClientGone)
	assert.Equal(t, Summary{Requested: 1}, r.summary)
	rec.AssertNotCalled(t, "RecordRound", mock.Anything)
	rec.AssertExpectations(t)
}

func TestRound_DrawFromEmptyStackedDeck(t *testing.T) {
	rd := &round{deck: game.NewStackedDeck()}

	var got game.Card
	require.NotPanics(t, func() { got = rd.draw() })
	assert.True(t, got.Valid())
	assert.Equal(t, game.DeckSize-1, rd.deck.Remaining())
}
