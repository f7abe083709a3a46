// Package session runs the blackjack conversation with a single client: one
// Request, then that many rounds of deal, decisions, dealer play and result.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"blackjack/internal/game"
	"blackjack/internal/protocol"
)

// StatsRecorder is what the engine reports to. Rounds are recorded only once
// resolved.
type StatsRecorder interface {
	IncrementServed()
	RecordRound(game.Outcome)
}

// Summary is the local tally of one session.
type Summary struct {
	Requested int
	Completed int
	Wins      int
	Losses    int
	Pushes    int
}

// Engine drives one client session. It is not safe for concurrent use except
// for State.
type Engine struct {
	id      string
	rw      io.ReadWriter
	in      *protocol.Reader
	reg     StatsRecorder
	logger  *slog.Logger
	newDeck func() *game.Deck
	pacing  time.Duration

	state   atomic.Uint32
	summary Summary
}

type Option func(*Engine)

// WithDeckSource sets the factory called at the start of every round.
func WithDeckSource(fn func() *game.Deck) Option {
	return func(e *Engine) { e.newDeck = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithPacing inserts a delay between dealt cards.
func WithPacing(d time.Duration) Option {
	return func(e *Engine) { e.pacing = d }
}

func New(id string, rw io.ReadWriter, reg StatsRecorder, opts ...Option) *Engine {
	e := &Engine{
		id:      id,
		rw:      rw,
		reg:     reg,
		logger:  slog.Default(),
		newDeck: func() *game.Deck { return game.NewShuffledDeck() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.in = protocol.NewReader(rw, protocol.FromClient)
	e.logger = e.logger.With("session_id", id)
	return e
}

func (e *Engine) ID() string { return e.id }

func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) setState(s State) { e.state.Store(uint32(s)) }

// Run plays the session to completion. The returned summary is valid even when
// err is not nil; it then covers the rounds finished before the failure.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	defer e.setState(SessionClosed)
	e.setState(AwaitRequest)

	req, err := e.readRequest()
	if err != nil {
		return e.summary, err
	}
	e.summary.Requested = int(req.Rounds)
	e.reg.IncrementServed()
	e.logger.Info("session_request", "rounds", req.Rounds)

	for e.summary.Completed < e.summary.Requested {
		if err := ctx.Err(); err != nil {
			return e.summary, err
		}
		if err := e.playRound(ctx); err != nil {
			return e.summary, err
		}
		e.setState(RoundDone)
	}
	return e.summary, nil
}

func (e *Engine) readRequest() (protocol.Request, error) {
	msg, err := e.read()
	if err != nil {
		return protocol.Request{}, classify("read request", err)
	}
	req, ok := msg.(protocol.Request)
	if !ok {
		return protocol.Request{}, fmt.Errorf("read request: %w: got %s", ErrProtocolViolation, msg.Type())
	}
	return req, nil
}

// read returns the next client message. Read deadlines belong to rw.
func (e *Engine) read() (protocol.Message, error) {
	return e.in.ReadMessage()
}

func (e *Engine) send(u protocol.Update) error {
	if err := protocol.WriteMessage(e.rw, u); err != nil {
		return classify("send update", err)
	}
	return nil
}

func (e *Engine) sendCard(ctx context.Context, c game.Card) error {
	if err := e.pace(ctx); err != nil {
		return err
	}
	return e.send(cardUpdate(protocol.ResultNone, c))
}

func (e *Engine) pace(ctx context.Context) error {
	if e.pacing <= 0 {
		return nil
	}
	t := time.NewTimer(e.pacing)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func cardUpdate(r protocol.Result, c game.Card) protocol.Update {
	return protocol.Update{Result: r, Rank: uint16(c.Rank), Suit: uint8(c.Suit)}
}

func resultCode(o game.Outcome) protocol.Result {
	switch o {
	case game.Win:
		return protocol.ResultWin
	case game.Loss:
		return protocol.ResultLoss
	default:
		return protocol.ResultPush
	}
}
