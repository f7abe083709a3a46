package client

// tcp_client.go = plays blackjack rounds against a game server.

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"blackjack/internal/game"
	"blackjack/internal/protocol"
)

// Strategy picks hit or stand from what the player can see.
type Strategy interface {
	Decide(player []game.Card, dealerUp game.Card) protocol.Action
}

type StrategyFunc func(player []game.Card, dealerUp game.Card) protocol.Action

func (f StrategyFunc) Decide(player []game.Card, dealerUp game.Card) protocol.Action {
	return f(player, dealerUp)
}

// HitBelow hits while the hand is under limit, the same policy as the house.
func HitBelow(limit int) Strategy {
	return StrategyFunc(func(player []game.Card, _ game.Card) protocol.Action {
		if total, _ := game.HandValue(player); total < limit {
			return protocol.ActionHit
		}
		return protocol.ActionStand
	})
}

// EventKind tells an observer what just happened in a round.
type EventKind int

const (
	PlayerCard EventKind = iota
	DealerCard
	RoundOver
)

type Event struct {
	Kind   EventKind
	Round  int
	Card   game.Card
	Result protocol.Result // set on RoundOver
	Player []game.Card
	Dealer []game.Card
}

// Tally counts results over a session.
type Tally struct {
	Rounds int
	Wins   int
	Losses int
	Pushes int
}

func (t Tally) WinRate() float64 {
	if t.Rounds == 0 {
		return 0
	}
	return float64(t.Wins) / float64(t.Rounds)
}

func (t *Tally) Add(o Tally) {
	t.Rounds += o.Rounds
	t.Wins += o.Wins
	t.Losses += o.Losses
	t.Pushes += o.Pushes
}

func (t *Tally) record(r protocol.Result) {
	t.Rounds++
	switch r {
	case protocol.ResultWin:
		t.Wins++
	case protocol.ResultLoss:
		t.Losses++
	case protocol.ResultPush:
		t.Pushes++
	}
}

// GameClient is one TCP session with a game server.
type GameClient struct {
	conn    net.Conn
	in      *protocol.Reader
	timeout time.Duration
}

// Dial connects to addr. timeout bounds every single read and write.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*GameClient, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	d := net.Dialer{Timeout: 10 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	return &GameClient{
		conn:    conn,
		in:      protocol.NewReader(conn, protocol.FromServer),
		timeout: timeout,
	}, nil
}

func (c *GameClient) Close() error { return c.conn.Close() }

// Play requests rounds and plays them all with s. obs may be nil. The tally
// covers the rounds finished even when an error is returned.
func (c *GameClient) Play(ctx context.Context, rounds uint8, s Strategy, obs func(Event)) (Tally, error) {
	var tally Tally
	if rounds == 0 {
		return tally, errors.New("rounds must be between 1 and 255")
	}
	if obs == nil {
		obs = func(Event) {}
	}
	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if err := c.send(protocol.Request{Rounds: rounds}); err != nil {
		return tally, err
	}
	for r := 1; r <= int(rounds); r++ {
		result, err := c.playRound(r, s, obs)
		if err != nil {
			if ctx.Err() != nil {
				return tally, ctx.Err()
			}
			return tally, fmt.Errorf("round %d: %w", r, err)
		}
		tally.record(result)
	}
	return tally, nil
}

func (c *GameClient) playRound(round int, s Strategy, obs func(Event)) (protocol.Result, error) {
	var player, dealer []game.Card

	finish := func(u protocol.Update, toPlayer bool) protocol.Result {
		card := updateCard(u)
		if toPlayer {
			player = append(player, card)
		} else {
			dealer = append(dealer, card)
		}
		obs(Event{Kind: RoundOver, Round: round, Card: card, Result: u.Result, Player: player, Dealer: dealer})
		return u.Result
	}

	// opening deal: two player cards then the dealer up-card
	for i := 0; i < 3; i++ {
		u, err := c.update()
		if err != nil {
			return 0, err
		}
		if u.Result.Final() {
			return 0, fmt.Errorf("unexpected result during the deal")
		}
		card := updateCard(u)
		if i < 2 {
			player = append(player, card)
			obs(Event{Kind: PlayerCard, Round: round, Card: card, Player: player})
		} else {
			dealer = append(dealer, card)
			obs(Event{Kind: DealerCard, Round: round, Card: card, Dealer: dealer})
		}
	}

	// player turn; a natural or a 21 ends it without a decision
	for {
		if total, _ := game.HandValue(player); total >= game.BlackjackTotal {
			break
		}
		action := s.Decide(append([]game.Card(nil), player...), dealer[0])
		if err := c.send(protocol.Decision{Action: action}); err != nil {
			return 0, err
		}
		if action == protocol.ActionStand {
			break
		}
		u, err := c.update()
		if err != nil {
			return 0, err
		}
		if u.Result.Final() {
			// busted, the card is ours
			return finish(u, true), nil
		}
		card := updateCard(u)
		player = append(player, card)
		obs(Event{Kind: PlayerCard, Round: round, Card: card, Player: player})
	}

	// dealer turn; the result carries the dealer's last card
	for {
		u, err := c.update()
		if err != nil {
			return 0, err
		}
		if u.Result.Final() {
			return finish(u, false), nil
		}
		card := updateCard(u)
		dealer = append(dealer, card)
		obs(Event{Kind: DealerCard, Round: round, Card: card, Dealer: dealer})
	}
}

func (c *GameClient) send(m protocol.Message) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	return protocol.WriteMessage(c.conn, m)
}

func (c *GameClient) update() (protocol.Update, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return protocol.Update{}, err
	}
	msg, err := c.in.ReadMessage()
	if err != nil {
		return protocol.Update{}, fmt.Errorf("read update: %w", err)
	}
	u, ok := msg.(protocol.Update)
	if !ok {
		return protocol.Update{}, fmt.Errorf("unexpected %s message from server", msg.Type())
	}
	return u, nil
}

func updateCard(u protocol.Update) game.Card {
	return game.Card{Rank: game.Rank(u.Rank), Suit: game.Suit(u.Suit)}
}
