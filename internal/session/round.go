package session

import (
	"context"
	"fmt"

	"blackjack/internal/game"
	"blackjack/internal/protocol"
)

type round struct {
	deck       *game.Deck
	player     game.Hand
	dealer     game.Hand
	hole       game.Card
	playerBust bool
	// last card not yet shown to the client; it rides in the result Update
	carry game.Card
}

// draw never fails: an exhausted deck is reshuffled, and a deck that stays
// empty is replaced.
func (r *round) draw() game.Card {
	c, err := r.deck.Draw()
	if err == nil {
		return c
	}
	r.deck.Reshuffle()
	if c, err = r.deck.Draw(); err == nil {
		return c
	}
	r.deck = game.NewShuffledDeck()
	c, _ = r.deck.Draw()
	return c
}

func (e *Engine) playRound(ctx context.Context) error {
	e.setState(Dealing)
	rd := &round{deck: e.newDeck()}
	if rd.deck == nil {
		rd.deck = game.NewShuffledDeck()
	}

	p1, p2 := rd.draw(), rd.draw()
	up, hole := rd.draw(), rd.draw()
	rd.player.Add(p1)
	rd.player.Add(p2)
	rd.dealer.Add(up)
	rd.dealer.Add(hole)
	rd.hole, rd.carry = hole, hole

	for _, c := range []game.Card{p1, p2, up} {
		if err := e.sendCard(ctx, c); err != nil {
			return err
		}
	}

	if !rd.player.Natural() {
		stood, err := e.playerTurn(ctx, rd)
		if err != nil {
			return err
		}
		if stood {
			if err := e.dealerTurn(ctx, rd); err != nil {
				return err
			}
		}
	}
	return e.resolve(rd)
}

// playerTurn reads decisions until the player stands, reaches 21 or busts.
// stood is false on a bust; the dealer then does not play.
func (e *Engine) playerTurn(ctx context.Context, rd *round) (stood bool, err error) {
	e.setState(PlayerTurn)
	for {
		msg, err := e.read()
		if err != nil {
			return false, classify("read decision", err)
		}
		dec, ok := msg.(protocol.Decision)
		if !ok {
			return false, fmt.Errorf("read decision: %w: got %s", ErrProtocolViolation, msg.Type())
		}

		switch dec.Action {
		case protocol.ActionStand:
			return true, nil
		case protocol.ActionHit:
			c := rd.draw()
			rd.player.Add(c)
			if rd.player.Bust() {
				rd.playerBust = true
				rd.carry = c
				return false, nil
			}
			if err := e.sendCard(ctx, c); err != nil {
				return false, err
			}
			if rd.player.Total() == game.BlackjackTotal {
				return true, nil
			}
		default:
			return false, fmt.Errorf("read decision: %w: action %s", ErrProtocolViolation, dec.Action)
		}
	}
}

func (e *Engine) dealerTurn(ctx context.Context, rd *round) error {
	e.setState(DealerTurn)
	if !game.DealerShouldDraw(rd.dealer.Total()) {
		return nil
	}
	if err := e.sendCard(ctx, rd.hole); err != nil {
		return err
	}
	for {
		c := rd.draw()
		rd.dealer.Add(c)
		if !game.DealerShouldDraw(rd.dealer.Total()) {
			rd.carry = c
			return nil
		}
		if err := e.sendCard(ctx, c); err != nil {
			return err
		}
	}
}

func (e *Engine) resolve(rd *round) error {
	e.setState(Resolving)
	outcome := game.Resolve(&rd.player, &rd.dealer, rd.playerBust)

	// a round counts only once the client has its result
	if err := e.send(cardUpdate(resultCode(outcome), rd.carry)); err != nil {
		return err
	}

	e.summary.Completed++
	switch outcome {
	case game.Win:
		e.summary.Wins++
	case game.Loss:
		e.summary.Losses++
	case game.Push:
		e.summary.Pushes++
	}
	e.reg.RecordRound(outcome)

	e.logger.Debug("round_resolved",
		"round", e.summary.Completed,
		"outcome", outcome.String(),
		"player_total", rd.player.Total(),
		"dealer_total", rd.dealer.Total(),
	)
	return nil
}
