// Package game holds the blackjack rules: cards, the deck, hand values and
// round resolution. Nothing in here is safe for concurrent use; a deck and its
// hands belong to exactly one session.
package game

import "fmt"

// Suit of a card, in wire order.
type Suit uint8

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

var suitSymbols = [...]string{"♥", "♦", "♣", "♠"}

func (s Suit) String() string {
	if int(s) < len(suitSymbols) {
		return suitSymbols[s]
	}
	return "?"
}

// Red reports whether the suit is printed red.
func (s Suit) Red() bool { return s == Hearts || s == Diamonds }

// Rank runs from Ace (1) to King (13).
type Rank uint8

const (
	Ace   Rank = 1
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
)

func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return fmt.Sprint(uint8(r))
	}
}

type Card struct {
	Rank Rank
	Suit Suit
}

// Points is the card's face value with an ace counted high.
func (c Card) Points() int {
	switch {
	case c.Rank == Ace:
		return 11
	case c.Rank >= 10:
		return 10
	default:
		return int(c.Rank)
	}
}

func (c Card) Valid() bool {
	return c.Rank >= Ace && c.Rank <= King && c.Suit <= Spades
}

func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}
