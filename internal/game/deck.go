package game

import (
	"errors"
	"math/rand/v2"
	"time"
)

// ErrEmptyDeck is returned by Draw once every card has been dealt.
var ErrEmptyDeck = errors.New("deck is empty")

const DeckSize = 52

// Deck is a 52-card deck minus the cards already dealt.
type Deck struct {
	cards   []Card
	rng     *rand.Rand
	stacked []Card
	// set for stacked decks, including empty ones
	fixed bool
}

type DeckOption func(*Deck)

// WithSeed makes shuffles reproducible.
func WithSeed(seed uint64) DeckOption {
	return func(d *Deck) {
		d.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func WithRand(rng *rand.Rand) DeckOption {
	return func(d *Deck) { d.rng = rng }
}

// NewShuffledDeck returns a full shuffled deck.
func NewShuffledDeck(opts ...DeckOption) *Deck {
	d := &Deck{}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		now := uint64(time.Now().UnixNano())
		d.rng = rand.New(rand.NewPCG(now, rand.Uint64()))
	}
	d.Reshuffle()
	return d
}

// NewStackedDeck returns a deck that deals cards in the given order, first card
// first. Reshuffle restores the same order.
func NewStackedDeck(cards ...Card) *Deck {
	d := &Deck{stacked: append([]Card(nil), cards...), fixed: true}
	d.Reshuffle()
	return d
}

// Reshuffle puts every card back and shuffles.
func (d *Deck) Reshuffle() {
	if d.fixed {
		d.cards = d.cards[:0]
		// stored reversed so Draw can pop from the end
		for i := len(d.stacked) - 1; i >= 0; i-- {
			d.cards = append(d.cards, d.stacked[i])
		}
		return
	}
	d.cards = freshCards(d.cards[:0])
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

func freshCards(dst []Card) []Card {
	for s := Hearts; s <= Spades; s++ {
		for r := Ace; r <= King; r++ {
			dst = append(dst, Card{Rank: r, Suit: s})
		}
	}
	return dst
}

// Draw removes and returns the top card. Reshuffle policy belongs to the caller.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmptyDeck
	}
	c := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return c, nil
}

func (d *Deck) Remaining() int { return len(d.cards) }
