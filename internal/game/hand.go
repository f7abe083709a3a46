package game

const (
	BlackjackTotal = 21
	DealerStandsOn = 17
)

// HandValue totals cards counting each ace as 11 unless that would bust the
// hand, in which case it drops to 1. soft is true while an ace still counts 11.
func HandValue(cards []Card) (total int, soft bool) {
	aces := 0
	for _, c := range cards {
		if c.Rank == Ace {
			aces++
		}
		total += c.Points()
	}
	for total > BlackjackTotal && aces > 0 {
		total -= 10
		aces--
	}
	return total, aces > 0
}

func IsBust(total int) bool { return total > BlackjackTotal }

// IsNatural reports a two-card 21.
func IsNatural(cards []Card) bool {
	if len(cards) != 2 {
		return false
	}
	total, _ := HandValue(cards)
	return total == BlackjackTotal
}

// DealerShouldDraw is the house policy: draw below 17, stand otherwise.
func DealerShouldDraw(total int) bool { return total < DealerStandsOn }

// Hand is the ordered cards held by the player or the dealer.
type Hand struct {
	cards []Card
}

func (h *Hand) Add(c Card) { h.cards = append(h.cards, c) }

func (h *Hand) Cards() []Card { return append([]Card(nil), h.cards...) }

func (h *Hand) Len() int { return len(h.cards) }

// Last returns the most recently added card.
func (h *Hand) Last() Card {
	if len(h.cards) == 0 {
		return Card{}
	}
	return h.cards[len(h.cards)-1]
}

func (h *Hand) Total() int {
	t, _ := HandValue(h.cards)
	return t
}

func (h *Hand) Bust() bool { return IsBust(h.Total()) }

func (h *Hand) Natural() bool { return IsNatural(h.cards) }
