package game

// Outcome of a round, from the player's side.
type Outcome uint8

const (
	Push Outcome = iota + 1
	Loss
	Win
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Loss:
		return "loss"
	case Push:
		return "push"
	default:
		return "unknown"
	}
}

// Resolve decides the round. A recorded player bust is a loss and the dealer
// hand is not looked at, so a round can never end with both sides bust.
func Resolve(player, dealer *Hand, playerBust bool) Outcome {
	if playerBust || player.Bust() {
		return Loss
	}
	p, d := player.Total(), dealer.Total()
	switch {
	case IsBust(d):
		return Win
	case p > d:
		return Win
	case d > p:
		return Loss
	default:
		return Push
	}
}
