package session

// State of the per-connection machine.
type State uint32

const (
	AwaitRequest State = iota
	Dealing
	PlayerTurn
	DealerTurn
	Resolving
	RoundDone
	SessionClosed
)

var stateNames = [...]string{
	"await_request",
	"dealing",
	"player_turn",
	"dealer_turn",
	"resolving",
	"round_done",
	"session_closed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
