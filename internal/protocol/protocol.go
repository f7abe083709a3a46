// Package protocol implements the fixed-layout binary messages exchanged between
// the blackjack server and its clients.
//
// Every message starts with the 4-byte magic cookie followed by a 1-byte type tag.
// The body that follows has a constant size per type, so a reader frames messages
// by byte count only. All integers are big-endian.
//
//	Offer    cookie(4) type(1)=0x2 port(2) name(32)       39 bytes
//	Request  cookie(4) type(1)=0x3 rounds(1)                6 bytes
//	Decision cookie(4) type(1)=0x4 action(5)               10 bytes  client -> server
//	Update   cookie(4) type(1)=0x4 result(1) rank(2) suit(1) 9 bytes server -> client
package protocol

import "fmt"

// MagicCookie prefixes every valid message.
const MagicCookie uint32 = 0xabcddcba

// MessageType is the 1-byte tag following the cookie.
type MessageType uint8

const (
	TypeOffer   MessageType = 0x2
	TypeRequest MessageType = 0x3
	TypePayload MessageType = 0x4
)

func (t MessageType) String() string {
	switch t {
	case TypeOffer:
		return "offer"
	case TypeRequest:
		return "request"
	case TypePayload:
		return "payload"
	default:
		return fmt.Sprintf("unknown(0x%x)", uint8(t))
	}
}

// sizes
const (
	HeaderSize     = 4 + 1
	ServerNameSize = 32
	ActionSize     = 5

	OfferSize    = HeaderSize + 2 + ServerNameSize
	RequestSize  = HeaderSize + 1
	DecisionSize = HeaderSize + ActionSize
	UpdateSize   = HeaderSize + 1 + 2 + 1
)

// Message is one of Offer, Request, Decision or Update. Values only come out of
// Decode or are built by callers; downstream code never looks at raw bytes.
type Message interface {
	Type() MessageType
	// Size is the exact encoded length.
	Size() int
	put(b []byte) error
}

// Offer is broadcast on the discovery channel to advertise a game server.
type Offer struct {
	Port       uint16
	ServerName string
}

func (Offer) Type() MessageType { return TypeOffer }
func (Offer) Size() int         { return OfferSize }

// Request is the first message a client sends after connecting.
type Request struct {
	Rounds uint8
}

func (Request) Type() MessageType { return TypeRequest }
func (Request) Size() int         { return RequestSize }

// Action is the client's in-round choice.
type Action uint8

const (
	ActionHit Action = iota + 1
	ActionStand
)

var actionWire = map[Action]string{
	ActionHit:   "Hittt",
	ActionStand: "Stand",
}

func (a Action) String() string {
	switch a {
	case ActionHit:
		return "hit"
	case ActionStand:
		return "stand"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Decision is the client to server form of a Payload.
type Decision struct {
	Action Action
}

func (Decision) Type() MessageType { return TypePayload }
func (Decision) Size() int         { return DecisionSize }

// Result is the outcome code carried by an Update.
type Result uint8

const (
	// ResultNone marks a dealt card while the round is still running.
	ResultNone Result = 0
	ResultPush Result = 1
	ResultLoss Result = 2
	ResultWin  Result = 3
)

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultPush:
		return "push"
	case ResultLoss:
		return "loss"
	case ResultWin:
		return "win"
	default:
		return fmt.Sprintf("result(%d)", uint8(r))
	}
}

// Final reports whether the update closes the round.
func (r Result) Final() bool { return r != ResultNone }

// Update is the server to client form of a Payload: one card, optionally
// together with the round result.
type Update struct {
	Result Result
	Rank   uint16 // 1..13, ace is 1
	Suit   uint8  // 0..3
}

func (Update) Type() MessageType { return TypePayload }
func (Update) Size() int         { return UpdateSize }
