package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// Encode returns the wire form of m, exactly m.Size() bytes long.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("protocol: encode nil message")
	}
	b := make([]byte, m.Size())
	binary.BigEndian.PutUint32(b[0:4], MagicCookie)
	b[4] = byte(m.Type())
	if err := m.put(b[HeaderSize:]); err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", m.Type(), err)
	}
	return b, nil
}

// WriteMessage encodes m and writes it in full.
func WriteMessage(w io.Writer, m Message) error {
	b, err := Encode(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("protocol: write %s: %w", m.Type(), err)
	}
	return nil
}

// Decode validates b and returns the message it holds. The two payload forms
// share tag 0x4 and are told apart by their fixed lengths.
func Decode(b []byte) (Message, error) {
	if len(b) < HeaderSize {
		return nil, decodeErr(len(b), ErrShortBuffer)
	}
	if binary.BigEndian.Uint32(b[0:4]) != MagicCookie {
		return nil, decodeErr(len(b), ErrBadCookie)
	}
	body := b[HeaderSize:]
	switch t := MessageType(b[4]); t {
	case TypeOffer:
		if len(b) != OfferSize {
			return nil, decodeErr(len(b), ErrBadLength)
		}
		return decodeOffer(body)
	case TypeRequest:
		if len(b) != RequestSize {
			return nil, decodeErr(len(b), ErrBadLength)
		}
		if body[0] == 0 {
			return nil, decodeErr(len(b), fmt.Errorf("%w: zero rounds", ErrMalformed))
		}
		return Request{Rounds: body[0]}, nil
	case TypePayload:
		switch len(b) {
		case DecisionSize:
			return decodeDecision(body)
		case UpdateSize:
			return decodeUpdate(body)
		default:
			return nil, decodeErr(len(b), ErrBadLength)
		}
	default:
		return nil, decodeErr(len(b), fmt.Errorf("%w: 0x%x", ErrUnknownType, uint8(t)))
	}
}

func decodeOffer(body []byte) (Message, error) {
	port := binary.BigEndian.Uint16(body[0:2])
	name := bytes.TrimRight(body[2:2+ServerNameSize], "\x00")
	if !utf8.Valid(name) {
		return nil, decodeErr(OfferSize, fmt.Errorf("%w: server name is not utf-8", ErrMalformed))
	}
	return Offer{Port: port, ServerName: string(name)}, nil
}

func decodeDecision(body []byte) (Message, error) {
	raw := string(body[:ActionSize])
	for a, wire := range actionWire {
		if raw == wire {
			return Decision{Action: a}, nil
		}
	}
	return nil, decodeErr(DecisionSize, fmt.Errorf("%w: action %q", ErrMalformed, raw))
}

func decodeUpdate(body []byte) (Message, error) {
	u := Update{
		Result: Result(body[0]),
		Rank:   binary.BigEndian.Uint16(body[1:3]),
		Suit:   body[3],
	}
	if err := u.validate(); err != nil {
		return nil, decodeErr(UpdateSize, err)
	}
	return u, nil
}

func (o Offer) put(b []byte) error {
	if !utf8.ValidString(o.ServerName) {
		return fmt.Errorf("%w: server name is not utf-8", ErrMalformed)
	}
	name := truncateName(o.ServerName)
	// trailing NULs are padding on the wire and would not survive a decode
	if bytes.HasSuffix(name, []byte{0}) {
		return fmt.Errorf("%w: server name ends in NUL", ErrMalformed)
	}
	binary.BigEndian.PutUint16(b[0:2], o.Port)
	copy(b[2:2+ServerNameSize], name)
	return nil
}

// truncateName cuts s to ServerNameSize bytes without splitting a rune.
func truncateName(s string) []byte {
	if len(s) <= ServerNameSize {
		return []byte(s)
	}
	cut := ServerNameSize
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return []byte(s[:cut])
}

func (r Request) put(b []byte) error {
	if r.Rounds == 0 {
		return fmt.Errorf("%w: zero rounds", ErrMalformed)
	}
	b[0] = r.Rounds
	return nil
}

func (d Decision) put(b []byte) error {
	wire, ok := actionWire[d.Action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMalformed, d.Action)
	}
	copy(b[:ActionSize], wire)
	return nil
}

func (u Update) put(b []byte) error {
	if err := u.validate(); err != nil {
		return err
	}
	b[0] = byte(u.Result)
	binary.BigEndian.PutUint16(b[1:3], u.Rank)
	b[3] = u.Suit
	return nil
}

func (u Update) validate() error {
	switch {
	case u.Result > ResultWin:
		return fmt.Errorf("%w: result %d", ErrMalformed, u.Result)
	case u.Rank < 1 || u.Rank > 13:
		return fmt.Errorf("%w: rank %d", ErrMalformed, u.Rank)
	case u.Suit > 3:
		return fmt.Errorf("%w: suit %d", ErrMalformed, u.Suit)
	}
	return nil
}
