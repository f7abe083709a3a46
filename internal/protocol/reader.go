package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Direction selects which payload form a stream carries.
type Direction int

const (
	// FromClient frames what a server reads: requests and decisions.
	FromClient Direction = iota
	// FromServer frames what a client reads: updates.
	FromServer
)

func (d Direction) frameSize(t MessageType) (int, bool) {
	switch t {
	case TypeOffer:
		return OfferSize, true
	case TypeRequest:
		return RequestSize, true
	case TypePayload:
		if d == FromServer {
			return UpdateSize, true
		}
		return DecisionSize, true
	}
	return 0, false
}

// Reader frames messages on a byte stream. It never assumes one read returns a
// whole message or a single one: it reads the header, looks up the fixed size
// of the type and reads exactly the rest. Extra bytes stay buffered.
type Reader struct {
	br  *bufio.Reader
	dir Direction
}

func NewReader(r io.Reader, dir Direction) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 256)
	}
	return &Reader{br: br, dir: dir}
}

// ReadMessage blocks until one full message is available. Transport errors
// (io.EOF, deadlines) are returned as is; framing problems are *DecodeError.
// After a DecodeError the stream is out of sync and must be abandoned.
func (r *Reader) ReadMessage() (Message, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r.br, hdr[:]); err != nil {
		return nil, err
	}
	if binary.BigEndian.Uint32(hdr[0:4]) != MagicCookie {
		return nil, decodeErr(HeaderSize, ErrBadCookie)
	}
	size, ok := r.dir.frameSize(MessageType(hdr[4]))
	if !ok {
		return nil, decodeErr(HeaderSize, fmt.Errorf("%w: 0x%x", ErrUnknownType, hdr[4]))
	}
	buf := make([]byte, size)
	copy(buf, hdr[:])
	if _, err := io.ReadFull(r.br, buf[HeaderSize:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return Decode(buf)
}
