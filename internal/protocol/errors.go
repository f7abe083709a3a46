package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrShortBuffer = errors.New("buffer shorter than header")
	ErrBadCookie   = errors.New("magic cookie mismatch")
	ErrUnknownType = errors.New("unknown message type")
	ErrBadLength   = errors.New("length does not match message type")
	ErrMalformed   = errors.New("malformed field")
)

// DecodeError is returned for every buffer that cannot be turned into a Message.
type DecodeError struct {
	Len int
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("protocol: decode %d bytes: %v", e.Len, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(n int, err error) error {
	return &DecodeError{Len: n, Err: err}
}

// IsDecodeError reports whether err came from decoding rather than from the transport.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
