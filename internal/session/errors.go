package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"blackjack/internal/protocol"
)

var (
	// ErrProtocolViolation covers anything the client sends out of turn or
	// that fails to decode.
	ErrProtocolViolation = errors.New("protocol violation")
	ErrTimeout           = errors.New("client read timed out")
	ErrClientGone        = errors.New("client disconnected")
)

// classify maps a transport or decode error onto the session sentinels. The
// original error stays in the chain.
func classify(op string, err error) error {
	switch {
	case protocol.IsDecodeError(err):
		return fmt.Errorf("%s: %w: %w", op, ErrProtocolViolation, err)
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	case isTimeout(err):
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return fmt.Errorf("%s: %w: %w", op, ErrClientGone, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
