package protocol

import (
	"bytes"
	"io"
	"net"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEncode(t *testing.T, m Message) []byte {
	t.Helper()
	b, err := Encode(m)
	require.NoError(t, err)
	return b
}

func TestReader_SplitRequestWaitsForWholeMessage(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	req := mustEncode(t, Request{Rounds: 4})
	require.Len(t, req, 6)

	type result struct {
		msg Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		m, err := NewReader(server, FromClient).ReadMessage()
		done <- result{m, err}
	}()

	_, err := client.Write(req[:3])
	require.NoError(t, err)

	select {
	case r := <-done:
		t.Fatalf("reader returned after a 3-byte fragment: %v %v", r.msg, r.err)
	case <-time.After(50 * time.Millisecond):
	}

	_, err = client.Write(req[3:])
	require.NoError(t, err)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, Request{Rounds: 4}, r.msg)
	case <-time.After(time.Second):
		t.Fatal("reader did not return after the second fragment")
	}
}

func TestReader_OneByteReads(t *testing.T) {
	stream := mustEncode(t, Decision{Action: ActionHit})
	r := NewReader(iotest.OneByteReader(bytes.NewReader(stream)), FromClient)

	m, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, Decision{Action: ActionHit}, m)
}

func TestReader_CoalescedMessages(t *testing.T) {
	var stream []byte
	stream = append(stream, mustEncode(t, Update{Rank: 10, Suit: 1})...)
	stream = append(stream, mustEncode(t, Update{Rank: 9, Suit: 2})...)
	stream = append(stream, mustEncode(t, Update{Result: ResultWin, Rank: 1, Suit: 3})...)

	r := NewReader(bytes.NewReader(stream), FromServer)
	var got []Message
	for {
		m, err := r.ReadMessage()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, m)
	}
	assert.Equal(t, []Message{
		Update{Rank: 10, Suit: 1},
		Update{Rank: 9, Suit: 2},
		Update{Result: ResultWin, Rank: 1, Suit: 3},
	}, got)
}

func TestReader_DirectionSelectsPayloadSize(t *testing.T) {
	// the same tag frames 10 bytes from a client and 9 from a server
	d := mustEncode(t, Decision{Action: ActionStand})
	m, err := NewReader(bytes.NewReader(d), FromClient).ReadMessage()
	require.NoError(t, err)
	assert.IsType(t, Decision{}, m)

	u := mustEncode(t, Update{Result: ResultPush, Rank: 7, Suit: 0})
	m, err = NewReader(bytes.NewReader(u), FromServer).ReadMessage()
	require.NoError(t, err)
	assert.IsType(t, Update{}, m)
}

func TestReader_Errors(t *testing.T) {
	t.Run("EOF before header", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(nil), FromClient).ReadMessage()
		assert.ErrorIs(t, err, io.EOF)
	})
	t.Run("EOF inside body", func(t *testing.T) {
		b := mustEncode(t, Request{Rounds: 1})
		_, err := NewReader(bytes.NewReader(b[:5]), FromClient).ReadMessage()
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
	t.Run("bad cookie", func(t *testing.T) {
		b := mustEncode(t, Request{Rounds: 1})
		b[1] = 0
		_, err := NewReader(bytes.NewReader(b), FromClient).ReadMessage()
		assert.ErrorIs(t, err, ErrBadCookie)
		assert.True(t, IsDecodeError(err))
	})
	t.Run("unknown type", func(t *testing.T) {
		b := mustEncode(t, Request{Rounds: 1})
		b[4] = 0x7
		_, err := NewReader(bytes.NewReader(b), FromClient).ReadMessage()
		assert.ErrorIs(t, err, ErrUnknownType)
	})
}

func TestWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, Request{Rounds: 2}))
	assert.Equal(t, mustEncode(t, Request{Rounds: 2}), buf.Bytes())
	assert.Error(t, WriteMessage(&buf, Request{}))
}
