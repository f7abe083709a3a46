package protocol

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Sizes(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want int
	}{
		{"offer", Offer{Port: 4242, ServerName: "table-1"}, 39},
		{"request", Request{Rounds: 3}, 6},
		{"decision", Decision{Action: ActionHit}, 10},
		{"update", Update{Result: ResultWin, Rank: 12, Suit: 3}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.msg)
			require.NoError(t, err)
			assert.Len(t, b, tt.want)
			assert.Equal(t, MagicCookie, binary.BigEndian.Uint32(b[:4]))
			assert.Equal(t, byte(tt.msg.Type()), b[4])
		})
	}
}

func TestOffer_RoundTrip(t *testing.T) {
	offers := []Offer{
		{Port: 0, ServerName: ""},
		{Port: 13122, ServerName: "Dealer"},
		{Port: 65535, ServerName: strings.Repeat("x", ServerNameSize)},
		{Port: 8080, ServerName: "מלון-♠"},
		{Port: 9, ServerName: "a\x00b"},
	}
	for _, o := range offers {
		b, err := Encode(o)
		require.NoError(t, err)
		got, err := Decode(b)
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
}

func TestOffer_LayoutIsPortThenName(t *testing.T) {
	b, err := Encode(Offer{Port: 0x1234, ServerName: "ab"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xab, 0xcd, 0xdc, 0xba, 0x02, 0x12, 0x34, 'a', 'b', 0, 0}, b[:11])
}

func TestOffer_LongNameIsTruncated(t *testing.T) {
	long := strings.Repeat("é", 20) // 40 bytes
	b, err := Encode(Offer{Port: 1, ServerName: long})
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)
	name := got.(Offer).ServerName
	assert.LessOrEqual(t, len(name), ServerNameSize)
	assert.True(t, strings.HasPrefix(long, name))
}

func TestRoundTrip_GameMessages(t *testing.T) {
	msgs := []Message{
		Request{Rounds: 1},
		Request{Rounds: 255},
		Decision{Action: ActionHit},
		Decision{Action: ActionStand},
		Update{Result: ResultNone, Rank: 1, Suit: 0},
		Update{Result: ResultLoss, Rank: 13, Suit: 2},
	}
	for _, m := range msgs {
		b, err := Encode(m)
		require.NoError(t, err)
		got, err := Decode(b)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestDecision_WireText(t *testing.T) {
	b, err := Encode(Decision{Action: ActionHit})
	require.NoError(t, err)
	assert.Equal(t, "Hittt", string(b[5:]))

	b, err = Encode(Decision{Action: ActionStand})
	require.NoError(t, err)
	assert.Equal(t, "Stand", string(b[5:]))
}

func TestEncode_RejectsInvalid(t *testing.T) {
	for _, m := range []Message{
		Request{Rounds: 0},
		Decision{Action: 0},
		Update{Rank: 0},
		Update{Rank: 14},
		Update{Rank: 5, Suit: 4},
		Update{Result: 9, Rank: 5},
		Offer{Port: 1, ServerName: "\xff\xfe"},
		Offer{Port: 1, ServerName: "Dealer\x00"},
	} {
		_, err := Encode(m)
		assert.ErrorIs(t, err, ErrMalformed, "%#v", m)
	}
	_, err := Encode(nil)
	assert.Error(t, err)
}

func TestDecode_Errors(t *testing.T) {
	valid, err := Encode(Request{Rounds: 2})
	require.NoError(t, err)

	badCookie := append([]byte(nil), valid...)
	badCookie[0] ^= 0xff

	unknown := append([]byte(nil), valid...)
	unknown[4] = 0x9

	zeroRounds := append([]byte(nil), valid...)
	zeroRounds[5] = 0

	decision, err := Encode(Decision{Action: ActionStand})
	require.NoError(t, err)
	garbage := append([]byte(nil), decision...)
	copy(garbage[5:], "Maybe")

	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"nil", nil, ErrShortBuffer},
		{"short", valid[:4], ErrShortBuffer},
		{"bad cookie", badCookie, ErrBadCookie},
		{"unknown type", unknown, ErrUnknownType},
		{"request too long", append(append([]byte(nil), valid...), 0), ErrBadLength},
		{"payload odd length", append(append([]byte(nil), decision...), 0, 0), ErrBadLength},
		{"zero rounds", zeroRounds, ErrMalformed},
		{"unknown action", garbage, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(tt.buf)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsDecodeError(err))
		})
	}
}

func TestDecode_CorruptedCookieNeverPanics(t *testing.T) {
	base, err := Encode(Offer{Port: 9, ServerName: "srv"})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		for bit := 0; bit < 8; bit++ {
			b := append([]byte(nil), base...)
			b[i] ^= 1 << bit
			assert.NotPanics(t, func() {
				_, err := Decode(b)
				assert.ErrorIs(t, err, ErrBadCookie)
			})
		}
	}
}
