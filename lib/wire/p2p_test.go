package wire

import (
	"testing"

	cbor "github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestP2PRoundTrip(t *testing.T) {
	for _, op := range []P2PType{P2PKnock, P2PWhosThere, P2PHandshake, P2PIncoming, P2PForward, P2PData} {
		t.Run(op.String(), func(t *testing.T) {
			for _, data := range [][]byte{nil, {0x00}, []byte("handshake payload")} {
				m := P2PMessage{MessageType: op, Data: data}
				b, err := Encode(m)
				require.NoError(t, err)

				got, err := Decode(b)
				require.NoError(t, err)
				assert.Equal(t, m, got)
				assert.Equal(t, FamilyP2P, got.Family())
			}
		})
	}
}

func TestP2PDecodeStrict(t *testing.T) {
	op := uint8(P2PData)
	badOp := uint8(42)

	tests := []struct {
		name  string
		value interface{}
	}{
		{"missing message_type", map[string]interface{}{"data": []byte{1}}},
		{"unknown opcode", p2pFrame{MessageType: &badOp}},
		{"unknown field", map[string]interface{}{"message_type": op, "data": nil, "extra": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := cbor.Marshal(tt.value)
			require.NoError(t, err)
			_, err = decodeP2P(b)
			assert.ErrorIs(t, err, ErrMalformedMessage)
		})
	}

	t.Run("trailing bytes", func(t *testing.T) {
		b, err := Encode(NewP2PMessage(P2PKnock))
		require.NoError(t, err)
		_, err = decodeP2P(append(b, 0x00))
		assert.ErrorIs(t, err, ErrMalformedMessage)
	})
}

// Envelope bytes never decode as a P2P frame because the CBOR decoder
// rejects the trailing body after the leading length byte.
func TestEnvelopeNotMistakenForP2P(t *testing.T) {
	b, err := Encode(AuthSessionStart{RequestID: 1, Hostkey: []byte{0xa2}})
	require.NoError(t, err)

	_, err = decodeP2P(b)
	assert.Error(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.IsType(t, AuthSessionStart{}, got)
}

func TestP2PTypeString(t *testing.T) {
	assert.Equal(t, "Knock", P2PKnock.String())
	assert.Equal(t, "P2PType(9)", P2PType(9).String())
}
