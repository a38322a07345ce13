package wire

import (
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
	"github.com/samber/oops"
)

// P2PType is the opcode of a message between relay nodes.
type P2PType uint8

const (
	P2PKnock P2PType = iota
	P2PWhosThere
	P2PHandshake
	P2PIncoming
	P2PForward
	P2PData
)

func (t P2PType) String() string {
	switch t {
	case P2PKnock:
		return "Knock"
	case P2PWhosThere:
		return "WhosThere"
	case P2PHandshake:
		return "Handshake"
	case P2PIncoming:
		return "Incoming"
	case P2PForward:
		return "Forward"
	case P2PData:
		return "Data"
	default:
		return fmt.Sprintf("P2PType(%d)", uint8(t))
	}
}

func (t P2PType) valid() bool { return t <= P2PData }

// P2PMessage is a message exchanged directly between relay nodes. Data is nil
// when the message carries no payload.
type P2PMessage struct {
	MessageType P2PType
	Data        []byte
}

// NewP2PMessage returns a message without payload.
func NewP2PMessage(t P2PType) P2PMessage {
	return P2PMessage{MessageType: t}
}

func (P2PMessage) Family() Family  { return FamilyP2P }
func (P2PMessage) Type() MessageID { return MessageIDNone }

// p2pFrame is the CBOR shape on the wire. The opcode is a pointer so a map
// without it is rejected instead of decoding as Knock.
type p2pFrame struct {
	MessageType *uint8 `cbor:"message_type"`
	Data        []byte `cbor:"data"`
}

var p2pEncMode, p2pDecMode = p2pModes()

func p2pModes() (cbor.EncMode, cbor.DecMode) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: cbor encode mode: %v", err))
	}
	dm, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: cbor decode mode: %v", err))
	}
	return em, dm
}

func encodeP2P(m P2PMessage) ([]byte, error) {
	op := uint8(m.MessageType)
	b, err := p2pEncMode.Marshal(p2pFrame{MessageType: &op, Data: m.Data})
	if err != nil {
		return nil, oops.Wrapf(err, "couldn't serialize P2P %s", m.MessageType)
	}
	return b, nil
}

func decodeP2P(b []byte) (Message, error) {
	var f p2pFrame
	if err := p2pDecMode.Unmarshal(b, &f); err != nil {
		return nil, malformedCause(err, "p2p frame")
	}
	if f.MessageType == nil {
		return nil, malformed("p2p frame without message_type")
	}
	t := P2PType(*f.MessageType)
	if !t.valid() {
		return nil, malformed("unknown p2p opcode %d", *f.MessageType)
	}
	return P2PMessage{MessageType: t, Data: f.Data}, nil
}
