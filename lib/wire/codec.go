package wire

import (
	"encoding/binary"
	"math"

	"github.com/go-i2p/go-onion/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// EnvelopeSize is the size of the length + type header.
const EnvelopeSize = 4

// MaxMessageSize is the largest total length an envelope can declare.
const MaxMessageSize = math.MaxUint16

type decoder struct {
	name   string
	decode func([]byte) (Message, error)
}

// decoders is tried in order, first success wins. P2P comes first; see the
// package documentation for the consequences of that order.
var decoders = []decoder{
	{name: "p2p", decode: decodeP2P},
	{name: "envelope", decode: decodeEnvelope},
}

// Decode converts a buffer received from a socket into a Message. Errors wrap
// ErrMalformedMessage.
func Decode(b []byte) (Message, error) {
	var err error
	for _, d := range decoders {
		var m Message
		m, err = d.decode(b)
		if err == nil {
			log.WithFields(logger.Fields{
				"at":       "wire.Decode",
				"decoder":  d.name,
				"msg_type": Name(m),
				"size":     len(b),
			}).Debug("decoded_message")
			return m, nil
		}
	}
	return nil, err
}

func decodeEnvelope(b []byte) (Message, error) {
	if len(b) < EnvelopeSize {
		return nil, malformed("message too short: need %d bytes for the envelope, got %d", EnvelopeSize, len(b))
	}
	length := int(binary.BigEndian.Uint16(b[0:2]))
	id := MessageID(binary.BigEndian.Uint16(b[2:4]))

	if length < EnvelopeSize {
		return nil, malformed("declared length %d is shorter than the envelope", length)
	}
	if len(b) < length {
		return nil, malformed("message length is supposed to be %d, but was %d", length, len(b))
	}
	body := b[EnvelopeSize:length]

	m, err := decodeBody(id, body)
	if err != nil {
		return nil, oops.Wrapf(err, "decoding %s", MessageTypeName(id))
	}
	return m, nil
}

func decodeBody(id MessageID, body []byte) (Message, error) {
	switch id {
	case MessageIDOnionTunnelBuild:
		return wrapDecoded(decodeTunnelBuild(body))
	case MessageIDOnionTunnelReady:
		p, err := decodeTunnelPayload(body)
		return OnionTunnelReady(p), err
	case MessageIDOnionTunnelData:
		p, err := decodeTunnelPayload(body)
		return OnionTunnelData(p), err
	case MessageIDOnionTunnelIncoming:
		t, err := decodeTunnelIdent(body)
		return OnionTunnelIncoming(t), err
	case MessageIDOnionTunnelDestroy:
		t, err := decodeTunnelIdent(body)
		return OnionTunnelDestroy(t), err
	case MessageIDOnionError:
		return wrapDecoded(decodeOnionError(body))
	case MessageIDOnionCover:
		return wrapDecoded(decodeOnionCover(body))

	case MessageIDAuthSessionStart:
		return wrapDecoded(decodeSessionStart(body))
	case MessageIDAuthSessionHS1:
		hs, err := decodeSessionHS(body)
		return AuthSessionHS1(hs), err
	case MessageIDAuthSessionIncomingHS1:
		return wrapDecoded(decodeIncomingHS1(body))
	case MessageIDAuthSessionHS2:
		hs, err := decodeSessionHS(body)
		return AuthSessionHS2(hs), err
	case MessageIDAuthSessionIncomingHS2:
		hs, err := decodeSessionHS(body)
		return AuthSessionIncomingHS2(hs), err
	case MessageIDAuthSessionClose:
		return wrapDecoded(decodeSessionClose(body))
	case MessageIDAuthSessionError:
		return wrapDecoded(decodeSessionError(body))
	case MessageIDAuthCipherEncrypt:
		c, err := decodeCipherCrypt(body)
		return AuthCipherEncrypt(c), err
	case MessageIDAuthCipherDecrypt:
		c, err := decodeCipherCrypt(body)
		return AuthCipherDecrypt(c), err
	case MessageIDAuthCipherEncryptResp:
		c, err := decodeCipherCryptResp(body)
		return AuthCipherEncryptResp(c), err
	case MessageIDAuthCipherDecryptResp:
		c, err := decodeCipherCryptResp(body)
		return AuthCipherDecryptResp(c), err

	case MessageIDRpsQuery:
		return RpsQuery{}, nil
	case MessageIDRpsPeer:
		return wrapDecoded(decodeRpsPeer(body))

	default:
		return nil, malformed("message type %d unknown", uint16(id))
	}
}

// wrapDecoded turns a typed decode result into a Message result.
func wrapDecoded[T Message](m T, err error) (Message, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Encode converts a Message into its wire representation. It panics if m is
// not one of the message types defined in this package.
func Encode(m Message) ([]byte, error) {
	if p, ok := m.(P2PMessage); ok {
		return encodeP2P(p)
	}

	body, err := encodeBody(m)
	if err != nil {
		return nil, oops.Wrapf(err, "encoding %s", MessageTypeName(m.Type()))
	}

	total := EnvelopeSize + len(body)
	if total > MaxMessageSize {
		return nil, oops.Wrapf(ErrMessageTooLarge, "%s is %d bytes, max %d", MessageTypeName(m.Type()), total, MaxMessageSize)
	}

	out := make([]byte, 0, total)
	out = putUint16(out, uint16(total))
	out = putUint16(out, uint16(m.Type()))
	return append(out, body...), nil
}

func encodeBody(m Message) ([]byte, error) {
	switch m := m.(type) {
	case OnionTunnelBuild:
		return encodeTunnelBuild(m)
	case OnionTunnelReady:
		return encodeTunnelPayload(TunnelPayload(m)), nil
	case OnionTunnelData:
		return encodeTunnelPayload(TunnelPayload(m)), nil
	case OnionTunnelIncoming:
		return encodeTunnelIdent(TunnelIdent(m)), nil
	case OnionTunnelDestroy:
		return encodeTunnelIdent(TunnelIdent(m)), nil
	case OnionError:
		return encodeOnionError(m), nil
	case OnionCover:
		return encodeOnionCover(m), nil

	case AuthSessionStart:
		return encodeSessionStart(m), nil
	case AuthSessionHS1:
		return encodeSessionHS(SessionHS(m)), nil
	case AuthSessionIncomingHS1:
		return encodeIncomingHS1(m), nil
	case AuthSessionHS2:
		return encodeSessionHS(SessionHS(m)), nil
	case AuthSessionIncomingHS2:
		return encodeSessionHS(SessionHS(m)), nil
	case AuthSessionClose:
		return encodeSessionClose(m), nil
	case AuthSessionError:
		return encodeSessionError(m), nil
	case AuthCipherEncrypt:
		return encodeCipherCrypt(CipherCrypt(m)), nil
	case AuthCipherDecrypt:
		return encodeCipherCrypt(CipherCrypt(m)), nil
	case AuthCipherEncryptResp:
		return encodeCipherCryptResp(CipherCryptResp(m)), nil
	case AuthCipherDecryptResp:
		return encodeCipherCryptResp(CipherCryptResp(m)), nil

	case RpsQuery:
		return nil, nil
	case RpsPeer:
		return encodeRpsPeer(m)
	}
	util.Panicf("wire: Encode called with a message type it does not know (%T)", m)
	return nil, nil
}
