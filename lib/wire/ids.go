package wire

import "fmt"

// MessageID is the 16 bit type tag carried in the envelope.
type MessageID uint16

// Message type registry.
const (
	MessageIDNone MessageID = 0

	MessageIDRpsQuery MessageID = 540
	MessageIDRpsPeer  MessageID = 541

	MessageIDOnionTunnelBuild    MessageID = 560
	MessageIDOnionTunnelReady    MessageID = 561
	MessageIDOnionTunnelIncoming MessageID = 562
	MessageIDOnionTunnelDestroy  MessageID = 563
	MessageIDOnionTunnelData     MessageID = 564
	MessageIDOnionError          MessageID = 565
	MessageIDOnionCover          MessageID = 566

	MessageIDAuthSessionStart       MessageID = 600
	MessageIDAuthSessionHS1         MessageID = 601
	MessageIDAuthSessionIncomingHS1 MessageID = 602
	MessageIDAuthSessionHS2         MessageID = 603
	MessageIDAuthSessionIncomingHS2 MessageID = 604
	MessageIDAuthSessionClose       MessageID = 609
	MessageIDAuthSessionError       MessageID = 610
	MessageIDAuthCipherEncrypt      MessageID = 611
	MessageIDAuthCipherEncryptResp  MessageID = 612
	MessageIDAuthCipherDecrypt      MessageID = 613
	MessageIDAuthCipherDecryptResp  MessageID = 614
)

// Family groups message types by protocol.
type Family uint8

const (
	FamilyOnion Family = iota + 1
	FamilyAuth
	FamilyRps
	FamilyP2P
)

func (f Family) String() string {
	switch f {
	case FamilyOnion:
		return "Onion"
	case FamilyAuth:
		return "Auth"
	case FamilyRps:
		return "Rps"
	case FamilyP2P:
		return "P2P"
	default:
		return fmt.Sprintf("Family(%d)", uint8(f))
	}
}

// MessageTypeName returns a human-readable name for the message type
func MessageTypeName(id MessageID) string {
	switch id {
	case MessageIDNone:
		return "P2P"
	case MessageIDRpsQuery:
		return "RpsQuery"
	case MessageIDRpsPeer:
		return "RpsPeer"
	case MessageIDOnionTunnelBuild:
		return "OnionTunnelBuild"
	case MessageIDOnionTunnelReady:
		return "OnionTunnelReady"
	case MessageIDOnionTunnelIncoming:
		return "OnionTunnelIncoming"
	case MessageIDOnionTunnelDestroy:
		return "OnionTunnelDestroy"
	case MessageIDOnionTunnelData:
		return "OnionTunnelData"
	case MessageIDOnionError:
		return "OnionError"
	case MessageIDOnionCover:
		return "OnionCover"
	case MessageIDAuthSessionStart:
		return "AuthSessionStart"
	case MessageIDAuthSessionHS1:
		return "AuthSessionHS1"
	case MessageIDAuthSessionIncomingHS1:
		return "AuthSessionIncomingHS1"
	case MessageIDAuthSessionHS2:
		return "AuthSessionHS2"
	case MessageIDAuthSessionIncomingHS2:
		return "AuthSessionIncomingHS2"
	case MessageIDAuthSessionClose:
		return "AuthSessionClose"
	case MessageIDAuthSessionError:
		return "AuthSessionError"
	case MessageIDAuthCipherEncrypt:
		return "AuthCipherEncrypt"
	case MessageIDAuthCipherEncryptResp:
		return "AuthCipherEncryptResp"
	case MessageIDAuthCipherDecrypt:
		return "AuthCipherDecrypt"
	case MessageIDAuthCipherDecryptResp:
		return "AuthCipherDecryptResp"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(id))
	}
}

// Name returns the name of any message, including P2P opcodes.
func Name(m Message) string {
	if p, ok := m.(P2PMessage); ok {
		return "P2P" + p.MessageType.String()
	}
	if m == nil {
		return "<nil>"
	}
	return MessageTypeName(m.Type())
}
