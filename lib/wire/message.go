package wire

import "net/netip"

// Message is one decoded protocol message. Exactly one concrete type in this
// package implements it per message type.
type Message interface {
	// Family reports the protocol the message belongs to.
	Family() Family
	// Type reports the envelope type tag. It is MessageIDNone for P2P messages.
	Type() MessageID
}

// TunnelPayload is the body of OnionTunnelReady and OnionTunnelData.
type TunnelPayload struct {
	TunnelID uint32
	Payload  []byte
}

// TunnelIdent is the body of OnionTunnelIncoming and OnionTunnelDestroy.
type TunnelIdent struct {
	TunnelID uint32
}

// SessionHS is the body of both handshake phases and of the incoming second
// phase.
type SessionHS struct {
	SessionID uint16
	RequestID uint32
	Payload   []byte
}

// CipherCrypt is the body of encrypt and decrypt requests.
type CipherCrypt struct {
	SessionID uint16
	RequestID uint32
	Cleartext bool
	Payload   []byte
}

// CipherCryptResp is the body of encrypt and decrypt responses.
type CipherCryptResp struct {
	RequestID uint32
	Cleartext bool
	Payload   []byte
}

// OnionTunnelBuild asks the node to build a tunnel towards a destination.
// OnionTunnel is the 16 bit field following the version flag.
type OnionTunnelBuild struct {
	OnionTunnel uint16
	Addr        netip.Addr
	Hostkey     []byte
}

type (
	OnionTunnelReady    TunnelPayload
	OnionTunnelData     TunnelPayload
	OnionTunnelIncoming TunnelIdent
	OnionTunnelDestroy  TunnelIdent
)

// OnionError reports a failed request of RequestType on a tunnel.
type OnionError struct {
	RequestType MessageID
	TunnelID    uint32
}

// OnionCover asks the node to send CoverSize bytes of cover traffic.
type OnionCover struct {
	CoverSize uint16
}

// AuthSessionStart asks the Auth service to open a session with Hostkey.
type AuthSessionStart struct {
	RequestID uint32
	Hostkey   []byte
}

// AuthSessionIncomingHS1 hands a peer's first handshake message to the Auth
// service.
type AuthSessionIncomingHS1 struct {
	RequestID uint32
	Payload   []byte
}

type (
	AuthSessionHS1         SessionHS
	AuthSessionHS2         SessionHS
	AuthSessionIncomingHS2 SessionHS
	AuthCipherEncrypt      CipherCrypt
	AuthCipherDecrypt      CipherCrypt
	AuthCipherEncryptResp  CipherCryptResp
	AuthCipherDecryptResp  CipherCryptResp
)

// AuthSessionClose tears down a session.
type AuthSessionClose struct {
	SessionID uint16
}

// AuthSessionError reports a failed Auth request.
type AuthSessionError struct {
	RequestID uint32
}

// RpsQuery asks the peer-sampling service for a random peer.
type RpsQuery struct{}

// RpsPeer is a peer returned by the peer-sampling service.
type RpsPeer struct {
	Port    uint16
	Addr    netip.Addr
	Hostkey []byte
}

// AddrPort returns the peer's transport address.
func (p RpsPeer) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(p.Addr, p.Port)
}

func (OnionTunnelBuild) Family() Family    { return FamilyOnion }
func (OnionTunnelReady) Family() Family    { return FamilyOnion }
func (OnionTunnelData) Family() Family     { return FamilyOnion }
func (OnionTunnelIncoming) Family() Family { return FamilyOnion }
func (OnionTunnelDestroy) Family() Family  { return FamilyOnion }
func (OnionError) Family() Family          { return FamilyOnion }
func (OnionCover) Family() Family          { return FamilyOnion }

func (OnionTunnelBuild) Type() MessageID    { return MessageIDOnionTunnelBuild }
func (OnionTunnelReady) Type() MessageID    { return MessageIDOnionTunnelReady }
func (OnionTunnelData) Type() MessageID     { return MessageIDOnionTunnelData }
func (OnionTunnelIncoming) Type() MessageID { return MessageIDOnionTunnelIncoming }
func (OnionTunnelDestroy) Type() MessageID  { return MessageIDOnionTunnelDestroy }
func (OnionError) Type() MessageID          { return MessageIDOnionError }
func (OnionCover) Type() MessageID          { return MessageIDOnionCover }

func (AuthSessionStart) Family() Family       { return FamilyAuth }
func (AuthSessionHS1) Family() Family         { return FamilyAuth }
func (AuthSessionIncomingHS1) Family() Family { return FamilyAuth }
func (AuthSessionHS2) Family() Family         { return FamilyAuth }
func (AuthSessionIncomingHS2) Family() Family { return FamilyAuth }
func (AuthSessionClose) Family() Family       { return FamilyAuth }
func (AuthSessionError) Family() Family       { return FamilyAuth }
func (AuthCipherEncrypt) Family() Family      { return FamilyAuth }
func (AuthCipherEncryptResp) Family() Family  { return FamilyAuth }
func (AuthCipherDecrypt) Family() Family      { return FamilyAuth }
func (AuthCipherDecryptResp) Family() Family  { return FamilyAuth }

func (AuthSessionStart) Type() MessageID       { return MessageIDAuthSessionStart }
func (AuthSessionHS1) Type() MessageID         { return MessageIDAuthSessionHS1 }
func (AuthSessionIncomingHS1) Type() MessageID { return MessageIDAuthSessionIncomingHS1 }
func (AuthSessionHS2) Type() MessageID         { return MessageIDAuthSessionHS2 }
func (AuthSessionIncomingHS2) Type() MessageID { return MessageIDAuthSessionIncomingHS2 }
func (AuthSessionClose) Type() MessageID       { return MessageIDAuthSessionClose }
func (AuthSessionError) Type() MessageID       { return MessageIDAuthSessionError }
func (AuthCipherEncrypt) Type() MessageID      { return MessageIDAuthCipherEncrypt }
func (AuthCipherEncryptResp) Type() MessageID  { return MessageIDAuthCipherEncryptResp }
func (AuthCipherDecrypt) Type() MessageID      { return MessageIDAuthCipherDecrypt }
func (AuthCipherDecryptResp) Type() MessageID  { return MessageIDAuthCipherDecryptResp }

func (RpsQuery) Family() Family  { return FamilyRps }
func (RpsPeer) Family() Family   { return FamilyRps }
func (RpsQuery) Type() MessageID { return MessageIDRpsQuery }
func (RpsPeer) Type() MessageID  { return MessageIDRpsPeer }
