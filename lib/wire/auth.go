package wire

import "encoding/binary"

/* 4B Reserved | 4B RequestId | Rest Hostkey */
func encodeSessionStart(m AuthSessionStart) []byte {
	b := putUint32(reserved(make([]byte, 0, 8+len(m.Hostkey)), 4), m.RequestID)
	return append(b, m.Hostkey...)
}

func decodeSessionStart(b []byte) (AuthSessionStart, error) {
	if err := need(b, 8, "AuthSessionStart"); err != nil {
		return AuthSessionStart{}, err
	}
	return AuthSessionStart{
		RequestID: binary.BigEndian.Uint32(b[4:8]),
		Hostkey:   rest(b, 8),
	}, nil
}

/* 2B Reserved | 2B SessionId | 4B RequestId | Rest Payload */
func encodeSessionHS(m SessionHS) []byte {
	b := putUint16(reserved(make([]byte, 0, 8+len(m.Payload)), 2), m.SessionID)
	b = putUint32(b, m.RequestID)
	return append(b, m.Payload...)
}

func decodeSessionHS(b []byte) (SessionHS, error) {
	if err := need(b, 8, "session handshake"); err != nil {
		return SessionHS{}, err
	}
	return SessionHS{
		SessionID: binary.BigEndian.Uint16(b[2:4]),
		RequestID: binary.BigEndian.Uint32(b[4:8]),
		Payload:   rest(b, 8),
	}, nil
}

/* 4B Reserved | 4B RequestId | Rest Payload */
func encodeIncomingHS1(m AuthSessionIncomingHS1) []byte {
	b := putUint32(reserved(make([]byte, 0, 8+len(m.Payload)), 4), m.RequestID)
	return append(b, m.Payload...)
}

func decodeIncomingHS1(b []byte) (AuthSessionIncomingHS1, error) {
	if err := need(b, 8, "AuthSessionIncomingHS1"); err != nil {
		return AuthSessionIncomingHS1{}, err
	}
	return AuthSessionIncomingHS1{
		RequestID: binary.BigEndian.Uint32(b[4:8]),
		Payload:   rest(b, 8),
	}, nil
}

/* 3B Reserved | 7b1b Cleartext | 4B RequestId | 2B SessionId | Rest Payload */
func encodeCipherCrypt(m CipherCrypt) []byte {
	b := reserved(make([]byte, 0, 10+len(m.Payload)), 3)
	b = append(b, boolean(m.Cleartext))
	b = putUint32(b, m.RequestID)
	b = putUint16(b, m.SessionID)
	return append(b, m.Payload...)
}

func decodeCipherCrypt(b []byte) (CipherCrypt, error) {
	if err := need(b, 10, "cipher request"); err != nil {
		return CipherCrypt{}, err
	}
	return CipherCrypt{
		Cleartext: b[3]&0b1 != 0,
		RequestID: binary.BigEndian.Uint32(b[4:8]),
		SessionID: binary.BigEndian.Uint16(b[8:10]),
		Payload:   rest(b, 10),
	}, nil
}

/* 3B Reserved | 7b1b Cleartext | 4B RequestId | Rest Payload */
func encodeCipherCryptResp(m CipherCryptResp) []byte {
	b := reserved(make([]byte, 0, 8+len(m.Payload)), 3)
	b = append(b, boolean(m.Cleartext))
	b = putUint32(b, m.RequestID)
	return append(b, m.Payload...)
}

func decodeCipherCryptResp(b []byte) (CipherCryptResp, error) {
	if err := need(b, 8, "cipher response"); err != nil {
		return CipherCryptResp{}, err
	}
	return CipherCryptResp{
		Cleartext: b[3]&0b1 != 0,
		RequestID: binary.BigEndian.Uint32(b[4:8]),
		Payload:   rest(b, 8),
	}, nil
}

/* 2B Reserved | 2B SessionId */
func encodeSessionClose(m AuthSessionClose) []byte {
	return putUint16(reserved(make([]byte, 0, 4), 2), m.SessionID)
}

func decodeSessionClose(b []byte) (AuthSessionClose, error) {
	if err := need(b, 4, "AuthSessionClose"); err != nil {
		return AuthSessionClose{}, err
	}
	return AuthSessionClose{SessionID: binary.BigEndian.Uint16(b[2:4])}, nil
}

/* 4B Reserved | 4B RequestId */
func encodeSessionError(m AuthSessionError) []byte {
	return putUint32(reserved(make([]byte, 0, 8), 4), m.RequestID)
}

func decodeSessionError(b []byte) (AuthSessionError, error) {
	if err := need(b, 8, "AuthSessionError"); err != nil {
		return AuthSessionError{}, err
	}
	return AuthSessionError{RequestID: binary.BigEndian.Uint32(b[4:8])}, nil
}
