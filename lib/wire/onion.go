package wire

import "encoding/binary"

/* 1B Reserved | 7b1b IPv | 2B OnionTunnel | 4B/16B IP | Rest Hostkey */
func encodeTunnelBuild(m OnionTunnelBuild) ([]byte, error) {
	flag, err := versionFlag(m.Addr)
	if err != nil {
		return nil, err
	}
	b := reserved(make([]byte, 0, 4+ipv6Len+len(m.Hostkey)), 1)
	b = append(b, flag)
	b = putUint16(b, m.OnionTunnel)
	b = appendAddr(b, m.Addr)
	return append(b, m.Hostkey...), nil
}

func decodeTunnelBuild(b []byte) (OnionTunnelBuild, error) {
	if err := need(b, 4, "OnionTunnelBuild header"); err != nil {
		return OnionTunnelBuild{}, err
	}
	addr, off, err := readAddr(b, 4, b[1])
	if err != nil {
		return OnionTunnelBuild{}, err
	}
	return OnionTunnelBuild{
		OnionTunnel: binary.BigEndian.Uint16(b[2:4]),
		Addr:        addr,
		Hostkey:     rest(b, off),
	}, nil
}

/* 4B TunnelId | Rest Payload */
func encodeTunnelPayload(m TunnelPayload) []byte {
	b := putUint32(make([]byte, 0, 4+len(m.Payload)), m.TunnelID)
	return append(b, m.Payload...)
}

func decodeTunnelPayload(b []byte) (TunnelPayload, error) {
	if err := need(b, 4, "tunnel id"); err != nil {
		return TunnelPayload{}, err
	}
	return TunnelPayload{
		TunnelID: binary.BigEndian.Uint32(b[0:4]),
		Payload:  rest(b, 4),
	}, nil
}

/* 4B TunnelId */
func encodeTunnelIdent(m TunnelIdent) []byte {
	return putUint32(nil, m.TunnelID)
}

func decodeTunnelIdent(b []byte) (TunnelIdent, error) {
	if err := need(b, 4, "tunnel id"); err != nil {
		return TunnelIdent{}, err
	}
	return TunnelIdent{TunnelID: binary.BigEndian.Uint32(b[0:4])}, nil
}

/* 2B RequestType | 2B Reserved | 4B TunnelId */
func encodeOnionError(m OnionError) []byte {
	b := putUint16(make([]byte, 0, 8), uint16(m.RequestType))
	b = reserved(b, 2)
	return putUint32(b, m.TunnelID)
}

func decodeOnionError(b []byte) (OnionError, error) {
	if err := need(b, 8, "OnionError"); err != nil {
		return OnionError{}, err
	}
	return OnionError{
		RequestType: MessageID(binary.BigEndian.Uint16(b[0:2])),
		TunnelID:    binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

/* 2B CoverSize | 2B Reserved */
func encodeOnionCover(m OnionCover) []byte {
	return reserved(putUint16(make([]byte, 0, 4), m.CoverSize), 2)
}

func decodeOnionCover(b []byte) (OnionCover, error) {
	if err := need(b, 4, "OnionCover"); err != nil {
		return OnionCover{}, err
	}
	return OnionCover{CoverSize: binary.BigEndian.Uint16(b[0:2])}, nil
}
