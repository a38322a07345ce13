package wire

import "encoding/binary"

/* 2B Port | 1B Reserved | 7b1b IPv | 4B/16B IP | Rest Hostkey */
func encodeRpsPeer(m RpsPeer) ([]byte, error) {
	flag, err := versionFlag(m.Addr)
	if err != nil {
		return nil, err
	}
	b := putUint16(make([]byte, 0, 4+ipv6Len+len(m.Hostkey)), m.Port)
	b = reserved(b, 1)
	b = append(b, flag)
	b = appendAddr(b, m.Addr)
	return append(b, m.Hostkey...), nil
}

func decodeRpsPeer(b []byte) (RpsPeer, error) {
	if err := need(b, 4, "RpsPeer header"); err != nil {
		return RpsPeer{}, err
	}
	addr, off, err := readAddr(b, 4, b[3])
	if err != nil {
		return RpsPeer{}, err
	}
	return RpsPeer{
		Port:    binary.BigEndian.Uint16(b[0:2]),
		Addr:    addr,
		Hostkey: rest(b, off),
	}, nil
}
