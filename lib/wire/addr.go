package wire

import "net/netip"

const (
	ipv4Len = 4
	ipv6Len = 16

	// flagIPv6 is bit 0 of the version byte.
	flagIPv6 = 0x01
)

// versionFlag returns the version byte for addr.
func versionFlag(addr netip.Addr) (byte, error) {
	switch {
	case addr.Is4():
		return 0, nil
	case addr.Is6():
		return flagIPv6, nil
	default:
		return 0, ErrInvalidAddress
	}
}

// appendAddr appends the 4 or 16 address bytes.
func appendAddr(b []byte, addr netip.Addr) []byte {
	if addr.Is4() {
		a := addr.As4()
		return append(b, a[:]...)
	}
	a := addr.As16()
	return append(b, a[:]...)
}

// readAddr reads the address that starts at off according to the version
// byte and returns it with the offset of the next field.
func readAddr(b []byte, off int, version byte) (netip.Addr, int, error) {
	if version&flagIPv6 != 0 {
		if len(b) < off+ipv6Len {
			return netip.Addr{}, 0, malformed("ipv6 address truncated: need %d bytes, got %d", off+ipv6Len, len(b))
		}
		// eight big endian 16 bit groups, i.e. the address in network order
		return netip.AddrFrom16([ipv6Len]byte(b[off : off+ipv6Len])), off + ipv6Len, nil
	}
	if len(b) < off+ipv4Len {
		return netip.Addr{}, 0, malformed("ipv4 address truncated: need %d bytes, got %d", off+ipv4Len, len(b))
	}
	return netip.AddrFrom4([ipv4Len]byte(b[off : off+ipv4Len])), off + ipv4Len, nil
}
