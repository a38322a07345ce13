package wire

import "encoding/binary"

func putUint16(b []byte, v uint16) []byte { return binary.BigEndian.AppendUint16(b, v) }
func putUint32(b []byte, v uint32) []byte { return binary.BigEndian.AppendUint32(b, v) }

func reserved(b []byte, n int) []byte {
	for i := 0; i < n; i++ {
		b = append(b, 0)
	}
	return b
}

func boolean(set bool) byte {
	if set {
		return 0b1
	}
	return 0b0
}

// need checks that a fixed-size prefix of n bytes can be sliced from b.
func need(b []byte, n int, what string) error {
	if len(b) < n {
		return malformed("%s truncated: need %d bytes, got %d", what, n, len(b))
	}
	return nil
}

// rest copies the variable-length tail that starts at off. An empty tail is
// returned as nil.
func rest(b []byte, off int) []byte {
	if len(b) <= off {
		return nil
	}
	out := make([]byte, len(b)-off)
	copy(out, b[off:])
	return out
}
