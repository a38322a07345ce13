package onion

import (
	"crypto/sha256"
	"strings"

	"github.com/go-i2p/common/base32"
)

// fingerprint is a short, log friendly identifier for a host key.
func fingerprint(hostkey []byte) string {
	if len(hostkey) == 0 {
		return "<none>"
	}
	sum := sha256.Sum256(hostkey)
	return strings.TrimRight(base32.EncodeToString(sum[:]), "=")[:16]
}
