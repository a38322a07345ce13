package onion

import (
	"github.com/go-i2p/go-onion/lib/bridge"
	"github.com/go-i2p/go-onion/lib/wire"
	"github.com/samber/oops"
)

// hop is one established Auth session of a tunnel.
type hop struct {
	SessionID uint16
	Peer      wire.RpsPeer
	Conn      bridge.Connection
}

// encryptForAllPeers wraps data in one encryption layer per hop. The first
// request carries the cleartext; every later request wraps the previous
// ciphertext. Each request gets a fresh request id.
//
// Every request is bound to the entry hop's session id, including those for
// later hops. This mirrors the relay-through-entry behaviour the node has
// always had and is kept as is.
func encryptForAllPeers(c *comm, ids *IDAllocator, hops []hop, data []byte) ([]byte, error) {
	if len(hops) == 0 {
		return nil, oops.Errorf("cannot encrypt for an empty hop list")
	}
	session := hops[0].SessionID

	data, err := encryptLayer(c, ids.NextRequestID(), session, true, data)
	if err != nil {
		return nil, err
	}
	for range hops[1:] {
		data, err = encryptLayer(c, ids.NextRequestID(), session, false, data)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func encryptLayer(c *comm, reqID uint32, session uint16, cleartext bool, payload []byte) ([]byte, error) {
	m, err := c.exchange(reqID, wire.AuthCipherEncrypt{
		SessionID: session,
		RequestID: reqID,
		Cleartext: cleartext,
		Payload:   payload,
	})
	if err != nil {
		return nil, err
	}
	resp, ok := m.(wire.AuthCipherEncryptResp)
	if !ok || resp.RequestID != reqID {
		return nil, breach("AuthCipherEncryptResp", m)
	}
	return resp.Payload, nil
}
