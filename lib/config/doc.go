// Package config loads the relay node settings.
//
// Settings are read through viper from a single file whose format follows
// its extension (YAML by default, TOML and JSON also work). Every key lives
// under the "onion" section:
//
//	onion:
//	  hostkey: /etc/go-onion/hostkey.pem
//	  api_address: 127.0.0.1:7001
//	  p2p_hostname: 0.0.0.0
//	  p2p_port: 7002
//	  min_hop_count: 2
//
// The optional keys api_peer, read_timeout, channel_size and the "limits"
// section tune the node beyond what a minimal deployment needs; see Defaults.
//
// The P2P socket is always derived from p2p_hostname and p2p_port.
package config
