package config

import (
	"net"
	"strconv"
	"time"

	"github.com/go-i2p/go-onion/lib/util"
	"github.com/go-i2p/logger"
	"github.com/spf13/viper"
)

// Viper keys.
const (
	KeyHostkey        = "onion.hostkey"
	KeyAPIAddress     = "onion.api_address"
	KeyAPIPeer        = "onion.api_peer"
	KeyP2PHostname    = "onion.p2p_hostname"
	KeyP2PPort        = "onion.p2p_port"
	KeyMinHopCount    = "onion.min_hop_count"
	KeyReadTimeout    = "onion.read_timeout"
	KeyChannelSize    = "onion.channel_size"
	KeyP2PAcceptRate  = "limits.p2p_accept_rate"
	KeyP2PAcceptBurst = "limits.p2p_accept_burst"
	KeyResponderRate  = "limits.responder_rate"
	KeyResponderBurst = "limits.responder_burst"
)

// Default values. A node built from defaults alone still needs a hostkey.
const (
	DefaultAPIAddress     = "127.0.0.1:7001"
	DefaultP2PHostname    = "0.0.0.0"
	DefaultP2PPort        = 7002
	DefaultMinHopCount    = 2
	DefaultReadTimeout    = 10 * time.Second
	DefaultChannelSize    = 16
	DefaultP2PAcceptRate  = 200.0
	DefaultP2PAcceptBurst = 50
	DefaultResponderRate  = 100.0
	DefaultResponderBurst = 25
)

// Defaults returns the settings used for every key missing from the file.
func Defaults() Settings {
	return Settings{
		HostkeyPath:    DefaultHostkeyPath(),
		APISocket:      DefaultAPIAddress,
		P2PSocket:      net.JoinHostPort(DefaultP2PHostname, strconv.Itoa(DefaultP2PPort)),
		MinHopCount:    DefaultMinHopCount,
		ReadTimeout:    DefaultReadTimeout,
		ChannelSize:    DefaultChannelSize,
		P2PAcceptRate:  DefaultP2PAcceptRate,
		P2PAcceptBurst: DefaultP2PAcceptBurst,
		ResponderRate:  DefaultResponderRate,
		ResponderBurst: DefaultResponderBurst,
	}
}

// DefaultHostkeyPath is hostkey.pem in the node directory.
func DefaultHostkeyPath() string {
	return util.NodeFile("hostkey.pem")
}

func setDefaults() {
	viper.SetDefault(KeyHostkey, DefaultHostkeyPath())
	viper.SetDefault(KeyAPIAddress, DefaultAPIAddress)
	viper.SetDefault(KeyAPIPeer, "")
	viper.SetDefault(KeyP2PHostname, DefaultP2PHostname)
	viper.SetDefault(KeyP2PPort, DefaultP2PPort)
	viper.SetDefault(KeyMinHopCount, DefaultMinHopCount)
	viper.SetDefault(KeyReadTimeout, DefaultReadTimeout)
	viper.SetDefault(KeyChannelSize, DefaultChannelSize)
	viper.SetDefault(KeyP2PAcceptRate, DefaultP2PAcceptRate)
	viper.SetDefault(KeyP2PAcceptBurst, DefaultP2PAcceptBurst)
	viper.SetDefault(KeyResponderRate, DefaultResponderRate)
	viper.SetDefault(KeyResponderBurst, DefaultResponderBurst)

	log.WithFields(logger.Fields{
		"at":     "config.setDefaults",
		"reason": "defaults_registered",
	}).Debug("registered configuration defaults")
}
