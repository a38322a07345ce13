package config

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/go-i2p/go-onion/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/viper"
)

var log = logger.GetGoI2PLogger()

// ErrConfig wraps every failure to load or validate the settings.
var ErrConfig = errors.New("configuration error")

// Settings is the validated configuration of one relay node.
type Settings struct {
	HostkeyPath string `yaml:"hostkey"`
	APISocket   string `yaml:"api_socket"`
	P2PSocket   string `yaml:"p2p_socket"`
	MinHopCount int    `yaml:"min_hop_count"`

	// APIPeer receives the node's outbound API messages. Empty means the
	// API socket itself.
	APIPeer     string        `yaml:"api_peer,omitempty"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	ChannelSize int           `yaml:"channel_size"`

	P2PAcceptRate  float64 `yaml:"p2p_accept_rate"`
	P2PAcceptBurst int     `yaml:"p2p_accept_burst"`
	ResponderRate  float64 `yaml:"responder_rate"`
	ResponderBurst int     `yaml:"responder_burst"`
}

// Load reads the file at path and returns validated settings. An empty path
// looks for config.yaml in the node directory.
func Load(path string) (*Settings, error) {
	s, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Read is Load without validation.
func Read(path string) (*Settings, error) {
	viper.Reset()
	setDefaults()

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath(util.NodeDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, oops.
			In("config").
			Code("read_config").
			Wrapf(errors.Join(ErrConfig, err), "couldn't read configuration file")
	}
	log.WithFields(logger.Fields{
		"at":   "config.Read",
		"file": viper.ConfigFileUsed(),
	}).Debug("using config file")

	return NewSettingsFromViper()
}

// NewSettingsFromViper builds Settings from the current viper state. It does
// not validate.
func NewSettingsFromViper() (*Settings, error) {
	port := viper.GetInt(KeyP2PPort)
	if port < 1 || port > 65535 {
		return nil, newValidationError("onion.p2p_port must be between 1 and 65535, got " + strconv.Itoa(port))
	}
	return &Settings{
		HostkeyPath:    viper.GetString(KeyHostkey),
		APISocket:      viper.GetString(KeyAPIAddress),
		P2PSocket:      net.JoinHostPort(viper.GetString(KeyP2PHostname), strconv.Itoa(port)),
		MinHopCount:    viper.GetInt(KeyMinHopCount),
		APIPeer:        viper.GetString(KeyAPIPeer),
		ReadTimeout:    viper.GetDuration(KeyReadTimeout),
		ChannelSize:    viper.GetInt(KeyChannelSize),
		P2PAcceptRate:  viper.GetFloat64(KeyP2PAcceptRate),
		P2PAcceptBurst: viper.GetInt(KeyP2PAcceptBurst),
		ResponderRate:  viper.GetFloat64(KeyResponderRate),
		ResponderBurst: viper.GetInt(KeyResponderBurst),
	}, nil
}

// Validate checks every field. The returned error wraps ErrConfig.
func (s *Settings) Validate() error {
	validators := []func() error{
		s.validateHostkey,
		s.validateSockets,
		s.validateLimits,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			log.WithError(err).Error("Configuration validation failed")
			return err
		}
	}
	log.WithFields(logger.Fields{
		"at":     "config.Validate",
		"reason": "all_validators_passed",
	}).Debug("configuration validated")
	return nil
}

func (s *Settings) validateHostkey() error {
	if s.HostkeyPath == "" {
		return newValidationError("onion.hostkey is required")
	}
	if !util.CheckFileReadable(s.HostkeyPath) {
		return newValidationError("onion.hostkey " + s.HostkeyPath + " is not a readable file")
	}
	return nil
}

func (s *Settings) validateSockets() error {
	if _, _, err := net.SplitHostPort(s.APISocket); err != nil {
		return newValidationError("onion.api_address is not host:port: " + err.Error())
	}
	if _, _, err := net.SplitHostPort(s.P2PSocket); err != nil {
		return newValidationError("p2p socket is not host:port: " + err.Error())
	}
	if s.APIPeer != "" {
		if _, _, err := net.SplitHostPort(s.APIPeer); err != nil {
			return newValidationError("onion.api_peer is not host:port: " + err.Error())
		}
	}
	return nil
}

func (s *Settings) validateLimits() error {
	if s.MinHopCount < 1 {
		return newValidationError("onion.min_hop_count must be at least 1")
	}
	if s.ReadTimeout < 0 {
		return newValidationError("onion.read_timeout must not be negative")
	}
	if s.ChannelSize < 1 {
		return newValidationError("onion.channel_size must be at least 1")
	}
	if s.P2PAcceptRate < 0 || s.ResponderRate < 0 {
		return newValidationError("limits rates must not be negative")
	}
	if s.P2PAcceptBurst < 0 || s.ResponderBurst < 0 {
		return newValidationError("limits bursts must not be negative")
	}
	return nil
}

// validationError is returned when configuration validation fails
type validationError struct {
	message string
}

func newValidationError(message string) error {
	return &validationError{message: message}
}

func (e *validationError) Error() string {
	return "configuration validation failed: " + e.message
}

func (e *validationError) Unwrap() error { return ErrConfig }
