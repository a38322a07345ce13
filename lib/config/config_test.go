package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	hostkey := writeFile(t, dir, "hostkey.pem", "-----BEGIN PUBLIC KEY-----\n")
	path := writeFile(t, dir, "config.yaml", `
onion:
  hostkey: `+hostkey+`
  api_address: 127.0.0.1:7101
  p2p_port: 7102
  min_hop_count: 3
  read_timeout: 2s
limits:
  responder_rate: 5
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, hostkey, s.HostkeyPath)
	assert.Equal(t, "127.0.0.1:7101", s.APISocket)
	assert.Equal(t, "0.0.0.0:7102", s.P2PSocket)
	assert.Equal(t, 3, s.MinHopCount)
	assert.Equal(t, 2*time.Second, s.ReadTimeout)
	assert.Equal(t, 5.0, s.ResponderRate)
	assert.Equal(t, DefaultResponderBurst, s.ResponderBurst)
	assert.Equal(t, DefaultChannelSize, s.ChannelSize)
	assert.Empty(t, s.APIPeer)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	hostkey := writeFile(t, dir, "hostkey.pem", "key")
	path := writeFile(t, dir, "node.toml", `
[onion]
hostkey = "`+hostkey+`"
api_address = "[::1]:7001"
api_peer = "127.0.0.1:7000"
p2p_hostname = "::"
p2p_port = 7002
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "[::1]:7001", s.APISocket)
	assert.Equal(t, "[::]:7002", s.P2PSocket)
	assert.Equal(t, "127.0.0.1:7000", s.APIPeer)
	assert.Equal(t, DefaultMinHopCount, s.MinHopCount)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	hostkey := writeFile(t, dir, "hostkey.pem", "key")

	tests := []struct {
		name    string
		content string
	}{
		{"missing hostkey file", "onion:\n  hostkey: " + filepath.Join(dir, "nope") + "\n"},
		{"bad api address", "onion:\n  hostkey: " + hostkey + "\n  api_address: localhost\n"},
		{"port out of range", "onion:\n  hostkey: " + hostkey + "\n  p2p_port: 70000\n"},
		{"zero hops", "onion:\n  hostkey: " + hostkey + "\n  min_hop_count: 0\n"},
		{"negative rate", "onion:\n  hostkey: " + hostkey + "\nlimits:\n  p2p_accept_rate: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "config.yaml", tt.content)
			_, err := Load(path)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.yaml"))
		assert.ErrorIs(t, err, ErrConfig)
	})
}

func TestNewSettingsFromViperDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	s, err := NewSettingsFromViper()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *s)
}

func TestValidationErrorMessage(t *testing.T) {
	err := newValidationError("test message")
	assert.Equal(t, "configuration validation failed: test message", err.Error())
	assert.ErrorIs(t, err, ErrConfig)
}

func TestReadWithoutValidation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "onion:\n  hostkey: "+filepath.Join(dir, "absent.pem")+"\n  min_hop_count: 4\n")

	s, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 4, s.MinHopCount)
	assert.ErrorIs(t, s.Validate(), ErrConfig)
}
