package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigShow(t *testing.T) {
	dir := t.TempDir()
	hostkey := filepath.Join(dir, "hostkey.pem")
	require.NoError(t, os.WriteFile(hostkey, []byte("key"), 0o600))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("onion:\n  hostkey: "+hostkey+"\n  min_hop_count: 3\n  p2p_port: 7202\n"), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "show", "-c", path})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "min_hop_count: 3")
	assert.Contains(t, out.String(), "p2p_socket: 0.0.0.0:7202")
	assert.Contains(t, out.String(), "read_timeout: 10s")
}

func TestConfigShowMissingFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "show", "-c", filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, cmd.Execute())
}

func TestRunStopsWithContext(t *testing.T) {
	dir := t.TempDir()
	hostkey := filepath.Join(dir, "hostkey.pem")
	require.NoError(t, os.WriteFile(hostkey, []byte("key"), 0o600))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	path := filepath.Join(dir, "config.yaml")
	cfg := "onion:\n  hostkey: " + hostkey +
		"\n  api_address: 127.0.0.1:0\n  p2p_hostname: 127.0.0.1\n  p2p_port: " + strconv.Itoa(port) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cmd := newRootCmd()
	cmd.SetArgs([]string{"run", "-c", path})
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
