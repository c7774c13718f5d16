package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.EqualValues(t, defaultMaxDriftRatePPB, cfg.Runner.MaxDriftRatePPB)
	require.Equal(t, defaultClockErrorBoundSource, cfg.Runner.ClockErrorBoundSource)
	require.Equal(t, defaultChronyAddr, cfg.Runner.ChronyAddr)
	require.Equal(t, defaultClockboundShmPath, cfg.Runner.ClockboundShmPath)
	require.Equal(t, defaultVMClockShmPath, cfg.Runner.VMClockShmPath)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoadConfigFromBytesOverridesDefaults(t *testing.T) {
	data := []byte(`
runner:
  max_drift_rate_ppb: 500
  clock_error_bound_source: chronyc
server:
  http:
    enable: true
`)
	cfg, err := LoadConfigFromBytes(data)
	require.NoError(t, err)
	require.EqualValues(t, 500, cfg.Runner.MaxDriftRatePPB)
	require.Equal(t, "chronyc", cfg.Runner.ClockErrorBoundSource)
	require.True(t, cfg.Server.HTTP.Enable)
	require.Equal(t, defaultHTTPBindAddr, cfg.Server.HTTP.BindAddr)
}

func TestLoadConfigFromBytesRejectsUnknownSource(t *testing.T) {
	_, err := LoadConfigFromBytes([]byte("runner:\n  clock_error_bound_source: carrier-pigeon\n"))
	require.Error(t, err)
}

func TestLoadConfigFromBytesRejectsSSHWithoutServerKey(t *testing.T) {
	_, err := LoadConfigFromBytes([]byte("server:\n  ssh:\n    enable: true\n"))
	require.Error(t, err)
}

func TestLoadConfigFromBytesAllowsSSHWithServerKey(t *testing.T) {
	cfg, err := LoadConfigFromBytes([]byte("server:\n  ssh:\n    enable: true\n    server_key: /etc/clockboundd/ssh_host_key\n"))
	require.NoError(t, err)
	require.True(t, cfg.Server.SSH.Enable)
	require.Equal(t, defaultSSHBindAddr, cfg.Server.SSH.BindAddr)
}

func TestLoadConfigFromBytesRejectsMalformedYAML(t *testing.T) {
	_, err := LoadConfigFromBytes([]byte("runner: [this is not a mapping"))
	require.Error(t, err)
}

func TestLoadConfigReadsFileOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clockboundd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runner:\n  chrony_addr: 10.0.0.1:323\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:323", cfg.Runner.ChronyAddr)
}
