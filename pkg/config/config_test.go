package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxchat/boxchat-go/pkg/transport"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":16999", cfg.Listen)
	assert.Equal(t, transport.DefaultPort, cfg.Port)
	assert.True(t, cfg.Encrypt)
	assert.NotEmpty(t, cfg.Name)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "boxchat.yaml", `
name: alice
port: 17000
family: ipv6
framing: length-prefix
read_timeout: 30s
encrypt: false
retries: 3
metrics_addr: ":9116"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.Name)
	assert.Equal(t, 17000, cfg.Port)
	assert.Equal(t, "ipv6", cfg.Family)
	assert.False(t, cfg.Encrypt)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, ":9116", cfg.MetricsAddr)

	// Unset keys keep their defaults.
	assert.Equal(t, ":16999", cfg.Listen)
	assert.Equal(t, "10s", cfg.ConnectTimeout)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "boxchat.toml", `
name = "bob"
listen = "127.0.0.1:17001"
advertise = true
log_level = "debug"
protocol_log = "/tmp/bob.blog"
close_timeout = "500ms"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bob", cfg.Name)
	assert.Equal(t, "127.0.0.1:17001", cfg.Listen)
	assert.True(t, cfg.Advertise)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/bob.blog", cfg.ProtocolLog)
	assert.True(t, cfg.Encrypt)
}

func TestLoadEmptyYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{"unknown extension", "boxchat.json", "{}", ErrUnsupportedFormat},
		{"invalid port", "bad.yaml", "port: 70000\n", ErrInvalidConfig},
		{"invalid family", "bad.toml", "family = \"ipx\"\n", ErrInvalidConfig},
		{"invalid framing", "bad.yaml", "framing: cobs\n", ErrInvalidConfig},
		{"invalid duration", "bad.toml", "read_timeout = \"soon\"\n", ErrInvalidConfig},
		{"negative duration", "bad.yaml", "write_timeout: -1s\n", ErrInvalidConfig},
		{"negative retries", "bad.yaml", "retries: -1\n", ErrInvalidConfig},
		{"empty name", "bad.toml", "name = \" \"\n", ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "typo.yaml", "nmae: alice\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "typo.toml", "nmae = \"alice\"\n"))
	assert.ErrorContains(t, err, "nmae")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConnectionConfig(t *testing.T) {
	cfg := Default()
	cfg.Family = "ipv4"
	cfg.Framing = "length-prefix"
	cfg.MaxMessageSize = 1024
	cfg.ConnectTimeout = "3s"
	cfg.ReadTimeout = ""
	cfg.WriteTimeout = "250ms"
	cfg.CloseTimeout = ""

	cc, err := cfg.ConnectionConfig()
	require.NoError(t, err)

	assert.Equal(t, transport.FamilyIPv4, cc.Family)
	assert.Equal(t, transport.FramingLengthPrefix, cc.Framing)
	assert.Equal(t, uint32(1024), cc.MaxMessageSize)
	assert.Equal(t, 3*time.Second, cc.ConnectTimeout)
	assert.Zero(t, cc.ReadTimeout)
	assert.Equal(t, 250*time.Millisecond, cc.WriteTimeout)
	assert.Equal(t, 2*time.Second, cc.CloseTimeout, "empty close timeout keeps the default")
}

func TestConnectionConfigRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Framing = "smoke-signals"

	_, err := cfg.ConnectionConfig()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
