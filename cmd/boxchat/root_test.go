package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxchat/boxchat-go/pkg/config"
)

// testCommand returns a command carrying fresh copies of the global flags,
// parsed from args.
func testCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addGlobalFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(testCommand(t))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boxchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: alice\nlog_level: warn\nframing: length-prefix\n"), 0o644))

	cfg, err := loadConfig(testCommand(t, "--config", path, "--name", "bob"))
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.Name)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "length-prefix", cfg.Framing)
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	_, err := loadConfig(testCommand(t, "--family", "ipx"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewRuntimeRejectsBadLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "chatty"
	_, err := newRuntime(testCommand(t), cfg)
	assert.Error(t, err)
}

func TestNewRuntimeWiresProtocolLog(t *testing.T) {
	cfg := config.Default()
	cfg.ProtocolLog = filepath.Join(t.TempDir(), "session.blog")

	rt, err := newRuntime(testCommand(t), cfg)
	require.NoError(t, err)
	defer rt.close()

	require.NotNil(t, rt.conn.Logger)
	assert.FileExists(t, cfg.ProtocolLog)
	assert.Len(t, rt.closers, 1)
}

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		in   string
		host string
		port int
		ok   bool
	}{
		{"example.com:4000", "example.com", 4000, true},
		{"[::1]:16999", "::1", 16999, true},
		{"127.0.0.1", "", 0, false},
		{"::1", "", 0, false},
		{"host:0", "", 0, false},
		{"host:http", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, port, ok := splitHostPort(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.port, port)
		})
	}
}
