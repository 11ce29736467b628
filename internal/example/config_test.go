package main

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skovtunenko/shutdownguard"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string // empty means the file does not exist
		want    Config
		wantErr string
	}{
		{
			name: "missing_file",
			want: DefaultConfig(),
		},
		{
			name: "overrides",
			content: `
output_file = "/tmp/out.txt"
monitor = "signals"
grace_period = "250ms"
callback_timeout = "2s"
keep_running = true
`,
			want: func() Config {
				c := DefaultConfig()
				c.OutputFile = "/tmp/out.txt"
				c.Monitor = "signals"
				c.GracePeriod = 250 * time.Millisecond
				c.CallbackTimeout = 2 * time.Second
				c.KeepRunning = true
				return c
			}(),
		},
		{
			name:    "unknown_monitor",
			content: `monitor = "carrier-pigeon"`,
			wantErr: `unknown monitor "carrier-pigeon"`,
		},
		{
			name:    "unknown_key",
			content: `outptu_file = "typo.txt"`,
			wantErr: "unknown keys",
		},
		{
			name:    "negative_duration",
			content: `grace_period = "-1s"`,
			wantErr: "durations must not be negative",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "shutdownguard.toml")
			if tt.content != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			}

			got, err := LoadConfig(path)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_GuardOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.Len(t, cfg.GuardOptions(), 3)

	cfg.Inhibit = true
	cfg.KeepRunning = true
	require.Len(t, cfg.GuardOptions(), 5)
}

func TestRegisterCallbacks(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.OutputFile = filepath.Join(t.TempDir(), "shutdown_time.txt")

	logger, closer := newLogger(cfg)
	defer closer.Close()

	var operations atomic.Uint64
	operations.Store(7)

	guard := shutdownguard.New()
	registerCallbacks(guard, cfg, logger, &operations)
	require.Equal(t, 1, guard.CallbackCount())

	guard.ExecuteCallbacks()

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "Shutdown time: "))
	require.Contains(t, string(data), "Operations: 7\n")
}
