package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  url: ws://example:9000\nreconnect:\n  delay: 7s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromFile(path)

	require.NoError(t, err)
	require.Equal(t, "ws://example:9000", cfg.Server.URL)
	require.Equal(t, 7*time.Second, cfg.Reconnect.Delay)
	// Keys the file does not set keep their defaults.
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 5*time.Second, cfg.Notification.TTL)
}

func TestLoadFromFileRequiresTheFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
}
