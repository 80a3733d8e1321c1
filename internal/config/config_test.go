package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("ENABLE_POLLS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.DBDriver)
	require.True(t, cfg.EnablePolls)
	require.Equal(t, 0, cfg.CascadeChunkSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:chat.db")
	t.Setenv("AVATAR_DIR", "/var/lib/chat/avatars")
	t.Setenv("ENABLE_POLLS", "false")
	t.Setenv("CASCADE_CHUNK_SIZE", "250")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.DBDriver)
	require.Equal(t, "/var/lib/chat/avatars", cfg.AvatarDir)
	require.False(t, cfg.EnablePolls)
	require.Equal(t, 250, cfg.CascadeChunkSize)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadChunkSize(t *testing.T) {
	t.Setenv("CASCADE_CHUNK_SIZE", "many")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("CASCADE_CHUNK_SIZE", "-1")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
}
