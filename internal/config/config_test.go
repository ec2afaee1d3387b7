package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DSN", "postgres://localhost/bookings")
	t.Setenv("BOT_TOKEN", "test-token")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ADMIN_USERS", `{"100":"Alice"}`)
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.False(t, cfg.IsProduction)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, time.Hour, cfg.JWTTokenTTL)
		assert.Equal(t, 30, cfg.PollTimeout)
		assert.Empty(t, cfg.AllowedUsers)
		assert.Equal(t, map[int64]string{100: "Alice"}, cfg.AdminUsers)
	})

	t.Run("Full Environment", func(t *testing.T) {
		setRequired(t)
		t.Setenv("APP_ENV", "prod")
		t.Setenv("HTTP_ADDR", ":9000")
		t.Setenv("JWT_TOKEN_TTL", "15m")
		t.Setenv("POLL_TIMEOUT", "10")
		t.Setenv("ALLOWED_USERS", "[42, 43]")
		t.Setenv("ADMIN_USERS", `{"100":"Alice","200":"Bob"}`)

		cfg, err := Load()
		require.NoError(t, err)

		assert.True(t, cfg.IsProduction)
		assert.Equal(t, ":9000", cfg.HTTPAddr)
		assert.Equal(t, 15*time.Minute, cfg.JWTTokenTTL)
		assert.Equal(t, 10, cfg.PollTimeout)
		assert.Equal(t, []int64{42, 43}, cfg.AllowedUsers)
		assert.Equal(t, map[int64]string{100: "Alice", 200: "Bob"}, cfg.AdminUsers)
	})

	t.Run("Missing Required Values", func(t *testing.T) {
		cases := map[string]string{
			"DB_DSN":    "DB_DSN is required",
			"BOT_TOKEN": "BOT_TOKEN is required",
		}
		for unset, want := range cases {
			t.Run(unset, func(t *testing.T) {
				setRequired(t)
				t.Setenv(unset, "")
				_, err := Load()
				require.Error(t, err)
				assert.Contains(t, err.Error(), want)
			})
		}
	})

	t.Run("Admin Roster Must Not Be Empty", func(t *testing.T) {
		setRequired(t)
		t.Setenv("ADMIN_USERS", "")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ADMIN_USERS")
	})

	t.Run("Malformed Lists", func(t *testing.T) {
		setRequired(t)
		t.Setenv("ALLOWED_USERS", "not json")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("Malformed Admin Ids", func(t *testing.T) {
		setRequired(t)
		t.Setenv("ADMIN_USERS", `{"abc":"Alice"}`)
		_, err := Load()
		assert.Error(t, err)
	})
}
