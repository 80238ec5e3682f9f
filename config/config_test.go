package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vainnor/pomobot/db"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BOT_TOKEN", "POMO_GUILD_ID", "POMO_MOD_ROLE", "POMO_DB_DRIVER", "POMO_DB_DSN",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"POMO_ACCRUAL_INTERVAL", "POMO_RETRY_DELAY", "POMO_HTTP_ADDR", "MASTER_API_KEY", "POMO_LOG_LEVEL",
	} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "mods", cfg.ModRole)
	assert.Equal(t, db.DriverSQLite, cfg.DBDriver)
	assert.Equal(t, time.Minute, cfg.AccrualInterval)
	assert.Equal(t, 30*time.Second, cfg.RetryDelay)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "user_times.db", cfg.DSN())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestParse_Postgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("POMO_DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "pomo")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "pomobot")

	cfg, err := Parse()
	require.NoError(t, err)
	dsn := cfg.DSN()
	assert.True(t, strings.Contains(dsn, "host=db"), dsn)
	assert.True(t, strings.Contains(dsn, "dbname=pomobot"), dsn)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"driver":         {"POMO_DB_DRIVER": "mysql"},
		"sub-minute":     {"POMO_ACCRUAL_INTERVAL": "90s"},
		"negative":       {"POMO_ACCRUAL_INTERVAL": "-1m"},
		"bad duration":   {"POMO_ACCRUAL_INTERVAL": "soon"},
		"postgres no db": {"POMO_DB_DRIVER": "postgres"},
		"zero retry":     {"POMO_RETRY_DELAY": "0s"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Parse()
			require.Error(t, err)
		})
	}
}

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{LogLevel: "DEBUG"}.Level())
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "warning"}.Level())
	assert.Equal(t, slog.LevelError, Config{LogLevel: "error"}.Level())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "loud"}.Level())
}
