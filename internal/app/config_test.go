package app

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	unsetEnv(t, "APP_ENV", "LEDGER_STORE", "PG_DSN", "REDIS_ADDR", "REPORT_CACHE_TTL", "LEDGER_BASE_CURRENCY", "INTEGRITY_CRON")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StorePostgres, cfg.LedgerStore)
	require.Equal(t, "USD", cfg.BaseCurrency)
	require.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	require.Equal(t, "0 * * * *", cfg.IntegrityCron)
	require.True(t, cfg.QueueEnabled())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigBadgerStore(t *testing.T) {
	t.Setenv("LEDGER_STORE", " Badger ")
	t.Setenv("BADGER_DIR", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LEDGER_BASE_CURRENCY", "eur")
	unsetEnv(t, "REPORT_CACHE_TTL")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StoreBadger, cfg.LedgerStore)
	require.Equal(t, "EUR", cfg.BaseCurrency)
	require.False(t, cfg.QueueEnabled())
}

func TestLoadConfigRejectsUnknownStore(t *testing.T) {
	unsetEnv(t, "LEDGER_BASE_CURRENCY", "REPORT_CACHE_TTL")
	t.Setenv("LEDGER_STORE", "sqlite")
	_, err := LoadConfig()
	require.ErrorContains(t, err, `unknown LEDGER_STORE "sqlite"`)
}

func TestLoadConfigRejectsBadCurrency(t *testing.T) {
	unsetEnv(t, "REPORT_CACHE_TTL")
	t.Setenv("LEDGER_STORE", "badger")
	t.Setenv("LEDGER_BASE_CURRENCY", "EURO")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "three-letter")
}
