package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MESSAGING_ENABLED", "false")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "noop", cfg.Cache.Driver)
	assert.Equal(t, "noop", cfg.Messaging.Driver)
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Database.ReaderDSN)
	assert.Equal(t, 21, cfg.Ledger.DefaultTaxPercent)
	assert.Equal(t, 0, cfg.Ledger.DefaultDiscountPercent)
	assert.Equal(t, 4, cfg.Ledger.DefaultMaxGroup)
	assert.Equal(t, int64(10<<20), cfg.Transfer.MaxUploadBytes)
	assert.Equal(t, 5*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.OrderTTL)
}

func TestNewOrderTTLNeverOutlivesDefault(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MESSAGING_ENABLED", "false")
	t.Setenv("CACHE_DEFAULT_TTL", "10s")
	t.Setenv("CACHE_ORDER_TTL", "1m")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Cache.OrderTTL)
}

func TestNewLedgerOverrides(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MESSAGING_ENABLED", "false")
	t.Setenv("LEDGER_DEFAULT_TAX", "10")
	t.Setenv("LEDGER_DEFAULT_DISCOUNT", "5")
	t.Setenv("LEDGER_DEFAULT_MAX_GROUP", "9")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, Ledger{DefaultTaxPercent: 10, DefaultDiscountPercent: 5, DefaultMaxGroup: 9}, cfg.Ledger)
}

func TestNewRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"discount above 100", "LEDGER_DEFAULT_DISCOUNT", "101"},
		{"negative tax", "LEDGER_DEFAULT_TAX", "-1"},
		{"negative max group", "LEDGER_DEFAULT_MAX_GROUP", "-3"},
		{"zero http port", "HTTP_PORT", "0"},
		{"unknown cache driver", "CACHE_DRIVER", "memcached"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MESSAGING_ENABLED", "false")
			t.Setenv(tt.key, tt.value)

			_, err := New()
			assert.Error(t, err)
		})
	}
}

func TestNewTransferLimit(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MESSAGING_ENABLED", "false")
	t.Setenv("TRANSFER_MAX_UPLOAD_BYTES", " 2048 ")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, int64(2048), cfg.Transfer.MaxUploadBytes)

	t.Setenv("TRANSFER_MAX_UPLOAD_BYTES", "0")
	cfg, err = New()
	require.NoError(t, err)
	assert.Equal(t, int64(10<<20), cfg.Transfer.MaxUploadBytes)
}
