package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestSQLiteDSN(t *testing.T) {
	const defaults = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	tests := map[string]string{
		"file:ledger.db":                    "file:ledger.db?" + defaults,
		"file:ledger.db?cache=shared":       "file:ledger.db?cache=shared&" + defaults,
		":memory:":                          ":memory:?" + defaults,
		"file:x.db?_pragma=foreign_keys(0)": "file:x.db?_pragma=foreign_keys(0)&_pragma=busy_timeout(5000)&_txlock=immediate",
		"file:y.db?_txlock=deferred&_pragma=busy_timeout(100)": "file:y.db?_txlock=deferred&_pragma=busy_timeout(100)&_pragma=foreign_keys(1)",
		"file:z.db?" + defaults:                                "file:z.db?" + defaults,
	}
	for in, want := range tests {
		assert.Equal(t, want, SQLiteDSN(in), in)
	}
}

func TestSelectDialect(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql", "sqlite"} {
		d, err := selectDialect(driver)
		require.NoError(t, err, driver)
		assert.NotNil(t, d)
	}

	_, err := selectDialect("oracle")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestOpenSQLDBRejectsEmptyDSN(t *testing.T) {
	_, err := openSQLDB("sqlite", "")
	assert.EqualError(t, err, "empty DSN")
}

func TestSupportsRowLocks(t *testing.T) {
	sqldb, err := openSQLDB("sqlite", ":memory:")
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	assert.False(t, SupportsRowLocks(db))
}
