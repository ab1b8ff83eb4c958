package database

import (
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNew_InMemory(t *testing.T) {
	db, err := New(WithDataSource(":memory:"), WithMaxOpenConns(1), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	assert.NoError(t, db.Ping())
}

func TestNew_CreatesSqliteDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history", "trends.db")

	db, err := New(WithDriver("sqlite3"), WithDataSource(path))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(WithDriver(""))
	assert.ErrorContains(t, err, "driver cannot be empty")

	_, err = New(WithDataSource(""))
	assert.ErrorContains(t, err, "data source cannot be empty")
}

func TestNew_UnknownDriverExhaustsRetries(t *testing.T) {
	start := time.Now()
	_, err := New(WithDriver("nosuchdriver"), WithRetry(2, 10*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSqliteFile(t *testing.T) {
	tests := map[string]string{
		":memory:":                      "",
		"file::memory:?cache=shared":    "",
		"file:test.db?mode=memory":      "",
		"./data/trends.db":              "./data/trends.db",
		"file:/var/lib/trends.db?_fk=1": "/var/lib/trends.db",
	}
	for dsn, want := range tests {
		assert.Equal(t, want, sqliteFile(dsn), dsn)
	}
}
