package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(Options{Driver: "sqlite", DSN: path})
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Options{Driver: "oracle", DSN: "x"})
	assert.ErrorContains(t, err, "unknown driver")
}

func TestOpen_SQLitePrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefixed.db")

	s, err := Open(Options{Driver: "sqlite", DSN: "sqlite://" + path})
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := createTestStore(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Migrate(context.Background()), "iteration %d", i)
	}
}

func TestPingAndClose(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}
