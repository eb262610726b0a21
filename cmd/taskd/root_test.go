package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaeltuccillo/taskd/internal/config"
)

func TestMigrateCommand(t *testing.T) {
	chdir(t, t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("DATABASE_URL", dbPath)

	cmd := newRootCommand()
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestMigrateCommand_ConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "from-yaml.db")
	cfgPath := filepath.Join(t.TempDir(), "taskd.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database_url: "+dbPath+"\nlog_level: warn\n"), 0o644))

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", cfgPath, "migrate"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestRootCommand_RequiresDatabase(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"migrate"})
	assert.ErrorContains(t, cmd.Execute(), "DATABASE_URL")
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseURL = filepath.Join(t.TempDir(), "serve.db")
	cfg.DBDriver = config.DriverSQLite
	cfg.Port = "0"
	cfg.ShutdownTimeout = "2s"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(200*time.Millisecond, cancel)

	err := serve(ctx, &runtime{cfg: cfg, logger: zaptest.NewLogger(t)})
	assert.NoError(t, err)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
