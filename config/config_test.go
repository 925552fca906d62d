package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CANVAS_STORE", "")
	t.Setenv("CANVAS_LISTEN", "")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "canvas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":8080"
store:
  driver: badger
  badger_path: /tmp/canvas
log:
  level: debug
  format: json
canvas:
  click_threshold: 150ms
  max_zoom: 3
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Listen)
	assert.Equal(t, DriverBadger, c.Store.Driver)
	assert.Equal(t, "/tmp/canvas", c.Store.BadgerPath)
	assert.Equal(t, 150*time.Millisecond, c.Canvas.ClickThreshold)
	assert.Equal(t, 0.2, c.Canvas.MinZoom)
	assert.Equal(t, 3.0, c.Canvas.MaxZoom)
	assert.Equal(t, "json", c.Log.Format)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/canvas")
	t.Setenv("CANVAS_LISTEN", ":9999")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, c.Store.Driver)
	assert.Equal(t, "postgres://localhost/canvas", c.Store.DatabaseURL)
	assert.Equal(t, ":9999", c.Listen)

	t.Setenv("CANVAS_STORE", DriverMemory)
	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, c.Store.Driver)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("CANVAS_STORE", DriverPostgres)
	_, err := Load("")
	assert.Error(t, err, "postgres without a database url")

	t.Setenv("CANVAS_STORE", "etcd")
	_, err = Load("")
	assert.Error(t, err)

	c := Default()
	c.Canvas.MinZoom = 10
	assert.Error(t, c.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	assert.NotNil(t, LogConfig{Level: "debug", Format: "json"}.Logger())
	assert.NotNil(t, LogConfig{}.Logger())
}
