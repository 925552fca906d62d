package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/badgerstore"
	"github.com/meikuraledutech/canvas/config"
)

func TestOpenStoreDrivers(t *testing.T) {
	ctx := context.Background()
	log := slog.Default()

	cfg := config.Default()
	s, closeFn, err := openStore(ctx, cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &canvas.MemStore{}, s)
	closeFn()

	cfg.Store.Driver = config.DriverBadger
	cfg.Store.BadgerPath = filepath.Join(t.TempDir(), "db")
	s, closeFn, err = openStore(ctx, cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &badgerstore.Store{}, s)
	closeFn()

	cfg.Store.Driver = "etcd"
	_, _, err = openStore(ctx, cfg, log)
	assert.Error(t, err)
}

func TestCanvasOptions(t *testing.T) {
	o := canvasOptions(config.CanvasConfig{ClickThreshold: 150 * time.Millisecond, MinZoom: 0.5, MaxZoom: 2})
	assert.Equal(t, 150*time.Millisecond, o.ClickThreshold)
	assert.Equal(t, 0.5, o.MinZoom)
	assert.Equal(t, 2.0, o.MaxZoom)
}
