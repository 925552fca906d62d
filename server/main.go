package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/config"
	"github.com/meikuraledutech/canvas/httpapi"
	"github.com/meikuraledutech/canvas/session"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "canvasd",
		Short:         "Serve generation canvases over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}

	schemaCmd = &cobra.Command{
		Use:   "schema",
		Short: "Manage the store schema",
	}
	schemaCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create tables (no-op for badger and memory)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store canvas.Store) error {
				return store.CreateSchema(cmd.Context())
			})
		},
	}
	schemaDropCmd = &cobra.Command{
		Use:   "drop",
		Short: "Drop all canvas data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(store canvas.Store) error {
				return store.DropSchema(cmd.Context())
			})
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	schemaCmd.AddCommand(schemaCreateCmd, schemaDropCmd)
	rootCmd.AddCommand(serveCmd, schemaCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "canvasd:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := cfg.Log.Logger()
	slog.SetDefault(log)

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	mgr := session.NewManager(store, canvasOptions(cfg.Canvas), log)
	app := httpapi.New(mgr, log)

	errc := make(chan error, 1)
	go func() { errc <- app.Listen(cfg.Listen) }()
	log.Info("canvasd listening", "addr", cfg.Listen, "store", cfg.Store.Driver)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		return err
	}
	return <-errc
}

func withStore(ctx context.Context, fn func(canvas.Store) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := cfg.Log.Logger()
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := fn(store); err != nil {
		return err
	}
	log.Info("done", "store", cfg.Store.Driver)
	return nil
}

func canvasOptions(c config.CanvasConfig) canvas.Options {
	return canvas.Options{
		ClickThreshold: c.ClickThreshold,
		MinZoom:        c.MinZoom,
		MaxZoom:        c.MaxZoom,
	}
}
