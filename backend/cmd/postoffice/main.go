package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/Pack144/packman-sub000/backend/internal/router"
	"github.com/Pack144/packman-sub000/backend/internal/setup"
	"github.com/Pack144/packman-sub000/shared/config"
	"github.com/Pack144/packman-sub000/shared/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: postoffice <command> [flags]

commands:
  serve   run the HTTP API and the scheduled outbox flush
  flush   send every queued message once and exit
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(ctx, os.Args[2:])
	case "flush":
		err = flush(ctx, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Log.Error("postoffice failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func load(name string, args []string) *config.Config {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configFolder := fs.String("config-folder", "backend/config", "path to folder with public.yaml and private.yaml")
	fs.Parse(args)

	cfg := config.MustLoad(*configFolder)
	logger.Initialize(cfg.Public.Log.Level, cfg.Public.Log.JSON)
	return cfg
}

func serve(ctx context.Context, args []string) error {
	cfg := load("serve", args)

	deps, err := setup.SetupDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Storage.Cleanup()

	if err := deps.Outbox.StartSchedule(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Public.HTTPPort),
		Handler:           router.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func flush(ctx context.Context, args []string) error {
	cfg := load("flush", args)

	deps, err := setup.SetupDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Storage.Cleanup()

	stats, err := deps.Outbox.FlushPendingSends(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("pending=%d sent=%d skipped=%d failed=%d emails=%d delivered=%d\n",
		stats.Pending, stats.Sent, stats.Skipped, stats.Failed, stats.Emails, stats.Delivered)
	if stats.Failed > 0 {
		return fmt.Errorf("%d queued messages failed", stats.Failed)
	}
	return nil
}
