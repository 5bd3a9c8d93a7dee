package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"simple-file-share/internal/config"
	"simple-file-share/internal/logging"
	"simple-file-share/internal/server"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if err := run(sigCh); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run serves until a signal arrives on sigCh or the listener fails.
func run(sigCh <-chan os.Signal) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	srv := server.New(cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting",
			"url", fmt.Sprintf("http://%s", cfg.ListenAddr()),
			"upload_dir", cfg.UploadDir,
		)
		errCh <- srv.Start()
	}()

	select {
	case sig := <-sigCh:
		logger.Info("shutting_down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown_error", "err", err)
			return err
		}
		logger.Info("shutdown_complete")
		return nil
	case err := <-errCh:
		if err != nil {
			logger.Error("server_error", "err", err)
		}
		return err
	}
}
