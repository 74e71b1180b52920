package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/planarally-backend/internal/config"
	"github.com/DoyleJ11/planarally-backend/internal/httpapi"
	"github.com/DoyleJ11/planarally-backend/internal/logging"
	"github.com/DoyleJ11/planarally-backend/internal/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		if errors.Is(err, config.ErrSSLConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New(context.Background(),
		registry.WithAssetRoot(cfg.AssetDir),
		registry.WithLogger(log.Named("registry")),
	)

	// Build the router *with* the registry injected
	srv := &http.Server{Handler: httpapi.SetupRoutes(reg, log.Named("http"))}

	ln, err := listen(cfg)
	if err != nil {
		return multierr.Append(err, reg.Shutdown(context.Background()))
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", ln.Addr().String()),
			zap.Bool("ssl", cfg.SSL && cfg.Socket == ""),
		)
		if cfg.SSL && cfg.Socket == "" {
			serveErr <- srv.ServeTLS(ln, cfg.SSLFullchain, cfg.SSLPrivkey)
			return
		}
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return multierr.Append(err, reg.Shutdown(context.Background()))
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return multierr.Combine(
		srv.Shutdown(shutdownCtx),
		reg.Shutdown(shutdownCtx),
	)
}

// listen picks a unix socket when one is configured, TCP otherwise.
func listen(cfg config.Config) (net.Listener, error) {
	if cfg.Socket != "" {
		if err := os.Remove(cfg.Socket); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
		return net.Listen("unix", cfg.Socket)
	}
	return net.Listen("tcp", cfg.Addr())
}
