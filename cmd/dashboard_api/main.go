package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/feelsunbreeze/student_dashboard/internal/config"
	"github.com/feelsunbreeze/student_dashboard/internal/dashboard"
	"github.com/feelsunbreeze/student_dashboard/internal/httpapi"
	"github.com/feelsunbreeze/student_dashboard/internal/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New("dashboard_api", os.Stdout, cfg.LogLevel)
	if err != nil {
		return err
	}
	ws, err := dashboard.FromConfig(cfg, log)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Options{
			Workspace:      ws,
			Identity:       dashboard.NewIdentity(cfg, log),
			Logger:         log,
			AllowedOrigins: cfg.Origins(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "model", ws.Model.Name, "scheme", ws.Scheme.Name)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return errors.Wrap(err, "server error")
	case <-ctx.Done():
		log.Info("shutting down")
	}

	// give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("could not stop server gracefully", "err", err)
		return server.Close()
	}
	log.Info("stopped")
	return nil
}
