package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pagepulse/web-analytics-service/internal/config"
	"github.com/pagepulse/web-analytics-service/internal/httpserver"
	"github.com/pagepulse/web-analytics-service/internal/store"
	"github.com/pagepulse/web-analytics-service/internal/ws"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := run(log); err != nil {
		// Fatal only after run's defers have released the pool.
		log.WithError(err).Fatal("service failed")
	}
}

// run boots the service: config → DB → schema → hub → HTTP server, then
// blocks until SIGINT/SIGTERM or a server failure and shuts down in
// reverse order so in-flight writes drain before the pool closes.
func run(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewPostgresStore(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer db.Close()

	// Ensure required tables/indexes exist so `docker compose up --build`
	// is enough.
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	hub := ws.NewHub(log)
	defer hub.Stop()

	router := httpserver.NewRouter(cfg, db, hub, log)
	srv := httpserver.New(cfg.ListenAddr, router)

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
		return err
	}

	log.Info("server stopped")
	return nil
}
