// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/danielhkuo/condovote/cliparse"
	"github.com/danielhkuo/condovote/db"
	"github.com/danielhkuo/condovote/ledger"
	"github.com/danielhkuo/condovote/metrics"
	"github.com/danielhkuo/condovote/router"
	"github.com/danielhkuo/condovote/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("failed to load .env")
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("error parsing flags")
	}

	level, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	gin.SetMode(cfg.GinMode)

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer dbConn.Close()

	// Verify connection
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = dbConn.PingContext(pingCtx)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("database ping failed")
	}

	if err := db.Migrate(dbConn, cfg.DatabaseType, cfg.DatabaseURL); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	log.WithField("database_type", cfg.DatabaseType).Info("database schema ready")

	st := store.New(dbConn, db.Dialect(cfg.DatabaseType))
	ms := metrics.NewMetricService(prometheus.DefaultRegisterer)
	l := ledger.New(st, log, ms)

	// Create server
	server := http.Server{
		Handler:           router.NewRouter(l, cfg, log, prometheus.DefaultGatherer),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	log.WithField("port", cfg.Port).Info("listening")
	if err := serve(&server, server.ListenAndServe, stop, shutdownTimeout, log); err != nil {
		log.WithError(err).Error("server closed")
		return
	}
	log.Info("server closed")
}

// serve runs listen until stop fires, then shuts srv down and waits up to
// timeout for in-flight requests. It returns only after they are done, so
// callers may release the database afterwards.
func serve(srv *http.Server, listen func() error, stop <-chan os.Signal, timeout time.Duration, log logrus.FieldLogger) error {
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- listen()
	}()

	select {
	case err := <-listenErr:
		return err
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	if err := <-listenErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
