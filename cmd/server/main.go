package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lab1702/gridkeep/internal/board"
	"github.com/lab1702/gridkeep/internal/config"
	"github.com/lab1702/gridkeep/internal/connection"
	"github.com/lab1702/gridkeep/internal/engine"
	"github.com/lab1702/gridkeep/internal/engine/events"
	"github.com/lab1702/gridkeep/internal/metrics"
	"github.com/lab1702/gridkeep/internal/server"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg.LogLevel)

	g, err := loadGame(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to load board")
		os.Exit(1)
	}

	registry := connection.NewRegistry()
	m := metrics.New()
	srv := server.New(cfg, g, registry, m, log.WithField("component", "server"))

	mux := http.NewServeMux()
	srv.Routes(mux)

	httpServer := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancelRun := context.WithCancel(context.Background())
	go srv.Run(ctx)

	go func() {
		log.WithField("addr", httpServer.Addr).Info("gridkeep server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithField("signal", sig.String()).Info("shutting down")

	cancelRun()
	srv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http server shutdown error")
		os.Exit(2)
	}

	log.Info("server stopped")
}

func newLogger(level string) *logrus.Entry {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
	return logrus.NewEntry(l)
}

// loadGame reads the board description and optional meta sidecar,
// validates dimensions against the allow-list, and constructs a ready
// Game (spec.md §4.7 startup sequence).
func loadGame(cfg *config.Config, log *logrus.Entry) (*engine.Game, error) {
	raw, err := os.ReadFile(cfg.BoardPath)
	if err != nil {
		return nil, err
	}

	desc, err := board.ParseDescription(raw)
	if err != nil {
		return nil, err
	}

	meta, err := board.LoadMeta(cfg.BoardMeta)
	if err != nil {
		return nil, err
	}

	if err := board.ValidateDims(desc.Width, desc.Height, meta.AllowedDims()); err != nil {
		return nil, err
	}

	b, err := board.Build(desc, meta)
	if err != nil {
		return nil, err
	}

	log.WithField("dims", []int{desc.Width, desc.Height}).Info("board loaded")
	return engine.New(b, desc, meta, events.NewBus()), nil
}
