package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/mindoutline/internal/api"
	"github.com/dgallion1/mindoutline/internal/cache"
	"github.com/dgallion1/mindoutline/internal/config"
	"github.com/dgallion1/mindoutline/internal/pipeline"
	"github.com/dgallion1/mindoutline/internal/stats"
	"github.com/dgallion1/mindoutline/internal/vault"
	"github.com/dgallion1/mindoutline/internal/watch"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shared parse state.
	trees, err := cache.New(cfg.CacheSize)
	if err != nil {
		log.Error("create cache", "error", err)
		os.Exit(1)
	}
	parseStats := stats.New(cfg.StatsWindow)
	docParser := pipeline.NewDocumentParser(cfg.ParserOptions(), trees, parseStats)

	v, err := vault.New(cfg.VaultRoot)
	if err != nil {
		log.Error("open vault", "error", err)
		os.Exit(1)
	}
	watches := watch.NewManager(v, cfg.WatchInterval, docParser.Parse, log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, trees, parseStats, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{
		Orchestrator: orch,
		Parser:       docParser,
		Trees:        trees,
		Stats:        parseStats,
		Vault:        v,
		Watches:      watches,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: websocket sessions are long-lived and set their
		// own write deadlines.
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		watches.Close()
		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting mindoutline", "port", cfg.Port, "vault", v.Root(), "spaces_per_indent", cfg.SpacesPerIndent)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
