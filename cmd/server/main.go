package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoCodeAlone/capture/api"
	"github.com/GoCodeAlone/capture/blob"
	"github.com/GoCodeAlone/capture/config"
	"github.com/GoCodeAlone/capture/session"
	"github.com/GoCodeAlone/capture/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration YAML file")
	addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := store.NewPGStore(ctx, store.PGConfig{
		URL:       cfg.Database.URL,
		MaxConns:  cfg.Database.MaxConns,
		OpTimeout: cfg.Database.OpTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to connect to ledger database: %v", err)
	}
	defer pg.Close()

	if err := store.NewMigrator(pg.Pool()).Migrate(ctx); err != nil {
		log.Fatalf("Failed to run ledger migrations: %v", err)
	}

	objects, err := blob.NewS3Store(ctx, blob.S3Config{
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		OpTimeout: cfg.Storage.OpTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.Fatalf("Failed to ensure bucket %q: %v", cfg.Storage.Bucket, err)
	}

	staging := cfg.StagingDir
	if staging == "" {
		staging = os.TempDir()
	}

	alloc := session.NewAllocator(pg.Sessions())
	handler, mw := api.NewRouter(api.Deps{
		Allocator:  alloc,
		Router:     session.NewRouter(objects),
		Reconciler: session.NewReconciler(objects),
		Packager:   session.NewPackager(objects, staging),
	}, api.Config{
		Logger:              logger,
		Metrics:             api.NewPromMetrics("capture"),
		UploadRatePerMinute: cfg.UploadRatePerMinute,
	})
	defer mw.Stop()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "addr", cfg.Addr, "bucket", cfg.Storage.Bucket)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	fmt.Println("Shutdown complete")
}
