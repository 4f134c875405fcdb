package main

import (
    "context"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"
    "github.com/rs/zerolog/log"

    "github.com/local/docconvert/internal/assemble"
    "github.com/local/docconvert/internal/classifier"
    cfgpkg "github.com/local/docconvert/internal/config"
    "github.com/local/docconvert/internal/convert"
    "github.com/local/docconvert/internal/extract"
    "github.com/local/docconvert/internal/health"
    "github.com/local/docconvert/internal/layout"
    logpkg "github.com/local/docconvert/internal/logger"
    "github.com/local/docconvert/internal/metrics"
    "github.com/local/docconvert/internal/server"
    "github.com/local/docconvert/internal/storage"
    "github.com/local/docconvert/internal/store"
)

func main() {
    _ = godotenv.Load()
    cfg := cfgpkg.FromEnv()

    if err := logpkg.Init(cfg.Logging, cfg.Axiom); err != nil {
        fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
        os.Exit(1)
    }
    defer logpkg.Close()

    metrics.Init()

    // Conversion records
    records, err := store.NewRedisRecords(cfg.Redis.URL, cfg.Redis.RecordTTL)
    if err != nil {
        log.Fatal().Err(err).Msg("failed to init redis record store")
    }
    defer records.Close()

    // Artifact mirror (optional)
    var artifacts server.Artifacts
    if cfg.Storage.S3Bucket != "" {
        as, err := storage.NewArtifactStore(context.Background(), cfg.Storage.S3Bucket, cfg.Storage.S3Prefix, cfg.Storage.EncryptionKey)
        if err != nil {
            log.Fatal().Err(err).Msg("failed to init S3 artifact store")
        }
        artifacts = as
    }

    // Pipeline
    cls := classifier.New(classifier.FitzOpener{}, cfg.Classify)
    tracker := health.New(cfg.Health)
    strategies := []extract.Strategy{
        extract.NewCloudStrategy(cfg.Cloud),
        extract.NewNativeTextStrategy(),
        extract.NewOCRStrategy(cfg.OCR),
        extract.NewPlaceholderStrategy(),
    }
    orch := convert.New(cls, tracker, strategies, layout.New(cfg.Layout), assemble.New(), cfg.Cloud.Disabled)

    // HTTP surface
    mux := http.NewServeMux()
    svc := server.New(orch, records, artifacts, cfg.Storage, func() any { return tracker.Snapshot() })
    svc.RegisterRoutes(mux)
    mux.Handle("/metrics", metrics.Handler())

    srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

    go func(){
        log.Info().Msgf("HTTP server listening on %s", cfg.Server.Addr)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("http server error")
        }
    }()

    // Graceful shutdown
    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    <-stop
    ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
    defer cancel()
    _ = srv.Shutdown(ctx)
    fmt.Println("shutdown complete")
}
