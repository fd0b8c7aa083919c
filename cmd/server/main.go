package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inamate/inamate/render-core/internal/api"
	"github.com/inamate/inamate/render-core/internal/auth"
	"github.com/inamate/inamate/render-core/internal/collab"
	"github.com/inamate/inamate/render-core/internal/config"
	"github.com/inamate/inamate/render-core/internal/engine"
	mw "github.com/inamate/inamate/render-core/internal/middleware"
	"github.com/inamate/inamate/render-core/internal/store"
)

func main() {
	// `server hash-password <password>` prints a value for OPERATOR_PASSWORD_HASH.
	if len(os.Args) == 3 && os.Args[1] == "hash-password" {
		hash, err := auth.HashPassword(os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		loader collab.EntryLoader
		saver  collab.EntrySaver
	)
	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		st := store.New(pool)
		if err := st.Migrate(ctx); err != nil {
			slog.Error("migrate database", "error", err)
			os.Exit(1)
		}
		loader, saver = st.Entries, st.SaveEntries
	} else {
		slog.Warn("DATABASE_URL not set, transform entries will not be persisted")
	}

	policy, _ := cfg.Policy()
	newEngine := func() (*engine.Engine, error) {
		return engine.NewEngine(engine.Options{
			TileSize:     cfg.TileSize,
			PoolCapacity: cfg.PoolCapacity,
			PoolPolicy:   policy,
			Logger:       logger.With("component", "engine"),
		})
	}

	hub := collab.NewHub(newEngine, loader, saver)
	go hub.Run()

	authService := auth.NewService(cfg.Operator, cfg.OperatorPasswordHash, cfg.JWTSecret)
	if cfg.OperatorPasswordHash == "" {
		slog.Warn("OPERATOR_PASSWORD_HASH not set, operator login disabled")
	}

	r := api.NewRouter(hub, authService, mw.SplitOrigins(cfg.AllowedOrigins))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "tileSize", cfg.TileSize, "poolCapacity", cfg.PoolCapacity, "poolPolicy", cfg.PoolPolicy)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
