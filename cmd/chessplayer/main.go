package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chessplayer-web/internal/audio"
	appcfg "github.com/park285/chessplayer-web/internal/config"
	"github.com/park285/chessplayer-web/internal/journal"
	"github.com/park285/chessplayer-web/internal/moveclient"
	"github.com/park285/chessplayer-web/internal/msgcat"
	"github.com/park285/chessplayer-web/internal/obslog"
	"github.com/park285/chessplayer-web/internal/session"
	"github.com/park285/chessplayer-web/internal/web"
)

const (
	sweepEvery = time.Minute
	maxIdle    = 30 * time.Minute
)

func main() {
	logger, err := obslog.InitFromEnv()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	client := moveclient.NewClient(cfg.MoveServerURL,
		moveclient.WithTimeout(cfg.MoveTimeout),
		moveclient.WithRetry(cfg.MoveRetryMax),
		moveclient.WithLogger(logger.Named("moveclient")),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("session store init error: %v", err)
	}
	defer func() { _ = store.Close() }()

	moves, err := openJournal(cfg, logger)
	if err != nil {
		log.Fatalf("journal init error: %v", err)
	}
	defer func() { _ = moves.Close() }()

	manifest, err := audio.LoadManifest(cfg.SoundDir)
	if err != nil {
		log.Fatalf("sound manifest error: %v", err)
	}

	messages, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	hub := web.NewHub(web.Deps{
		Moves:       func(id string) web.MoveServer { return client.ForSession(id) },
		Store:       store,
		Journal:     moves,
		Manifest:    manifest,
		Messages:    messages,
		Logger:      logger,
		MoveTimeout: cfg.MoveTimeout,
	})
	defer hub.Close()
	go hub.Run(ctx, sweepEvery, maxIdle)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           web.NewServer(hub, manifest, logger, web.WithStaticDir(cfg.StaticDir)).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.ListenAddr), zap.String("move_server", cfg.MoveServerURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http_serve_failed", zap.Error(err))
		}
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *appcfg.AppConfig, logger *zap.Logger) (session.Store, error) {
	if cfg.RedisURL == "" {
		logger.Info("session_store", zap.String("backend", "memory"))
		return session.NewMemoryStore(cfg.SessionTTL), nil
	}
	logger.Info("session_store", zap.String("backend", "redis"))
	store, err := session.OpenRedis(ctx, cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openJournal(cfg *appcfg.AppConfig, logger *zap.Logger) (journal.Journal, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("move_journal", zap.String("backend", "memory"))
		return journal.NewMemory(), nil
	}
	logger.Info("move_journal", zap.String("backend", "postgres"))
	repo, err := journal.NewRepository(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
