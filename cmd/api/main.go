package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lca-platform/internal/auditchain"
	"lca-platform/internal/auth"
	"lca-platform/internal/compliance"
	"lca-platform/internal/config"
	"lca-platform/internal/httpapi"
	"lca-platform/internal/obs"
	"lca-platform/internal/posting"
	"lca-platform/internal/storage"
	"lca-platform/pkg/logger"
	"lca-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional env file for local runs; real environments set vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Supporting-document storage: GCS when a bucket is configured, otherwise
	// an in-process store for bucket-less local runs.
	var docs storage.Store
	if cfg.Storage.Bucket != "" {
		gcsStore, err := storage.NewGCS(rootCtx, cfg.Storage)
		if err != nil {
			log.Error("gcs init failed", "err", err)
			os.Exit(1)
		}
		defer gcsStore.Close()
		docs = gcsStore
	} else {
		log.Warn("no GCS bucket configured, documents held in memory only")
		docs = storage.NewMemory()
	}

	auditSvc := auditchain.NewService(auditchain.NewPostgresRepo(db))
	postingSvc := posting.NewService(
		posting.NewPostgresRepo(db),
		docs,
		posting.ChainRecorder{Chain: auditSvc},
	)
	complianceSvc := compliance.NewService(postingSvc)

	obs.Init()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(obs.Middleware())

	h := httpapi.Handlers{
		Auth:        authManager,
		Postings:    postingSvc,
		Compliance:  complianceSvc,
		Audit:       auditSvc,
		Docs:        docs,
		RDB:         rdb,
		IntakeLimit: cfg.Intake.SubmissionsPerMinute,
	}
	registerRoutes(r, h, authManager, db, rdb)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
