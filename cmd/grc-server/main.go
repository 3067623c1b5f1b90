// Package main provides the governance registry server entry point.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aigovtower/grc-registry/pkg/artifact"
	"github.com/aigovtower/grc-registry/pkg/audit"
	"github.com/aigovtower/grc-registry/pkg/authz"
	"github.com/aigovtower/grc-registry/pkg/cache"
	"github.com/aigovtower/grc-registry/pkg/change"
	"github.com/aigovtower/grc-registry/pkg/config"
	"github.com/aigovtower/grc-registry/pkg/db"
	"github.com/aigovtower/grc-registry/pkg/ha"
	"github.com/aigovtower/grc-registry/pkg/incident"
	"github.com/aigovtower/grc-registry/pkg/registry"
	"github.com/aigovtower/grc-registry/pkg/riskmetrics"
	"github.com/aigovtower/grc-registry/pkg/triage"
)

func main() {
	var (
		configPath string
		listenAddr string
	)
	flag.StringVar(&configPath, "config", "config/server.yaml", "Path to server config")
	flag.StringVar(&listenAddr, "listen", "", "Address to listen on (overrides config)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting governance registry server",
		"listen", cfg.Listen,
		"database", cfg.Database.Type,
		"auth", cfg.Auth.Mode,
	)

	gormDB, err := db.Open(db.Options{
		Type:         cfg.Database.Type,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LogSQL:       cfg.Database.LogSQL,
	})
	if err != nil {
		logger.Error("connect database", "error", err)
		os.Exit(1)
	}

	rules, err := triage.LoadRuleSet(cfg.Triage.RulesPath)
	if err != nil {
		logger.Error("load triage rules", "path", cfg.Triage.RulesPath, "error", err)
		os.Exit(1)
	}
	rootCauses, err := triage.LoadRootCauseMap(cfg.Triage.RootCauseMapPath)
	if err != nil {
		logger.Error("load root cause map", "path", cfg.Triage.RootCauseMapPath, "error", err)
		os.Exit(1)
	}
	engine := triage.NewEngine(rules, rootCauses)

	metrics := riskmetrics.NewService(gormDB)

	systems := registry.NewSystemStore(gormDB)
	changes := change.NewStore(gormDB)
	prompts := artifact.NewPromptStore(gormDB)
	ragSources := artifact.NewRAGStore(gormDB)
	binder := artifact.NewBinder(gormDB)
	incidents := incident.NewStore(gormDB, engine, metrics)
	auditStore := audit.NewStore(gormDB)
	recorder := audit.NewRecorder(auditStore, logger)

	type migrator interface{ AutoMigrate() error }
	locker := ha.NewMigrationLocker(gormDB)
	err = locker.WithLock(context.Background(), func() error {
		for _, m := range []migrator{systems, changes, prompts, ragSources, binder, incidents, auditStore} {
			if err := m.AutoMigrate(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("migrate schema", "error", err)
		os.Exit(1)
	}

	extractor, err := buildExtractor(cfg.Auth, logger)
	if err != nil {
		logger.Error("configure auth", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Remote-User", "X-Remote-Group"},
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := gormDB.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api/v1alpha1", func(r chi.Router) {
		r.Use(authz.Middleware(extractor))

		r.Route("/ai-systems", func(r chi.Router) {
			r.Mount("/", registry.NewRouter(systems, recorder))
			r.Post("/{systemID}/changes", change.CreateHandler(changes, recorder))
			r.Post("/{systemID}/incidents", incident.CreateHandler(incidents, recorder))
			r.Post("/{systemID}/prompts/activate", artifact.ActivatePromptHandler(binder, recorder))
			r.Post("/{systemID}/rag/activate", artifact.ActivateRAGHandler(binder, recorder))
		})
		r.Mount("/changes", change.NewRouter(changes, recorder))
		r.Mount("/prompts", artifact.NewPromptRouter(prompts, recorder))
		r.Mount("/rag", artifact.NewRAGRouter(ragSources, recorder))
		r.Mount("/incidents", incident.NewRouter(incidents, recorder))

		riskRouter := riskmetrics.NewRouter(metrics)
		if cfg.Cache.Enabled {
			reportCache := cache.NewLRUCache(cfg.Cache.MaxEntries,
				time.Duration(cfg.Cache.TTLSeconds)*time.Second)
			r.With(cache.Middleware(reportCache)).Mount("/risk", riskRouter)
		} else {
			r.Mount("/risk", riskRouter)
		}
		r.Mount("/audit", audit.NewRouter(auditStore))
	})

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	go func() {
		logger.Info("governance registry server ready", "listen", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}
	logger.Info("governance registry server stopped")
}

func buildExtractor(cfg config.AuthConfig, logger *slog.Logger) (authz.Extractor, error) {
	switch cfg.Mode {
	case "jwt":
		return authz.NewJWTExtractor(authz.JWTExtractorConfig{
			UserClaim:     cfg.UserClaim,
			RolesClaim:    cfg.RolesClaim,
			PublicKeyPath: cfg.PublicKeyPath,
			Logger:        logger,
		})
	default:
		return authz.HeaderExtractor, nil
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
