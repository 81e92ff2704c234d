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

	"callcenter-platform/internal/analysis"
	"callcenter-platform/internal/audit"
	"callcenter-platform/internal/auth"
	"callcenter-platform/internal/coaching"
	"callcenter-platform/internal/config"
	"callcenter-platform/internal/enrichment"
	"callcenter-platform/internal/httpapi"
	"callcenter-platform/internal/observability/metrics"
	"callcenter-platform/internal/reporting"
	"callcenter-platform/internal/results"
	"callcenter-platform/internal/session"
	"callcenter-platform/internal/telephony"
	"callcenter-platform/pkg/logger"
	"callcenter-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing .env is normal outside local development.
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

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: cfg.DB.MaxOpenConns})
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

	sessionMetrics := metrics.NewSessionMetrics(prometheus.DefaultRegisterer)
	analysisMetrics := metrics.NewAnalysisMetrics(prometheus.DefaultRegisterer)

	// Storage
	resultRepo := results.NewPostgresRepo(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	coachingSvc := coaching.NewService(
		coaching.NewPostgresStore(db),
		coaching.NewRedisBroker(rdb, cfg.Coaching.SubscriptionBuffer, log),
		log,
		sessionMetrics,
	)

	// Post-call analysis
	enricher, err := enrichment.New(enrichment.Config{
		BaseURL: cfg.Analysis.BaseURL,
		APIKey:  cfg.Analysis.APIKey,
		Timeout: cfg.Analysis.StepTimeout,
		Logger:  log,
	})
	if err != nil {
		log.Error("enrichment client init failed", "err", err)
		os.Exit(1)
	}
	pipeline := analysis.NewPipeline(analysis.Deps{
		Scorer:      enricher,
		Engagement:  enricher,
		Insights:    enricher,
		Pivots:      enricher,
		Runs:        analysis.NewPostgresRunStore(db),
		Logger:      log,
		Metrics:     analysisMetrics,
		StepTimeout: cfg.Analysis.StepTimeout,
	})

	// Telephony backends. Manual dialing is always available.
	backends := []telephony.Backend{telephony.ManualBackend{}}
	if cfg.Telephony.Enabled() {
		provider, err := telephony.NewProviderBackend(telephony.ProviderConfig{
			BaseURL:       cfg.Telephony.BaseURL,
			APIKey:        cfg.Telephony.APIKey,
			DefaultUserID: cfg.Telephony.DefaultUserID,
			Timeout:       cfg.Telephony.RequestTimeout,
			MaxRetries:    3,
			Logger:        log,
		})
		if err != nil {
			log.Error("telephony provider init failed", "err", err)
			os.Exit(1)
		}
		backends = append(backends, provider)
	} else {
		log.Info("provider-backed dialing disabled; TELEPHONY_BASE_URL not set")
	}

	sessions := session.NewManager(session.Deps{
		Backends: telephony.NewRegistry(backends...),
		Results:  resultRepo,
		Pipeline: pipeline,
		Lease:    utils.NewOperatorLease(rdb, cfg.Session.LeaseTTL),
		Coaching: coachingSvc,
		Audit:    auditSvc,
		Metrics:  sessionMetrics,
		Logger:   log,
	}, session.Options{
		TickInterval:         cfg.Session.TickInterval,
		PollInterval:         cfg.Telephony.PollInterval,
		LongCallWarning:      cfg.Session.LongCallWarning,
		PollFailureThreshold: cfg.Session.PollFailureThreshold,
		NoticeBuffer:         cfg.Session.NoticeBuffer,
	})

	handlers := httpapi.Handlers{
		Auth:     authManager,
		Sessions: sessions,
		Coaching: coachingSvc,
		Audit:    auditSvc,
		Results:  resultRepo,
		Analysis: pipeline,
		Reports:  reporting.NewService(resultRepo),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerPublicRoutes(r, db, rdb, telephony.StatusWebhookHandler{
		Sink:   sessions,
		Secret: cfg.Telephony.WebhookSecret,
	})
	if !cfg.IsProduction() {
		r.POST("/v1/auth/login", handlers.Login)
	}
	registerProtectedRoutes(r, auth.RequireAccessToken(authManager), handlers)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: the coaching stream is long-lived and sets its
		// own per-frame write deadlines.
		IdleTimeout: 60 * time.Second,
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

	// Stop session background work, then let in-flight analysis finish so
	// step outcomes are recorded before the pool closes.
	sessions.Close()
	done := make(chan struct{})
	go func() {
		pipeline.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("analysis still running at shutdown")
	}
}
