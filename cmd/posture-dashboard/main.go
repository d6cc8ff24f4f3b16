package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/posture-dashboard/internal/acquire"
	"github.com/miradorstack/posture-dashboard/internal/api"
	"github.com/miradorstack/posture-dashboard/internal/cache"
	"github.com/miradorstack/posture-dashboard/internal/config"
	"github.com/miradorstack/posture-dashboard/internal/dashboard"
	"github.com/miradorstack/posture-dashboard/internal/metrics"
	"github.com/miradorstack/posture-dashboard/internal/models"
	"github.com/miradorstack/posture-dashboard/internal/prefs"
	"github.com/miradorstack/posture-dashboard/internal/repo"
	"github.com/miradorstack/posture-dashboard/internal/utils"
	"github.com/miradorstack/posture-dashboard/internal/view"
	"github.com/miradorstack/posture-dashboard/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting posture-dashboard", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	store, closeStore, err := newPreferenceStore(cfg)
	if err != nil {
		logger.Error("failed to open preference store", slog.String("backend", cfg.Preferences.Backend), slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()
	if !cfg.PersistsPreferences() {
		logger.Warn("preference backend is process-local; the selected mode is lost on restart",
			slog.String("backend", cfg.Preferences.Backend))
	}

	defaultMode, _ := models.ParseMode(cfg.Preferences.DefaultMode)
	mode, err := prefs.Resolve(context.Background(), store, defaultMode)
	if err != nil {
		logger.Warn("stored mode unreadable, using default", slog.String("mode", string(mode)), slog.Any("error", err))
	}

	loc, _ := time.LoadLocation(cfg.UI.Timezone)
	page := view.NewPage(view.Options{
		NotifyDuration: cfg.UI.NotifyDuration,
		ChartWidth:     cfg.UI.ChartWidth,
		ChartHeight:    cfg.UI.ChartHeight,
	})

	var remote, fallback acquire.Source
	if cfg.Sources.Remote.BaseURL != "" {
		remote = repo.NewRemoteSource(cfg.Sources.Remote.BaseURL, cfg.Sources.Remote.Timeout)
	}
	if cfg.Sources.Fallback.Location != "" {
		fallback = repo.NewFallbackSource(cfg.Sources.Fallback.Location, cfg.Sources.Fallback.Timeout)
	}

	opsServer, err := api.NewServer(cfg.Server)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	orchestrator, err := dashboard.New(dashboard.Options{
		Logger:         logger,
		Acquirer:       acquire.New(logger, remote, fallback),
		Ports:          page,
		Prefs:          store,
		Mode:           mode,
		Location:       loc,
		RedrawInterval: cfg.UI.RedrawInterval,
		Health:         opsServer,
	})
	if err != nil {
		logger.Error("failed to create dashboard", slog.Any("error", err))
		os.Exit(1)
	}

	handler, err := web.NewHandler(logger, orchestrator, page, cfg.UI.RedrawInterval)
	if err != nil {
		logger.Error("failed to create web handler", slog.Any("error", err))
		os.Exit(1)
	}
	httpServer := &http.Server{
		Addr: cfg.Server.Address,
		Handler: web.Routes(handler, web.RouterOptions{
			CSRFKey:        cfg.Server.CSRFKey,
			SecureCookies:  cfg.Server.SecureCookies,
			TrustedOrigins: cfg.Server.TrustedOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      45 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("ops gRPC server listening", slog.String("address", opsServer.Address()))
		if serveErr := opsServer.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	go func() {
		logger.Info("dashboard listening", slog.String("address", cfg.Server.Address), slog.String("mode", string(mode)))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("dashboard server exited", slog.Any("error", err))
			stop()
		}
	}()

	// initial load
	go orchestrator.Refresh(context.WithoutCancel(ctx))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("dashboard server shutdown", slog.Any("error", err))
	}
	opsServer.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("posture-dashboard stopped")
}

func newPreferenceStore(cfg *config.Config) (prefs.Store, func(), error) {
	switch cfg.Preferences.Backend {
	case config.BackendValkey:
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			return nil, nil, err
		}
		return prefs.NewCacheStore(provider, cfg.Preferences.Key), func() { provider.Close() }, nil
	case config.BackendMemory:
		provider := cache.NewMemoryProvider()
		return prefs.NewCacheStore(provider, cfg.Preferences.Key), func() { provider.Close() }, nil
	default:
		return prefs.NewFileStore(cfg.Preferences.Path), func() {}, nil
	}
}
