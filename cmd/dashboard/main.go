package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/edge-dashboard/internal/config"
	"github.com/Dan9191/edge-dashboard/internal/handler"
	"github.com/Dan9191/edge-dashboard/internal/integrations/insights"
	"github.com/Dan9191/edge-dashboard/internal/metrics"
	"github.com/Dan9191/edge-dashboard/internal/normalizer"
	"github.com/Dan9191/edge-dashboard/internal/poller"
	"github.com/Dan9191/edge-dashboard/internal/repository"
	"github.com/Dan9191/edge-dashboard/internal/service"
	"github.com/Dan9191/edge-dashboard/internal/utils"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Alias table
	aliases := normalizer.DefaultAliases()
	if cfg.AliasFile != "" {
		aliases, err = normalizer.LoadAliases(cfg.AliasFile)
		if err != nil {
			logger.Fatalf("Failed to load alias table: %v", err)
		}
	}
	if err := aliases.Validate(); err != nil {
		logger.Fatalf("Invalid alias table: %v", err)
	}

	// Preference store
	var prefs repository.PreferenceStore = repository.NewMemoryStore()
	if cfg.DBConn != "" {
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		repo := repository.NewRepository(db)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			logger.Fatalf("Failed to prepare database: %v", err)
		}
		prefs = repo
	} else {
		logger.Info("DB_CONN not set, preferences kept in memory")
	}

	// Initialize layers
	broker := handler.NewBroker(logger)
	recorder := metrics.NewRecorder()
	svc := service.NewService(service.Options{
		Normalizer: normalizer.New(aliases, logger),
		Formatter:  utils.NewFormatter(cfg.CurrencySymbol, cfg.NumberLocale),
		Prefs:      prefs,
		Client:     insights.NewClient(cfg, logger),
		Events:     broker,
		APIKey:     cfg.APIKey,
		PublicURL:  cfg.PublicURL,
	}, logger)
	poll := poller.NewPoller(poller.Options{
		Refresher:   svc,
		Prefs:       prefs,
		Metrics:     recorder,
		Interval:    cfg.RefreshInterval,
		SkipOverlap: cfg.SkipOverlap,
	}, logger)
	h := handler.NewHandler(svc, poll, broker, recorder, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := poll.Start(ctx); err != nil {
		logger.Fatalf("Failed to start poller: %v", err)
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     h.Routes(),
		ReadTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	poll.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Server shutdown incomplete")
	}
}
