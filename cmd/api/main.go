package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/debt-insights/internal/analytics"
	"github.com/Dan9191/debt-insights/internal/config"
	"github.com/Dan9191/debt-insights/internal/handler"
	"github.com/Dan9191/debt-insights/internal/middleware"
	"github.com/Dan9191/debt-insights/internal/ml"
	"github.com/Dan9191/debt-insights/internal/modelstore"
	"github.com/Dan9191/debt-insights/internal/repository"
	"github.com/Dan9191/debt-insights/internal/scheduler"
	"github.com/Dan9191/debt-insights/internal/service"
	"github.com/Dan9191/debt-insights/internal/utils/email"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	trainer := analytics.NewTrainer(repo, analytics.TrainerConfig{
		MinRows:       cfg.MinTrainingRows,
		SyntheticRows: cfg.SyntheticRows,
		Seed:          cfg.TrainingSeed,
		TestFraction:  analytics.DefaultTrainerConfig().TestFraction,
		Forest: ml.ForestConfig{
			Trees: cfg.ForestTrees,
			Seed:  cfg.TrainingSeed,
		},
	}, logger)
	store := modelstore.New(cfg.ModelDir, trainer, logger)
	svc := service.NewService(repo, store, logger)
	if cfg.ReportsEnabled() {
		svc.SetNotifier(email.NewSender(cfg, logger))
	}
	h := handler.NewHandler(svc, logger)

	// Setup router
	var auth func(http.Handler) http.Handler
	if cfg.JWTSecret != "" {
		auth = middleware.AuthMiddleware(cfg.JWTSecret, logger)
	} else {
		logger.Warn("JWT_SECRET is empty, API routes are unauthenticated")
	}
	r := h.Routes(auth)
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Load or train models without blocking startup
	go func() {
		if err := svc.Initialize(ctx); err != nil {
			logger.Errorf("Failed to initialize models: %v", err)
			return
		}
		logger.Info("Models ready")
	}()

	// Periodic retraining
	if cfg.RetrainSchedule != "" {
		sched, err := scheduler.New(cfg.RetrainSchedule, svc, logger)
		if err != nil {
			logger.Fatalf("Failed to set up retrain scheduler: %v", err)
		}
		sched.Start(ctx)
		defer sched.Stop()
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}
