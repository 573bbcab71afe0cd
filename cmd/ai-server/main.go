package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/clinical-ai/internal/config"
	"github.com/ehr/clinical-ai/internal/domain/recommendation"
	"github.com/ehr/clinical-ai/internal/messaging"
	"github.com/ehr/clinical-ai/internal/platform/bus"
	"github.com/ehr/clinical-ai/internal/platform/db"
	"github.com/ehr/clinical-ai/internal/platform/gemini"
	"github.com/ehr/clinical-ai/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ai-server",
		Short: "Clinical AI recommendation service",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the recommendation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return err
			}
			logger.Info().Int("applied", applied).Msg("migrations complete")
			return nil
		},
	}
	upCmd.Flags().String("dir", "migrations", "migrations directory")
	cmd.AddCommand(upCmd)

	return cmd
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if applied, err := db.NewMigrator(pool, "migrations").Up(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	} else if applied > 0 {
		logger.Info().Int("applied", applied).Msg("migrations applied")
	}

	// Processing pipeline
	client := gemini.NewClient(cfg.GeminiAPIURL, cfg.GeminiAPIKey,
		time.Duration(cfg.GeminiTimeoutSeconds)*time.Second, logger)
	synth := recommendation.NewSynthesizer(client, logger)
	repo := recommendation.NewRepoPG(pool)
	listener := messaging.NewListener(synth, repo, logger)

	// Message bus
	consumer, err := bus.Dial(cfg.AMQPURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to message broker")
	}
	defer consumer.Close()

	subscriptions := map[string]bus.HandlerFunc{
		bus.QueuePatientEvents: listener.HandlePatientEvent,
		bus.QueueClinicalNotes: listener.HandleClinicalNote,
		bus.QueueTriage:        listener.HandleTriageAssessment,
	}
	for queue, handler := range subscriptions {
		if err := consumer.Subscribe(ctx, queue, handler); err != nil {
			logger.Fatal().Err(err).Str("queue", queue).Msg("failed to start consumer")
		}
	}

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	api := e.Group("/api")
	svc := recommendation.NewService(repo)
	recommendation.NewHandler(svc).RegisterRoutes(api)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
