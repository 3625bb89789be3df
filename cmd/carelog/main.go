package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/adapters/crypto"
	"github.com/carelog-g8/carelog/internal/adapters/feedback"
	"github.com/carelog-g8/carelog/internal/adapters/handler"
	"github.com/carelog-g8/carelog/internal/adapters/messaging"
	"github.com/carelog-g8/carelog/internal/adapters/metrics"
	"github.com/carelog-g8/carelog/internal/adapters/middleware"
	"github.com/carelog-g8/carelog/internal/adapters/session"
	"github.com/carelog-g8/carelog/internal/config"
	"github.com/carelog-g8/carelog/internal/core/ports"
	"github.com/carelog-g8/carelog/internal/core/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "carelog",
		Short:        "CareLog patient journal and care-team messaging service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(keygenCmd())
	rootCmd.AddCommand(hospitalsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the CareLog API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(config.Load())
		},
	}
}

func keygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new document encryption key file",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = config.LoadStorage().KeyFile
			}
			if err := crypto.WriteKeyFile(out); err != nil {
				return fmt.Errorf("write key file: %w", err)
			}
			fmt.Printf("Encryption key written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().String("out", "", "Key file path (defaults to KEY_FILE)")
	return cmd
}

func hospitalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hospitals",
		Short: "List the hospitals stored in the encrypted document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadStorage()
			logger, err := config.NewLogger(cfg.Env, "warn")
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			store, closeStore, err := openDocumentStore(ctx, cfg, requireKey, nil, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			records, err := services.NewRecordService(ctx, store, nil, nil, logger)
			if err != nil {
				return err
			}
			for _, id := range records.GetAllHospitals() {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func runServer(cfg *config.Config) error {
	logger, err := config.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, closeStore, err := openDocumentStore(ctx, cfg, createMissingKey, m, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var publisher ports.AlertPublisher
	if cfg.RabbitMQURL != "" {
		broker, err := messaging.NewRabbitMQBroker(cfg.RabbitMQURL, cfg.PainAlertQueueName, m, logger)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		defer broker.Close()
		publisher = broker
	} else {
		logger.Warn("RABBITMQ_URL not set, pain alert events are disabled")
	}

	var generator ports.FeedbackGenerator
	if cfg.Feedback.APIKey != "" {
		generator = feedback.NewGeminiClient(cfg.Feedback, logger)
	} else {
		logger.Warn("FEEDBACK_API_KEY not set, AI feedback is disabled")
	}

	var (
		revoker     ports.TokenRevoker
		redisPinger handler.RedisPinger
	)
	if cfg.RedisAddress != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("Connected to Redis", zap.String("address", cfg.RedisAddress))
		revoker = session.NewRevocationStore(redisClient, logger)
		redisPinger = redisClient
	} else {
		logger.Warn("REDIS_ADDRESS not set, logout cannot revoke tokens")
	}

	records, err := services.NewRecordService(ctx, store, publisher, generator, logger)
	if err != nil {
		return err
	}
	chats := services.NewMessagingService(records, logger)
	sessions := services.NewSessionService(cfg.JWTPrivateKey, revoker)

	router := handler.NewRouter(handler.RouterConfig{
		Auth:    handler.NewAuthHandler(records, sessions, logger),
		Records: handler.NewRecordHandler(records, logger),
		Notes:   handler.NewNoteHandler(records, logger),
		Chat:    handler.NewChatHandler(records, chats, logger),
		Health:  handler.NewHealthHandler(store.backend, store.pinger, redisPinger, cfg.Version, logger),

		AuthMiddleware: middleware.NewAuthMiddleware(sessions, logger),
		Metrics:        m,
		Gatherer:       reg,

		AllowedOrigins:    cfg.AllowedOrigins,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Logger:            logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("could not start server: %w", err)
		}
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
