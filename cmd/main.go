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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/rgalymov/gameclub-backend/config"
	"github.com/rgalymov/gameclub-backend/db"
	"github.com/rgalymov/gameclub-backend/handlers"
	"github.com/rgalymov/gameclub-backend/realtime"
	"github.com/rgalymov/gameclub-backend/repositories"
	api "github.com/rgalymov/gameclub-backend/routes"
	"github.com/rgalymov/gameclub-backend/services"
	"github.com/rgalymov/gameclub-backend/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2)
	cloudflareUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	gameRepo := repositories.NewPostgresGameRepository(dbConn)
	clubRepo := repositories.NewPostgresClubRepository(dbConn)
	memberRepo := repositories.NewPostgresMemberRepository(dbConn)
	roundRepo := repositories.NewPostgresRoundRepository(dbConn)
	nominationRepo := repositories.NewPostgresNominationRepository(dbConn)
	voteRepo := repositories.NewPostgresVoteRepository(dbConn)
	reviewRepo := repositories.NewPostgresReviewRepository(dbConn)
	inviteRepo := repositories.NewPostgresInviteRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	notificationService := services.NewNotificationService(notificationRepo, wsHub, logger)
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo, cloudflareUploader, logger)
	gameService := services.NewGameService(gameRepo, cloudflareUploader)
	clubService := services.NewClubService(
		dbConn,
		clubRepo,
		memberRepo,
		roundRepo,
		nominationRepo,
		reviewRepo,
		cloudflareUploader,
		notificationService,
		logger,
	)
	memberService := services.NewMemberService(
		dbConn,
		memberRepo,
		clubRepo,
		userRepo,
		inviteRepo,
		notificationService,
		logger,
	)
	roundService := services.NewRoundService(
		dbConn,
		roundRepo,
		clubRepo,
		memberRepo,
		nominationRepo,
		voteRepo,
		reviewRepo,
		gameRepo,
		notificationService,
		logger,
	)
	logger.Info("Services initialized")

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	userHandler := handlers.NewUserHandler(userService)
	clubHandler := handlers.NewClubHandler(clubService)
	memberHandler := handlers.NewMemberHandler(memberService)
	inviteHandler := handlers.NewInviteHandler(memberService)
	roundHandler := handlers.NewRoundHandler(roundService)
	gameHandler := handlers.NewGameHandler(gameService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, memberService)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		userHandler,
		clubHandler,
		memberHandler,
		inviteHandler,
		roundHandler,
		gameHandler,
		notificationHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
