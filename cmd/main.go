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

	"github.com/Dosada05/forecast-league/config"
	"github.com/Dosada05/forecast-league/db"
	"github.com/Dosada05/forecast-league/handlers"
	"github.com/Dosada05/forecast-league/live"
	"github.com/Dosada05/forecast-league/repositories"
	api "github.com/Dosada05/forecast-league/routes"
	"github.com/Dosada05/forecast-league/scoring"
	"github.com/Dosada05/forecast-league/services"
	"github.com/Dosada05/forecast-league/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const schedulerInterval = 1 * time.Minute

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
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	// Инициализация репозиториев
	txManager := repositories.NewTxManager(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	forecastRepo := repositories.NewPostgresForecastRepository(dbConn)
	statsRepo := repositories.NewPostgresStatsRepository(dbConn)
	seasonRepo := repositories.NewPostgresSeasonRepository(dbConn)
	logger.Info("repositories initialized")

	// Политика начисления очков
	policy := scoring.Policy{
		ExactHitPoints: cfg.ScoringExactHitPoints,
		PenaltyPerRank: cfg.ScoringPenaltyPerRank,
		PerfectBonus:   cfg.ScoringPerfectBonus,
	}

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo)
	playerService := services.NewPlayerService(playerRepo, cloudflareUploader, logger)
	tournamentService := services.NewTournamentService(
		txManager,
		tournamentRepo,
		participantRepo,
		forecastRepo,
		playerRepo,
		statsRepo,
		userRepo,
		wsHub,
		policy,
		cfg.DefaultPickCount,
		logger,
	)
	forecastService := services.NewForecastService(
		txManager,
		forecastRepo,
		tournamentRepo,
		participantRepo,
		userRepo,
		logger,
	)
	analyticsService := services.NewAnalyticsService(tournamentRepo, participantRepo, forecastRepo, userRepo)
	statsService := services.NewStatsService(statsRepo, forecastRepo, tournamentRepo, seasonRepo, userRepo, logger)
	logger.Info("services initialized")

	// Планировщик: автозакрытие ставок по дате турнира и ротация сезонов.
	go func() {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()
		logger.Info("scheduler started", slog.Duration("interval", schedulerInterval))

		runTasks := func() {
			if err := tournamentService.AutoCloseBetsByDates(context.Background()); err != nil {
				logger.Error("scheduler: auto close bets failed", slog.Any("error", err))
			}
			if err := statsService.RotateSeasons(context.Background()); err != nil {
				logger.Error("scheduler: season rotation failed", slog.Any("error", err))
			}
		}

		runTasks()
		for range ticker.C {
			runTasks()
		}
	}()

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	playerHandler := handlers.NewPlayerHandler(playerService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	forecastHandler := handlers.NewForecastHandler(forecastService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	statsHandler := handlers.NewStatsHandler(statsService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		playerHandler,
		tournamentHandler,
		forecastHandler,
		analyticsHandler,
		statsHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

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
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
