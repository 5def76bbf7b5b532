package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/coaching-api/internal/config"
	"github.com/yourusername/coaching-api/internal/handler"
	"github.com/yourusername/coaching-api/internal/middleware"
	pgRepo "github.com/yourusername/coaching-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/coaching-api/internal/repository/redis"
	"github.com/yourusername/coaching-api/internal/service"
	"github.com/yourusername/coaching-api/pkg/auth"
	"github.com/yourusername/coaching-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	testRepo := pgRepo.NewTestRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализируем JWT сервис
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpirationHrs)*time.Hour)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Инициализируем сервисы
	attemptService := service.NewAttemptService(attemptRepo, testRepo, questionRepo, cacheRepo)
	analyticsService := service.NewAnalyticsService(attemptRepo, testRepo)
	leaderboardService := service.NewLeaderboardService(
		attemptRepo,
		testRepo,
		userRepo,
		cacheRepo,
		time.Duration(cfg.Leaderboard.CacheTTLSec)*time.Second,
	)

	// Инициализируем обработчики
	attemptHandler := handler.NewAttemptHandler(attemptService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService, cfg.Leaderboard.DefaultLimit)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	{
		// Жизненный цикл попытки
		attempts := api.Group("/attempts")
		{
			attempts.POST("/start", attemptHandler.StartAttempt)
			attempts.GET("/resume", attemptHandler.GetResumableAttempt)
			attempts.GET("/my", attemptHandler.ListMyAttempts)
			attempts.GET("/:public_id", attemptHandler.GetAttempt)
			attempts.PUT("/:public_id/answer", attemptHandler.SaveAnswer)
			attempts.POST("/:public_id/submit", attemptHandler.SubmitAttempt)
		}

		// Аналитика студента
		analytics := api.Group("/analytics")
		{
			analytics.GET("/summary", analyticsHandler.GetSummary)
			analytics.GET("/trend", analyticsHandler.GetTrend)
			analytics.GET("/heatmap", analyticsHandler.GetHeatmap)
			analytics.GET("/achievements", analyticsHandler.GetAchievements)
		}

		// Лидерборды
		leaderboard := api.Group("/leaderboard")
		{
			leaderboard.GET("", leaderboardHandler.GetGlobalLeaderboard)
			leaderboard.GET("/batch/:batch_id",
				middleware.ExtractUintParam("batch_id", "batch_id"),
				leaderboardHandler.GetBatchLeaderboard)
			leaderboard.GET("/test/:test_id",
				middleware.ExtractUintParam("test_id", "test_id"),
				leaderboardHandler.GetTestLeaderboard)
			leaderboard.GET("/test/:test_id/rank",
				middleware.ExtractUintParam("test_id", "test_id"),
				leaderboardHandler.GetTestRank)
			leaderboard.GET("/export",
				authMiddleware.AdminOnly(),
				leaderboardHandler.ExportLeaderboard)
		}
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	// Ждем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
