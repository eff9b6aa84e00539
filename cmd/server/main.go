package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dkravchenko/servicehub-backend/internal/config"
	"github.com/dkravchenko/servicehub-backend/internal/custody"
	"github.com/dkravchenko/servicehub-backend/internal/db"
	httpHandlers "github.com/dkravchenko/servicehub-backend/internal/http/handlers"
	httpRouter "github.com/dkravchenko/servicehub-backend/internal/http/router"
	"github.com/dkravchenko/servicehub-backend/internal/logger"
	"github.com/dkravchenko/servicehub-backend/internal/repository"
	"github.com/dkravchenko/servicehub-backend/internal/service"
	"github.com/dkravchenko/servicehub-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	custodyClient := custody.NewClient(cfg.CustodyBaseURL, cfg.CustodyAPIKey, cfg.CustodyMaxRetries)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	jobRepo := repository.NewJobRepository(dbConn)
	proposalRepo := repository.NewProposalRepository(dbConn)
	bidRepo := repository.NewBidRepository(dbConn)
	escrowRepo := repository.NewEscrowRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	historyRepo := repository.NewJobHistoryRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo, hub)
	authService := service.NewAuthService(userRepo, tokenManager)
	jobService := service.NewJobService(jobRepo, escrowRepo, custodyClient, notificationService, cfg.DefaultAuctionWindow)
	proposalService := service.NewProposalService(proposalRepo, jobRepo, custodyClient, notificationService)
	auctionService := service.NewAuctionService(bidRepo, jobRepo, custodyClient, notificationService, cfg.AuctionEarlyAccept)
	escrowService := service.NewEscrowService(escrowRepo)
	disputeService := service.NewDisputeService(disputeRepo, jobRepo, escrowRepo, custodyClient, notificationService)
	reviewService := service.NewReviewService(reviewRepo, jobRepo)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	jobHandler := httpHandlers.NewJobHandler(jobService, historyRepo)
	proposalHandler := httpHandlers.NewProposalHandler(proposalService)
	auctionHandler := httpHandlers.NewAuctionHandler(auctionService)
	escrowHandler := httpHandlers.NewEscrowHandler(escrowService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	reviewHandler := httpHandlers.NewReviewHandler(reviewService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, jobHandler, proposalHandler, auctionHandler, escrowHandler, disputeHandler, reviewHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
