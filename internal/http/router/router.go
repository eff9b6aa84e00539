package router

import (
	"github.com/gin-gonic/gin"

	"github.com/dkravchenko/servicehub-backend/internal/config"
	"github.com/dkravchenko/servicehub-backend/internal/http/handlers"
	"github.com/dkravchenko/servicehub-backend/internal/http/middleware"
	"github.com/dkravchenko/servicehub-backend/internal/models"
	"github.com/dkravchenko/servicehub-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	jobHandler *handlers.JobHandler,
	proposalHandler *handlers.ProposalHandler,
	auctionHandler *handlers.AuctionHandler,
	escrowHandler *handlers.EscrowHandler,
	disputeHandler *handlers.DisputeHandler,
	reviewHandler *handlers.ReviewHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Публичные маршруты
	api.GET("/jobs", jobHandler.List)
	api.GET("/jobs/:id", middleware.UUIDValidator("id"), jobHandler.Get)
	api.GET("/jobs/:id/auction", middleware.UUIDValidator("id"), auctionHandler.State)
	api.GET("/jobs/:id/bids", middleware.UUIDValidator("id"), auctionHandler.ListBids)
	api.GET("/users/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ListByUser)
	api.GET("/users/:id/rating", middleware.UUIDValidator("id"), reviewHandler.Rating)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/jobs", jobHandler.Create)
		protected.GET("/jobs/:id/history", middleware.UUIDValidator("id"), jobHandler.History)
		protected.POST("/jobs/:id/schedule", middleware.UUIDValidator("id"), jobHandler.Schedule)
		protected.POST("/jobs/:id/en-route", middleware.UUIDValidator("id"), jobHandler.EnRoute)
		protected.POST("/jobs/:id/start", middleware.UUIDValidator("id"), jobHandler.Start)
		protected.POST("/jobs/:id/request-payment", middleware.UUIDValidator("id"), jobHandler.RequestPayment)
		protected.POST("/jobs/:id/cancel", middleware.UUIDValidator("id"), jobHandler.Cancel)
		protected.POST("/jobs/:id/complete", middleware.UUIDValidator("id"), jobHandler.Complete)

		protected.POST("/jobs/:id/proposals", middleware.UUIDValidator("id"), proposalHandler.Submit)
		protected.GET("/jobs/:id/proposals", middleware.UUIDValidator("id"), proposalHandler.ListByJob)
		protected.POST("/jobs/:id/proposals/:proposalId/accept", middleware.UUIDValidator("id"), middleware.UUIDValidator("proposalId"), proposalHandler.Accept)
		protected.GET("/proposals/my", proposalHandler.ListMine)

		bidRateLimit := middleware.RateLimitMiddleware(30, cfg.RateLimitPeriod)
		protected.POST("/jobs/:id/bids", middleware.UUIDValidator("id"), bidRateLimit, auctionHandler.SubmitBid)
		protected.POST("/jobs/:id/auction/accept", middleware.UUIDValidator("id"), auctionHandler.AcceptLowest)

		protected.GET("/jobs/:id/escrow", middleware.UUIDValidator("id"), escrowHandler.GetByJob)
		protected.GET("/escrow/my", escrowHandler.ListMine)

		protected.POST("/jobs/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.Open)
		protected.GET("/disputes/my", disputeHandler.ListMine)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.Get)
		protected.GET("/disputes/:id/messages", middleware.UUIDValidator("id"), disputeHandler.ListMessages)
		protected.POST("/disputes/:id/messages", middleware.UUIDValidator("id"), disputeHandler.PostMessage)
		protected.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)

		protected.POST("/jobs/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.Create)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkRead)
	}

	// Операторские маршруты
	operator := api.Group("/operator")
	operator.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleOperator))
	{
		operator.GET("/jobs/:id/bids", middleware.UUIDValidator("id"), auctionHandler.ListBidsFull)
		operator.POST("/proposals/:id/block", middleware.UUIDValidator("id"), proposalHandler.Block)
		operator.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.Get)
		operator.POST("/disputes/:id/messages", middleware.UUIDValidator("id"), disputeHandler.PostMessage)
		operator.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)
	}

	return r
}
