package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fleet-wars-backend/internal/middleware"
	"fleet-wars-backend/internal/services"
)

type RouterDeps struct {
	Matches    *services.MatchService
	Store      *services.RedisService
	JWT        *services.JWTService
	WebSocket  *WebSocketHandler
	Logger     *zap.Logger
	IssueToken bool
}

func NewRouter(deps RouterDeps) *gin.Engine {
	matchHandler := NewMatchHandler(deps.Matches, deps.Logger)
	userHandler := NewUserHandler(deps.Matches, deps.JWT, deps.Logger)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Logger))

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	if deps.IssueToken {
		router.POST("/auth/token", userHandler.IssueToken)
	}

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(deps.JWT), middleware.RateLimitMiddleware(deps.Store))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.GET("/wallet", userHandler.GetWallet)
		protected.GET("/history", userHandler.GetHistory)
		protected.GET("/ws", deps.WebSocket.HandleWebSocket)
		if deps.IssueToken {
			protected.POST("/wallet/deposit", userHandler.Deposit)
		}

		protected.POST("/matches", matchHandler.CreateMatch)

		match := protected.Group("/matches/:creator/:id")
		{
			match.GET("", matchHandler.GetMatch)
			match.GET("/raw", matchHandler.GetRaw)
			match.POST("/join", matchHandler.JoinMatch)
			match.POST("/checkout", matchHandler.Checkout)
			match.POST("/checkin", matchHandler.Checkin)
			match.POST("/fire", matchHandler.FireShot)
			match.POST("/respond", matchHandler.RespondToShot)
			match.POST("/reveal", matchHandler.Reveal)
			match.POST("/finalize", matchHandler.Finalize)
			match.POST("/settle", matchHandler.Settle)
			match.POST("/abort", matchHandler.Abort)
		}
	}

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
