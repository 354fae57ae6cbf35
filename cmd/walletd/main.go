package main

import (
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"betting-wallet/internal/config"
	"betting-wallet/internal/handlers"
	"betting-wallet/internal/middleware"
	"betting-wallet/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.Env == "production" {
		log.SetFormatter(&log.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)
	chainService := services.NewChainService(redisService, cfg)

	hub := handlers.NewHub()
	wsHandler := handlers.NewWebSocketHandler(hub)
	authHandler := handlers.NewAuthHandler(redisService, jwtService, cfg.StartingBalance)
	userHandler := handlers.NewUserHandler(redisService, hub)
	web3Handler := handlers.NewWeb3Handler(chainService)

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// The payment page talks to the chain simulator without a session.
	web3 := api.Group("/web3")
	{
		web3.GET("/get-balance/:address", web3Handler.GetBalance)
		web3.POST("/create-transaction", web3Handler.CreateTransaction)
		web3.GET("/transaction-status/:hash", web3Handler.TransactionStatus)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/ws", wsHandler.HandleWebSocket)

		users := protected.Group("/users")
		{
			users.GET("/:id", userHandler.GetUser)
			users.POST("/deposit", userHandler.Deposit)
			users.POST("/withdraw", userHandler.Withdraw)
			users.POST("/update-balance", userHandler.UpdateBalance)
		}
	}

	log.WithField("port", cfg.Port).Info("Ledger authority starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
