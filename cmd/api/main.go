package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"spinbet-backend/internal/config"
	"spinbet-backend/internal/handlers"
	"spinbet-backend/internal/middleware"
	"spinbet-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var store services.Store
	if cfg.StoreBackend == "memory" {
		log.Println("Using in-memory store (data is not persisted)")
		store = services.NewMemoryStore()
	} else {
		redisStore, err := services.NewRedisStore(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		store = redisStore
	}
	defer store.Close()

	jwtService := services.NewJWTService(cfg)
	ledger := services.NewLedgerService(store)

	wsHandler := handlers.NewWebSocketHandler(store)

	slots := services.NewSlotEngine(ledger, wsHandler)
	coinflip := services.NewCoinflipEngine(ledger, wsHandler)

	gateway := services.NewCryptoPayClient(cfg.GatewayURL, cfg.GatewayToken)
	payments := services.NewPaymentService(ledger, gateway)

	go payments.RunExpirySweeper(context.Background(), 5*time.Minute)

	authHandler := handlers.NewAuthHandler(store, jwtService, cfg.BotToken)
	userHandler := handlers.NewUserHandler(store)
	gameHandler := handlers.NewGameHandler(slots, coinflip, store)
	walletHandler := handlers.NewWalletHandler(payments, store, cfg.GatewayToken)
	adminHandler := handlers.NewAdminHandler(store, cfg.AdminSecret)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

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

	router.GET("/auth/telegram", authHandler.Authenticate)
	router.POST("/payments/webhook", walletHandler.Webhook)

	admin := router.Group("/admin")
	{
		admin.GET("/house", adminHandler.GetHouseConfig)
		admin.POST("/house", adminHandler.UpdateHouseConfig)
	}

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(store))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.GET("/stats", userHandler.GetStats)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.GET("/rounds/:id", gameHandler.GetRound)
			games.POST("/verify", gameHandler.VerifyRound)

			slotsGroup := games.Group("/slots")
			{
				slotsGroup.POST("/spin", gameHandler.Spin)
				slotsGroup.POST("/stop", gameHandler.StopReel)
				slotsGroup.POST("/settle", gameHandler.SettleSlots)
			}

			coinflipGroup := games.Group("/coinflip")
			{
				coinflipGroup.POST("/start", gameHandler.StartCoinflip)
				coinflipGroup.POST("/flip", gameHandler.Flip)
				coinflipGroup.POST("/settle", gameHandler.SettleCoinflip)
			}
		}

		wallet := protected.Group("/wallet")
		{
			wallet.GET("/balance", walletHandler.GetBalance)
			wallet.POST("/deposit", walletHandler.Deposit)
			wallet.GET("/deposit/:id", walletHandler.CheckDeposit)
			wallet.POST("/withdraw", walletHandler.Withdraw)
			wallet.POST("/bonus", walletHandler.ClaimBonus)
			wallet.GET("/transactions", walletHandler.GetTransactions)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
