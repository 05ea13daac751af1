package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/qubotech/Referral/internal/config"
	"github.com/qubotech/Referral/internal/handlers"
	"github.com/qubotech/Referral/internal/middleware"
	"github.com/qubotech/Referral/internal/services"
	"github.com/qubotech/Referral/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	userStore, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer userStore.Close()

	jwtService := services.NewJWTService(cfg)
	authService := services.NewAuthService(userStore, jwtService)

	hub := handlers.NewLedgerEventHub()
	ledgers := services.NewLedgerManager(userStore, hub)

	authHandler := handlers.NewAuthHandler(authService, userStore, ledgers)
	ledgerHandler := handlers.NewLedgerHandler(userStore, ledgers)
	wsHandler := handlers.NewWebSocketHandler(hub)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))

	auth := router.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.AuthMiddleware(jwtService), authHandler.Me)
	}

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/dashboard", ledgerHandler.Dashboard)
		protected.POST("/deposit/confirm", ledgerHandler.ConfirmDeposit)
		protected.POST("/referrals", ledgerHandler.AddReferral)
		protected.POST("/games/:index/complete", ledgerHandler.CompleteGame)
		protected.POST("/withdraw", ledgerHandler.Withdraw)
		protected.PUT("/profile", ledgerHandler.UpdateProfile)
		protected.POST("/logout", ledgerHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)
	}

	log.Printf("Server starting on port %s with %s store", cfg.Port, cfg.StoreBackend)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
