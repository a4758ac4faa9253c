// File: app/app.go
package app

import (
	"context"
	"device-management-api/config"
	"device-management-api/db"
	"device-management-api/handler"
	"device-management-api/logger"
	"device-management-api/repository"
	"device-management-api/router"
	"device-management-api/service"
	"device-management-api/ws"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations("file://db/migrations"); err != nil {
		logger.Log.Fatalf("Error running migrations: %v", err)
	}

	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.Fatalf("Error connecting to Redis: %v", err)
	}
	defer redisClient.Close()

	// --- Wiring All Layers Together ---
	// Repositories, services and handlers are created here and injected
	// downward; nothing below this point reaches for globals.

	userRepo := repository.NewUserRepository(database)
	tokenRepo := repository.NewTokenRepository(database)
	authService := service.NewAuthService(userRepo, tokenRepo)
	authHandler := handler.NewAuthHandler(authService)

	deviceRepo := repository.NewDeviceRepository(database)
	deviceService := service.NewDeviceService(deviceRepo, redisClient)

	notificationRepo := repository.NewNotificationRepository(database)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)

	hub := ws.NewHub()
	deviceHandler := handler.NewDeviceHandler(deviceService, notificationRepo, hub)

	counter := handler.NewRequestCounter(redisClient)

	r := router.NewRouter(authHandler, deviceHandler, notificationHandler, hub, counter)

	// --- Start the Server with Graceful Shutdown ---
	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}
