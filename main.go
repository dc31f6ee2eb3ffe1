package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradely/config"
	"tradely/cron"
	"tradely/database"
	bookingRepoPkg "tradely/database/repository/booking"
	providerRepoPkg "tradely/database/repository/provider"
	"tradely/handlers"
	"tradely/middleware"
	"tradely/routes"
	"tradely/services/dispatch"
	"tradely/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// Repositories.
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	providerRepo := providerRepoPkg.NewMongoProviderRepo()

	// Dispatch engine.
	dispatchService := &dispatch.DefaultDispatchService{
		BookingRepo:   bookingRepo,
		ProviderRepo:  providerRepo,
		Discovery:     &dispatch.Discovery{ProviderRepo: providerRepo},
		Cache:         utils.GetCacheClient(),
		OfferTimeout:  time.Duration(config.AppConfig.OfferTimeoutSeconds) * time.Second,
		PendingExpiry: time.Duration(config.AppConfig.PendingExpiryMinutes) * time.Minute,
		Logger:        logger,
	}

	dispatchHandler := handlers.NewDispatchHandler(dispatchService, logger)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		CreateDispatch:  dispatchHandler.CreateDispatchHandler,
		AcceptOffer:     dispatchHandler.AcceptOfferHandler,
		DeclineOffer:    dispatchHandler.DeclineOfferHandler,
		ForceAdvance:    dispatchHandler.ForceAdvanceHandler,
		GetOffersDebug:  dispatchHandler.GetOffersDebugHandler,
		MyPendingOffers: dispatchHandler.MyPendingOffersHandler,
		ListServices:    handlers.ListServicesHandler,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the background sweeps.
	cron.InitSweepWorker(dispatchService)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
