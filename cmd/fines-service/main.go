package main

import (
	"fmt"
	"os"

	"fines-service/internal/auth"
	"fines-service/internal/client"
	"fines-service/internal/config"
	"fines-service/internal/db"
	httphandler "fines-service/internal/http"
	"fines-service/internal/http/middleware"
	"fines-service/internal/logger"
	"fines-service/internal/mailer"
	"fines-service/internal/repository"
	"fines-service/internal/service"
	"fines-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	objectStore, err := storage.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	geminiClient := client.NewGeminiClient(cfg)
	smtpMailer := mailer.New(cfg, appLogger)

	ticketRepo := repository.NewTicketRepository(database)
	driverRepo := repository.NewDriverRepository(database)

	uploadService := service.NewUploadService(objectStore, appLogger)
	ticketService := service.NewTicketService(
		geminiClient,
		driverRepo,
		ticketRepo,
		smtpMailer,
		objectStore,
		cfg.Email.PaymentFormURL,
		appLogger,
	)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(uploadService, ticketService, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting fines service")

	if err := router.Run(addr); err != nil {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
}
