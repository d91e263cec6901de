package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/providers/videogen"
	"server/internal/service"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	metrics := infra.NewMetrics()

	// Everything is constructed once here and passed down explicitly.
	jobRepo := repo.NewJobRepository()
	batchRepo := repo.NewBatchRepository()

	provider, err := videogen.NewClient(videogen.Options{
		APIKey:         cfg.VideoGenAPIKey,
		BaseURL:        cfg.VideoGenBaseURL,
		Model:          cfg.VideoGenModel,
		RequestTimeout: cfg.ProviderTimeout,
		MaxAttempts:    cfg.ProviderMaxRetries,
		RetryBaseDelay: cfg.ProviderRetryBase,
		RetryMaxDelay:  cfg.ProviderRetryMax,
		Logger:         &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure provider client")
	}
	if !provider.HasCredentials() {
		logger.Warn().Str("model", provider.Model()).Msg("provider api key missing, submissions will fail")
	}

	jobSvc := service.NewJobService(jobRepo, provider, logger, metrics)
	batchSvc := service.NewBatchService(batchRepo, jobSvc, logger, metrics, service.BatchOptions{
		Concurrency:  cfg.BatchConcurrency,
		PollInterval: cfg.BatchPollInterval,
		JobTimeout:   cfg.BatchJobTimeout,
	})

	app := handlers.NewApp(jobSvc, batchSvc, logger, metrics)
	router := httpapi.NewRouter(app, logger, httpapi.Options{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	// Let in-flight provider submissions record their outcomes. Batch poll
	// loops are long-running by design and are not waited on.
	jobSvc.WaitForSubmissions()
	logger.Info().Msg("server stopped")
}
