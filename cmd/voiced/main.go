package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rb4home/homevoice/internal/api"
	"github.com/rb4home/homevoice/internal/config"
	"github.com/rb4home/homevoice/internal/devices"
	"github.com/rb4home/homevoice/internal/dispatch"
	"github.com/rb4home/homevoice/internal/intent"
	"github.com/rb4home/homevoice/internal/media"
	"github.com/rb4home/homevoice/internal/notes"
	"github.com/rb4home/homevoice/internal/observability"
	"github.com/rb4home/homevoice/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before the logger is initialized.
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.Info().
		Str("port", cfg.Port).
		Str("rooms_file", cfg.RoomsFile).
		Str("nats_url", cfg.NATSURL).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice controller starting")

	catalogue, err := intent.LoadCatalogue(cfg.RoomsFile)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.RoomsFile).
			Msg("Rooms catalogue not loaded, device commands disabled")
		catalogue = nil
	}
	classifier := intent.NewClassifier(catalogue)

	// The device bus is optional; without it device commands fail with
	// their spoken failure message instead of killing the process.
	var registry *devices.Registry
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("homevoice-voiced"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		logger.Warn().Err(err).Str("url", cfg.NATSURL).Msg("Device bus unreachable")
	} else {
		defer nc.Close()
		registry = devices.NewRegistry(nc, cfg.DeviceSubjectPrefix, logger)
	}

	mediaClient := media.NewClient(media.ClientConfig{
		BaseURL:      cfg.SpotifyBaseURL,
		Market:       cfg.SpotifyMarket,
		MaxFailures:  cfg.CircuitBreakerMaxFailures,
		ResetTimeout: time.Duration(cfg.CircuitBreakerResetTimeout) * time.Second,
	}, logger)

	weatherClient := weather.NewClient(weather.ClientConfig{
		APIKey:       cfg.WeatherAPIKey,
		MaxFailures:  cfg.CircuitBreakerMaxFailures,
		ResetTimeout: time.Duration(cfg.CircuitBreakerResetTimeout) * time.Second,
	}, logger)

	noteStore := notes.NewStore(cfg.NotesFile)

	var deviceRegistry dispatch.DeviceRegistry
	if registry != nil {
		deviceRegistry = registry
	}
	dispatcher := dispatch.New(
		mediaClient, deviceRegistry, noteStore, weatherClient,
		cfg.HomeCity, logger,
	)

	bridge := api.NewTTSBridge(api.TTSBridgeConfig{
		ProviderURL: cfg.TTSBaseURL,
		APIKey:      cfg.TTSAPIKey,
		VoiceID:     cfg.TTSVoiceID,
		ModelID:     cfg.TTSModelID,
	}, logger)

	checks := map[string]observability.HealthCheckFunc{
		"device_bus": func(context.Context) error {
			if nc == nil || !nc.IsConnected() {
				return fmt.Errorf("nats not connected")
			}
			return nil
		},
	}

	srv := api.NewServer(classifier, dispatcher, bridge, checks, cfg.MetricsEnabled, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // /ws/tts streams indefinitely
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("execute", fmt.Sprintf("http://localhost:%s/api/voice/execute", cfg.Port)).
			Str("synthesis", fmt.Sprintf("ws://localhost:%s/ws/tts", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Bridge shutdown failed")
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
