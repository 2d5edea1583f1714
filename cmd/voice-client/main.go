package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rb4home/homevoice/internal/audio"
	"github.com/rb4home/homevoice/internal/config"
	"github.com/rb4home/homevoice/internal/observability"
	"github.com/rb4home/homevoice/internal/playback"
	"github.com/rb4home/homevoice/internal/transport"
	"github.com/rb4home/homevoice/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	if err := cfg.ValidateClient(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.Info().
		Str("controller_url", cfg.ControllerURL).
		Str("recognizer_url", cfg.RecognizerURL).
		Str("synthesis_url", cfg.SynthesisURL).
		Str("capture_command", cfg.CaptureCommand).
		Msg("Voice client starting")

	var source audio.FrameSource
	if cfg.CaptureCommand == "-" {
		source = audio.NewReaderSource(os.Stdin)
	} else {
		source, err = audio.StartExecSource(cfg.CaptureCommand)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to start audio capture")
		}
	}

	redial := time.Duration(cfg.RedialMinIntervalMs) * time.Millisecond

	recognition := transport.NewRecognitionSession(transport.RecognitionConfig{
		URL:            cfg.RecognizerURL,
		DedupWindow:    time.Duration(cfg.TranscriptDedupMs) * time.Millisecond,
		RedialInterval: redial,
	}, logger)

	synthesis := transport.NewSynthesisSession(transport.SynthesisConfig{
		URL:            cfg.SynthesisURL,
		VoiceID:        cfg.TTSVoiceID,
		ModelID:        cfg.TTSModelID,
		RedialInterval: redial,
	}, logger)

	player := playback.NewPlayer(playback.NewExecSink(cfg.PlaybackCommand, logger), logger)
	executor := voice.NewHTTPExecutor(cfg.ControllerURL, os.Getenv("SPOTIFY_ACCESS_TOKEN"))

	controller := voice.NewController(
		voice.ControllerConfig{
			VAD: audio.VADConfig{
				EnergyThreshold: cfg.VADEnergyThreshold,
				MinSpeechFrames: cfg.VADMinSpeechFrames,
				SilenceLimit:    cfg.VADSilenceFrames,
			},
			BargeInThreshold: cfg.BargeInThreshold,
			Cooldown: voice.CooldownPolicy{
				SynthStart: time.Duration(cfg.CooldownSynthStartMs) * time.Millisecond,
				SynthEnd:   time.Duration(cfg.CooldownSynthEndMs) * time.Millisecond,
				BargeIn:    time.Duration(cfg.CooldownBargeInMs) * time.Millisecond,
			},
		},
		source, recognition, synthesis, player, executor, logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := controller.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("Capture session failed")
	}

	logger.Info().Msg("Voice client exited gracefully")
}
