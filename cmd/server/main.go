package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drcorrector/answer-audio/internal/config"
	"github.com/drcorrector/answer-audio/internal/library"
	"github.com/drcorrector/answer-audio/internal/observability"
	"github.com/drcorrector/answer-audio/internal/playback"
	"github.com/drcorrector/answer-audio/internal/recognition"
	"github.com/drcorrector/answer-audio/internal/server"
	"github.com/drcorrector/answer-audio/internal/settings"
	"github.com/drcorrector/answer-audio/internal/synthesis"
	"github.com/drcorrector/answer-audio/internal/tts"
)

func main() {
	// Load configuration; production takes its environment from the container
	environment := config.GetEnv("ENVIRONMENT", "development")
	cfg, err := config.LoadFor(environment)
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("tts_model", cfg.GeminiTTSModel).
		Str("ocr_model", cfg.GeminiOCRModel).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Answer audio service starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Enabled:      cfg.TracingEnabled,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
		Environment:  environment,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up tracing")
	}

	defaults, err := settings.Defaults(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid default settings")
	}
	store := settings.NewStore(defaults)
	lib := library.New()
	hub := server.NewHub(observability.ComponentLogger("events"))

	speech, err := tts.NewGeminiClient(ctx, cfg, observability.ComponentLogger("tts"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create speech client")
	}
	recognizer, err := recognition.NewGeminiRecognizer(ctx, cfg.GeminiAPIKey, cfg.GeminiOCRModel, observability.ComponentLogger("recognition"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create recognizer")
	}
	defer recognizer.Close()

	orchestrator := synthesis.NewOrchestrator(speech, hub, observability.ComponentLogger("synthesis"))

	tick := time.Duration(cfg.PlaybackTickInterval) * time.Millisecond
	player := playback.NewController(playback.ClockFactory(tick), store, lib, observability.ComponentLogger("playback"))
	snaps, unsubscribe := player.Subscribe()
	go hub.ForwardPlayback(snaps)

	api := server.New(server.Deps{
		Recognizer:    recognizer,
		Generator:     orchestrator,
		Library:       lib,
		Settings:      store,
		Player:        player,
		Hub:           hub,
		MaxUploadSize: cfg.MaxUploadSize,
		Logger:        observability.ComponentLogger("http"),
	})

	// Create HTTP server
	mux := http.NewServeMux()
	api.Register(mux)

	// Health check endpoint
	mux.HandleFunc("GET /health", observability.HealthCheckHandler())

	// Readiness reports configuration problems without calling the paid APIs
	mux.HandleFunc("GET /ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"speech": speech.CheckReady,
	}))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	var grpcHealth *observability.GRPCHealth
	if cfg.GRPCHealthPort != "" {
		grpcHealth, err = observability.StartGRPCHealth(net.JoinHostPort("", cfg.GRPCHealthPort), observability.ComponentLogger("grpc-health"))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to start gRPC health service")
		}
		logger.Info().Str("addr", grpcHealth.Addr()).Msg("gRPC health service listening")
	}

	// Generation responses wait for every segment, so writes get a long timeout
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("events", fmt.Sprintf("ws://localhost:%s/events", cfg.Port)).
			Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()
	if grpcHealth != nil {
		grpcHealth.SetServing(true)
	}

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	if grpcHealth != nil {
		grpcHealth.SetServing(false)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	player.Close()
	unsubscribe()
	hub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if grpcHealth != nil {
		grpcHealth.Stop()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Failed to flush traces")
	}

	logger.Info().Msg("Server exited gracefully")
}
