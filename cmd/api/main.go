package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kurlez/doctalk/internal/api"
	"github.com/kurlez/doctalk/internal/config"
	"github.com/kurlez/doctalk/internal/db"
	"github.com/kurlez/doctalk/internal/metrics"
	"github.com/kurlez/doctalk/internal/pipeline"
	"github.com/kurlez/doctalk/internal/queue"
	"github.com/kurlez/doctalk/internal/services"
	"github.com/kurlez/doctalk/internal/storage"
	"github.com/kurlez/doctalk/internal/voice"
	"github.com/kurlez/doctalk/internal/worker"
)

func main() {
	log.Println("Starting Doctalk API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid server config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Remote archival is optional — without it tracks stay on local disk
	var archive *storage.Storage
	if cfg.ArchiveEnabled() {
		archive = storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
		log.Println("Track archival to Supabase storage enabled")
	} else {
		log.Println("Track archival disabled — serving tracks from local disk")
	}

	// Metrics
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m, err = metrics.Init("doctalk")
		if err != nil {
			log.Fatalf("Failed to initialize metrics: %v", err)
		}
	}

	// Voice catalog
	catalog := voice.Default()
	if cfg.VoiceCatalogPath != "" {
		catalog, err = voice.LoadFile(cfg.VoiceCatalogPath)
		if err != nil {
			log.Fatalf("Failed to load voice catalog: %v", err)
		}
		log.Printf("Loaded voice catalog from %s (%d voices)", cfg.VoiceCatalogPath, len(catalog.Names()))
	}
	if _, err := catalog.Resolve(cfg.DefaultVoice); err != nil {
		log.Fatalf("DEFAULT_VOICE %q is not in the catalog", cfg.DefaultVoice)
	}

	// Synthesis provider
	synth := newSynthesizer(cfg)
	log.Printf("TTS provider: %s", synth.Name())

	converter := pipeline.New(cfg, synth, services.NewFFmpegService(), catalog, m)

	// Create API handler
	handler := api.NewHandler(database, q, archive, catalog, cfg.DefaultVoice, cfg.TTSProvider)
	routerCfg := api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	}
	if m != nil {
		routerCfg.MetricsHandler = m.Handler()
	}
	router := api.NewRouter(handler, routerCfg)

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		w := worker.New(database, q, archive, converter, m, cfg.DefaultVoice)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := m.Shutdown(ctx); err != nil {
		log.Printf("Metrics shutdown: %v", err)
	}

	log.Println("Server exited")
}

// newSynthesizer builds the configured provider adapter. Config validation
// already guaranteed the provider name and its credentials.
func newSynthesizer(cfg *config.Config) services.Synthesizer {
	switch cfg.TTSProvider {
	case "openai":
		return services.NewOpenAITTS(cfg.OpenAIKey)
	case "gemini":
		return services.NewGeminiTTS(cfg.GeminiKey, "")
	default:
		return services.NewAzureSpeech(cfg.AzureSpeechKey, cfg.AzureSpeechRegion)
	}
}
