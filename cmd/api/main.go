package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomcraft/internal/artifact"
	"roomcraft/internal/auth"
	"roomcraft/internal/config"
	"roomcraft/internal/design"
	"roomcraft/internal/events"
	"roomcraft/internal/server"
	"roomcraft/internal/storage"
	"roomcraft/internal/synthesis"
)

func main() {
	cfg := config.FromEnv()

	ctx := context.Background()
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	defer store.Close()
	if cfg.DatabaseURL == "" {
		log.Println("store: using in-memory storage (DATABASE_URL missing)")
	}

	var artifacts artifact.Store
	if cfg.S3.Bucket != "" && cfg.S3.Region != "" {
		artifacts, err = artifact.NewS3Store(ctx, artifact.S3Config{
			Bucket:         cfg.S3.Bucket,
			Region:         cfg.S3.Region,
			Endpoint:       cfg.S3.Endpoint,
			PublicURL:      cfg.S3.PublicURL,
			KeyPrefix:      cfg.S3.KeyPrefix,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			log.Fatalf("failed to init s3 artifact store: %v", err)
		}
		log.Println("artifact store: S3")
	} else {
		artifacts, err = artifact.NewLocalStore(cfg.StorageRoot)
		if err != nil {
			log.Fatalf("failed to init local artifact store: %v", err)
		}
		log.Println("artifact store: local", cfg.StorageRoot)
	}

	var synth synthesis.Synthesizer
	switch {
	case cfg.Synthesis.Provider == "imagen" && cfg.Synthesis.Vertex.ProjectID != "":
		synth = synthesis.NewVertexImagen(synthesis.VertexImagenConfig{
			ProjectID:          cfg.Synthesis.Vertex.ProjectID,
			Location:           cfg.Synthesis.Vertex.Location,
			Model:              cfg.Synthesis.Vertex.Model,
			APIKey:             cfg.Synthesis.Vertex.APIKey,
			ServiceAccount:     cfg.Synthesis.Vertex.ServiceAccount,
			ServiceAccountJSON: cfg.Synthesis.Vertex.ServiceAccountJSON,
		})
		log.Println("synthesizer ready: Vertex Imagen")
	case cfg.Synthesis.Provider == "gemini" && cfg.Synthesis.GeminiAPIKey != "":
		synth = synthesis.NewGeminiSynthesizer(cfg.Synthesis.GeminiAPIKey, cfg.Synthesis.GeminiModel, 2*time.Minute)
		log.Println("synthesizer ready: Gemini")
	case cfg.Synthesis.OpenAIAPIKey != "":
		synth = synthesis.NewOpenAIClient(cfg.Synthesis.OpenAIAPIKey, cfg.Synthesis.OpenAIModel, cfg.Synthesis.OpenAIBase)
		log.Println("synthesizer ready: OpenAI")
	default:
		synth = synthesis.NewStub()
		log.Println("synthesizer ready: stub fallback (no API key configured)")
	}

	uploads, err := design.NewTempStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("failed to init upload storage: %v", err)
	}

	broker := events.NewBroker()
	pipeline := design.NewPipeline(store, synth, artifacts, design.NewReferenceFetcher(15*time.Second), broker)

	handler := design.Handler{
		Pipeline: pipeline,
		Store:    store,
		Uploads:  uploads,
		Events:   broker,
	}

	verifier := auth.Verifier{Secret: []byte(cfg.JWTSecret)}
	srv := server.New(cfg.Port, handler, verifier, cfg.StorageRoot)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		log.Println("shutting down server...")
		if err := srv.Close(); err != nil {
			log.Printf("server close error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}
