package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration values.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	StorageRoot string
	UploadDir   string
	Synthesis   SynthesisConfig
	S3          S3Config
}

// SynthesisConfig selects and configures the image-synthesis backend.
type SynthesisConfig struct {
	Provider     string // "openai", "imagen", "gemini"
	OpenAIAPIKey string
	OpenAIModel  string
	OpenAIBase   string
	GeminiAPIKey string
	GeminiModel  string
	Vertex       VertexConfig
}

// VertexConfig describes the Vertex AI Imagen connection.
type VertexConfig struct {
	ProjectID          string
	Location           string
	Model              string
	APIKey             string
	ServiceAccount     string
	ServiceAccountJSON string
}

// S3Config describes optional S3-compatible artifact storage.
type S3Config struct {
	Bucket         string
	Region         string
	Endpoint       string
	PublicURL      string
	KeyPrefix      string
	ForcePathStyle bool
}

// FromEnv loads configuration from environment variables and applies defaults.
func FromEnv() Config {
	cfg := Config{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		StorageRoot: getenv("STORAGE_ROOT", "generated_images"),
		UploadDir:   os.Getenv("UPLOAD_DIR"),
		Synthesis: SynthesisConfig{
			Provider:     strings.ToLower(getenv("SYNTH_PROVIDER", "openai")),
			OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:  os.Getenv("OPENAI_IMAGE_MODEL"),
			OpenAIBase:   os.Getenv("OPENAI_BASE_URL"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  os.Getenv("GEMINI_IMAGE_MODEL"),
			Vertex: VertexConfig{
				ProjectID:          os.Getenv("VERTEX_PROJECT_ID"),
				Location:           os.Getenv("VERTEX_LOCATION"),
				Model:              os.Getenv("VERTEX_MODEL"),
				APIKey:             os.Getenv("VERTEX_API_KEY"),
				ServiceAccount:     os.Getenv("VERTEX_SERVICE_ACCOUNT"),
				ServiceAccountJSON: os.Getenv("VERTEX_SERVICE_ACCOUNT_JSON"),
			},
		},
		S3: S3Config{
			Bucket:         os.Getenv("S3_BUCKET"),
			Region:         os.Getenv("S3_REGION"),
			Endpoint:       os.Getenv("S3_ENDPOINT"),
			PublicURL:      os.Getenv("S3_PUBLIC_URL"),
			KeyPrefix:      strings.Trim(os.Getenv("S3_KEY_PREFIX"), "/"),
			ForcePathStyle: getenvBool("S3_FORCE_PATH_STYLE", false),
		},
	}

	if cfg.Port == "" {
		log.Fatal("APP_PORT cannot be empty")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	return cfg
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getenvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}

	return parsed
}
