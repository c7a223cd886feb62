// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.askhr/config.yaml)
//  3. Default values
//
// Every value is parsed into a typed field and validated at startup.
// Environment-sourced strings are never evaluated; the SOURCE flag in
// particular is parsed with strconv.ParseBool and anything else is a
// startup error.
//
// Error Handling: sentinel errors checked with errors.Is(), wrapped with
// fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrMissingProjectID indicates the Google Cloud project is not configured.
	ErrMissingProjectID = errors.New("missing project ID")

	// ErrMissingDataStoreID indicates the search data store is not configured.
	ErrMissingDataStoreID = errors.New("missing data store ID")

	// ErrInvalidDataStoreLocation indicates the data store location is invalid.
	ErrInvalidDataStoreLocation = errors.New("invalid data store location")

	// ErrInvalidShowSources indicates the SOURCE flag is not a boolean.
	ErrInvalidShowSources = errors.New("invalid show_sources flag")

	// ErrInvalidMaxDocuments indicates the retrieval document cap is out of range.
	ErrInvalidMaxDocuments = errors.New("invalid max documents")

	// ErrInvalidExtractiveCaps indicates the extractive content caps are out of range.
	ErrInvalidExtractiveCaps = errors.New("invalid extractive caps")
)

// Retrieval cap defaults mirror the search backend's serving configuration.
const (
	// DefaultMaxDocuments is the default number of documents per query.
	DefaultMaxDocuments = 10

	// DefaultMaxExtractiveSegments is the default extractive segment count
	// per document.
	DefaultMaxExtractiveSegments = 1

	// DefaultMaxExtractiveAnswers is the default extractive answer count
	// per document.
	DefaultMaxExtractiveAnswers = 5

	// MaxAllowedDocuments is the search backend's page size ceiling.
	MaxAllowedDocuments = 100

	// MaxAllowedExtractiveSegments is the backend's per-document segment ceiling.
	MaxAllowedExtractiveSegments = 10

	// MaxAllowedExtractiveAnswers is the backend's per-document answer ceiling.
	MaxAllowedExtractiveAnswers = 5
)

// Config stores application configuration.
// Read once at startup, validated fail-fast, never mutated afterwards.
type Config struct {
	// LLM configuration
	ModelName string `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-pro"

	// Search backend configuration (Vertex AI Search data store)
	ProjectID         string `mapstructure:"project_id" json:"project_id"`
	DataStoreID       string `mapstructure:"data_store_id" json:"data_store_id"`
	DataStoreLocation string `mapstructure:"data_store_location" json:"data_store_location"` // "global", "us", "eu"

	// Retrieval caps per query
	MaxDocuments          int `mapstructure:"max_documents" json:"max_documents"`
	MaxExtractiveSegments int `mapstructure:"max_extractive_segments" json:"max_extractive_segments"`
	MaxExtractiveAnswers  int `mapstructure:"max_extractive_answers" json:"max_extractive_answers"`

	// ShowSources controls whether retrieved source excerpts are appended
	// to answers. Bound to the SOURCE environment variable as a strict bool.
	ShowSources bool `mapstructure:"show_sources" json:"show_sources"`

	// HTTP server configuration
	Addr string `mapstructure:"addr" json:"addr"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"` // "debug", "info", "warn", "error"
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Tracing configuration. An empty endpoint disables trace export.
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	Environment  string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".askhr")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// SOURCE is parsed strictly: a boolean or a startup error, never an
	// expression handed to anything that evaluates it.
	if raw, ok := os.LookupEnv("SOURCE"); ok {
		show, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: SOURCE=%q is not a boolean (use true/false)",
				ErrInvalidShowSources, raw)
		}
		cfg.ShowSources = show
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", "gemini-2.5-pro")
	v.SetDefault("data_store_location", "global")

	v.SetDefault("max_documents", DefaultMaxDocuments)
	v.SetDefault("max_extractive_segments", DefaultMaxExtractiveSegments)
	v.SetDefault("max_extractive_answers", DefaultMaxExtractiveAnswers)

	v.SetDefault("show_sources", true)

	v.SetDefault("addr", "127.0.0.1:3400")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
// Names match the deployment environment this service inherits:
// MODEL, PROJECT_ID, DATA_STORE_ID, DATA_STORE_LOCATION, SOURCE.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "MODEL")
	mustBind("project_id", "PROJECT_ID")
	mustBind("data_store_id", "DATA_STORE_ID")
	mustBind("data_store_location", "DATA_STORE_LOCATION")

	mustBind("addr", "ASKHR_ADDR")
	mustBind("log_level", "ASKHR_LOG_LEVEL")
	mustBind("log_json", "ASKHR_LOG_JSON")
	mustBind("otlp_endpoint", "ASKHR_OTLP_ENDPOINT")
	mustBind("environment", "ASKHR_ENV")

	// NOTE: SOURCE is handled in Load() with strconv.ParseBool so that
	// non-boolean values fail startup instead of being coerced.
	// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper.
	// Validation checks its presence in cfg.Validate().
}
