package config

import (
	"fmt"
	"os"
	"slices"
)

// validDataStoreLocations are the multi-regions the search backend serves.
var validDataStoreLocations = []string{"global", "us", "eu"}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// API key is required for all generation calls. Genkit reads it
	// directly from the environment.
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required",
			ErrMissingAPIKey)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	if c.ProjectID == "" {
		return fmt.Errorf("%w: set PROJECT_ID or project_id in config.yaml",
			ErrMissingProjectID)
	}

	if c.DataStoreID == "" {
		return fmt.Errorf("%w: set DATA_STORE_ID or data_store_id in config.yaml",
			ErrMissingDataStoreID)
	}

	if !slices.Contains(validDataStoreLocations, c.DataStoreLocation) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidDataStoreLocation, c.DataStoreLocation, validDataStoreLocations)
	}

	if c.MaxDocuments < 1 || c.MaxDocuments > MaxAllowedDocuments {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidMaxDocuments, MaxAllowedDocuments, c.MaxDocuments)
	}

	if c.MaxExtractiveSegments < 0 || c.MaxExtractiveSegments > MaxAllowedExtractiveSegments {
		return fmt.Errorf("%w: max_extractive_segments must be between 0 and %d, got %d",
			ErrInvalidExtractiveCaps, MaxAllowedExtractiveSegments, c.MaxExtractiveSegments)
	}

	if c.MaxExtractiveAnswers < 0 || c.MaxExtractiveAnswers > MaxAllowedExtractiveAnswers {
		return fmt.Errorf("%w: max_extractive_answers must be between 0 and %d, got %d",
			ErrInvalidExtractiveCaps, MaxAllowedExtractiveAnswers, c.MaxExtractiveAnswers)
	}

	return nil
}
