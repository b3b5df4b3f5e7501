package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/tonnomolt/housing-prices-fi/internal/mapping"
)

// Config holds the process configuration read from the environment.
type Config struct {
	HTTPAddr       string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	SourcesFile    string
	IngestSchedule string
}

// Load reads .env (if present) and the environment. Missing variables fall
// back to development defaults; production deployments set them explicitly.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	return Config{
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		DBHost:         getenv("DB_HOST", "localhost"),
		DBPort:         getenv("DB_PORT", "5432"),
		DBUser:         getenv("DB_USER", "postgres"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         getenv("DB_NAME", "housing_prices"),
		SourcesFile:    getenv("SOURCES_FILE", "sources.json"),
		IngestSchedule: getenv("INGEST_SCHEDULE", "0 4 * * *"),
	}
}

// DSN builds the Postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Category is one canonical building type exposed as reference data.
type Category struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Source is one configured statistics table: where to fetch it and how its
// raw category codes map to canonical codes. Mapping tables are static
// configuration, never discovered at runtime.
type Source struct {
	Name     string                    `json:"name"`
	TableURL string                    `json:"table_url"`
	Mappings []mapping.CategoryMapping `json:"mappings"`
}

// Sources is the parsed sources configuration file.
type Sources struct {
	Categories []Category `json:"categories"`
	Sources    []Source   `json:"sources"`
}

// LoadSources reads and validates the JSON sources file.
func LoadSources(path string) (*Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}

	var sources Sources
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}

	for i, src := range sources.Sources {
		if src.Name == "" {
			return nil, fmt.Errorf("source %d in %s has no name", i, path)
		}
		if src.TableURL == "" {
			return nil, fmt.Errorf("source %q in %s has no table_url", src.Name, path)
		}
		for j, m := range src.Mappings {
			if m.SourceCode == "" || m.CanonicalCode == "" {
				return nil, fmt.Errorf("source %q mapping %d in %s is missing source_code or canonical_code", src.Name, j, path)
			}
		}
	}
	for i, cat := range sources.Categories {
		if cat.Code == "" {
			return nil, fmt.Errorf("category %d in %s has no code", i, path)
		}
	}
	return &sources, nil
}
