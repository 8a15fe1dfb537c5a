// Package config loads process configuration from an optional YAML file with
// environment-variable overrides (DOCINTAKE_* names take precedence).
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds everything the intake process needs at startup.
type Config struct {
	// StoreRoot is the directory holding the review workflow tree
	// (pending/reviewed/validated plus the owner metadata sidecar).
	StoreRoot string `yaml:"store_root"`

	Generator GeneratorConfig `yaml:"generator"`
	OCR       OCRConfig       `yaml:"ocr"`
	Raster    RasterConfig    `yaml:"raster"`
	MRZ       MRZConfig       `yaml:"mrz"`
	Extract   ExtractConfig   `yaml:"extract"`
}

// GeneratorConfig configures the external text-generation service.
type GeneratorConfig struct {
	URL            string `yaml:"url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// OCRConfig configures the shared Tesseract engine.
type OCRConfig struct {
	// Languages for the general (plain text) pass, in priority order.
	Languages []string `yaml:"languages"`
}

// RasterConfig configures page rasterization.
type RasterConfig struct {
	DPI      int `yaml:"dpi"`
	MaxPages int `yaml:"max_pages"`
}

// MRZConfig holds MRZ heuristics. BirthYearPivot and OverrideBirthDate are
// deliberate knobs: the pivot rule (two-digit year >= pivot means 1900s) and
// the service-value-wins policy for birth dates are inherited behavior, kept
// configurable rather than hard-coded.
type MRZConfig struct {
	CountryCode       string `yaml:"country_code"`
	BirthYearPivot    int    `yaml:"birth_year_pivot"`
	OverrideBirthDate bool   `yaml:"override_birth_date"`
}

// ExtractConfig configures the structured-field extraction call.
type ExtractConfig struct {
	// MaxChars caps how much OCR text is sent per generator call.
	MaxChars int `yaml:"max_chars"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		StoreRoot: "uploads",
		Generator: GeneratorConfig{
			URL:            "http://localhost:11434/api/chat",
			Model:          "mistral:instruct",
			TimeoutSeconds: 120,
		},
		OCR: OCRConfig{
			Languages: []string{"spa", "eng"},
		},
		Raster: RasterConfig{
			DPI:      320,
			MaxPages: 3,
		},
		MRZ: MRZConfig{
			CountryCode:       "COL",
			BirthYearPivot:    30,
			OverrideBirthDate: false,
		},
		Extract: ExtractConfig{
			MaxChars: 12000,
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty or missing)
// and applies environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Raster.MaxPages < 1 {
		return nil, fmt.Errorf("config: raster.max_pages must be at least 1, got %d", cfg.Raster.MaxPages)
	}
	if cfg.Generator.TimeoutSeconds < 1 {
		return nil, fmt.Errorf("config: generator.timeout_seconds must be at least 1, got %d", cfg.Generator.TimeoutSeconds)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DOCINTAKE_STORE_ROOT"); v != "" {
		cfg.StoreRoot = v
	}
	if v := os.Getenv("DOCINTAKE_GENERATOR_URL"); v != "" {
		cfg.Generator.URL = v
	}
	if v := os.Getenv("DOCINTAKE_GENERATOR_MODEL"); v != "" {
		cfg.Generator.Model = v
	}
	if v := os.Getenv("DOCINTAKE_GENERATOR_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generator.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("DOCINTAKE_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Raster.MaxPages = n
		}
	}
	if v := os.Getenv("DOCINTAKE_COUNTRY_CODE"); v != "" {
		cfg.MRZ.CountryCode = v
	}
}
