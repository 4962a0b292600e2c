// Package config provides configuration loading and validation for the service.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// ConfidenceWeights is the blend of the draft confidence dimensions.
type ConfidenceWeights struct {
	Specificity float64 `json:"specificity" validate:"gte=0,lte=1"`
	VoiceMatch  float64 `json:"voice_match" validate:"gte=0,lte=1"`
	Safety      float64 `json:"safety" validate:"gte=0,lte=1"`
	Length      float64 `json:"length" validate:"gte=0,lte=1"`
}

// ScoringWeights is the blend of the Candor Score dimensions.
type ScoringWeights struct {
	Speed         float64 `json:"speed" validate:"gte=0,lte=1"`
	Quality       float64 `json:"quality" validate:"gte=0,lte=1"`
	Followthrough float64 `json:"followthrough" validate:"gte=0,lte=1"`
	Reengage      float64 `json:"reengage" validate:"gte=0,lte=1"`
}

// Config is the service configuration, loaded from an optional JSON file
// with environment variable overrides on top.
type Config struct {
	DatabaseURL string `json:"database_url" validate:"required"`
	HTTPAddr    string `json:"http_addr" validate:"required"`

	APIKey string `json:"api_key,omitempty"` // Gemini API key

	// Email delivery. With DryRun set, sends are logged instead of
	// delivered and the endpoint is not required.
	EmailEndpoint string `json:"email_endpoint,omitempty" validate:"omitempty,url"`
	EmailAPIKey   string `json:"email_api_key,omitempty"`
	DryRun        bool   `json:"dry_run,omitempty"`

	AutoSendThreshold float64 `json:"auto_send_threshold" validate:"gte=0,lte=1"`
	SendDelayMinutes  int     `json:"send_delay_minutes" validate:"gte=0"`
	NudgeAfterDays    int     `json:"nudge_after_days" validate:"gte=1"`
	MatchMinScore     float64 `json:"match_min_score" validate:"gte=0,lte=1"`

	Confidence ConfidenceWeights `json:"confidence_weights"`
	Scoring    ScoringWeights    `json:"scoring_weights"`
}

// Defaults returns the standard configuration. DatabaseURL has no default
// and must come from the config file or DATABASE_URL.
func Defaults() *Config {
	return &Config{
		HTTPAddr:          ":8080",
		AutoSendThreshold: 0.8,
		SendDelayMinutes:  120,
		NudgeAfterDays:    7,
		MatchMinScore:     0.3,
		Confidence: ConfidenceWeights{
			Specificity: 0.35,
			VoiceMatch:  0.25,
			Safety:      0.25,
			Length:      0.15,
		},
		Scoring: ScoringWeights{
			Speed:         0.25,
			Quality:       0.35,
			Followthrough: 0.25,
			Reengage:      0.15,
		},
	}
}

// Load builds the effective configuration: defaults, then the JSON file at
// path (if non-empty), then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("EMAIL_ENDPOINT"); v != "" {
		c.EmailEndpoint = v
	}
	if v := os.Getenv("EMAIL_API_KEY"); v != "" {
		c.EmailAPIKey = v
	}
	if os.Getenv("EMAIL_DRY_RUN") == "true" {
		c.DryRun = true
	}
}

// Validate checks field constraints and that each weight set forms a convex
// combination.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if !c.DryRun && c.EmailEndpoint == "" {
		return fmt.Errorf("config error: 'email_endpoint' is required unless 'dry_run' is set")
	}

	cw := c.Confidence.Specificity + c.Confidence.VoiceMatch + c.Confidence.Safety + c.Confidence.Length
	if math.Abs(cw-1) > 1e-9 {
		return fmt.Errorf("config error: confidence weights must sum to 1, got %v", cw)
	}
	sw := c.Scoring.Speed + c.Scoring.Quality + c.Scoring.Followthrough + c.Scoring.Reengage
	if math.Abs(sw-1) > 1e-9 {
		return fmt.Errorf("config error: scoring weights must sum to 1, got %v", sw)
	}
	return nil
}
