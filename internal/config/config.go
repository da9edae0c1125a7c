package config

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/macocr/internal/engine"
	"github.com/MeKo-Tech/macocr/internal/lines"
	"github.com/MeKo-Tech/macocr/internal/ocr"
	"github.com/MeKo-Tech/macocr/internal/render"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	vision := engine.DefaultVisionOptions()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		OCR: OCRConfig{
			Languages:          append([]string(nil), engine.DefaultLanguages...),
			Threshold:          lines.DefaultThreshold,
			MinConfidence:      0,
			Fast:               vision.Fast,
			LanguageCorrection: vision.LanguageCorrection,
		},
		Output: OutputConfig{
			Format: render.FormatText,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      120,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 5000,
				MaxDataPerDay:     500 * 1024 * 1024,
			},
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Output.Format != "" && !render.ValidFormat(c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(render.Formats, ", "))
	}

	if err := c.ToOCROptions().Validate(); err != nil {
		return err
	}
	if err := lines.ValidateThreshold(c.OCR.Threshold); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}

	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDay < 0 {
		return fmt.Errorf("invalid rate limit: limits must not be negative")
	}

	return nil
}

// ToOCROptions converts the recognition section into service options.
func (c *Config) ToOCROptions() ocr.Options {
	return ocr.Options{
		Languages:     c.OCR.Languages,
		Threshold:     c.OCR.Threshold,
		MinConfidence: c.OCR.MinConfidence,
	}
}

// ToVisionOptions converts the recognition section into engine options.
func (c *Config) ToVisionOptions() engine.VisionOptions {
	return engine.VisionOptions{
		Fast:               c.OCR.Fast,
		LanguageCorrection: c.OCR.LanguageCorrection,
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
