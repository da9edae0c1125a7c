//go:build !darwin || !cgo

package engine

import (
	"context"
	"image"

	"github.com/MeKo-Tech/macocr/internal/lines"
)

// VisionOptions tunes the Vision text request.
type VisionOptions struct {
	Fast               bool
	LanguageCorrection bool
}

// DefaultVisionOptions matches the settings the service has always used.
func DefaultVisionOptions() VisionOptions {
	return VisionOptions{LanguageCorrection: true}
}

// Vision is unavailable on this platform; Recognize always fails.
type Vision struct{}

// NewVision returns a Vision engine that reports ErrUnsupported on use.
// Construction succeeds so the CLI and server still start and answer
// health checks on non-macOS hosts.
func NewVision(VisionOptions) (*Vision, error) {
	return &Vision{}, nil
}

// Name implements Engine.
func (v *Vision) Name() string { return "vision" }

// Recognize implements Engine.
func (v *Vision) Recognize(context.Context, image.Image, []string) ([]lines.Fragment, error) {
	return nil, ErrUnsupported
}
