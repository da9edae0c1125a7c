// Package engine wraps the host operating system's text recognizer.
//
// The recognizer is a black box: it receives a raster image and a list of
// preferred recognition languages and returns unordered text fragments with
// a confidence and a normalized bounding box each.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/MeKo-Tech/macocr/internal/lines"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ErrUnsupported is returned when no native recognizer exists for this build.
var ErrUnsupported = errors.New("native text recognition is only available on macOS")

// DefaultLanguages is the recognition preference used when none is configured.
var DefaultLanguages = []string{"zh-Hans"}

// Engine recognizes text in an image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, languages []string) ([]lines.Fragment, error)
	Name() string
}

// ValidateLanguages checks that every preference is a well-formed BCP 47 tag.
func ValidateLanguages(languages []string) error {
	for _, l := range languages {
		if strings.TrimSpace(l) == "" {
			return errors.New("empty recognition language")
		}
		if _, err := language.Parse(l); err != nil {
			return fmt.Errorf("invalid recognition language %q: %w", l, err)
		}
	}
	return nil
}

// normalizeText converts fragment texts to NFC in place.
func normalizeText(frags []lines.Fragment) []lines.Fragment {
	for i := range frags {
		frags[i].Text = norm.NFC.String(frags[i].Text)
	}
	return frags
}

// Static is an Engine that returns fixed fragments. It is used by tests and
// by the integration suite in place of the native recognizer.
type Static struct {
	Fragments []lines.Fragment
	Err       error

	mu        sync.Mutex
	calls     int
	languages []string
}

// Recognize returns the configured fragments or error.
func (s *Static) Recognize(ctx context.Context, img image.Image, languages []string) ([]lines.Fragment, error) {
	s.mu.Lock()
	s.calls++
	s.languages = append([]string(nil), languages...)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("nil image")
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]lines.Fragment, len(s.Fragments))
	copy(out, s.Fragments)
	return out, nil
}

// Name implements Engine.
func (s *Static) Name() string { return "static" }

// Calls returns how many times Recognize ran.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// LastLanguages returns the language preference of the most recent call.
func (s *Static) LastLanguages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.languages
}
