// Package ocr is the single request-processing core shared by the CLI, the
// HTTP API and the WebSocket API.
//
// A request names an image either by path or as a base64 payload. The image
// is decoded, handed to the recognition engine and the returned fragments are
// rebuilt into text lines.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/MeKo-Tech/macocr/internal/engine"
	"github.com/MeKo-Tech/macocr/internal/imageio"
	"github.com/MeKo-Tech/macocr/internal/lines"
)

// Request references the image to recognize. Exactly one field must be set.
type Request struct {
	ImagePath   string `json:"image_path,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

// Data is the payload of a successful recognition.
type Data struct {
	Annotations []lines.Fragment `json:"annotations" yaml:"annotations"`
	FullText    []string         `json:"fullText" yaml:"fullText"`
}

// Response is the envelope returned by every API surface.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *Data  `json:"data"`
}

// Options configures a Service.
type Options struct {
	// Languages is the recognition language preference passed to the engine.
	Languages []string
	// Threshold is the line band height; zero selects lines.DefaultThreshold.
	Threshold float64
	// MinConfidence drops fragments below this confidence before line
	// reconstruction. Zero keeps everything.
	MinConfidence float64
}

// DefaultOptions returns the options the service ships with.
func DefaultOptions() Options {
	return Options{
		Languages: append([]string(nil), engine.DefaultLanguages...),
		Threshold: lines.DefaultThreshold,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if err := engine.ValidateLanguages(o.Languages); err != nil {
		return err
	}
	if o.Threshold != 0 {
		if err := lines.ValidateThreshold(o.Threshold); err != nil {
			return err
		}
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return fmt.Errorf("invalid min confidence: %v (must be between 0.0 and 1.0)", o.MinConfidence)
	}
	return nil
}

// Service runs recognition requests.
type Service struct {
	engine        engine.Engine
	languages     []string
	reconstructor *lines.Reconstructor
	minConfidence float64
}

// NewService builds a Service around eng.
func NewService(eng engine.Engine, opts Options) (*Service, error) {
	if eng == nil {
		return nil, errors.New("ocr: nil engine")
	}
	if len(opts.Languages) == 0 {
		opts.Languages = append([]string(nil), engine.DefaultLanguages...)
	}
	if opts.Threshold == 0 {
		opts.Threshold = lines.DefaultThreshold
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	return &Service{
		engine:        eng,
		languages:     opts.Languages,
		reconstructor: &lines.Reconstructor{Threshold: opts.Threshold},
		minConfidence: opts.MinConfidence,
	}, nil
}

// Languages returns the configured language preference.
func (s *Service) Languages() []string { return s.languages }

// EngineName reports which recognizer backs the service.
func (s *Service) EngineName() string { return s.engine.Name() }

// Load resolves the image a request refers to.
func (s *Service) Load(req Request) (image.Image, imageio.Metadata, error) {
	hasPath := strings.TrimSpace(req.ImagePath) != ""
	hasData := strings.TrimSpace(req.ImageBase64) != ""
	if hasPath == hasData {
		return nil, imageio.Metadata{}, &Error{Kind: KindInvalidInput, Msg: MsgExactlyOne}
	}

	if hasPath {
		img, meta, err := imageio.LoadFile(req.ImagePath)
		if err != nil {
			if errors.Is(err, imageio.ErrFileNotFound) {
				return nil, meta, &Error{Kind: KindInvalidInput, Msg: MsgFileNotFound, Err: err}
			}
			return nil, meta, &Error{Kind: KindInvalidInput, Msg: processingMessage(err), Err: err}
		}
		return img, meta, nil
	}

	img, meta, err := imageio.DecodeBase64(req.ImageBase64)
	if err != nil {
		return nil, meta, &Error{Kind: KindInvalidInput, Msg: processingMessage(err), Err: err}
	}
	return img, meta, nil
}

// Process loads the referenced image and recognizes it.
func (s *Service) Process(ctx context.Context, req Request) (*Data, error) {
	img, meta, err := s.Load(req)
	if err != nil {
		return nil, err
	}
	slog.Debug("Image loaded",
		"path", meta.Path, "format", meta.Format,
		"width", meta.Width, "height", meta.Height, "bytes", meta.SizeBytes)
	return s.ProcessImage(ctx, img)
}

// ProcessImage recognizes an already decoded image.
func (s *Service) ProcessImage(ctx context.Context, img image.Image) (*Data, error) {
	if img == nil {
		return nil, &Error{Kind: KindInvalidInput, Msg: processingMessage(errors.New("nil image"))}
	}

	start := time.Now()
	frags, err := s.engine.Recognize(ctx, img, s.languages)
	if err != nil {
		return nil, &Error{Kind: KindRecognition, Msg: processingMessage(err), Err: err}
	}
	if frags == nil {
		frags = []lines.Fragment{}
	}

	kept := s.filter(frags)
	text := s.reconstructor.Reconstruct(kept)

	slog.Debug("Recognition finished",
		"engine", s.engine.Name(),
		"fragments", len(frags), "kept", len(kept), "lines", len(text),
		"duration_ms", time.Since(start).Milliseconds())

	return &Data{Annotations: frags, FullText: text}, nil
}

func (s *Service) filter(frags []lines.Fragment) []lines.Fragment {
	if s.minConfidence <= 0 {
		return frags
	}
	out := make([]lines.Fragment, 0, len(frags))
	for _, f := range frags {
		if f.Confidence >= s.minConfidence {
			out = append(out, f)
		}
	}
	return out
}

func processingMessage(err error) string {
	return "Error processing image: " + err.Error()
}

// Success wraps data in a 200 envelope.
func Success(data *Data) Response {
	return Response{Code: 200, Message: MsgSuccess, Data: data}
}

// Failure builds the envelope for err using status code.
func Failure(code int, msg string) Response {
	return Response{Code: code, Message: msg}
}
