// Package imageio decodes images from files and base64 payloads.
package imageio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrFileNotFound is returned when a path does not name a regular file.
var ErrFileNotFound = errors.New("file not found")

// Error describes a failed load or decode step.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("image %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Metadata captures lightweight information about a decoded image.
type Metadata struct {
	Path      string
	Format    string
	SizeBytes int64
	Width     int
	Height    int
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// LoadFile opens and decodes the image at path, applying EXIF orientation.
func LoadFile(path string) (image.Image, Metadata, error) {
	if path == "" || !FileExists(path) {
		return nil, Metadata{}, &Error{Op: "load", Err: ErrFileNotFound}
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: reading a caller-supplied image path is the point
	if err != nil {
		return nil, Metadata{}, &Error{Op: "load", Err: err}
	}

	img, meta, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Metadata{}, err
	}
	meta.Path = path
	meta.SizeBytes = int64(len(data))
	return img, meta, nil
}

// DecodeBase64 decodes a base64 image payload. Standard and URL-safe
// alphabets are accepted, padded or not, and a data URL prefix is stripped.
func DecodeBase64(payload string) (image.Image, Metadata, error) {
	data, err := decodeBase64String(payload)
	if err != nil {
		return nil, Metadata{}, &Error{Op: "base64", Err: err}
	}
	img, meta, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Metadata{}, err
	}
	meta.SizeBytes = int64(len(data))
	return img, meta, nil
}

// Decode reads an image in any registered format.
func Decode(r io.Reader) (image.Image, Metadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Metadata{}, &Error{Op: "read", Err: err}
	}
	if len(data) == 0 {
		return nil, Metadata{}, &Error{Op: "decode", Err: errors.New("empty image data")}
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, Metadata{}, &Error{Op: "decode", Err: err}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, Metadata{}, &Error{Op: "decode", Err: err}
	}

	b := img.Bounds()
	return img, Metadata{Format: format, Width: b.Dx(), Height: b.Dy()}, nil
}

func decodeBase64String(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if idx := strings.Index(s, ","); idx >= 0 {
			s = s[idx+1:]
		}
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, errors.New("empty payload")
	}

	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var firstErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
