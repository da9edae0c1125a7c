package testutil

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TextImageConfig describes a synthetic image with rendered text lines.
type TextImageConfig struct {
	Lines      []string
	Width      int
	Height     int
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
}

// DefaultTextImageConfig returns a small black-on-white "hello" image.
func DefaultTextImageConfig() TextImageConfig {
	return TextImageConfig{
		Lines:      []string{"hello"},
		Width:      96,
		Height:     32,
		Background: color.White,
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
	}
}

// GenerateTextImage draws every line centered horizontally, stacked from the
// top of the image down.
func GenerateTextImage(cfg TextImageConfig) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{cfg.Foreground},
		Face: cfg.FontFace,
	}
	lineHeight := cfg.FontFace.Metrics().Height.Ceil()
	startY := (cfg.Height - len(cfg.Lines)*lineHeight) / 2
	for i, line := range cfg.Lines {
		x := (cfg.Width - font.MeasureString(cfg.FontFace, line).Ceil()) / 2
		drawer.Dot = fixed.P(x, startY+(i+1)*lineHeight)
		drawer.DrawString(line)
	}
	return img
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PNG returns the default text image encoded as PNG.
func PNG(t *testing.T) []byte {
	t.Helper()
	data, err := EncodePNG(GenerateTextImage(DefaultTextImageConfig()))
	require.NoError(t, err)
	return data
}

// Base64PNG returns PNG(t) in standard base64.
func Base64PNG(t *testing.T) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(PNG(t))
}

// WritePNG writes PNG(t) to dir/sample.png and returns the path.
func WritePNG(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "sample.png")
	require.NoError(t, os.WriteFile(path, PNG(t), 0o600))
	return path
}
