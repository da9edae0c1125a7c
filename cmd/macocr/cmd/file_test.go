package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/macocr/internal/engine"
	"github.com/MeKo-Tech/macocr/internal/imageio"
	"github.com/MeKo-Tech/macocr/internal/ocr"
	"github.com/MeKo-Tech/macocr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFileCommand_Text(t *testing.T) {
	dir := isolate(t)
	useStaticEngine(t, nil)
	path := testutil.WritePNG(t, dir)

	out, err := executeCommand(t, "file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "OCR result (")
	assert.Less(t, strings.Index(out, "hello"), strings.Index(out, "world"))
}

func TestFileCommand_JSON(t *testing.T) {
	dir := isolate(t)
	useStaticEngine(t, nil)
	path := testutil.WritePNG(t, dir)

	out, err := executeCommand(t, "file", path, "--format", "json")
	require.NoError(t, err)

	var data ocr.Data
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, []string{"hello", "world"}, data.FullText)
	assert.Len(t, data.Annotations, 2)
}

func TestFileCommand_FormatFromConfig(t *testing.T) {
	dir := isolate(t)
	useStaticEngine(t, nil)
	path := testutil.WritePNG(t, dir)
	t.Setenv("MACOCR_OUTPUT_FORMAT", "yaml")

	out, err := executeCommand(t, "file", path)
	require.NoError(t, err)

	var doc struct {
		FullText []string `yaml:"fullText"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, []string{"hello", "world"}, doc.FullText)
}

func TestFileCommand_OutputFile(t *testing.T) {
	dir := isolate(t)
	useStaticEngine(t, nil)
	path := testutil.WritePNG(t, dir)
	target := filepath.Join(dir, "result.csv")

	out, err := executeCommand(t, "file", path, "-f", "csv", "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "index,text,confidence"))
}

func TestFileCommand_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		isolate(t)
		useStaticEngine(t, nil)
		_, err := executeCommand(t, "file", "nope.png")
		require.Error(t, err)
		assert.True(t, errors.Is(err, imageio.ErrFileNotFound))
		assert.Equal(t, ocr.KindInvalidInput, ocr.ErrorKind(err))
	})

	t.Run("engine failure", func(t *testing.T) {
		dir := isolate(t)
		useStaticEngine(t, &engine.Static{Err: errors.New("vision unavailable")})
		_, err := executeCommand(t, "file", testutil.WritePNG(t, dir))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vision unavailable")
	})

	t.Run("invalid format", func(t *testing.T) {
		dir := isolate(t)
		useStaticEngine(t, nil)
		_, err := executeCommand(t, "file", testutil.WritePNG(t, dir), "--format", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid output format")
	})

	t.Run("no argument", func(t *testing.T) {
		isolate(t)
		_, err := executeCommand(t, "file")
		require.Error(t, err)
	})

	t.Run("engine construction", func(t *testing.T) {
		dir := isolate(t)
		prev := newEngine
		newEngine = func(engine.VisionOptions) (engine.Engine, error) { return nil, engine.ErrUnsupported }
		t.Cleanup(func() { newEngine = prev })

		_, err := executeCommand(t, "file", testutil.WritePNG(t, dir))
		require.Error(t, err)
		assert.ErrorIs(t, err, engine.ErrUnsupported)
	})
}

func TestPDFCommand_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		isolate(t)
		useStaticEngine(t, nil)
		_, err := executeCommand(t, "pdf", "missing.pdf")
		require.Error(t, err)
		assert.ErrorIs(t, err, imageio.ErrFileNotFound)
	})

	t.Run("invalid page range", func(t *testing.T) {
		dir := isolate(t)
		useStaticEngine(t, nil)
		path := filepath.Join(dir, "doc.pdf")
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o600))

		_, err := executeCommand(t, "pdf", path, "--pages", "3-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid page range")
	})

	t.Run("not a pdf", func(t *testing.T) {
		dir := isolate(t)
		useStaticEngine(t, nil)
		path := filepath.Join(dir, "doc.pdf")
		require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

		_, err := executeCommand(t, "pdf", path)
		require.Error(t, err)
	})
}
