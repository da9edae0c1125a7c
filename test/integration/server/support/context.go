package support

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/macocr/internal/engine"
	"github.com/MeKo-Tech/macocr/internal/lines"
	"github.com/MeKo-Tech/macocr/internal/ocr"
	"github.com/MeKo-Tech/macocr/internal/server"
	"github.com/MeKo-Tech/macocr/internal/testutil"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	TempDir string

	Engine     *engine.Static
	Token      string
	Threshold  float64
	HTTPServer *httptest.Server

	LastStatusCode int
	LastHeaders    http.Header
	LastBody       []byte
	LastEnvelope   *Envelope
}

// Envelope mirrors the JSON reply of POST /ocr.
type Envelope struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Data    *json.RawMessage `json:"data"`
}

// NewTestContext creates a scenario context with its own temp directory.
func NewTestContext() (*TestContext, error) {
	dir, err := os.MkdirTemp("", "macocr-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		TempDir:   dir,
		Engine:    &engine.Static{},
		Threshold: lines.DefaultThreshold,
	}, nil
}

// Cleanup stops the server and removes scenario files.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}
	return os.RemoveAll(testCtx.TempDir)
}

// startServer builds the real handler chain around the static engine.
func (testCtx *TestContext) startServer() error {
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
	}
	opts := ocr.DefaultOptions()
	opts.Threshold = testCtx.Threshold
	svc, err := ocr.NewService(testCtx.Engine, opts)
	if err != nil {
		return err
	}
	srv, err := server.NewServer(server.Config{Token: testCtx.Token, TimeoutSec: 30}, svc)
	if err != nil {
		return err
	}
	testCtx.HTTPServer = httptest.NewServer(srv.Handler())
	return nil
}

func (testCtx *TestContext) ensureServer() error {
	if testCtx.HTTPServer != nil {
		return nil
	}
	return testCtx.startServer()
}

// path resolves a scenario file name inside the temp directory.
func (testCtx *TestContext) path(name string) string {
	return filepath.Join(testCtx.TempDir, name)
}

func (testCtx *TestContext) writePNG(name string) error {
	data, err := testutil.EncodePNG(testutil.GenerateTextImage(testutil.DefaultTextImageConfig()))
	if err != nil {
		return err
	}
	return os.WriteFile(testCtx.path(name), data, 0o600)
}

func (testCtx *TestContext) base64Of(name string) (string, error) {
	data, err := os.ReadFile(testCtx.path(name))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// do sends a request to the running server and records the reply.
func (testCtx *TestContext) do(method, route, body string, header http.Header) error {
	if err := testCtx.ensureServer(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), method, testCtx.HTTPServer.URL+route, strings.NewReader(body))
	if err != nil {
		return err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	testCtx.LastStatusCode = resp.StatusCode
	testCtx.LastHeaders = resp.Header
	testCtx.LastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	testCtx.LastEnvelope = nil
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") && route == "/ocr" {
		var env Envelope
		if err := json.Unmarshal(testCtx.LastBody, &env); err != nil {
			return fmt.Errorf("invalid JSON envelope %q: %w", testCtx.LastBody, err)
		}
		testCtx.LastEnvelope = &env
	}
	return nil
}

func (testCtx *TestContext) envelope() (*Envelope, error) {
	if testCtx.LastEnvelope == nil {
		return nil, fmt.Errorf("no OCR envelope recorded (status %d, body %q)", testCtx.LastStatusCode, testCtx.LastBody)
	}
	return testCtx.LastEnvelope, nil
}

func (testCtx *TestContext) data() (*ocr.Data, error) {
	env, err := testCtx.envelope()
	if err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, fmt.Errorf("envelope has no data: %s", env.Message)
	}
	var d ocr.Data
	if err := json.Unmarshal(*env.Data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
