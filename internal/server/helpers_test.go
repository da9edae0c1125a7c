package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MeKo-Tech/macocr/internal/engine"
	"github.com/MeKo-Tech/macocr/internal/ocr"
	"github.com/MeKo-Tech/macocr/internal/testutil"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, eng engine.Engine) *ocr.Service {
	t.Helper()
	svc, err := ocr.NewService(eng, ocr.DefaultOptions())
	require.NoError(t, err)
	return svc
}

func newTestServer(t *testing.T, cfg Config, eng engine.Engine) *Server {
	t.Helper()
	if eng == nil {
		eng = testutil.StaticEngine()
	}
	s, err := NewServer(cfg, newTestService(t, eng))
	require.NoError(t, err)
	return s
}

func postOCR(t *testing.T, h http.Handler, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ocr", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ocr.Response {
	t.Helper()
	var resp ocr.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func jsonBody(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
