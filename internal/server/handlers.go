package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/macocr/internal/ocr"
	"github.com/MeKo-Tech/macocr/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Engine:  s.ocr.EngineName(),
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// ocrHandler runs recognition for a JSON request body of the form
// {"image_path": ...} or {"image_base64": ...}.
func (s *Server) ocrHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
	if r.ContentLength > 0 {
		uploadSizeBytes.Observe(float64(r.ContentLength))
	}

	var req ocr.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, r, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, r, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	data, res := s.process(r, req, "http")
	if !res.ok {
		s.writeErrorResponse(w, r, res.message, res.status)
		return
	}
	writeJSON(w, http.StatusOK, ocr.Success(data))
}

// outcome is the transport independent result of one recognition request.
type outcome struct {
	ok      bool
	status  int
	message string
}

// process runs req through the service and records OCR metrics under
// source.
func (s *Server) process(r *http.Request, req ocr.Request, source string) (*ocr.Data, outcome) {
	start := time.Now()
	data, err := s.ocr.Process(r.Context(), req)
	ocrProcessingDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	if err != nil {
		kind := ocr.ErrorKind(err)
		ocrRequestsTotal.WithLabelValues(source, kind.String()).Inc()
		status := ocr.ErrorStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Error("OCR request failed", "request_id", requestIDFrom(r.Context()), "error", err)
		} else {
			slog.Info("OCR request rejected",
				"request_id", requestIDFrom(r.Context()), "kind", kind.String(), "error", err)
		}
		return nil, outcome{status: status, message: err.Error()}
	}

	ocrRequestsTotal.WithLabelValues(source, "success").Inc()
	ocrFragments.WithLabelValues(source).Observe(float64(len(data.Annotations)))
	ocrLines.WithLabelValues(source).Observe(float64(len(data.FullText)))
	return data, outcome{ok: true, status: http.StatusOK}
}

// writeErrorResponse writes the {code, message, data:null} envelope with a
// matching HTTP status.
func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	if r != nil {
		if id := requestIDFrom(r.Context()); id != "" {
			w.Header().Set(requestIDHeader, id)
		}
	}
	writeJSON(w, statusCode, ocr.Failure(statusCode, message))
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Log error, but can't send another response
		slog.Error("Failed to encode response", "error", err)
	}
}
