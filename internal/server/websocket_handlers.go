package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/macocr/internal/ocr"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsWriteWait  = 10 * time.Second
)

// WebSocketOCRRequest is one text frame sent by the client. RequestID is
// echoed back; a fresh one is generated when absent.
type WebSocketOCRRequest struct {
	RequestID string `json:"request_id,omitempty"`
	ocr.Request
}

// WebSocketOCRResponse is the envelope sent back for each request.
type WebSocketOCRResponse struct {
	RequestID string `json:"request_id"`
	ocr.Response
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if s.corsOrigin == "*" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || origin == s.corsOrigin
		},
	}
}

// ocrWebSocketHandler serves /ws/ocr. Every text frame is handled like a
// POST /ocr body; replies are written in request order.
func (s *Server) ocrWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established",
		"request_id", requestIDFrom(r.Context()), "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(r, conn)
}

// lockedConn serializes writes from the reader loop and the pinger.
type lockedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *lockedConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(messageType, data)
}

func (s *Server) handleWebSocketConnection(r *http.Request, conn *websocket.Conn) {
	conn.SetReadLimit(s.maxBodyBytes())
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	writer := &lockedConn{conn: conn}
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType != websocket.TextMessage {
			s.sendWebSocketResponse(writer, WebSocketOCRResponse{
				RequestID: uuid.NewString(),
				Response:  ocr.Failure(http.StatusBadRequest, "Only text messages are supported"),
			})
			continue
		}
		s.sendWebSocketResponse(writer, s.handleWebSocketMessage(r, data))
		// A slow recognition must not trip the read deadline.
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}

// handleWebSocketMessage decodes and processes one request frame.
func (s *Server) handleWebSocketMessage(r *http.Request, data []byte) WebSocketOCRResponse {
	var req WebSocketOCRRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return WebSocketOCRResponse{
			RequestID: uuid.NewString(),
			Response:  ocr.Failure(http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err)),
		}
	}
	if req.RequestID == "" || len(req.RequestID) > maxRequestIDLength {
		req.RequestID = uuid.NewString()
	}

	result, res := s.process(r, req.Request, "websocket")
	if !res.ok {
		return WebSocketOCRResponse{RequestID: req.RequestID, Response: ocr.Failure(res.status, res.message)}
	}
	return WebSocketOCRResponse{RequestID: req.RequestID, Response: ocr.Success(result)}
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketOCRResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
