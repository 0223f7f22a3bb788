package sse

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/graphscribe/graphscribe/pkg/logging"
	"github.com/graphscribe/graphscribe/pkg/middleware"
)

const (
	// Time allowed to write a message to the peer
	wsWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	wsPongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than wsPongWait
	wsPingPeriod = (wsPongWait * 9) / 10

	// Maximum inbound message size; clients only send subscription requests
	wsMaxMessageSize = 512
)

// SubscriptionMessage is an inbound subscribe/unsubscribe request on a
// WebSocket connection.
type SubscriptionMessage struct {
	Action string   `json:"action"` // "subscribe" or "unsubscribe"
	Events []string `json:"events"`
}

// ServeWS mirrors the event stream over a WebSocket connection: one text
// frame per formatted event. Admission and bookkeeping are shared with the
// SSE path through the registry.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !s.IsRunning() {
		http.Error(w, `{"error":"server not running"}`, http.StatusServiceUnavailable)
		return
	}

	conn, ok := s.accept(r, "ws")
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"connection limit exceeded"}`))
		return
	}

	cors := middleware.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || cors.AllowsOrigin(origin)
		},
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		s.registry.Remove(conn.ID)
		if s.metrics != nil {
			s.metrics.ActiveConnections.WithLabelValues("ws").Dec()
		}
		return
	}

	if err := s.Send(conn, Event{
		Event: EventConnected,
		Data:  ConnectedData{ConnectionID: conn.ID, Timestamp: time.Now().UTC()},
	}); err != nil {
		s.registry.Remove(conn.ID)
	}

	go s.wsWritePump(ws, conn)
	go s.wsReadPump(ws, conn)
}

// wsWritePump drains the sink into WebSocket text frames and keeps the
// connection alive with pings.
func (s *Server) wsWritePump(ws *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(wsPingPeriod)
	stopCh := s.stopChan()

	defer func() {
		ticker.Stop()
		ws.Close()
		s.registry.Remove(conn.ID)
		if s.metrics != nil {
			s.metrics.ActiveConnections.WithLabelValues("ws").Dec()
		}
	}()

	for {
		select {
		case payload := <-conn.Sink():
			ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			conn.Touch()
		case <-conn.Done():
			ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-stopCh:
			return
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// wsReadPump consumes inbound frames for disconnect detection, keep-alive
// and subscription management.
func (s *Server) wsReadPump(ws *websocket.Conn, conn *Connection) {
	defer func() {
		s.registry.Remove(conn.ID)
		ws.Close()
	}()

	ws.SetReadLimit(wsMaxMessageSize)
	ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(wsPongWait))
		s.registry.Touch(conn.ID)
		return nil
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.WithFields(logging.Fields{
					"connection_id": conn.ID,
				}).WithError(err).Debug("WebSocket read error")
			}
			return
		}
		s.registry.Touch(conn.ID)

		var subMsg SubscriptionMessage
		if err := json.Unmarshal(message, &subMsg); err != nil {
			s.logger.WithError(err).Warn("Invalid subscription message")
			continue
		}

		switch subMsg.Action {
		case "subscribe":
			s.registry.Subscribe(conn.ID, subMsg.Events...)
		case "unsubscribe":
			s.registry.Unsubscribe(conn.ID, subMsg.Events...)
		}
	}
}
