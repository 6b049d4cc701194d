package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
}

// handleWebSocket pushes a frame on connect and after every viewer change.
// Change signals coalesce, so a slow client only ever receives the latest frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()

	s.metrics.WebSocketClients.Inc()
	defer s.metrics.WebSocketClients.Dec()
	s.logger.Debug("frame stream connected", "remote", r.RemoteAddr)

	updates, unsubscribe := s.viewer.Subscribe()
	defer unsubscribe()

	gone := make(chan struct{})
	go readUntilClosed(conn, gone)

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	if err := s.pushFrame(conn); err != nil {
		return
	}
	for {
		select {
		case <-gone:
			return
		case _, ok := <-updates:
			if !ok {
				deadline := time.Now().Add(wsWriteWait)
				conn.WriteControl(websocket.CloseMessage, //nolint:errcheck // closing anyway
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "viewer closed"), deadline)
				return
			}
			if err := s.pushFrame(conn); err != nil {
				s.logger.Debug("frame stream write failed", "error", err, "remote", r.RemoteAddr)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck // surfaced by the write
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) pushFrame(conn *websocket.Conn) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck // surfaced by the write
	return conn.WriteJSON(s.viewer.Frame())
}

// readUntilClosed drains client messages so control frames are processed,
// and closes gone once the connection fails or the peer goes quiet.
func readUntilClosed(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait)) //nolint:errcheck // surfaced by the read
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
