package handlers

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// OverlayHub pushes overlay snapshots to websocket viewers. Each viewer gets
// its own session subscription.
type OverlayHub struct {
	session  Session
	upgrader websocket.Upgrader
	logger   *slog.Logger
	clients  atomic.Int64
}

// NewOverlayHub creates a hub. checkOrigin decides which browser origins may connect.
func NewOverlayHub(session Session, checkOrigin func(origin string) bool, logger *slog.Logger) *OverlayHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverlayHub{
		session: session,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || checkOrigin == nil {
					return true
				}
				return checkOrigin(origin)
			},
		},
	}
}

// ClientCount returns the number of connected viewers.
func (h *OverlayHub) ClientCount() int {
	return int(h.clients.Load())
}

// ServeWS upgrades the connection and streams overlays until the viewer leaves
// or the session closes the subscription.
func (h *OverlayHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.session.Subscribe()
	defer unsubscribe()

	h.logger.Info("overlay viewer connected", "clients", h.clients.Add(1))
	defer func() {
		h.logger.Info("overlay viewer disconnected", "clients", h.clients.Add(-1))
	}()

	// Viewers send nothing; the read loop only handles pongs and close frames.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case ov, ok := <-updates:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := conn.WriteJSON(ov); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
