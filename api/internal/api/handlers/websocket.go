package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/irgordon/locker/api/internal/core/domain"
	"github.com/irgordon/locker/api/internal/telemetry"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// The feed is outbound only; inbound frames are control messages.
	maxMessageSize = 512
)

// EntryFeedHandler streams the caller's entry change events over a websocket.
type EntryFeedHandler struct {
	Hub      *telemetry.Hub
	Logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewEntryFeedHandler only accepts upgrades from the configured origins.
func NewEntryFeedHandler(hub *telemetry.Hub, allowedOrigins []string, logger *slog.Logger) *EntryFeedHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &EntryFeedHandler{
		Hub:    hub,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // non-browser clients
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Stream handles GET /api/v1/ws/entries
func (h *EntryFeedHandler) Stream(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("Failed to upgrade WebSocket connection",
			slog.String("user_id", claims.Subject.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	events := h.Hub.Subscribe(claims.Subject)
	defer h.Hub.Unsubscribe(claims.Subject, events)

	done := make(chan struct{})
	go h.readPump(ws, done)
	h.writePump(ws, events, done)
}

func (h *EntryFeedHandler) writePump(ws *websocket.Conn, events <-chan domain.EntryEvent, done <-chan struct{}) {
	defer ws.Close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := ws.WriteJSON(event); err != nil {
				h.Logger.Debug("Failed to write entry event", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

// readPump processes control frames and signals done when the peer goes away.
func (h *EntryFeedHandler) readPump(ws *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Logger.Warn("WebSocket closed unexpectedly", slog.String("error", err.Error()))
			}
			return
		}
	}
}
