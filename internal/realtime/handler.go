package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/docbook-ai/internal/identity"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxInbound = 512
)

// Handler upgrades authenticated requests to WebSocket connections fed by the
// hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates the /ws handler. An empty allowedOrigins accepts any
// origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = struct{}{}
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[strings.TrimRight(origin, "/")]
				return ok
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := identity.RequireUser(r.Context())
	if err != nil {
		http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Warn("realtime: upgrade failed", "user_id", user.ID, "error", err)
		return
	}

	c := h.hub.register(user.ID)
	h.hub.logger.Debug("realtime: client connected", "user_id", user.ID)
	go h.writePump(c, conn)
	go h.readPump(c, conn)
}

// readPump drains client frames so control messages are processed, and
// unregisters the client when the connection drops.
func (h *Handler) readPump(c *client, conn *websocket.Conn) {
	defer func() {
		h.hub.unregister(c)
		conn.Close()
	}()
	conn.SetReadLimit(maxInbound)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(c *client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
