package reporting

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"linkctl/pkg/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBuffer   = 64
	readLimitBytes = 4096
)

// Hub streams bus events to websocket clients.
type Hub struct {
	bus          *EventBus
	allowedHosts []string
	upgrader     websocket.Upgrader
}

// NewHub returns a hub reading from bus. Browser clients are accepted from the
// server's own origin and from pages served on allowedHosts (any port).
// Requests without an Origin header, such as CLI clients, are always accepted.
func NewHub(bus *EventBus, allowedHosts ...string) *Hub {
	h := &Hub{bus: bus}
	for _, host := range allowedHosts {
		if host != "" {
			h.allowedHosts = append(h.allowedHosts, strings.ToLower(host))
		}
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	if slices.Contains(h.allowedHosts, strings.ToLower(u.Hostname())) {
		return true
	}
	logging.Warn("Hub", "Rejected websocket from origin %s", origin)
	return false
}

// ServeWS upgrades the request and streams events until the client goes away.
// The optional "events" query parameter is a comma separated list of event
// names to receive.
func (h *Hub) ServeWS(c *gin.Context) {
	var names []string
	if q := c.Query("events"); q != "" {
		for _, n := range strings.Split(q, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error("Hub", err, "Failed to upgrade websocket")
		return
	}
	defer ws.Close()

	sub := h.bus.Subscribe(clientBuffer, names...)
	if sub == nil {
		_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		return
	}
	defer h.bus.Unsubscribe(sub)
	logging.Info("Hub", "Websocket client %s connected", sub.ID)

	if err := ws.WriteJSON(gin.H{"action": "connected", "clientId": sub.ID}); err != nil {
		return
	}

	done := make(chan struct{})
	go h.readPump(ws, sub.ID, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case event, ok := <-sub.Channel:
			if !ok {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(event); err != nil {
				logging.Warn("Hub", "Failed to write to client %s: %v", sub.ID, err)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			logging.Info("Hub", "Websocket client %s disconnected", sub.ID)
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// readPump discards client messages and closes done when the peer goes away.
func (h *Hub) readPump(ws *websocket.Conn, id string, done chan struct{}) {
	defer close(done)
	ws.SetReadLimit(readLimitBytes)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			logging.Debug("Hub", "Read from client %s ended: %v", id, err)
			return
		}
	}
}
