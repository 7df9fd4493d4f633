package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wisdom-empire/internal/config"
	ws "wisdom-empire/internal/websocket"
)

type WebSocketHandler struct {
	Hub      *ws.Hub
	Logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(cfg config.Config, hub *ws.Hub, logger *zap.Logger) *WebSocketHandler {
	origin := strings.TrimRight(cfg.OriginURL, "/")
	return &WebSocketHandler{
		Hub:    hub,
		Logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				o := r.Header.Get("Origin")
				return o == "" || o == origin
			},
		},
	}
}

// ServeFeed streams SupporterAlerts to the connection until either side
// goes away.
func (h *WebSocketHandler) ServeFeed(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Debug("failed to upgrade connection", zap.Error(err))
		return
	}

	client := &ws.Client{
		Hub:  h.Hub,
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	// Queued before registering; writePump only starts once the hub has the
	// client, so receiving it means alerts will follow.
	client.Send <- ws.Greeting
	if !client.Hub.Register(client) {
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

func (h *WebSocketHandler) writePump(client *ws.Client) {
	defer client.Conn.Close()

	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump only watches for the client closing; the feed is one way.
func (h *WebSocketHandler) readPump(client *ws.Client) {
	defer func() {
		client.Hub.Unregister(client)
		client.Conn.Close()
	}()

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Logger.Debug("feed read error", zap.Error(err))
			}
			break
		}
	}
}
