package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans a change notification out to every connection a user has open.
// The notification carries no payload beyond the user id; each listener
// re-fetches the record itself.
type Hub struct {
	clients    map[string]map[*websocket.Conn]bool
	register   chan *client
	unregister chan *client
	broadcast  chan *Message
}

type client struct {
	userID string
	conn   *websocket.Conn
}

type Message struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
}

func NewHub() *Hub {
	hub := &Hub{
		clients:    make(map[string]map[*websocket.Conn]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan *Message, 100),
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*websocket.Conn]bool)
			}
			h.clients[c.userID][c.conn] = true

		case c := <-h.unregister:
			if conns, ok := h.clients[c.userID]; ok {
				delete(conns, c.conn)
				if len(conns) == 0 {
					delete(h.clients, c.userID)
				}
			}

		case msg := <-h.broadcast:
			for conn := range h.clients[msg.UserID] {
				if err := conn.WriteJSON(msg); err != nil {
					conn.Close()
					delete(h.clients[msg.UserID], conn)
				}
			}
		}
	}
}

// NotifyUserChanged tells every view the given user has open that the
// record changed. Never blocks the caller; a full queue drops the signal
// (listeners re-sync on their next fetch anyway).
func (h *Hub) NotifyUserChanged(userID string) {
	select {
	case h.broadcast <- &Message{Type: "user_changed", UserID: userID}:
	default:
	}
}

type WebSocketHandler struct {
	hub *Hub
}

func NewWebSocketHandler(hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Error("Failed to upgrade to WebSocket")
		return
	}

	cl := &client{userID: userID, conn: conn}
	h.hub.register <- cl

	defer func() {
		h.hub.unregister <- cl
		conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Debug("WebSocket closed")
			}
			return
		}

		if msg.Type == "PING" {
			if err := conn.WriteJSON(&Message{Type: "PONG"}); err != nil {
				return
			}
		}
	}
}
