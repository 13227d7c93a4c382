package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"spinbet-backend/internal/models"
	"spinbet-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler owns the hub of connected players. It implements
// services.Broadcaster so the engines can push settlements and balance
// changes without knowing about connections.
type WebSocketHandler struct {
	store services.Store
	hub   *webSocketHub
}

type webSocketHub struct {
	clients    map[int64]*websocket.Conn
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan *wsMessage
}

type wsClient struct {
	UserID int64
	Conn   *websocket.Conn
}

type wsMessage struct {
	Type   string      `json:"type"`
	UserID int64       `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler(store services.Store) *WebSocketHandler {
	hub := &webSocketHub{
		clients:    make(map[int64]*websocket.Conn),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan *wsMessage, 100),
	}

	go hub.run()

	return &WebSocketHandler{
		store: store,
		hub:   hub,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &wsClient{
		UserID: userID,
		Conn:   conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendBalance(c, client)

	for {
		var msg wsMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if msg.Type == "PING" {
			h.sendPong(client)
		}
	}
}

func (h *WebSocketHandler) sendBalance(c *gin.Context, client *wsClient) {
	acct, err := h.store.GetAccount(c.Request.Context(), client.UserID)
	if err != nil {
		log.Printf("Failed to get account for WS: %v", err)
		return
	}

	client.Conn.WriteJSON(wsMessage{
		Type: "BALANCE_UPDATE",
		Data: gin.H{
			"balance": acct.Balance,
		},
	})
}

func (h *WebSocketHandler) sendPong(client *wsClient) {
	client.Conn.WriteJSON(wsMessage{
		Type: "PONG",
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	})
}

// BroadcastSettlement fans a settled round out to everyone. The stake and
// payout are public; the player's identity is just their id.
func (h *WebSocketHandler) BroadcastSettlement(uid int64, game models.GameType, stake, payout float64) {
	h.hub.broadcast <- &wsMessage{
		Type: "ROUND_SETTLED",
		Data: gin.H{
			"uid":       uid,
			"game":      game,
			"stake":     stake,
			"payout":    payout,
			"timestamp": time.Now().Unix(),
		},
	}
}

// BroadcastBalance notifies one player of their new balance.
func (h *WebSocketHandler) BroadcastBalance(uid int64, balance float64) {
	h.hub.broadcast <- &wsMessage{
		Type:   "BALANCE_UPDATE",
		UserID: uid,
		Data: gin.H{
			"balance":   balance,
			"timestamp": time.Now().Unix(),
		},
	}
}

func (hub *webSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.UserID] = client.Conn
			log.Printf("Client registered: %d", client.UserID)

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.UserID]; ok {
				delete(hub.clients, client.UserID)
				log.Printf("Client unregistered: %d", client.UserID)
			}

		case message := <-hub.broadcast:
			hub.send(message)
		}
	}
}

func (hub *webSocketHub) send(message *wsMessage) {
	if message.UserID != 0 {
		if conn, ok := hub.clients[message.UserID]; ok {
			conn.WriteJSON(message)
		}
		return
	}
	for _, conn := range hub.clients {
		conn.WriteJSON(message)
	}
}
